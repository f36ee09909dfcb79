// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads mender's configuration from defaults, a YAML file,
// a .env file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tombee/mender/internal/log"
	"github.com/tombee/mender/internal/network"
	"github.com/tombee/mender/internal/storage"
	"github.com/tombee/mender/internal/tracing"
	"github.com/tombee/mender/pkg/handler"
	"github.com/tombee/mender/pkg/recovery"
)

var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config is the complete mender configuration.
type Config struct {
	Handler   HandlerConfig   `yaml:"handler"`
	Recovery  RecoveryConfig  `yaml:"recovery"`
	Log       LogConfig       `yaml:"log"`
	Storage   storage.Config  `yaml:"storage"`
	Network   network.Config  `yaml:"network"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Scenarios ScenariosConfig `yaml:"scenarios"`
	Tracing   tracing.Config  `yaml:"tracing"`
}

// HandlerConfig configures the error handler.
type HandlerConfig struct {
	// Notifications emits a user notification per handled error.
	Notifications bool `yaml:"notifications"`

	// Logging writes a log record per handled error.
	Logging bool `yaml:"logging"`

	// Recovery runs the registered strategy for recoverable errors.
	Recovery bool `yaml:"recovery"`

	// MaxRetries is the retry budget of Handler.Retry.
	MaxRetries int `yaml:"max_retries"`

	// RetryBaseDelay is the first retry delay; later ones double.
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`

	// HistorySize caps the in-memory error history.
	HistorySize int `yaml:"history_size"`

	// NotificationDuration is how long a notification stays visible.
	NotificationDuration time.Duration `yaml:"notification_duration"`
}

// RecoveryConfig configures the default recovery strategies.
type RecoveryConfig struct {
	// NetworkWait is how long the network strategy waits before probing.
	NetworkWait time.Duration `yaml:"network_wait"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ScenariosConfig configures scenario discovery and execution.
type ScenariosConfig struct {
	// Dir holds scenario definitions (*.yaml, *.yml).
	Dir string `yaml:"dir"`

	// Concurrency bounds how many scenarios run at once.
	Concurrency int `yaml:"concurrency"`

	// PersistReports stores each run's outcome in the configured storage.
	PersistReports bool `yaml:"persist_reports"`
}

// Default returns the built-in configuration.
func Default() *Config {
	h := handler.DefaultConfig()
	return &Config{
		Handler: HandlerConfig{
			Notifications:        h.EnableNotifications,
			Logging:              h.EnableLogging,
			Recovery:             h.EnableRecovery,
			MaxRetries:           h.MaxRetries,
			RetryBaseDelay:       h.RetryBaseDelay,
			HistorySize:          h.HistorySize,
			NotificationDuration: h.NotificationDuration,
		},
		Recovery: RecoveryConfig{NetworkWait: recovery.DefaultNetworkWait},
		Log: LogConfig{
			Level:  "info",
			Format: string(log.FormatText),
		},
		Storage: storage.Config{
			Driver:    storage.DriverMemory,
			Namespace: "mender",
		},
		Network: network.DefaultConfig(),
		Metrics: MetricsConfig{Addr: ":9464"},
		Scenarios: ScenariosConfig{
			Dir:            "scenarios",
			Concurrency:    4,
			PersistReports: true,
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// Load builds the configuration. An empty configPath falls back to
// DiscoverPath; a missing discovered file is not an error, a missing
// explicit one is. Variables in ./.env are loaded without overriding the
// real environment.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	path := configPath
	if path == "" {
		path = DiscoverPath()
	}
	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// loadFromEnv applies environment overrides. Malformed numbers and
// durations are ignored.
func (c *Config) loadFromEnv() {
	// Log configuration
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("MENDER_LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if isTrue(os.Getenv("MENDER_DEBUG")) {
		c.Log.Level = "debug"
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = isTrue(val)
	}

	// Handler and recovery
	if val := os.Getenv("MENDER_MAX_RETRIES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Handler.MaxRetries = n
		}
	}
	if val := os.Getenv("MENDER_RETRY_BASE_DELAY"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Handler.RetryBaseDelay = d
		}
	}
	if val := os.Getenv("MENDER_NETWORK_WAIT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Recovery.NetworkWait = d
		}
	}

	// Storage
	if val := os.Getenv("MENDER_STORAGE_DRIVER"); val != "" {
		c.Storage.Driver = strings.ToLower(val)
	}
	if val := os.Getenv("MENDER_STORAGE_PATH"); val != "" {
		c.Storage.Path = val
	}
	if val := os.Getenv("MENDER_REDIS_URL"); val != "" {
		c.Storage.RedisURL = val
	}

	// Network
	if val := os.Getenv("MENDER_NETWORK_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Network.Timeout = d
		}
	}
	if val := os.Getenv("MENDER_RATE_LIMIT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Network.RateLimit = f
		}
	}
	if val := os.Getenv("MENDER_PROBE_URL"); val != "" {
		c.Network.ProbeURL = val
	}

	// Metrics
	if val := os.Getenv("MENDER_METRICS_ADDR"); val != "" {
		c.Metrics.Addr = val
		c.Metrics.Enabled = true
	}

	// Scenarios
	if val := os.Getenv("MENDER_SCENARIOS_DIR"); val != "" {
		c.Scenarios.Dir = val
	}
	if val := os.Getenv("MENDER_CONCURRENCY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Scenarios.Concurrency = n
		}
	}

	// Tracing
	if val := os.Getenv("MENDER_TRACING_ENABLED"); val != "" {
		c.Tracing.Enabled = isTrue(val)
	}
	if val := os.Getenv("OTEL_SERVICE_NAME"); val != "" {
		c.Tracing.ServiceName = val
	}
	if val := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); val != "" && len(c.Tracing.Exporters) == 0 {
		c.Tracing.Enabled = true
		c.Tracing.Exporters = []tracing.ExporterConfig{{
			Type:     tracing.ExporterOTLP,
			Endpoint: val,
		}}
	}
}

func isTrue(val string) bool {
	return val == "1" || strings.EqualFold(val, "true")
}

// Validate checks every section.
func (c *Config) Validate() error {
	var errs []error

	if err := c.ToHandler().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("handler: %w", err))
	}
	if c.Recovery.NetworkWait < 0 {
		errs = append(errs, fmt.Errorf("recovery: network_wait must be >= 0, got %v", c.Recovery.NetworkWait))
	}
	if !log.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log: invalid level %q", c.Log.Level))
	}
	switch log.Format(c.Log.Format) {
	case log.FormatJSON, log.FormatText:
	default:
		errs = append(errs, fmt.Errorf("log: invalid format %q (must be json or text)", c.Log.Format))
	}
	if !storage.ValidDriver(c.Storage.Driver) {
		errs = append(errs, fmt.Errorf("storage: unknown driver %q", c.Storage.Driver))
	}
	if c.Storage.Driver == storage.DriverSQLite && c.Storage.Path == "" {
		errs = append(errs, fmt.Errorf("storage: path is required for the sqlite driver"))
	}
	if c.Storage.Driver == storage.DriverRedis && c.Storage.RedisURL == "" {
		errs = append(errs, fmt.Errorf("storage: redis_url is required for the redis driver"))
	}
	if err := c.Network.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("network: %w", err))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, fmt.Errorf("metrics: addr is required when enabled"))
	}
	if c.Scenarios.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("scenarios: concurrency must be >= 1, got %d", c.Scenarios.Concurrency))
	}
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}

	return errors.Join(errs...)
}

// ToHandler converts the handler section.
func (c *Config) ToHandler() handler.Config {
	return handler.Config{
		EnableNotifications:  c.Handler.Notifications,
		EnableLogging:        c.Handler.Logging,
		EnableRecovery:       c.Handler.Recovery,
		MaxRetries:           c.Handler.MaxRetries,
		RetryBaseDelay:       c.Handler.RetryBaseDelay,
		HistorySize:          c.Handler.HistorySize,
		NotificationDuration: c.Handler.NotificationDuration,
	}
}

// ToLog converts the log section, writing to w.
func (c *Config) ToLog(w io.Writer) *log.Config {
	return &log.Config{
		Level:     c.Log.Level,
		Format:    log.Format(c.Log.Format),
		Output:    w,
		AddSource: c.Log.AddSource,
	}
}
