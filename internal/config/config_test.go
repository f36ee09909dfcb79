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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/mender/internal/storage"
	"github.com/tombee/mender/internal/tracing"
	"github.com/tombee/mender/pkg/handler"
)

// isolate runs the test in an empty directory with no user config.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	for _, key := range []string{
		"LOG_LEVEL", "LOG_FORMAT", "LOG_SOURCE", "MENDER_LOG_LEVEL", "MENDER_DEBUG",
		"MENDER_STORAGE_DRIVER", "MENDER_STORAGE_PATH", "MENDER_REDIS_URL",
		"MENDER_METRICS_ADDR", "MENDER_CONCURRENCY", "MENDER_SCENARIOS_DIR",
		"MENDER_NETWORK_WAIT", "MENDER_MAX_RETRIES", "MENDER_TRACING_ENABLED",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, handler.DefaultConfig(), cfg.ToHandler())
	assert.Equal(t, storage.DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Scenarios.Concurrency)
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_DiscoversWorkingDirectoryFile(t *testing.T) {
	dir := isolate(t)
	write(t, filepath.Join(dir, FileName), `
handler:
  max_retries: 5
  retry_base_delay: 250ms
recovery:
  network_wait: 1s
storage:
  driver: sqlite
  path: mender.db
scenarios:
  dir: checks
  concurrency: 2
`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Handler.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Handler.RetryBaseDelay)
	assert.Equal(t, time.Second, cfg.Recovery.NetworkWait)
	assert.Equal(t, storage.DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "checks", cfg.Scenarios.Dir)
	assert.Equal(t, 2, cfg.Scenarios.Concurrency)

	// Sections the file leaves out keep their defaults.
	assert.True(t, cfg.Handler.Recovery)
	assert.Equal(t, 30*time.Second, cfg.Network.Timeout)
}

func TestLoad_UserConfigDir(t *testing.T) {
	dir := isolate(t)
	write(t, filepath.Join(dir, "xdg", "mender", "config.yaml"), "log:\n  level: warn\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	isolate(t)
	_, err := Load("missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	write(t, path, "log:\n  level: warn\nscenarios:\n  concurrency: 2\n")

	t.Setenv("MENDER_LOG_LEVEL", "ERROR")
	t.Setenv("MENDER_CONCURRENCY", "8")
	t.Setenv("MENDER_METRICS_ADDR", ":9999")
	t.Setenv("MENDER_NETWORK_WAIT", "not-a-duration")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Scenarios.Concurrency)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)
	assert.Equal(t, Default().Recovery.NetworkWait, cfg.Recovery.NetworkWait)
}

func TestLoad_DebugWins(t *testing.T) {
	isolate(t)
	t.Setenv("MENDER_LOG_LEVEL", "warn")
	t.Setenv("MENDER_DEBUG", "1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	write(t, filepath.Join(dir, ".env"), "MENDER_SCENARIOS_DIR=from-dotenv\nMENDER_STORAGE_DRIVER=redis\nMENDER_REDIS_URL=redis://localhost:6379/0\n")
	// Real environment beats .env. An empty value counts as set.
	os.Unsetenv("MENDER_SCENARIOS_DIR")
	os.Unsetenv("MENDER_STORAGE_DRIVER")
	os.Unsetenv("MENDER_REDIS_URL")
	t.Cleanup(func() {
		os.Unsetenv("MENDER_SCENARIOS_DIR")
		os.Unsetenv("MENDER_STORAGE_DRIVER")
		os.Unsetenv("MENDER_REDIS_URL")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Scenarios.Dir)
	assert.Equal(t, storage.DriverRedis, cfg.Storage.Driver)
}

func TestLoad_OTLPEndpointEnablesTracing(t *testing.T) {
	isolate(t)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Tracing.Enabled)
	require.Len(t, cfg.Tracing.Exporters, 1)
	assert.Equal(t, tracing.ExporterOTLP, cfg.Tracing.Exporters[0].Type)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"negative retries", func(c *Config) { c.Handler.MaxRetries = -1 }, "handler: max_retries"},
		{"zero history", func(c *Config) { c.Handler.HistorySize = 0 }, "history_size"},
		{"negative wait", func(c *Config) { c.Recovery.NetworkWait = -time.Second }, "network_wait"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, `invalid level "loud"`},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, `invalid format "xml"`},
		{"bad driver", func(c *Config) { c.Storage.Driver = "etcd" }, `unknown driver "etcd"`},
		{"sqlite without path", func(c *Config) { c.Storage.Driver = storage.DriverSQLite }, "path is required"},
		{"redis without url", func(c *Config) { c.Storage.Driver = storage.DriverRedis }, "redis_url is required"},
		{"zero timeout", func(c *Config) { c.Network.Timeout = 0 }, "network: timeout"},
		{"metrics without addr", func(c *Config) { c.Metrics = MetricsConfig{Enabled: true} }, "addr is required"},
		{"zero concurrency", func(c *Config) { c.Scenarios.Concurrency = 0 }, "concurrency must be >= 1"},
		{"bad sampling", func(c *Config) { c.Tracing.Sampling.Rate = 2 }, "tracing: sampling rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InvalidIsWrapped(t *testing.T) {
	dir := isolate(t)
	write(t, filepath.Join(dir, FileName), "scenarios:\n  concurrency: 0\n")

	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestToLog(t *testing.T) {
	cfg := Default()
	cfg.Log.AddSource = true
	lc := cfg.ToLog(os.Stdout)
	assert.Equal(t, "info", lc.Level)
	assert.True(t, lc.AddSource)
	assert.Equal(t, os.Stdout, lc.Output)
}
