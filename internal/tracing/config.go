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

package tracing

import (
	"fmt"
	"time"
)

// Exporter types.
const (
	ExporterConsole  = "console"
	ExporterOTLP     = "otlp"
	ExporterOTLPHTTP = "otlp-http"
)

// Config holds tracing configuration.
type Config struct {
	// Enabled controls whether spans are exported at all.
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies this service in traces.
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is the application version.
	ServiceVersion string `yaml:"service_version"`

	// Sampling configures trace sampling.
	Sampling SamplingConfig `yaml:"sampling"`

	// Exporters lists span export destinations.
	Exporters []ExporterConfig `yaml:"exporters"`

	// BatchTimeout is how often batched spans are flushed (default: 5s).
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// SamplingConfig controls which traces are recorded.
type SamplingConfig struct {
	// Rate is the fraction of traces to sample (0.0 - 1.0).
	Rate float64 `yaml:"rate"`
}

// ExporterConfig defines a span export destination.
type ExporterConfig struct {
	// Type is "console", "otlp" or "otlp-http".
	Type string `yaml:"type"`

	// Endpoint is the OTLP receiver address.
	Endpoint string `yaml:"endpoint"`

	// Headers are extra headers sent with every export.
	Headers map[string]string `yaml:"headers"`

	// Insecure disables TLS for OTLP exporters.
	Insecure bool `yaml:"insecure"`

	// CACertPath is an optional CA bundle for OTLP exporters.
	CACertPath string `yaml:"ca_cert"`

	// Pretty enables indented console output.
	Pretty bool `yaml:"pretty"`
}

// DefaultConfig returns a disabled configuration that samples every trace.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "mender",
		ServiceVersion: "unknown",
		Sampling:       SamplingConfig{Rate: 1.0},
		BatchTimeout:   5 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Sampling.Rate < 0 || c.Sampling.Rate > 1 {
		return fmt.Errorf("sampling rate must be between 0 and 1, got %v", c.Sampling.Rate)
	}
	if c.BatchTimeout < 0 {
		return fmt.Errorf("batch_timeout must be >= 0, got %v", c.BatchTimeout)
	}
	for i, e := range c.Exporters {
		switch e.Type {
		case ExporterConsole:
		case ExporterOTLP, ExporterOTLPHTTP:
			if e.Endpoint == "" {
				return fmt.Errorf("exporters[%d]: endpoint is required for %s", i, e.Type)
			}
		default:
			return fmt.Errorf("exporters[%d]: unknown type %q", i, e.Type)
		}
	}
	return nil
}
