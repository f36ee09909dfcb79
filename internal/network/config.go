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

package network

import (
	"fmt"
	"time"
)

// Config configures the HTTP client behind Fetcher and Probe.
type Config struct {
	// Timeout bounds each request, including reading the body.
	// Default: 30s. Must be > 0.
	Timeout time.Duration `yaml:"timeout"`

	// RateLimit is the steady-state number of requests per second.
	// Zero disables client-side rate limiting.
	RateLimit float64 `yaml:"rate_limit"`

	// Burst is how many requests may exceed RateLimit momentarily.
	// Default: 1.
	Burst int `yaml:"burst"`

	// UserAgent is set on requests that do not carry one.
	UserAgent string `yaml:"user_agent"`

	// ProbeURL is the target of connectivity checks.
	ProbeURL string `yaml:"probe_url"`

	// MaxBodyBytes caps how much of a response body Fetch reads.
	// Default: 10MB.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		RateLimit:    0,
		Burst:        1,
		UserAgent:    "mender/1.0",
		ProbeURL:     "https://www.google.com/generate_204",
		MaxBodyBytes: 10 * 1024 * 1024,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be >= 0, got %v", c.RateLimit)
	}
	if c.RateLimit > 0 && c.Burst < 1 {
		return fmt.Errorf("burst must be >= 1 when rate_limit is set, got %d", c.Burst)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must be >= 0, got %d", c.MaxBodyBytes)
	}
	return nil
}
