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

package storage

import "fmt"

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Driver    string `yaml:"driver"`
	Path      string `yaml:"path"`
	RedisURL  string `yaml:"redis_url"`
	Namespace string `yaml:"namespace"`
}

// ValidDriver reports whether Open understands driver.
func ValidDriver(driver string) bool {
	switch driver {
	case DriverMemory, DriverSQLite, DriverRedis:
		return true
	}
	return false
}

// Open creates the backend named by cfg.Driver and wraps it in a Store.
func Open(cfg Config, opts ...Option) (*Store, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Driver {
	case DriverMemory, "":
		backend = NewMemory(0)
	case DriverSQLite:
		backend, err = NewSQLite(cfg.Path)
	case DriverRedis:
		backend, err = NewRedis(RedisConfig{URL: cfg.RedisURL})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Namespace != "" {
		opts = append([]Option{WithNamespace(cfg.Namespace)}, opts...)
	}
	return New(backend, opts...), nil
}
