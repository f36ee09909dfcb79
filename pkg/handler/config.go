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

package handler

import (
	"fmt"
	"time"
)

// Defaults applied by DefaultConfig.
const (
	DefaultMaxRetries           = 3
	DefaultRetryBaseDelay       = time.Second
	DefaultHistorySize          = 100
	DefaultNotificationDuration = 5 * time.Second
)

// Config controls which side effects HandleError performs.
type Config struct {
	// EnableNotifications emits a Notification for every handled error
	// when a notifier is configured.
	EnableNotifications bool

	// EnableLogging writes a LogRecord for every handled error.
	EnableLogging bool

	// EnableRecovery invokes the recovery strategy for recoverable errors.
	EnableRecovery bool

	// MaxRetries is the number of retries Handler.Retry performs after
	// the initial attempt.
	MaxRetries int

	// RetryBaseDelay is the delay before the first retry. Each further
	// retry doubles it.
	RetryBaseDelay time.Duration

	// HistorySize caps the error history. Oldest entries are evicted first.
	HistorySize int

	// NotificationDuration is how long a notification should be displayed.
	NotificationDuration time.Duration
}

// DefaultConfig returns the configuration used by New.
func DefaultConfig() Config {
	return Config{
		EnableNotifications:  true,
		EnableLogging:        true,
		EnableRecovery:       true,
		MaxRetries:           DefaultMaxRetries,
		RetryBaseDelay:       DefaultRetryBaseDelay,
		HistorySize:          DefaultHistorySize,
		NotificationDuration: DefaultNotificationDuration,
	}
}

// Validate checks the configuration for impossible values.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.RetryBaseDelay < 0 {
		return fmt.Errorf("retry_base_delay must be >= 0, got %v", c.RetryBaseDelay)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("history_size must be > 0, got %d", c.HistorySize)
	}
	if c.NotificationDuration < 0 {
		return fmt.Errorf("notification_duration must be >= 0, got %v", c.NotificationDuration)
	}
	return nil
}
