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
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tombee/mender/pkg/errors"
)

// NotificationType is the display style of a notification.
type NotificationType string

const (
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// NotificationTitle is the title used for every error notification.
const NotificationTitle = "Error"

// Notification is what the handler sends to the notification sink.
type Notification struct {
	ID       string           `json:"id"`
	Type     NotificationType `json:"type"`
	Title    string           `json:"title"`
	Message  string           `json:"message"`
	Duration time.Duration    `json:"duration"`
}

// Notifier receives notifications. It is called on its own goroutine and
// must not assume it blocks HandleError.
type Notifier func(Notification)

// TypeForSeverity maps a severity to a notification type.
func TypeForSeverity(s errors.Severity) NotificationType {
	switch s {
	case errors.SeverityCritical, errors.SeverityHigh:
		return NotificationError
	case errors.SeverityLow:
		return NotificationInfo
	default:
		return NotificationWarning
	}
}

func newNotification(err *errors.Error, duration time.Duration) Notification {
	return Notification{
		ID:       uuid.NewString(),
		Type:     TypeForSeverity(err.Severity()),
		Title:    NotificationTitle,
		Message:  errors.ToUserMessage(err),
		Duration: duration,
	}
}

// notify fires the notifier without blocking the caller. Panics in the
// sink are logged and dropped.
func (h *Handler) notify(err *errors.Error) {
	h.mu.Lock()
	sink := h.notifier
	h.mu.Unlock()

	if sink == nil {
		return
	}

	n := newNotification(err, h.cfg.NotificationDuration)
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Warn("notification sink panicked",
					slog.String("notification_id", n.ID),
					slog.Any("panic", r),
				)
			}
		}()
		sink(n)
	}()
}
