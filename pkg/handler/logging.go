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
	"context"
	"log/slog"
	"time"

	internallog "github.com/tombee/mender/internal/log"
	"github.com/tombee/mender/pkg/errors"
)

// LogRecord is what the logging sink receives for every handled error.
type LogRecord struct {
	Timestamp time.Time        `json:"timestamp"`
	Context   string           `json:"context,omitempty"`
	Error     *errors.Response `json:"error"`
}

// LogFunc is a pluggable logging sink.
type LogFunc func(LogRecord)

// SlogLogFunc returns a LogFunc that writes records through logger. The
// level follows the error's severity.
func SlogLogFunc(logger *slog.Logger) LogFunc {
	return func(rec LogRecord) {
		if rec.Error == nil {
			return
		}
		attrs := []slog.Attr{
			slog.String(internallog.KindKey, rec.Error.Kind),
			slog.String(internallog.SeverityKey, rec.Error.Severity),
			slog.Bool("recoverable", rec.Error.Recoverable),
			slog.String("trace_id", rec.Error.Metadata.TraceID),
			slog.Time("error_timestamp", rec.Error.Metadata.Timestamp),
		}
		if rec.Context != "" {
			attrs = append(attrs, slog.String("context", rec.Context))
		}
		if rec.Error.Metadata.Origin != "" {
			attrs = append(attrs, slog.String(internallog.OriginKey, rec.Error.Metadata.Origin))
		}
		if rec.Error.Status != 0 {
			attrs = append(attrs, slog.Int("status", rec.Error.Status))
		}
		if rec.Error.Endpoint != "" {
			attrs = append(attrs, slog.String("endpoint", rec.Error.Endpoint))
		}
		if rec.Error.Component != "" {
			attrs = append(attrs, slog.String(internallog.ComponentKey, rec.Error.Component))
		}
		if len(rec.Error.Metadata.Extra) > 0 {
			attrs = append(attrs, slog.Any("extra", rec.Error.Metadata.Extra))
		}
		logger.LogAttrs(context.Background(), levelFor(errors.Severity(rec.Error.Severity)), rec.Error.Message, attrs...)
	}
}

func levelFor(s errors.Severity) slog.Level {
	switch s {
	case errors.SeverityCritical, errors.SeverityHigh:
		return slog.LevelError
	case errors.SeverityLow:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

func (h *Handler) logError(err *errors.Error, origin string) {
	if !h.cfg.EnableLogging || h.logFunc == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.logger.Warn("logging sink panicked", slog.Any("panic", r))
		}
	}()

	h.logFunc(LogRecord{
		Timestamp: time.Now(),
		Context:   origin,
		Error:     errors.ToJSON(err),
	})
}
