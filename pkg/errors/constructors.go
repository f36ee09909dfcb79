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

package errors

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Option customizes an error during construction.
type Option func(*Error)

// WithKind overrides the kind. Variant constructors reject kinds outside
// their subsystem and keep their default instead.
func WithKind(k Kind) Option {
	return func(e *Error) { e.kind = k }
}

// WithSeverity sets the severity.
func WithSeverity(s Severity) Option {
	return func(e *Error) { e.severity = s }
}

// WithUserMessage sets the display-safe message. An empty string keeps the
// severity default.
func WithUserMessage(msg string) Option {
	return func(e *Error) { e.userMessage = msg }
}

// WithRecoverable overrides whether recovery may be attempted.
func WithRecoverable(recoverable bool) Option {
	return func(e *Error) { e.recoverable = recoverable }
}

// WithOrigin records where the error was raised.
func WithOrigin(origin string) Option {
	return func(e *Error) { e.origin = origin }
}

// WithExtra attaches a single structured detail.
func WithExtra(key string, value any) Option {
	return func(e *Error) {
		if e.extra == nil {
			e.extra = make(map[string]any)
		}
		e.extra[key] = value
	}
}

// WithExtras attaches several details. The map is copied.
func WithExtras(extra map[string]any) Option {
	return func(e *Error) {
		if len(extra) == 0 {
			return
		}
		if e.extra == nil {
			e.extra = make(map[string]any, len(extra))
		}
		for k, v := range extra {
			e.extra[k] = v
		}
	}
}

// WithCause records the underlying error.
func WithCause(err error) Option {
	return func(e *Error) { e.cause = err }
}

// WithTimestamp overrides the construction time.
func WithTimestamp(t time.Time) Option {
	return func(e *Error) { e.timestamp = t }
}

// New creates a base error of the given kind.
// Severity defaults to medium and the error is recoverable unless overridden.
//
// Example:
//
//	err := errors.New(errors.KindDataMissing, "profile has no email",
//	    errors.WithSeverity(errors.SeverityLow))
func New(kind Kind, message string, opts ...Option) *Error {
	e := newError(VariantBase, kind, message, opts)
	if !e.kind.Valid() {
		e.kind = KindUnknown
	}
	return finish(e)
}

// Newf creates a base error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// NewStorage creates a storage error. Kinds outside the storage subsystem
// fall back to KindStorageUnavailable.
func NewStorage(kind Kind, message string, opts ...Option) *Error {
	e := newError(VariantStorage, kind, message, opts)
	if e.kind.Subsystem() != SubsystemStorage {
		e.kind = KindStorageUnavailable
	}
	return finish(e)
}

// NewNetwork creates a network error. A zero status means offline or no
// status. The kind defaults to KindNetworkError; WithKind may select another
// network kind.
func NewNetwork(message string, status int, opts ...Option) *Error {
	e := newError(VariantNetwork, KindNetworkError, message, opts)
	if e.kind.Subsystem() != SubsystemNetwork {
		e.kind = KindNetworkError
	}
	e.status = status
	return finish(e)
}

// NewAPI creates an API error whose kind is derived from the status code.
// Server errors (>= 500) are escalated to at least high severity.
func NewAPI(message string, status int, endpoint string, opts ...Option) *Error {
	e := newError(VariantAPI, KindForStatus(status), message, opts)
	e.kind = KindForStatus(status)
	e.status = status
	e.endpoint = endpoint
	if status >= http.StatusInternalServerError && e.severity.Rank() < SeverityHigh.Rank() {
		e.severity = SeverityHigh
	}
	return finish(e)
}

// KindForStatus maps an HTTP status to an API kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindAPINotFound
	case status == http.StatusUnauthorized:
		return KindAPIUnauthorized
	case status == http.StatusForbidden:
		return KindAPIForbidden
	case status == http.StatusUnprocessableEntity:
		return KindAPIValidation
	case status >= http.StatusInternalServerError:
		return KindAPIServerError
	default:
		return KindAPIError
	}
}

// NewData creates a data error carrying the offending payload, which may be nil.
// Kinds outside the data subsystem fall back to KindDataInvalid.
func NewData(kind Kind, message string, payload any, opts ...Option) *Error {
	e := newError(VariantData, kind, message, opts)
	if e.kind.Subsystem() != SubsystemData {
		e.kind = KindDataInvalid
	}
	e.payload = payload
	return finish(e)
}

// NewComponent creates a component error. Kinds outside the component
// subsystem fall back to KindComponentRender.
func NewComponent(kind Kind, message, component string, opts ...Option) *Error {
	e := newError(VariantComponent, kind, message, opts)
	if e.kind.Subsystem() != SubsystemComponent {
		e.kind = KindComponentRender
	}
	e.component = component
	return finish(e)
}

// NewMap creates a map error. Kinds outside the map subsystem fall back to
// KindMapInit.
func NewMap(kind Kind, message string, opts ...Option) *Error {
	e := newError(VariantMap, kind, message, opts)
	if e.kind.Subsystem() != SubsystemMap {
		e.kind = KindMapInit
	}
	return finish(e)
}

func newError(variant Variant, kind Kind, message string, opts []Option) *Error {
	e := &Error{
		message:     message,
		kind:        kind,
		severity:    SeverityMedium,
		recoverable: true,
		timestamp:   time.Now(),
		traceID:     uuid.NewString(),
		variant:     variant,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func finish(e *Error) *Error {
	if !e.severity.Valid() {
		e.severity = SeverityMedium
	}
	if e.userMessage == "" {
		e.userMessage = e.severity.DefaultUserMessage()
	}
	return e
}
