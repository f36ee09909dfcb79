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
	"time"
)

// Variant tags which specialized shape an *Error has. The variant decides
// which of the typed payload accessors carry meaning.
type Variant string

const (
	VariantBase      Variant = "base"
	VariantStorage   Variant = "storage"
	VariantNetwork   Variant = "network"
	VariantAPI       Variant = "api"
	VariantData      Variant = "data"
	VariantComponent Variant = "component"
	VariantMap       Variant = "map"
)

// Metadata is the read-only context attached to an error at construction.
type Metadata struct {
	// Timestamp is when the error was constructed.
	Timestamp time.Time

	// Origin names where the error was raised (a function, page or step).
	Origin string

	// TraceID uniquely identifies this error instance in logs.
	TraceID string

	// Extra holds arbitrary structured details.
	Extra map[string]any
}

// Error is the normalized representation of every failure handled by this
// module. It is immutable after construction: all accessors return copies.
//
// Construct with New or one of the variant constructors (NewStorage,
// NewNetwork, NewAPI, NewData, NewComponent, NewMap), or obtain one from
// Classify.
type Error struct {
	message     string
	kind        Kind
	severity    Severity
	recoverable bool
	userMessage string

	timestamp time.Time
	origin    string
	traceID   string
	extra     map[string]any

	variant   Variant
	status    int
	endpoint  string
	payload   any
	component string

	cause error
}

// Error implements the error interface.
// Format: "[kind] message" or "[kind] message: cause".
func (e *Error) Error() string {
	if e.cause != nil && e.cause.Error() != e.message {
		return fmt.Sprintf("[%s] %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.kind, e.message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.cause
}

// Message returns the internal message. It is meant for logs, never for end users.
func (e *Error) Message() string {
	return e.message
}

// Kind returns the error's classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// Severity returns the error's severity.
func (e *Error) Severity() Severity {
	return e.severity
}

// Recoverable reports whether automatic recovery may be attempted.
func (e *Error) Recoverable() bool {
	return e.recoverable
}

// UserMessage returns a message that is safe to show to end users.
// It is never empty.
func (e *Error) UserMessage() string {
	return e.userMessage
}

// Variant returns the specialized shape of the error.
func (e *Error) Variant() Variant {
	return e.variant
}

// Timestamp returns when the error was constructed.
func (e *Error) Timestamp() time.Time {
	return e.timestamp
}

// Origin returns the originating context, or "" if none was recorded.
func (e *Error) Origin() string {
	return e.origin
}

// TraceID returns the unique identifier assigned at construction.
func (e *Error) TraceID() string {
	return e.traceID
}

// Extra returns a defensive copy of the structured details.
// Returns nil if none were attached.
func (e *Error) Extra() map[string]any {
	if e.extra == nil {
		return nil
	}
	out := make(map[string]any, len(e.extra))
	for k, v := range e.extra {
		out[k] = v
	}
	return out
}

// Metadata returns a copy of the error's metadata.
func (e *Error) Metadata() Metadata {
	return Metadata{
		Timestamp: e.timestamp,
		Origin:    e.origin,
		TraceID:   e.traceID,
		Extra:     e.Extra(),
	}
}

// StatusCode returns the HTTP status for network and API variants.
// Zero means offline or no status.
func (e *Error) StatusCode() int {
	return e.status
}

// Endpoint returns the request path for the API variant.
func (e *Error) Endpoint() string {
	return e.endpoint
}

// Payload returns the offending raw data for the data variant.
func (e *Error) Payload() any {
	return e.payload
}

// Component returns the originating component name for the component variant.
func (e *Error) Component() string {
	return e.component
}

// IsUserVisible implements UserVisibleError. Every structured error carries a
// display-safe message.
func (e *Error) IsUserVisible() bool {
	return true
}

// Suggestion implements UserVisibleError.
func (e *Error) Suggestion() string {
	if e.severity == SeverityCritical {
		return "reload the application or contact support"
	}
	if e.recoverable {
		return "try the operation again"
	}
	return ""
}

// ErrorType implements ErrorClassifier.
func (e *Error) ErrorType() string {
	return string(e.kind)
}

// IsRetryable implements ErrorClassifier.
func (e *Error) IsRetryable() bool {
	return e.recoverable
}

// clone returns a shallow copy with its own extra map.
func (e *Error) clone() *Error {
	c := *e
	c.extra = e.Extra()
	return &c
}

// WithOrigin returns a copy of e whose origin is set. The receiver is not modified.
func (e *Error) WithOrigin(origin string) *Error {
	c := e.clone()
	c.origin = origin
	return c
}

var (
	_ UserVisibleError = (*Error)(nil)
	_ ErrorClassifier  = (*Error)(nil)
)
