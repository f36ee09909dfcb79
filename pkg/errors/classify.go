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
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// DefaultUnknownMessage is used when a raw failure carries no message.
const DefaultUnknownMessage = "An unknown error occurred"

// Fault is a loosely-typed failure record, for example one decoded from a
// browser error report or a log line. Name is the error's type name
// ("TypeError", "SyntaxError", ...).
type Fault struct {
	Name    string
	Message string
	Code    string
}

// Error implements the error interface.
func (f Fault) Error() string {
	if f.Name == "" {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", f.Name, f.Message)
}

// Classify converts any raw failure into an *Error. It never panics.
//
// Accepted inputs:
//   - *Error, or an error whose chain contains one: returned unchanged
//   - a failed fetch (a *url.Error, a net.Error, or a TypeError Fault whose
//     message mentions fetch): a network error with status 0
//   - Fault, error, string, fmt.Stringer: an unknown-kind error of medium
//     severity wrapping the message
//   - anything else, including nil: an unknown-kind error with a default message
//
// Classify is idempotent: Classify(Classify(r)) returns the same pointer.
func Classify(raw any) *Error {
	return ClassifyWithOrigin(raw, "")
}

// ClassifyWithOrigin is Classify, recording origin on newly created errors.
// Errors that are already structured keep their original origin.
func ClassifyWithOrigin(raw any, origin string) (classified *Error) {
	defer func() {
		if r := recover(); r != nil {
			classified = New(KindUnknown, DefaultUnknownMessage,
				WithOrigin(origin),
				WithExtra("panic", fmt.Sprint(r)))
		}
	}()

	var opts []Option
	if origin != "" {
		opts = append(opts, WithOrigin(origin))
	}

	switch v := raw.(type) {
	case nil:
		return New(KindUnknown, DefaultUnknownMessage, opts...)
	case *Error:
		if v == nil {
			return New(KindUnknown, DefaultUnknownMessage, opts...)
		}
		return v
	case Fault:
		return classifyFault(v, opts)
	case *Fault:
		if v == nil {
			return New(KindUnknown, DefaultUnknownMessage, opts...)
		}
		return classifyFault(*v, opts)
	case error:
		return classifyError(v, opts)
	case string:
		return New(KindUnknown, messageOrDefault(v), opts...)
	case fmt.Stringer:
		return New(KindUnknown, messageOrDefault(v.String()), opts...)
	default:
		opts = append(opts, WithExtra("raw", fmt.Sprintf("%v", v)))
		return New(KindUnknown, DefaultUnknownMessage, opts...)
	}
}

func classifyError(err error, opts []Option) *Error {
	var structured *Error
	if errors.As(err, &structured) && structured != nil {
		return structured
	}

	var fault Fault
	if errors.As(err, &fault) {
		return classifyFault(fault, append(opts, WithCause(err)))
	}

	if isFetchFailure(err) {
		opts = append(opts, WithCause(err))
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			opts = append(opts, WithKind(KindNetworkTimeout))
		}
		return NewNetwork(err.Error(), 0, opts...)
	}

	return New(KindUnknown, messageOrDefault(err.Error()), append(opts, WithCause(err))...)
}

func classifyFault(f Fault, opts []Option) *Error {
	if f.Name == "TypeError" && mentionsFetch(f.Message) {
		return NewNetwork(f.Message, 0, opts...)
	}
	if f.Code != "" {
		opts = append(opts, WithExtra("code", f.Code))
	}
	if f.Name != "" {
		opts = append(opts, WithExtra("name", f.Name))
	}
	return New(KindUnknown, messageOrDefault(f.Message), opts...)
}

// isFetchFailure reports whether err came from a failed HTTP round trip.
func isFetchFailure(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func mentionsFetch(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "fetch")
}

func messageOrDefault(msg string) string {
	if strings.TrimSpace(msg) == "" {
		return DefaultUnknownMessage
	}
	return msg
}

// IsRecoverable reports whether recovery may be attempted for err.
// Unclassified errors are optimistically treated as recoverable.
func IsRecoverable(err error) bool {
	var structured *Error
	if errors.As(err, &structured) && structured != nil {
		return structured.Recoverable()
	}
	return true
}

// ToUserMessage returns a display-safe message for err.
// Unclassified errors get a generic fallback.
func ToUserMessage(err error) string {
	var structured *Error
	if errors.As(err, &structured) && structured != nil {
		return structured.UserMessage()
	}
	return MessageFallback
}
