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

// UserVisibleError is implemented by errors that can be rendered directly
// by an error boundary or CLI without leaking internal detail.
type UserVisibleError interface {
	error

	// IsUserVisible returns true if UserMessage may be displayed.
	IsUserVisible() bool

	// UserMessage returns the display-safe message.
	UserMessage() string

	// Suggestion returns a short next step for the user, or "".
	Suggestion() string
}

// ErrorClassifier is implemented by errors that can be routed
// programmatically (metrics labels, recovery lookup, retry decisions).
type ErrorClassifier interface {
	error

	// ErrorType returns the category label, e.g. "network-timeout".
	ErrorType() string

	// IsRetryable returns true if the failed operation may be retried or recovered.
	IsRetryable() bool
}
