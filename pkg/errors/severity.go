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

// Severity ranks how disruptive an error is to the user.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Default user-facing messages, chosen by severity when none is supplied.
const (
	MessageCritical = "A critical error occurred. Please reload the page or contact support if the problem persists."
	MessageHigh     = "An error occurred. Please try again."
	MessageMedium   = "Something went wrong. Please try again in a moment."
	MessageLow      = "A minor issue occurred."

	// MessageFallback is returned for errors that were never classified.
	MessageFallback = "An unexpected error occurred. Please try again."
)

// Valid reports whether s is one of the four defined severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Rank orders severities from 0 (low) to 3 (critical). Unknown values rank as medium.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 1
	}
}

// DefaultUserMessage returns the message shown when an error does not
// carry its own. Only critical suggests a reload.
func (s Severity) DefaultUserMessage() string {
	switch s {
	case SeverityCritical:
		return MessageCritical
	case SeverityHigh:
		return MessageHigh
	case SeverityLow:
		return MessageLow
	default:
		return MessageMedium
	}
}
