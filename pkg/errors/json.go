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
	"encoding/json"
	"time"
)

// Response is the flat, serializable form of a structured error used in
// log records and CLI output. The cause chain and data payloads are left
// out so raw content never reaches a log aggregator.
type Response struct {
	Kind        string          `json:"kind"`
	Severity    string          `json:"severity"`
	Message     string          `json:"message"`
	UserMessage string          `json:"user_message"`
	Recoverable bool            `json:"recoverable"`
	Variant     string          `json:"variant"`
	Status      int             `json:"status,omitempty"`
	Endpoint    string          `json:"endpoint,omitempty"`
	Component   string          `json:"component,omitempty"`
	Metadata    MetadataPayload `json:"metadata"`
}

// MetadataPayload is the serialized form of Metadata.
type MetadataPayload struct {
	Timestamp time.Time      `json:"timestamp"`
	Origin    string         `json:"origin,omitempty"`
	TraceID   string         `json:"trace_id"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// ToJSON converts any error to a Response. Unstructured errors are
// classified first. Returns nil if err is nil.
func ToJSON(err error) *Response {
	if err == nil {
		return nil
	}
	return Classify(err).response()
}

func (e *Error) response() *Response {
	return &Response{
		Kind:        string(e.kind),
		Severity:    string(e.severity),
		Message:     e.message,
		UserMessage: e.userMessage,
		Recoverable: e.recoverable,
		Variant:     string(e.variant),
		Status:      e.status,
		Endpoint:    e.endpoint,
		Component:   e.component,
		Metadata: MetadataPayload{
			Timestamp: e.timestamp,
			Origin:    e.origin,
			TraceID:   e.traceID,
			Extra:     e.Extra(),
		},
	}
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(e.response())
	if err != nil {
		// Extra values that cannot be encoded are dropped rather than failing the record.
		r := e.response()
		r.Metadata.Extra = nil
		return json.Marshal(r)
	}
	return data, nil
}
