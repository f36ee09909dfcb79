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

package scenariofile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itchyny/gojq"
)

const (
	// DefaultJQTimeout bounds a single query.
	DefaultJQTimeout = time.Second

	// DefaultJQMaxInput is the largest input, measured as JSON, a query
	// may run against.
	DefaultJQMaxInput = 10 * 1024 * 1024
)

// JQ runs jq queries with a timeout and an input size limit.
type JQ struct {
	timeout  time.Duration
	maxInput int64
}

// NewJQ creates a runner. Zero values select the defaults.
func NewJQ(timeout time.Duration, maxInput int64) *JQ {
	if timeout <= 0 {
		timeout = DefaultJQTimeout
	}
	if maxInput <= 0 {
		maxInput = DefaultJQMaxInput
	}
	return &JQ{timeout: timeout, maxInput: maxInput}
}

// Run evaluates query against data. A single result is returned as is,
// several as a slice and none as nil. The $state variable holds the run
// state.
func (j *JQ) Run(ctx context.Context, query string, data any, state map[string]any) (any, error) {
	data, err := j.normalize(data)
	if err != nil {
		return nil, err
	}
	code, err := compileJQ(query)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if state == nil {
		state = map[string]any{}
	}
	iter := code.RunWithContext(ctx, data, normalizeState(state))

	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("jq query timed out after %v", j.timeout)
			}
			return nil, fmt.Errorf("jq query failed: %w", err)
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// Validate parses and compiles query.
func (j *JQ) Validate(query string) error {
	_, err := compileJQ(query)
	return err
}

func compileJQ(query string) (*gojq.Code, error) {
	q, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("invalid jq query: %w", err)
	}
	code, err := gojq.Compile(q, gojq.WithVariables([]string{"$state"}))
	if err != nil {
		return nil, fmt.Errorf("jq compilation failed: %w", err)
	}
	return code, nil
}

// normalize round-trips data through JSON so gojq only sees the types it
// accepts, and enforces the size limit on the way.
func (j *JQ) normalize(data any) (any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jq input: %w", err)
	}
	if int64(len(raw)) > j.maxInput {
		return nil, fmt.Errorf("jq input size (%d bytes) exceeds maximum (%d bytes)", len(raw), j.maxInput)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode jq input: %w", err)
	}
	return out, nil
}

func normalizeState(state map[string]any) any {
	raw, err := json.Marshal(state)
	if err != nil {
		return map[string]any{}
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}
