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

package chain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tombee/mender/pkg/errors"
)

// Phase is a conventional label for a step. Phases do not constrain
// ordering: steps run in the order they were added.
type Phase string

const (
	PhaseSearch      Phase = "search"
	PhaseVerify      Phase = "verify"
	PhasePlan        Phase = "plan"
	PhaseFix         Phase = "fix"
	PhaseTest        Phase = "test"
	PhaseVerifyFinal Phase = "verify_final"
)

// Phases returns the six conventional phases in workflow order.
func Phases() []Phase {
	return []Phase{PhaseSearch, PhaseVerify, PhasePlan, PhaseFix, PhaseTest, PhaseVerifyFinal}
}

// Valid reports whether p is one of the conventional phases.
func (p Phase) Valid() bool {
	for _, known := range Phases() {
		if p == known {
			return true
		}
	}
	return false
}

// ExecuteFunc produces a step's value. state is scoped to the current run.
type ExecuteFunc func(ctx context.Context, state *State) (any, error)

// Step is a single named unit of a chain.
type Step struct {
	// Phase labels the step.
	Phase Phase

	// Name identifies the step in results and logs.
	Name string

	// Execute produces the step's value.
	Execute ExecuteFunc

	// Validate, if set, must return true for the value to count as success.
	// A false result is retried like any other failure.
	Validate func(value any) bool

	// OnError, if set, is called with the raw failure of every failed attempt.
	OnError func(err error)

	// Retryable enables retries within the step.
	Retryable bool

	// MaxRetries is the number of retries after the first attempt.
	// Ignored when Retryable is false.
	MaxRetries int
}

// retries returns the effective retry budget.
func (s *Step) retries() int {
	if !s.Retryable || s.MaxRetries < 0 {
		return 0
	}
	return s.MaxRetries
}

// Result is produced exactly once for every executed step.
type Result struct {
	Success  bool          `json:"success"`
	Phase    Phase         `json:"phase"`
	StepName string        `json:"step_name"`
	Value    any           `json:"result,omitempty"`
	Error    *errors.Error `json:"error,omitempty"`
	Duration time.Duration `json:"-"`
	Retries  int           `json:"retries"`
}

// DurationMs returns the step duration in whole milliseconds.
func (r Result) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

// MarshalJSON adds duration_ms to the encoded result.
func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	return json.Marshal(struct {
		alias
		DurationMs int64 `json:"duration_ms"`
	}{alias(r), r.DurationMs()})
}

// Report summarizes one run of a chain. TotalSteps counts every declared
// step, including those skipped after a failure.
type Report struct {
	Name            string        `json:"name"`
	TotalSteps      int           `json:"total_steps"`
	SuccessfulSteps int           `json:"successful_steps"`
	FailedSteps     int           `json:"failed_steps"`
	TotalDuration   time.Duration `json:"-"`
	Results         []Result      `json:"results"`
	FinalSuccess    bool          `json:"final_success"`
}

// TotalDurationMs returns the run duration in whole milliseconds.
func (r *Report) TotalDurationMs() int64 {
	return r.TotalDuration.Milliseconds()
}

// MarshalJSON adds total_duration_ms to the encoded report.
func (r Report) MarshalJSON() ([]byte, error) {
	type alias Report
	return json.Marshal(struct {
		alias
		TotalDurationMs int64 `json:"total_duration_ms"`
	}{alias(r), r.TotalDuration.Milliseconds()})
}

// FailedResult returns the first failed result, if any.
func (r *Report) FailedResult() (Result, bool) {
	for _, res := range r.Results {
		if !res.Success {
			return res, true
		}
	}
	return Result{}, false
}

// State carries step values between phases within a single run. It is
// owned by that run and never shared.
type State struct {
	values map[Phase]any
	steps  map[string]any
}

func newState() *State {
	return &State{
		values: make(map[Phase]any),
		steps:  make(map[string]any),
	}
}

// Get returns the value of the most recent successful step with phase p.
func (s *State) Get(p Phase) (any, bool) {
	v, ok := s.values[p]
	return v, ok
}

// Step returns the value of the named step, if it succeeded.
func (s *State) Step(name string) (any, bool) {
	v, ok := s.steps[name]
	return v, ok
}

// Snapshot returns the phase values keyed by phase name.
func (s *State) Snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	for p, v := range s.values {
		out[string(p)] = v
	}
	return out
}

func (s *State) set(p Phase, name string, v any) {
	s.values[p] = v
	s.steps[name] = v
}
