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

import "context"

// DefaultPhaseRetries is the retry budget of the fix and test phases: up to
// three retries after the first attempt.
const DefaultPhaseRetries = 3

// SearchFunc produces the value that starts a workflow.
type SearchFunc func(ctx context.Context) (any, error)

// PhaseFunc receives the value produced by the previous phase.
type PhaseFunc func(ctx context.Context, input any) (any, error)

// StepOption adjusts a step created by a phase builder method.
type StepOption func(*Step)

// WithRetries makes the step retryable with n retries after the first attempt.
func WithRetries(n int) StepOption {
	return func(s *Step) {
		s.Retryable = n > 0
		s.MaxRetries = n
	}
}

// NoRetry disables retries for the step.
func NoRetry() StepOption {
	return func(s *Step) {
		s.Retryable = false
		s.MaxRetries = 0
	}
}

// WithValidator adds a validator. Phases that already require a true
// result keep that requirement.
func WithValidator(fn func(value any) bool) StepOption {
	return func(s *Step) {
		prev := s.Validate
		if prev == nil {
			s.Validate = fn
			return
		}
		s.Validate = func(v any) bool { return prev(v) && fn(v) }
	}
}

// WithOnError sets the hook called for every failed attempt.
func WithOnError(fn func(err error)) StepOption {
	return func(s *Step) { s.OnError = fn }
}

// StateFunc is a phase function that also sees the run's State.
type StateFunc func(ctx context.Context, input any, state *State) (any, error)

type phaseDefaults struct {
	prev       Phase
	mustBeTrue bool
	retries    int
}

// defaults holds, per phase, the phase whose value feeds it, whether the
// result must be exactly true, and the default retry budget.
var defaults = map[Phase]phaseDefaults{
	PhaseSearch:      {},
	PhaseVerify:      {prev: PhaseSearch, mustBeTrue: true},
	PhasePlan:        {prev: PhaseVerify},
	PhaseFix:         {prev: PhasePlan, retries: DefaultPhaseRetries},
	PhaseTest:        {prev: PhaseFix, mustBeTrue: true, retries: DefaultPhaseRetries},
	PhaseVerifyFinal: {prev: PhaseTest, mustBeTrue: true},
}

// Search adds a search step. Not retryable by default.
func (c *Chain) Search(name string, fn SearchFunc, opts ...StepOption) *Chain {
	return c.AddPhase(PhaseSearch, name, func(ctx context.Context, _ any, _ *State) (any, error) {
		return fn(ctx)
	}, opts...)
}

// Verify adds a verify step fed by the search value. The result must be
// exactly true. Not retryable by default.
func (c *Chain) Verify(name string, fn PhaseFunc, opts ...StepOption) *Chain {
	return c.AddPhase(PhaseVerify, name, stateless(fn), opts...)
}

// Plan adds a plan step fed by the verify value. Not retryable by default.
func (c *Chain) Plan(name string, fn PhaseFunc, opts ...StepOption) *Chain {
	return c.AddPhase(PhasePlan, name, stateless(fn), opts...)
}

// Fix adds a fix step fed by the plan value. Retries DefaultPhaseRetries
// times by default.
func (c *Chain) Fix(name string, fn PhaseFunc, opts ...StepOption) *Chain {
	return c.AddPhase(PhaseFix, name, stateless(fn), opts...)
}

// Test adds a test step fed by the fix value. The result must be exactly
// true. Retries DefaultPhaseRetries times by default.
func (c *Chain) Test(name string, fn PhaseFunc, opts ...StepOption) *Chain {
	return c.AddPhase(PhaseTest, name, stateless(fn), opts...)
}

// VerifyFinal adds the closing verification fed by the test value. The
// result must be exactly true. Not retryable by default.
func (c *Chain) VerifyFinal(name string, fn PhaseFunc, opts ...StepOption) *Chain {
	return c.AddPhase(PhaseVerifyFinal, name, stateless(fn), opts...)
}

// AddPhase adds a step for phase with that phase's defaults: input
// threading, the exactly-true check and the retry budget. opts are applied
// after the defaults. An unknown phase gets no input, no check and no
// retries.
func (c *Chain) AddPhase(phase Phase, name string, fn StateFunc, opts ...StepOption) *Chain {
	d := defaults[phase]
	step := Step{
		Phase: phase,
		Name:  name,
		Execute: func(ctx context.Context, state *State) (any, error) {
			var input any
			if d.prev != "" {
				input, _ = state.Get(d.prev)
			}
			return fn(ctx, input, state)
		},
	}
	if d.mustBeTrue {
		step.Validate = IsTrue
	}
	if d.retries > 0 {
		WithRetries(d.retries)(&step)
	}
	for _, opt := range opts {
		opt(&step)
	}
	return c.AddStep(step)
}

func stateless(fn PhaseFunc) StateFunc {
	return func(ctx context.Context, input any, _ *State) (any, error) {
		return fn(ctx, input)
	}
}

// IsTrue reports whether v is exactly the boolean true.
func IsTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
