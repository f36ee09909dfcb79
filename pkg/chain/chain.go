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

// Package chain executes ordered, retry-aware steps and reports on each
// run. The phase builder methods (Search, Verify, Plan, Fix, Test,
// VerifyFinal) assemble the conventional six-phase recovery workflow,
// threading each phase's value into the next.
//
// Step failures are classified into *errors.Error for the report but are
// never sent to a global handler: a chain run has no side effects on
// process-wide error bookkeeping.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	internallog "github.com/tombee/mender/internal/log"
	"github.com/tombee/mender/pkg/errors"
)

// DefaultBackoffBase is the delay before the first retry of a step. Each
// further retry doubles it.
const DefaultBackoffBase = 100 * time.Millisecond

// tracerName is the instrumentation scope used for chain spans.
const tracerName = "github.com/tombee/mender/pkg/chain"

// Observer receives run events, typically to update metrics.
type Observer interface {
	StepFinished(chain string, result Result)
	RunFinished(report *Report)
}

// Observers fans events out to several observers in order.
type Observers []Observer

// StepFinished implements Observer.
func (obs Observers) StepFinished(chain string, result Result) {
	for _, o := range obs {
		o.StepFinished(chain, result)
	}
}

// RunFinished implements Observer.
func (obs Observers) RunFinished(report *Report) {
	for _, o := range obs {
		o.RunFinished(report)
	}
}

// Chain is an ordered list of steps. A built chain may be run any number
// of times, including concurrently; each run gets its own State.
type Chain struct {
	name        string
	logger      *slog.Logger
	tracer      trace.Tracer
	observer    Observer
	backoffBase time.Duration

	mu    sync.RWMutex
	steps []Step
}

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets the logger for step progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chain) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the tracer used for run and step spans. The default is
// the global OpenTelemetry tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Chain) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithObserver registers an observer for step and run completion.
func WithObserver(o Observer) Option {
	return func(c *Chain) { c.observer = o }
}

// WithBackoffBase overrides DefaultBackoffBase.
func WithBackoffBase(d time.Duration) Option {
	return func(c *Chain) {
		if d >= 0 {
			c.backoffBase = d
		}
	}
}

// New creates an empty chain.
func New(name string, opts ...Option) *Chain {
	c := &Chain{
		name:        name,
		logger:      slog.Default(),
		backoffBase: DefaultBackoffBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// Name returns the chain's name.
func (c *Chain) Name() string {
	return c.name
}

// AddStep appends a step. Steps run in the order they are added.
func (c *Chain) AddStep(step Step) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, step)
	return c
}

// Steps returns a copy of the declared steps.
func (c *Chain) Steps() []Step {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Step, len(c.steps))
	copy(out, c.steps)
	return out
}

// Len returns the number of declared steps.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.steps)
}

// Run executes every step in order and returns the report. Execution
// stops at the first step that fails after exhausting its retries; the
// remaining steps do not appear in the results.
func (c *Chain) Run(ctx context.Context) *Report {
	steps := c.Steps()
	state := newState()

	ctx, span := startRunSpan(ctx, c.tracer, c.name, len(steps))
	defer span.End()

	logger := c.logger.With(slog.String(internallog.ChainKey, c.name))
	logger.Debug("chain run started", slog.Int("steps", len(steps)))

	report := &Report{
		Name:       c.name,
		TotalSteps: len(steps),
		Results:    make([]Result, 0, len(steps)),
	}
	start := time.Now()

	for i := range steps {
		step := &steps[i]
		res := c.runStep(ctx, step, state)
		report.Results = append(report.Results, res)

		if c.observer != nil {
			c.observer.StepFinished(c.name, res)
		}

		if res.Success {
			report.SuccessfulSteps++
			state.set(step.Phase, step.Name, res.Value)
			continue
		}

		report.FailedSteps++
		logger.Warn("chain stopped at failed step",
			slog.String(internallog.StepKey, step.Name),
			slog.String(internallog.PhaseKey, string(step.Phase)),
			slog.Int("skipped", len(steps)-i-1),
		)
		break
	}

	report.TotalDuration = time.Since(start)
	report.FinalSuccess = report.FailedSteps == 0
	span.finish(report)

	if c.observer != nil {
		c.observer.RunFinished(report)
	}

	logger.Info("chain run finished",
		slog.Bool("success", report.FinalSuccess),
		slog.Int("successful_steps", report.SuccessfulSteps),
		slog.Int("failed_steps", report.FailedSteps),
		slog.Int64(internallog.DurationKey, report.TotalDurationMs()),
	)
	return report
}

// runStep executes one step with its retry budget.
func (c *Chain) runStep(ctx context.Context, step *Step, state *State) Result {
	ctx, span := startStepSpan(ctx, c.tracer, step)
	defer span.End()

	logger := internallog.WithStepContext(c.logger, c.name, step.Name, string(step.Phase))
	maxRetries := step.retries()
	start := time.Now()

	res := Result{Phase: step.Phase, StepName: step.Name}

	for attempt := 0; ; attempt++ {
		internallog.Trace(logger, "step attempt", slog.Int(internallog.AttemptKey, attempt+1))
		value, rawErr := c.attempt(ctx, step, state)
		if rawErr == nil {
			res.Success = true
			res.Value = value
			res.Retries = attempt
			break
		}

		res.Error = errors.ClassifyWithOrigin(rawErr, step.Name)
		res.Retries = attempt
		span.attemptFailed(attempt, res.Error)

		if step.OnError != nil {
			callOnError(step.OnError, rawErr, logger)
		}

		if attempt >= maxRetries || ctx.Err() != nil {
			break
		}

		delay := c.backoff(attempt)
		logger.Debug("step attempt failed, retrying",
			slog.Int(internallog.AttemptKey, attempt+1),
			slog.Duration("backoff", delay),
			internallog.Error(rawErr),
		)

		if err := sleep(ctx, delay); err != nil {
			res.Error = errors.ClassifyWithOrigin(err, step.Name)
			break
		}
	}

	res.Duration = time.Since(start)
	span.finish(res)

	if res.Success {
		logger.Debug("step succeeded", slog.Int("retries", res.Retries), slog.Int64(internallog.DurationKey, res.DurationMs()))
	} else {
		logger.Warn("step failed",
			slog.Int("retries", res.Retries),
			slog.Int64(internallog.DurationKey, res.DurationMs()),
			slog.String(internallog.KindKey, string(res.Error.Kind())),
			slog.String("error", res.Error.Message()),
		)
	}
	return res
}

// maxBackoff caps the delay between attempts once doubling would
// overflow or grow past it.
const maxBackoff = 24 * time.Hour

// backoff returns backoffBase * 2^attempt, clamped to maxBackoff.
func (c *Chain) backoff(attempt int) time.Duration {
	if c.backoffBase == 0 {
		return 0
	}
	if attempt > 62 {
		return maxBackoff
	}
	d := c.backoffBase << attempt
	if d <= 0 || d>>attempt != c.backoffBase || d > maxBackoff {
		return maxBackoff
	}
	return d
}

// attempt runs Execute and Validate once. A panic or a false validation
// becomes an error.
func (c *Chain) attempt(ctx context.Context, step *Step, state *State) (value any, err error) {
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}
	if step.Execute == nil {
		return nil, fmt.Errorf("step %q has no execute function", step.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("step %s panicked: %v", step.Name, r)
		}
	}()

	value, err = step.Execute(ctx, state)
	if err != nil {
		return nil, err
	}
	if step.Validate != nil && !step.Validate(value) {
		return nil, fmt.Errorf("validation failed for step: %s", step.Name)
	}
	return value, nil
}

func callOnError(hook func(error), err error, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("onError hook panicked", slog.Any("panic", r))
		}
	}()
	hook(err)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
