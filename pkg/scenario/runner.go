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

// Package scenario runs named pipelines ("scenarios") individually or in
// bulk and summarizes their latest reports.
package scenario

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	internallog "github.com/tombee/mender/internal/log"
	"github.com/tombee/mender/pkg/chain"
)

// Pipeline is anything that produces a chain report when run.
// *chain.Chain satisfies it.
type Pipeline interface {
	Run(ctx context.Context) *chain.Report
}

// PipelineFunc adapts a function to Pipeline.
type PipelineFunc func(ctx context.Context) *chain.Report

// Run implements Pipeline.
func (f PipelineFunc) Run(ctx context.Context) *chain.Report {
	return f(ctx)
}

// Observer receives the report of every scenario run.
type Observer interface {
	ScenarioFinished(name string, report *chain.Report)
}

// Observers fans out to several observers in order.
type Observers []Observer

// ScenarioFinished implements Observer.
func (obs Observers) ScenarioFinished(name string, report *chain.Report) {
	for _, o := range obs {
		if o != nil {
			o.ScenarioFinished(name, report)
		}
	}
}

// Summary aggregates the latest report of every scenario that has run.
type Summary struct {
	TotalScenarios  int     `json:"total_scenarios"`
	PassedScenarios int     `json:"passed_scenarios"`
	FailedScenarios int     `json:"failed_scenarios"`
	SuccessRate     float64 `json:"success_rate"`
}

// Runner holds registered scenarios and their latest reports. It is safe
// for concurrent use.
type Runner struct {
	logger      *slog.Logger
	concurrency int
	observer    Observer

	mu        sync.RWMutex
	order     []string
	pipelines map[string]Pipeline
	reports   map[string]*chain.Report
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConcurrency bounds how many scenarios RunAll executes at once.
// Values below 1 run scenarios sequentially.
func WithConcurrency(n int) Option {
	return func(r *Runner) { r.concurrency = n }
}

// WithObserver registers an observer for finished scenarios.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// NewRunner creates an empty runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger:      slog.Default(),
		concurrency: 1,
		pipelines:   make(map[string]Pipeline),
		reports:     make(map[string]*chain.Report),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	return r
}

// Register stores p under name, replacing any previous registration. The
// previous report, if any, is kept until the scenario runs again.
func (r *Runner) Register(name string, p Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pipelines[name]; !exists {
		r.order = append(r.order, name)
	}
	r.pipelines[name] = p
}

// Unregister removes a scenario and its report.
func (r *Runner) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pipelines[name]; !exists {
		return
	}
	delete(r.pipelines, name)
	delete(r.reports, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
}

// Names returns the registered scenario names in registration order.
func (r *Runner) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// RunScenario runs one scenario and stores its report. It returns nil if
// name is not registered.
func (r *Runner) RunScenario(ctx context.Context, name string) *chain.Report {
	r.mu.RLock()
	p, ok := r.pipelines[name]
	r.mu.RUnlock()

	if !ok {
		r.logger.Debug("scenario not registered", slog.String(internallog.ScenarioKey, name))
		return nil
	}
	return r.run(ctx, name, p)
}

// RunAll runs every registered scenario, at most WithConcurrency at a
// time, and returns the new reports keyed by name. Reports of scenarios
// registered after the call started are left untouched.
func (r *Runner) RunAll(ctx context.Context) map[string]*chain.Report {
	r.mu.RLock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	pipelines := make([]Pipeline, len(names))
	for i, n := range names {
		pipelines[i] = r.pipelines[n]
	}
	r.mu.RUnlock()

	reports := make([]*chain.Report, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range names {
		i := i
		g.Go(func() error {
			reports[i] = r.run(gctx, names[i], pipelines[i])
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]*chain.Report, len(names))
	for i, n := range names {
		out[n] = reports[i]
	}

	summary := r.Summary()
	r.logger.Info("scenarios finished",
		slog.Int("total", summary.TotalScenarios),
		slog.Int("passed", summary.PassedScenarios),
		slog.Int("failed", summary.FailedScenarios),
		slog.Float64("success_rate", summary.SuccessRate),
	)
	return out
}

// Report returns the latest report for name.
func (r *Runner) Report(name string) (*chain.Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[name]
	return rep, ok
}

// Reports returns a copy of the latest reports keyed by scenario name.
func (r *Runner) Reports() map[string]*chain.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*chain.Report, len(r.reports))
	for k, v := range r.reports {
		out[k] = v
	}
	return out
}

// Summary counts passed and failed scenarios over the stored reports.
// Scenarios that have never run are not counted.
func (r *Runner) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return summarize(r.reports)
}

func summarize(reports map[string]*chain.Report) Summary {
	var s Summary
	s.TotalScenarios = len(reports)
	for _, rep := range reports {
		if rep != nil && rep.FinalSuccess {
			s.PassedScenarios++
		}
	}
	s.FailedScenarios = s.TotalScenarios - s.PassedScenarios
	if s.TotalScenarios > 0 {
		s.SuccessRate = float64(s.PassedScenarios) / float64(s.TotalScenarios) * 100
	}
	return s
}

// FailedNames returns the names of scenarios whose latest report failed,
// sorted.
func (r *Runner) FailedNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, rep := range r.reports {
		if rep == nil || !rep.FinalSuccess {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (r *Runner) run(ctx context.Context, name string, p Pipeline) *chain.Report {
	logger := internallog.WithScenario(r.logger, name)
	logger.Debug("scenario started")

	report := p.Run(ctx)
	if report == nil {
		report = &chain.Report{Name: name, FinalSuccess: false, FailedSteps: 1}
	}

	r.mu.Lock()
	if _, still := r.pipelines[name]; still {
		r.reports[name] = report
	}
	r.mu.Unlock()

	if r.observer != nil {
		r.observer.ScenarioFinished(name, report)
	}

	logger.Info("scenario finished",
		slog.Bool("success", report.FinalSuccess),
		slog.Int64(internallog.DurationKey, report.TotalDurationMs()),
	)
	return report
}
