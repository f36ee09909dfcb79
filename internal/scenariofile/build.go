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
	"fmt"
	"sync"

	"github.com/tombee/mender/internal/network"
	"github.com/tombee/mender/pkg/chain"
	"github.com/tombee/mender/pkg/errors"
	"github.com/tombee/mender/pkg/recovery"
)

// Fetcher performs HTTP requests for the fetch builtin. *network.Fetcher
// satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts *network.FetchOptions) (*network.Response, error)
}

// Deps are the collaborators a scenario's builtins call out to. Nil
// fields make the matching builtin fail (fetch) or report offline.
type Deps struct {
	Fetcher      Fetcher
	Connectivity recovery.Connectivity
	Evaluator    *Evaluator
	JQ           *JQ
}

// Build compiles f into a chain. Every expression and query is validated
// up front so a broken file fails here rather than mid-run.
func Build(f *File, deps Deps, opts ...chain.Option) (*chain.Chain, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if deps.Evaluator == nil {
		deps.Evaluator = NewEvaluator()
	}
	if deps.JQ == nil {
		deps.JQ = NewJQ(0, 0)
	}

	c := chain.New(f.Name, opts...)
	for i := range f.Steps {
		def := f.Steps[i]
		name := def.StepName(i)

		if err := deps.CheckStep(def); err != nil {
			return nil, fmt.Errorf("scenario %q step %q: %w", f.Name, name, err)
		}
		var fn chain.StateFunc
		if def.Expr != "" {
			fn = exprStep(f.Name, def.Expr, deps)
		} else {
			fn = jqStep(def.JQ, deps.JQ)
		}

		c.AddPhase(def.Phase, name, fn, retryOptions(def)...)
	}
	return c, nil
}

// CheckStep compiles the step's expression or query without running it.
func (d Deps) CheckStep(def StepDef) error {
	if err := def.validate(); err != nil {
		return err
	}
	if def.Expr != "" {
		if d.Evaluator == nil {
			d.Evaluator = NewEvaluator()
		}
		return d.Evaluator.Validate(def.Expr)
	}
	if d.JQ == nil {
		d.JQ = NewJQ(0, 0)
	}
	return d.JQ.Validate(def.JQ)
}

func retryOptions(def StepDef) []chain.StepOption {
	switch {
	case def.Retryable != nil && !*def.Retryable:
		return []chain.StepOption{chain.NoRetry()}
	case def.Retryable != nil:
		n := chain.DefaultPhaseRetries
		if def.MaxRetries != nil {
			n = *def.MaxRetries
		}
		return []chain.StepOption{chain.WithRetries(n)}
	case def.MaxRetries != nil:
		return []chain.StepOption{chain.WithRetries(*def.MaxRetries)}
	}
	return nil
}

func exprStep(scenario, expression string, deps Deps) chain.StateFunc {
	return func(ctx context.Context, input any, state *chain.State) (any, error) {
		b := &builtinCalls{ctx: ctx, deps: deps}
		vars := map[string]any{
			"input":    input,
			"state":    state.Snapshot(),
			"scenario": scenario,
		}
		v, err := deps.Evaluator.Evaluate(expression, vars, b.builtins())
		if err != nil {
			// Prefer the builtin's own failure so classification sees
			// the network or structured error rather than expr's wrapper.
			if cause := b.failure(); cause != nil {
				return nil, cause
			}
			return nil, errors.NewData(errors.KindDataInvalid, err.Error(), input, errors.WithCause(err))
		}
		return v, nil
	}
}

func jqStep(query string, jq *JQ) chain.StateFunc {
	return func(ctx context.Context, input any, state *chain.State) (any, error) {
		v, err := jq.Run(ctx, query, input, state.Snapshot())
		if err != nil {
			return nil, errors.NewData(errors.KindDataInvalid, err.Error(), input, errors.WithCause(err))
		}
		return v, nil
	}
}

// builtinCalls binds the builtins to one step attempt and remembers the
// first error any of them raised.
type builtinCalls struct {
	ctx  context.Context
	deps Deps

	mu  sync.Mutex
	err error
}

func (b *builtinCalls) builtins() Builtins {
	return Builtins{
		Fetch:  b.fetch,
		Online: b.online,
		Fail:   b.fail,
	}
}

func (b *builtinCalls) record(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
	return err
}

func (b *builtinCalls) failure() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *builtinCalls) fetch(url string) (int, error) {
	if b.deps.Fetcher == nil {
		return 0, b.record(errors.NewNetwork("fetch is not available", 0, errors.WithExtra("url", network.SanitizeString(url))))
	}
	resp, err := b.deps.Fetcher.Fetch(b.ctx, url, nil)
	if err != nil {
		return 0, b.record(err)
	}
	return resp.Status, nil
}

func (b *builtinCalls) online() bool {
	if b.deps.Connectivity == nil {
		return false
	}
	return b.deps.Connectivity.Online(b.ctx)
}

func (b *builtinCalls) fail(kind, message string) (bool, error) {
	return false, b.record(errors.New(errors.ParseKind(kind), message))
}
