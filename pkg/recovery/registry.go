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

// Package recovery holds the kind-keyed registry of automatic remediation
// strategies consulted after a structured error has been handled.
package recovery

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tombee/mender/pkg/errors"
)

// Strategy attempts to remediate err and reports whether it succeeded.
// A returned error means the attempt itself failed; it is treated the same
// as returning false.
type Strategy func(ctx context.Context, err *errors.Error) (bool, error)

// Outcome describes a single call to Registry.Attempt.
type Outcome struct {
	// Attempted is false when no strategy is registered for the kind.
	Attempted bool

	// Recovered reports whether the strategy succeeded.
	Recovered bool

	// Err is the failure raised by the strategy, if any. A panicking
	// strategy is reported here as well.
	Err error
}

// Registry maps error kinds to strategies. It holds at most one strategy
// per kind and is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	strategies map[errors.Kind]Strategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[errors.Kind]Strategy),
	}
}

// Register sets the strategy for kind, replacing any previous one.
// Registering a nil strategy removes the entry.
func (r *Registry) Register(kind errors.Kind, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s == nil {
		delete(r.strategies, kind)
		return
	}
	r.strategies[kind] = s
}

// Unregister removes the strategy for kind. It is a no-op if none exists.
func (r *Registry) Unregister(kind errors.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.strategies, kind)
}

// Lookup returns the strategy registered for kind.
func (r *Registry) Lookup(kind errors.Kind) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[kind]
	return s, ok
}

// Kinds returns the kinds that have a strategy, sorted.
func (r *Registry) Kinds() []errors.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]errors.Kind, 0, len(r.strategies))
	for k := range r.strategies {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Len returns the number of registered strategies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strategies)
}

// Attempt runs the strategy registered for err's kind. A lookup miss is
// not an error: the returned outcome simply has Attempted set to false.
// Strategy panics are recovered and reported through Outcome.Err.
func (r *Registry) Attempt(ctx context.Context, err *errors.Error) Outcome {
	if err == nil {
		return Outcome{}
	}

	s, ok := r.Lookup(err.Kind())
	if !ok {
		return Outcome{}
	}

	return invoke(ctx, s, err)
}

func invoke(ctx context.Context, s Strategy, err *errors.Error) (out Outcome) {
	out.Attempted = true
	defer func() {
		if p := recover(); p != nil {
			out.Recovered = false
			out.Err = fmt.Errorf("recovery strategy for %s panicked: %v", err.Kind(), p)
		}
	}()

	recovered, sErr := s(ctx, err)
	if sErr != nil {
		out.Err = sErr
		return out
	}
	out.Recovered = recovered
	return out
}
