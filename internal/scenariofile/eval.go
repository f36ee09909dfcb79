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
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Evaluator compiles and runs expr-lang expressions. Compiled programs are
// cached by source text.
type Evaluator struct {
	cache map[string]*vm.Program
	mu    sync.RWMutex
}

// NewEvaluator creates an evaluator with an empty cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]*vm.Program)}
}

// Builtins are the functions every expression can call. Environments
// passed to Evaluate must bind them with the same signatures.
type Builtins struct {
	Fetch  func(url string) (int, error)
	Online func() bool
	Fail   func(kind, message string) (bool, error)
}

func (b Builtins) env() map[string]any {
	return map[string]any{
		"fetch":  b.Fetch,
		"online": b.Online,
		"fail":   b.Fail,
		"has":    hasFunc,
		"length": lenFunc,
	}
}

// compileEnv only carries types for the checker.
var compileEnv = Builtins{
	Fetch:  func(string) (int, error) { return 0, nil },
	Online: func() bool { return false },
	Fail:   func(string, string) (bool, error) { return false, nil },
}.env()

// Evaluate runs expression with vars and builtins in scope. The result
// may be any type; phases that require true check it afterwards.
func (e *Evaluator) Evaluate(expression string, vars map[string]any, builtins Builtins) (any, error) {
	program, err := e.compile(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", err)
	}

	env := builtins.env()
	for k, v := range vars {
		env[k] = v
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("expression evaluation failed: %w", err)
	}
	return result, nil
}

// Validate compiles expression without running it.
func (e *Evaluator) Validate(expression string) error {
	if _, err := e.compile(expression); err != nil {
		return fmt.Errorf("invalid expression: %w", err)
	}
	return nil
}

// CacheSize returns the number of cached programs.
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	if prog, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	// "contains" is a reserved operator in expr, hence "has".
	prog, err := expr.Compile(expression,
		expr.Env(compileEnv),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expression] = prog
	e.mu.Unlock()
	return prog, nil
}

// hasFunc reports whether collection contains item. Maps are checked by
// key and strings by substring.
func hasFunc(collection any, item any) bool {
	if collection == nil {
		return false
	}
	v := reflect.ValueOf(collection)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if reflect.DeepEqual(v.Index(i).Interface(), item) {
				return true
			}
		}
	case reflect.Map:
		key := reflect.ValueOf(item)
		if key.IsValid() && key.Type().AssignableTo(v.Type().Key()) {
			return v.MapIndex(key).IsValid()
		}
	case reflect.String:
		s, ok := item.(string)
		return ok && s != "" && strings.Contains(v.String(), s)
	}
	return false
}

func lenFunc(v any) int {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	}
	return 0
}
