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

package prompt

import (
	"context"
	"fmt"
	"slices"
)

// MockPrompter answers prompts from a script. Each answer is a string for
// Input and Select or a bool for Confirm. An empty string accepts the
// default.
type MockPrompter struct {
	answers []any
	calls   []string
}

// NewMockPrompter creates a prompter that replays answers in order.
func NewMockPrompter(answers ...any) *MockPrompter {
	return &MockPrompter{answers: answers}
}

func (mp *MockPrompter) next(kind, message string) (any, error) {
	mp.calls = append(mp.calls, fmt.Sprintf("%s: %s", kind, message))
	if len(mp.answers) == 0 {
		return nil, fmt.Errorf("no scripted answer for %s %q", kind, message)
	}
	a := mp.answers[0]
	mp.answers = mp.answers[1:]
	return a, nil
}

// Input implements Prompter.
func (mp *MockPrompter) Input(_ context.Context, message, def string, validate func(string) error) (string, error) {
	a, err := mp.next("input", message)
	if err != nil {
		return "", err
	}
	s, ok := a.(string)
	if !ok {
		return "", fmt.Errorf("scripted answer for %q is %T, want string", message, a)
	}
	if s == "" {
		s = def
	}
	if validate != nil {
		if err := validate(s); err != nil {
			return "", err
		}
	}
	return s, nil
}

// Confirm implements Prompter.
func (mp *MockPrompter) Confirm(_ context.Context, message string, _ bool) (bool, error) {
	a, err := mp.next("confirm", message)
	if err != nil {
		return false, err
	}
	b, ok := a.(bool)
	if !ok {
		return false, fmt.Errorf("scripted answer for %q is %T, want bool", message, a)
	}
	return b, nil
}

// Select implements Prompter.
func (mp *MockPrompter) Select(_ context.Context, message string, options []string, def string) (string, error) {
	a, err := mp.next("select", message)
	if err != nil {
		return "", err
	}
	s, _ := a.(string)
	if s == "" {
		s = def
	}
	if !slices.Contains(options, s) {
		return "", fmt.Errorf("%q is not one of %v", s, options)
	}
	return s, nil
}

// Calls returns the prompts shown so far.
func (mp *MockPrompter) Calls() []string {
	return mp.calls
}

// Remaining returns how many scripted answers were not used.
func (mp *MockPrompter) Remaining() int {
	return len(mp.answers)
}
