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

// Package prompt collects answers from the user at the terminal and walks
// them through writing a new scenario.
package prompt

import (
	"context"
	"errors"
)

// ErrNotInteractive is returned when a prompt is attempted without a
// terminal.
var ErrNotInteractive = errors.New("cannot prompt in non-interactive mode")

// Prompter asks the user questions.
type Prompter interface {
	// Input asks for free text. validate, if non-nil, is applied before the
	// answer is accepted.
	Input(ctx context.Context, message, def string, validate func(string) error) (string, error)
	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, message string, def bool) (bool, error)
	// Select asks the user to pick one of options.
	Select(ctx context.Context, message string, options []string, def string) (string, error)
}
