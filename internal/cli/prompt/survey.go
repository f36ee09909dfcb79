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

	"github.com/AlecAivazis/survey/v2"
)

// SurveyPrompter implements Prompter using the survey library.
type SurveyPrompter struct {
	interactive bool
}

// NewSurveyPrompter creates a new survey-based prompter. A non-interactive
// prompter fails every prompt with ErrNotInteractive.
func NewSurveyPrompter(interactive bool) *SurveyPrompter {
	return &SurveyPrompter{interactive: interactive}
}

// Input implements Prompter using survey.Input.
func (sp *SurveyPrompter) Input(ctx context.Context, message, def string, validate func(string) error) (string, error) {
	if !sp.interactive {
		return "", ErrNotInteractive
	}

	var opts []survey.AskOpt
	if validate != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			str, ok := ans.(string)
			if !ok {
				return fmt.Errorf("expected text")
			}
			return validate(str)
		}))
	}

	var result string
	err := survey.AskOne(&survey.Input{Message: message, Default: def}, &result, opts...)
	return result, err
}

// Confirm implements Prompter using survey.Confirm.
func (sp *SurveyPrompter) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	if !sp.interactive {
		return false, ErrNotInteractive
	}
	var result bool
	err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &result)
	return result, err
}

// Select implements Prompter using survey.Select.
func (sp *SurveyPrompter) Select(ctx context.Context, message string, options []string, def string) (string, error) {
	if !sp.interactive {
		return "", ErrNotInteractive
	}
	if len(options) == 0 {
		return "", fmt.Errorf("no options provided for %q", message)
	}
	var result string
	prompt := &survey.Select{Message: message, Options: options}
	if def != "" {
		prompt.Default = def
	}
	err := survey.AskOne(prompt, &result)
	return result, err
}
