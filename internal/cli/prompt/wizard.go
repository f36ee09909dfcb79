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
	"regexp"
	"strings"

	"github.com/tombee/mender/internal/scenariofile"
	"github.com/tombee/mender/pkg/chain"
)

// MaxInputSize is the maximum allowed answer size in bytes.
const MaxInputSize = 65536

const (
	langExpr = "expr"
	langJQ   = "jq"
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// StepChecker compiles a step without running it.
type StepChecker func(def scenariofile.StepDef) error

// ValidateName accepts lowercase scenario names made of letters, digits,
// '-' and '_'. The name doubles as the file name.
func ValidateName(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("name must be lowercase letters, digits, '-' or '_', got %q", s)
	}
	return ValidateText(s)
}

// ValidateText rejects answers over MaxInputSize.
func ValidateText(s string) error {
	if len(s) > MaxInputSize {
		return fmt.Errorf("input exceeds maximum size of %d bytes", MaxInputSize)
	}
	return nil
}

// NewScenario asks for a name, a description and, phase by phase, an
// optional step. check validates every expression before it is accepted.
func NewScenario(ctx context.Context, p Prompter, check StepChecker) (*scenariofile.File, error) {
	name, err := p.Input(ctx, "Scenario name", "", ValidateName)
	if err != nil {
		return nil, err
	}
	desc, err := p.Input(ctx, "Description (markdown, optional)", "", ValidateText)
	if err != nil {
		return nil, err
	}

	f := &scenariofile.File{Name: name, Description: strings.TrimSpace(desc)}
	for _, phase := range chain.Phases() {
		def, ok, err := askStep(ctx, p, phase, check)
		if err != nil {
			return nil, err
		}
		if ok {
			f.Steps = append(f.Steps, def)
		}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func askStep(ctx context.Context, p Prompter, phase chain.Phase, check StepChecker) (scenariofile.StepDef, bool, error) {
	def := scenariofile.StepDef{Phase: phase}

	include, err := p.Confirm(ctx, fmt.Sprintf("Add a %s step?", phase), phase == chain.PhaseSearch)
	if err != nil || !include {
		return def, false, err
	}

	lang, err := p.Select(ctx, fmt.Sprintf("Language for the %s step", phase), []string{langExpr, langJQ}, langExpr)
	if err != nil {
		return def, false, err
	}

	body, err := p.Input(ctx, fmt.Sprintf("%s %s", phase, lang), "", func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("a %s step needs a body", phase)
		}
		candidate := withBody(def, lang, s)
		if check == nil {
			return nil
		}
		return check(candidate)
	})
	if err != nil {
		return def, false, err
	}
	return withBody(def, lang, body), true, nil
}

func withBody(def scenariofile.StepDef, lang, body string) scenariofile.StepDef {
	if lang == langJQ {
		def.JQ = body
	} else {
		def.Expr = body
	}
	return def
}
