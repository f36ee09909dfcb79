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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/mender/internal/scenariofile"
	"github.com/tombee/mender/pkg/chain"
)

func check(def scenariofile.StepDef) error {
	return scenariofile.Deps{}.CheckStep(def)
}

func TestNewScenario(t *testing.T) {
	p := NewMockPrompter(
		"cache_repair", "Drops **corrupt** entries",
		true, "expr", `"cache.json"`,    // search
		true, "jq", `. == "cache.json"`, // verify
		false,                           // plan
		true, "", `"fixed"`,             // fix, default language
		false, false,                    // test, verify_final
	)

	f, err := NewScenario(context.Background(), p, check)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Remaining())

	assert.Equal(t, "cache_repair", f.Name)
	assert.Equal(t, "Drops **corrupt** entries", f.Description)
	require.Len(t, f.Steps, 3)
	assert.Equal(t, scenariofile.StepDef{Phase: chain.PhaseSearch, Expr: `"cache.json"`}, f.Steps[0])
	assert.Equal(t, scenariofile.StepDef{Phase: chain.PhaseVerify, JQ: `. == "cache.json"`}, f.Steps[1])
	assert.Equal(t, chain.PhaseFix, f.Steps[2].Phase)
	assert.Equal(t, `"fixed"`, f.Steps[2].Expr)

	_, err = scenariofile.Marshal(f)
	assert.NoError(t, err)
}

func TestNewScenario_RejectsBadExpression(t *testing.T) {
	p := NewMockPrompter("broken", "", true, "expr", "1 +")

	_, err := NewScenario(context.Background(), p, check)
	require.Error(t, err)
}

func TestNewScenario_NoSteps(t *testing.T) {
	p := NewMockPrompter("empty", "", false, false, false, false, false, false)

	_, err := NewScenario(context.Background(), p, check)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no steps")
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"simple", "network_offline", true},
		{"dashes and digits", "api-v2", true},
		{"uppercase", "Network", false},
		{"space", "two words", false},
		{"path", "../escape", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSurveyPrompter_NonInteractive(t *testing.T) {
	p := NewSurveyPrompter(false)
	ctx := context.Background()

	_, err := p.Input(ctx, "name", "", nil)
	assert.ErrorIs(t, err, ErrNotInteractive)
	_, err = p.Confirm(ctx, "ok?", true)
	assert.ErrorIs(t, err, ErrNotInteractive)
	_, err = p.Select(ctx, "pick", []string{"a"}, "a")
	assert.ErrorIs(t, err, ErrNotInteractive)
}

func TestMockPrompter(t *testing.T) {
	p := NewMockPrompter("", "z")
	ctx := context.Background()

	got, err := p.Input(ctx, "first", "default", nil)
	require.NoError(t, err)
	assert.Equal(t, "default", got)

	_, err = p.Select(ctx, "second", []string{"a", "b"}, "a")
	assert.Error(t, err)

	_, err = p.Confirm(ctx, "third", false)
	assert.Error(t, err, "script exhausted")
	assert.Len(t, p.Calls(), 3)
}
