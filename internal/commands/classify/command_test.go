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

package classify

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/mender/internal/commands/shared"
	"github.com/tombee/mender/pkg/errors"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name        string
		opts        options
		kind        errors.Kind
		recoverable bool
	}{
		{"plain message", options{}, errors.KindUnknown, true},
		{"server error", options{status: 503, endpoint: "/items"}, errors.KindAPIServerError, true},
		{"not found", options{status: 404}, errors.KindAPINotFound, true},
		{"offline", options{offline: true}, errors.KindNetworkError, true},
		{"forced kind", options{kind: "storage-parse-error"}, errors.KindStorageParseError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := build("boom", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, got.Kind())
			assert.Equal(t, tt.recoverable, got.Recoverable())
		})
	}
}

func TestBuild_UnknownKind(t *testing.T) {
	_, err := build("boom", options{kind: "not-a-kind"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-a-kind")
}

func TestClassifyCommand_Text(t *testing.T) {
	shared.ResetFlagsForTest()
	t.Cleanup(shared.ResetFlagsForTest)

	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"upstream unavailable", "--status", "503"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), string(errors.KindAPIServerError))
	assert.Contains(t, out.String(), "Suggestion:")
}

func TestClassifyCommand_JSON(t *testing.T) {
	shared.ResetFlagsForTest()
	t.Cleanup(shared.ResetFlagsForTest)
	*shared.RegisterFlagPointers().JSON = true

	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"connection refused", "--offline"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Command string          `json:"command"`
		Success bool            `json:"success"`
		Error   errors.Response `json:"error"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "classify", resp.Command)
	assert.True(t, resp.Success)
	assert.Equal(t, string(errors.KindNetworkError), resp.Error.Kind)
	assert.Equal(t, 0, resp.Error.Status)
}

func TestClassifyCommand_InvalidKind(t *testing.T) {
	shared.ResetFlagsForTest()
	t.Cleanup(shared.ResetFlagsForTest)

	cmd := NewCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"boom", "--kind", "bogus"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, shared.ExitInvalidScenario, shared.ExitCode(err))
}
