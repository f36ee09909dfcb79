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

package shared

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/mender/pkg/errors"
	"github.com/tombee/mender/pkg/handler"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitScenarioFailed, ExitCode(fmt.Errorf("plain")))
	assert.Equal(t, ExitInvalidScenario, ExitCode(NewInvalidScenarioError("bad", nil)))
	assert.Equal(t, ExitConfigError, ExitCode(fmt.Errorf("wrapped: %w", NewConfigError("cfg", nil))))
}

func TestExitError_Message(t *testing.T) {
	err := NewScenarioFailedError("2 scenarios failed", fmt.Errorf("network"))
	assert.Equal(t, "2 scenarios failed: network", err.Error())
	assert.Equal(t, "network", err.Unwrap().Error())
}

func TestPrintError_Suggestion(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, fmt.Errorf("step failed: %w", errors.NewNetwork("offline", 0)))

	out := buf.String()
	assert.Contains(t, out, "offline")
	assert.Contains(t, out, "try the operation again")
}

func TestPrintError_SilentExit(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, &ExitError{Code: ExitScenarioFailed})
	assert.Empty(t, buf.String())
}

func TestNotifier(t *testing.T) {
	var buf bytes.Buffer
	Notifier(&buf)(handler.Notification{Type: handler.NotificationError, Title: "Error", Message: "Connection lost"})
	assert.Contains(t, buf.String(), "Connection lost")
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MENDER_LOG_LEVEL", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("MENDER_DEBUG", "")
	t.Cleanup(ResetFlagsForTest)

	f := RegisterFlagPointers()
	*f.Verbose = true
	*f.MetricsAddr = "127.0.0.1:9999"

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Metrics.Addr)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Cleanup(ResetFlagsForTest)
	SetConfigPathForTest(filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))
}

func TestRenderSeverity(t *testing.T) {
	for _, s := range []errors.Severity{errors.SeverityLow, errors.SeverityMedium, errors.SeverityHigh, errors.SeverityCritical} {
		assert.Contains(t, RenderSeverity(s), string(s))
	}
}
