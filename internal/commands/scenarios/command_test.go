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

package scenarios

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/mender/internal/cli/prompt"
	"github.com/tombee/mender/internal/commands/shared"
	"github.com/tombee/mender/internal/watch"
)

const passing = `
name: passing
description: always recovers
steps:
  - {phase: search, expr: '"cache.json"'}
  - {phase: verify, expr: 'input == "cache.json"'}
`

const failing = `
name: failing
steps:
  - {phase: search, expr: '"cache.json"'}
  - {phase: verify, expr: 'false'}
  - {phase: plan, expr: '"never"'}
`

// setup isolates the working directory and environment, writes a config
// file backed by sqlite so reports survive between commands, and returns
// the scenarios directory.
func setup(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	for _, key := range []string{
		"LOG_LEVEL", "MENDER_LOG_LEVEL", "MENDER_DEBUG", "MENDER_STORAGE_DRIVER",
		"MENDER_STORAGE_PATH", "MENDER_METRICS_ADDR", "MENDER_SCENARIOS_DIR",
		"MENDER_TRACING_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	cfg := fmt.Sprintf(`
log:
  level: error
handler:
  retry_base_delay: 1ms
recovery:
  network_wait: 1ms
storage:
  driver: sqlite
  path: %s
network:
  probe_url: %s
scenarios:
  dir: scenarios
`, filepath.Join(dir, "mender.db"), srv.URL)
	cfgPath := filepath.Join(dir, "mender.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	shared.ResetFlagsForTest()
	shared.SetConfigPathForTest(cfgPath)
	t.Cleanup(shared.ResetFlagsForTest)

	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	return scenarios
}

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(args ...string) (string, error) {
	cmd := NewCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRun_MixedOutcome(t *testing.T) {
	dir := setup(t)
	writeScenario(t, dir, "passing.yaml", passing)
	writeScenario(t, dir, "failing.yaml", failing)

	out, err := execute("run", "--no-timeline")

	require.Error(t, err)
	assert.Equal(t, shared.ExitScenarioFailed, shared.ExitCode(err))
	assert.Contains(t, out, "passing")
	assert.Contains(t, out, `verify step "verify-2" failed`)
	assert.Contains(t, out, "2 scenario(s): 1 passed, 1 failed (50%)")
}

func TestRun_Named(t *testing.T) {
	dir := setup(t)
	writeScenario(t, dir, "passing.yaml", passing)
	writeScenario(t, dir, "failing.yaml", failing)

	out, err := execute("run", "passing")

	require.NoError(t, err)
	assert.Contains(t, out, "Scenario: passing")
	assert.Contains(t, out, "1 scenario(s): 1 passed, 0 failed (100%)")
}

func TestRun_UnknownName(t *testing.T) {
	dir := setup(t)
	writeScenario(t, dir, "passing.yaml", passing)

	_, err := execute("run", "missing")

	require.Error(t, err)
	assert.Equal(t, shared.ExitInvalidScenario, shared.ExitCode(err))
}

func TestRun_InvalidFile(t *testing.T) {
	dir := setup(t)
	writeScenario(t, dir, "passing.yaml", passing)
	writeScenario(t, dir, "broken.yaml", "name: broken\nsteps:\n  - {phase: deploy, expr: 'true'}\n")

	_, err := execute("run")

	require.Error(t, err)
	assert.Equal(t, shared.ExitInvalidScenario, shared.ExitCode(err))
	assert.Contains(t, err.Error(), "deploy")
}

func TestRun_JSON(t *testing.T) {
	dir := setup(t)
	writeScenario(t, dir, "failing.yaml", failing)
	*shared.RegisterFlagPointers().JSON = true

	out, err := execute("run")

	require.Error(t, err)
	assert.Equal(t, shared.ExitScenarioFailed, shared.ExitCode(err))
	assert.Empty(t, err.Error())

	var resp struct {
		Success bool `json:"success"`
		Summary struct {
			Total  int `json:"total_scenarios"`
			Failed int `json:"failed_scenarios"`
		} `json:"summary"`
		Scenarios []struct {
			Name   string `json:"name"`
			Report struct {
				FinalSuccess bool `json:"final_success"`
				TotalSteps   int  `json:"total_steps"`
			} `json:"report"`
		} `json:"scenarios"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, 1, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.Failed)
	require.Len(t, resp.Scenarios, 1)
	assert.Equal(t, "failing", resp.Scenarios[0].Name)
	assert.Equal(t, 3, resp.Scenarios[0].Report.TotalSteps)
}

func TestReport_AfterRun(t *testing.T) {
	dir := setup(t)
	writeScenario(t, dir, "failing.yaml", failing)

	_, err := execute("run", "--no-timeline")
	require.Error(t, err)

	out, err := execute("report", "failing")
	require.NoError(t, err)
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "verify-2")
	assert.Contains(t, out, "1/3 succeeded")
}

func TestReport_NeverRun(t *testing.T) {
	setup(t)

	_, err := execute("report", "ghost")

	require.Error(t, err)
	assert.Equal(t, shared.ExitInvalidScenario, shared.ExitCode(err))
}

func TestList(t *testing.T) {
	dir := setup(t)
	writeScenario(t, dir, "passing.yaml", passing)
	writeScenario(t, dir, "failing.yaml", failing)

	out, err := execute("list")
	require.NoError(t, err)
	assert.Contains(t, out, "always recovers")
	assert.Contains(t, out, "never")

	_, err = execute("run", "passing", "--no-timeline")
	require.NoError(t, err)

	*shared.RegisterFlagPointers().JSON = true
	out, err = execute("list")
	require.NoError(t, err)

	var resp struct {
		Scenarios []listEntry `json:"scenarios"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Scenarios, 2)

	byName := map[string]listEntry{}
	for _, e := range resp.Scenarios {
		byName[e.Name] = e
	}
	require.NotNil(t, byName["passing"].LastSuccess)
	assert.True(t, *byName["passing"].LastSuccess)
	assert.Nil(t, byName["failing"].LastRun)
}

func TestHandleEvent_ReloadAndRemove(t *testing.T) {
	dir := setup(t)
	writeScenario(t, dir, "passing.yaml", passing)

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})

	a, _, err := openApp(t.Context(), cmd, "")
	require.NoError(t, err)
	defer a.Close(t.Context())

	path := writeScenario(t, dir, "failing.yaml", failing)
	handleEvent(t.Context(), cmd, a, watch.Event{Path: path, Op: watch.OpCreated})

	_, ok := a.Scenario("failing")
	assert.True(t, ok)
	rep, ok := a.Runner.Report("failing")
	require.True(t, ok)
	assert.False(t, rep.FinalSuccess)
	assert.Contains(t, out.String(), "failing")

	writeScenario(t, dir, "failing.yaml", "name: failing\nsteps: [")
	handleEvent(t.Context(), cmd, a, watch.Event{Path: path, Op: watch.OpModified})
	assert.Contains(t, out.String(), path)
	_, ok = a.Scenario("failing")
	assert.True(t, ok, "a broken edit keeps the previous definition")

	handleEvent(t.Context(), cmd, a, watch.Event{Path: path, Op: watch.OpDeleted})
	_, ok = a.Scenario("failing")
	assert.False(t, ok)
	assert.Contains(t, out.String(), "failing removed")
}

func TestShow(t *testing.T) {
	dir := setup(t)
	writeScenario(t, dir, "passing.yaml", passing)

	out, err := execute("show", "passing")
	require.NoError(t, err)
	assert.Contains(t, out, "always recovers")
	assert.Contains(t, out, `expr: 'input == "cache.json"'`)

	_, err = execute("show", "missing")
	assert.Equal(t, shared.ExitInvalidScenario, shared.ExitCode(err))
}

func TestRun_Values(t *testing.T) {
	dir := setup(t)
	writeScenario(t, dir, "passing.yaml", passing)

	out, err := execute("run", "--no-timeline", "--values")
	require.NoError(t, err)
	assert.Contains(t, out, "search-1: cache.json")
	assert.Contains(t, out, "verify-2: true")
}

func TestNew_WritesLoadableFile(t *testing.T) {
	dir := setup(t)
	answers := func() *prompt.MockPrompter {
		return prompt.NewMockPrompter(
			"fresh", "",
			true, "expr", `"ok"`,
			true, "expr", `input == "ok"`,
			false, false, false, false,
		)
	}

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, runNew(t.Context(), cmd, answers(), "", false))
	assert.FileExists(t, filepath.Join(dir, "fresh.yaml"))

	err := runNew(t.Context(), cmd, answers(), "", false)
	assert.Equal(t, shared.ExitInvalidScenario, shared.ExitCode(err))
	require.NoError(t, runNew(t.Context(), cmd, answers(), "", true))

	got, err := execute("run", "fresh", "--no-timeline")
	require.NoError(t, err)
	assert.Contains(t, got, "1 passed")
}
