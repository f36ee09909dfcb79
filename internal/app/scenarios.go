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

package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	internallog "github.com/tombee/mender/internal/log"
	"github.com/tombee/mender/internal/scenariofile"
	"github.com/tombee/mender/internal/storage"
	"github.com/tombee/mender/pkg/chain"
	"github.com/tombee/mender/pkg/scenario"
)

// reportKeyPrefix namespaces persisted reports within the store.
const reportKeyPrefix = "report:"

// StoredReport is the persisted outcome of a scenario's latest run.
type StoredReport struct {
	Name            string    `json:"name"`
	FinalSuccess    bool      `json:"final_success"`
	TotalSteps      int       `json:"total_steps"`
	SuccessfulSteps int       `json:"successful_steps"`
	FailedSteps     int       `json:"failed_steps"`
	DurationMs      int64     `json:"duration_ms"`
	RanAt           time.Time `json:"ran_at"`
	FailedStep      string    `json:"failed_step,omitempty"`
	ErrorKind       string    `json:"error_kind,omitempty"`
	Error           string    `json:"error,omitempty"`
}

func newStoredReport(name string, r *chain.Report, at time.Time) StoredReport {
	s := StoredReport{
		Name:            name,
		FinalSuccess:    r.FinalSuccess,
		TotalSteps:      r.TotalSteps,
		SuccessfulSteps: r.SuccessfulSteps,
		FailedSteps:     r.FailedSteps,
		DurationMs:      r.TotalDurationMs(),
		RanAt:           at.UTC(),
	}
	if failed, ok := r.FailedResult(); ok {
		s.FailedStep = failed.StepName
		if failed.Error != nil {
			s.ErrorKind = string(failed.Error.Kind())
			s.Error = failed.Error.Message()
		}
	}
	return s
}

// scenarioSet tracks which definition file each registered scenario came
// from so single files can be reloaded.
type scenarioSet struct {
	app       *App
	evaluator *scenariofile.Evaluator
	jq        *scenariofile.JQ

	mu     sync.Mutex
	byPath map[string]string
	files  map[string]*scenariofile.File
}

func newScenarioSet(a *App) *scenarioSet {
	return &scenarioSet{
		app:       a,
		evaluator: scenariofile.NewEvaluator(),
		jq:        scenariofile.NewJQ(0, 0),
		byPath:    make(map[string]string),
		files:     make(map[string]*scenariofile.File),
	}
}

func (s *scenarioSet) deps() scenariofile.Deps {
	return scenariofile.Deps{
		Fetcher:      s.app.Fetcher,
		Connectivity: s.app.Probe,
		Evaluator:    s.evaluator,
		JQ:           s.jq,
	}
}

func (s *scenarioSet) register(f *scenariofile.File) error {
	c, err := scenariofile.Build(f, s.deps(), s.app.ChainOptions()...)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Path != "" {
		if prev, ok := s.byPath[f.Path]; ok && prev != f.Name {
			s.app.Runner.Unregister(prev)
			delete(s.files, prev)
		}
		s.byPath[f.Path] = f.Name
	}
	s.files[f.Name] = f
	s.app.Runner.Register(f.Name, c)
	return nil
}

// LoadScenarios builds every definition in dir and registers it with the
// runner. Nothing is registered if any file fails to load or build.
func (a *App) LoadScenarios(dir string) ([]*scenariofile.File, error) {
	files, err := scenariofile.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if _, err := scenariofile.Build(f, a.scenarios.deps()); err != nil {
			return nil, err
		}
	}
	for _, f := range files {
		if err := a.scenarios.register(f); err != nil {
			return nil, err
		}
	}
	a.Logger.Info("scenarios loaded", slog.String("dir", dir), slog.Int("count", len(files)))
	return files, nil
}

// ReloadFile re-reads one definition and replaces its registration. It
// returns the scenario name now registered for path.
func (a *App) ReloadFile(path string) (string, error) {
	f, err := scenariofile.Load(path)
	if err != nil {
		return "", err
	}
	if err := a.scenarios.register(f); err != nil {
		return "", err
	}
	a.Logger.Info("scenario reloaded", slog.String(internallog.ScenarioKey, f.Name), slog.String("path", path))
	return f.Name, nil
}

// RemoveFile unregisters the scenario loaded from path, if any.
func (a *App) RemoveFile(path string) (string, bool) {
	s := a.scenarios
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.byPath[path]
	if !ok {
		return "", false
	}
	delete(s.byPath, path)
	delete(s.files, name)
	a.Runner.Unregister(name)
	return name, true
}

// Scenario returns the loaded definition of name.
func (a *App) Scenario(name string) (*scenariofile.File, bool) {
	s := a.scenarios
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[name]
	return f, ok
}

// Scenarios returns every loaded definition sorted by name.
func (a *App) Scenarios() []*scenariofile.File {
	s := a.scenarios
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*scenariofile.File, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// StoredReport returns the persisted report of name.
func (a *App) StoredReport(ctx context.Context, name string) (StoredReport, bool) {
	r := storage.GetJSON(ctx, a.Store, reportKeyPrefix+name, StoredReport{})
	return r, r.Name != ""
}

// reportSink persists finished scenario reports when enabled.
func (a *App) reportSink() scenario.Observer {
	return reportSink{app: a}
}

type reportSink struct {
	app *App
}

func (r reportSink) ScenarioFinished(name string, report *chain.Report) {
	a := r.app
	if !a.Config.Scenarios.PersistReports {
		return
	}
	stored := newStoredReport(name, report, time.Now())
	if err := storage.SetJSON(context.Background(), a.Store, reportKeyPrefix+name, stored); err != nil {
		a.Logger.Warn("failed to persist report",
			slog.String(internallog.ScenarioKey, name),
			internallog.Error(err))
	}
}

// ResolveDir returns dir, or the configured scenarios directory when dir
// is empty, made absolute.
func (a *App) ResolveDir(dir string) (string, error) {
	if dir == "" {
		dir = a.Config.Scenarios.Dir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve scenarios directory: %w", err)
	}
	return abs, nil
}
