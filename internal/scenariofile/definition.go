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

// Package scenariofile loads scenario definitions from YAML and compiles
// them into chains. Each step is either an expr-lang expression or a jq
// query evaluated against the previous phase's value.
package scenariofile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tombee/mender/pkg/chain"
)

// File is one scenario definition.
type File struct {
	Name        string    `yaml:"name" json:"name,omitempty"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Steps       []StepDef `yaml:"steps" json:"steps"`

	// Path is where the definition was loaded from, if anywhere.
	Path string `yaml:"-" json:"-"`
}

// StepDef describes one step. Exactly one of Expr and JQ is set.
type StepDef struct {
	Phase      chain.Phase `yaml:"phase" json:"phase"`
	Name       string      `yaml:"name,omitempty" json:"name,omitempty"`
	Expr       string      `yaml:"expr,omitempty" json:"expr,omitempty"`
	JQ         string      `yaml:"jq,omitempty" json:"jq,omitempty"`
	Retryable  *bool       `yaml:"retryable,omitempty" json:"retryable,omitempty"`
	MaxRetries *int        `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
}

// Parse decodes and validates a definition. Unknown fields are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Marshal encodes f as YAML with two-space indentation. It validates f
// first so the output always parses back.
func Marshal(f *File) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("failed to encode scenario: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode scenario: %w", err)
	}
	return buf.Bytes(), nil
}

// Load reads and parses the definition at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// LoadDir loads every *.yaml and *.yml file in dir, sorted by scenario
// name. Duplicate names are an error.
func LoadDir(dir string) ([]*File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var files []*File
	seen := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !IsScenarioFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		f, err := Load(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("scenario %q defined in both %s and %s", f.Name, prev, path)
		}
		seen[f.Name] = path
		files = append(files, f)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// IsScenarioFile reports whether name has a YAML extension.
func IsScenarioFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// Validate checks the definition.
func (f *File) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", f.Name)
	}
	for i := range f.Steps {
		if err := f.Steps[i].validate(); err != nil {
			return fmt.Errorf("scenario %q step %d: %w", f.Name, i+1, err)
		}
	}
	return nil
}

func (s *StepDef) validate() error {
	if !s.Phase.Valid() {
		return fmt.Errorf("unknown phase %q", s.Phase)
	}
	hasExpr, hasJQ := s.Expr != "", s.JQ != ""
	if hasExpr == hasJQ {
		return fmt.Errorf("exactly one of expr and jq is required")
	}
	if s.MaxRetries != nil && *s.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", *s.MaxRetries)
	}
	return nil
}

// StepName returns the declared name, or one derived from the phase.
func (s *StepDef) StepName(index int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%s-%d", s.Phase, index+1)
}
