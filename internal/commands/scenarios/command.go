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

// Package scenarios implements the scenarios command group: listing,
// running, watching, and reporting on scenario definition files.
package scenarios

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tombee/mender/internal/app"
	"github.com/tombee/mender/internal/commands/shared"
)

// NewCommand creates the scenarios command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scenarios",
		Aliases: []string{"scenario"},
		Short:   "Run and inspect recovery scenarios",
		Annotations: map[string]string{
			"group": "execution",
		},
		Long: `A scenario is a YAML file describing a phased recovery pipeline:
search, verify, plan, fix, test and verify_final. Each step is an expression
or a jq query evaluated against the previous phase's output.

Scenarios are read from the directory set by scenarios.dir in the config
file, or by --dir.`,
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newWatchCommand())
	cmd.AddCommand(newReportCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newNewCommand())

	return cmd
}

// openApp builds the runtime and loads every scenario in dir, or in the
// configured directory when dir is empty. The caller must Close the app.
func openApp(ctx context.Context, cmd *cobra.Command, dir string) (*app.App, string, error) {
	a, err := shared.NewApp(ctx, cmd)
	if err != nil {
		return nil, "", err
	}
	resolved, err := a.ResolveDir(dir)
	if err != nil {
		_ = a.Close(ctx)
		return nil, "", shared.NewConfigError("invalid scenarios directory", err)
	}
	if _, err := a.LoadScenarios(resolved); err != nil {
		_ = a.Close(ctx)
		return nil, "", shared.NewInvalidScenarioError("failed to load scenarios", err)
	}
	return a, resolved, nil
}
