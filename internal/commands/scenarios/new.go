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
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tombee/mender/internal/cli/prompt"
	"github.com/tombee/mender/internal/commands/shared"
	"github.com/tombee/mender/internal/scenariofile"
)

func newNewCommand() *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a scenario file interactively",
		Long: `New asks for a name, a description and one optional step per phase, checks
every expression as it is entered, and writes <name>.yaml to the scenarios
directory. It requires a terminal.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := prompt.NewSurveyPrompter(shared.IsTerminal(os.Stdin) && !shared.IsCI())
			return runNew(cmd.Context(), cmd, p, dir, force)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Scenario directory (default: scenarios.dir from config)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func runNew(ctx context.Context, cmd *cobra.Command, p prompt.Prompter, dir string, force bool) error {
	a, err := shared.NewApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	resolved, err := a.ResolveDir(dir)
	if err != nil {
		return shared.NewConfigError("invalid scenarios directory", err)
	}

	f, err := prompt.NewScenario(ctx, p, scenariofile.Deps{}.CheckStep)
	if err != nil {
		return shared.NewInvalidScenarioError("scenario not created", err)
	}
	data, err := scenariofile.Marshal(f)
	if err != nil {
		return shared.NewInvalidScenarioError("scenario not created", err)
	}

	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", resolved, err)
	}
	path := filepath.Join(resolved, f.Name+".yaml")
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	out, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return shared.NewInvalidScenarioError(fmt.Sprintf("%s already exists (use --force to overwrite)", path), nil)
		}
		return fmt.Errorf("failed to write scenario: %w", err)
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return fmt.Errorf("failed to write scenario: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write scenario: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("wrote "+path))
	return nil
}
