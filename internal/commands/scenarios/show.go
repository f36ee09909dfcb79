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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tombee/mender/internal/cli/format"
	"github.com/tombee/mender/internal/commands/shared"
)

func newShowCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:           "show <name>",
		Short:         "Print a scenario's description and source",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, _, err := openApp(ctx, cmd, dir)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			f, ok := a.Scenario(args[0])
			if !ok {
				return shared.NewInvalidScenarioError(fmt.Sprintf("unknown scenario %q", args[0]), nil)
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), struct {
					shared.JSONResponse
					Scenario any    `json:"scenario"`
					Path     string `json:"path"`
				}{shared.NewJSONResponse("scenarios show", true), f, f.Path})
			}

			src, err := os.ReadFile(f.Path)
			if err != nil {
				return shared.NewInvalidScenarioError("failed to read scenario", err)
			}

			out := cmd.OutOrStdout()
			color := format.ColorEnabled(out)

			fmt.Fprintf(out, "%s %s\n", shared.Bold.Render(f.Name), shared.Muted.Render(f.Path))
			if f.Description != "" {
				desc, err := format.Markdown(f.Description, color)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, desc)
			}
			body, err := format.Source(string(src), "yaml", color)
			if err != nil {
				return err
			}
			fmt.Fprint(out, body)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Scenario directory (default: scenarios.dir from config)")
	return cmd
}
