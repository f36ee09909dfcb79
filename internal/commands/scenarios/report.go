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
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/mender/internal/commands/shared"
)

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <name>",
		Short: "Show the stored report of a scenario's last run",
		Long: `Report prints the persisted outcome of the last run of a scenario.
Reports survive between invocations only with the sqlite or redis storage
drivers and scenarios.persist_reports enabled.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := shared.NewApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			name := args[0]
			stored, ok := a.StoredReport(ctx, name)
			if !ok {
				if shared.GetJSON() {
					_ = shared.EmitJSONError(cmd.OutOrStdout(), "scenarios report", []shared.JSONError{{
						Code:       "REPORT_NOT_FOUND",
						Message:    fmt.Sprintf("no stored report for %q", name),
						Suggestion: "run the scenario first: mender scenarios run " + name,
						Scenario:   name,
					}})
					return &shared.ExitError{Code: shared.ExitInvalidScenario}
				}
				return shared.NewInvalidScenarioError(fmt.Sprintf("no stored report for %q", name), nil)
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), struct {
					shared.JSONResponse
					Report any `json:"report"`
				}{shared.NewJSONResponse("scenarios report", true), stored})
			}

			out := cmd.OutOrStdout()
			status := "PASS"
			if !stored.FinalSuccess {
				status = "FAIL"
			}
			fmt.Fprintf(out, "%s %s\n", shared.RenderStatus(stored.FinalSuccess, status), shared.Bold.Render(stored.Name))
			fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("Ran at:"), stored.RanAt.Local().Format(time.DateTime))
			fmt.Fprintf(out, "%s %d/%d succeeded\n", shared.RenderLabel("Steps:"), stored.SuccessfulSteps, stored.TotalSteps)
			fmt.Fprintf(out, "%s %dms\n", shared.RenderLabel("Duration:"), stored.DurationMs)
			if stored.FailedStep != "" {
				fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("Failed step:"), stored.FailedStep)
				fmt.Fprintf(out, "%s %s (%s)\n", shared.RenderLabel("Error:"), stored.Error, stored.ErrorKind)
			}
			return nil
		},
	}

	return cmd
}
