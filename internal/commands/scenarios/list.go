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
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/mender/internal/commands/shared"
)

type listEntry struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Steps       int        `json:"steps"`
	Path        string     `json:"path"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	LastSuccess *bool      `json:"last_success,omitempty"`
}

func newListCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List scenarios and the outcome of their last run",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, _, err := openApp(ctx, cmd, dir)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			var entries []listEntry
			for _, f := range a.Scenarios() {
				e := listEntry{
					Name:        f.Name,
					Description: f.Description,
					Steps:       len(f.Steps),
					Path:        f.Path,
				}
				if stored, ok := a.StoredReport(ctx, f.Name); ok {
					ranAt, success := stored.RanAt, stored.FinalSuccess
					e.LastRun, e.LastSuccess = &ranAt, &success
				}
				entries = append(entries, e)
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), struct {
					shared.JSONResponse
					Scenarios []listEntry `json:"scenarios"`
				}{shared.NewJSONResponse("scenarios list", true), entries})
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, shared.Muted.Render("No scenarios found"))
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSTEPS\tLAST RUN\tDESCRIPTION")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.Name, e.Steps, lastRun(e), e.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Scenario directory (default: scenarios.dir from config)")
	return cmd
}

func lastRun(e listEntry) string {
	if e.LastRun == nil {
		return "never"
	}
	label := "FAIL"
	if *e.LastSuccess {
		label = "PASS"
	}
	return fmt.Sprintf("%s %s", shared.RenderStatus(*e.LastSuccess, label), e.LastRun.Local().Format(time.DateTime))
}
