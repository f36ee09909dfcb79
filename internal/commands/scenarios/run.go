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
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/mender/internal/app"
	"github.com/tombee/mender/internal/cli/format"
	"github.com/tombee/mender/internal/cli/timeline"
	"github.com/tombee/mender/internal/commands/shared"
	"github.com/tombee/mender/pkg/chain"
	"github.com/tombee/mender/pkg/scenario"
)

type runResult struct {
	Name   string        `json:"name"`
	Report *chain.Report `json:"report"`
}

func newRunCommand() *cobra.Command {
	var (
		dir        string
		noDiagram  bool
		showValues bool
	)

	cmd := &cobra.Command{
		Use:   "run [name...]",
		Short: "Run scenarios and print their reports",
		Long: `Run executes the named scenarios, or every scenario when no names are
given, and prints a step timeline for each followed by a summary.

Exit codes:
  0  every scenario passed
  1  at least one scenario failed
  2  a scenario file is invalid or a name is unknown
  3  configuration error`,
		Example: `  # Run everything in the configured directory
  mender scenarios run

  # Run two scenarios from a custom directory
  mender scenarios run network_offline api_validation --dir ./fixtures

  # Machine-readable output
  mender scenarios run --json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, _, err := openApp(ctx, cmd, dir)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			for _, name := range args {
				if _, ok := a.Scenario(name); !ok {
					return shared.NewInvalidScenarioError(fmt.Sprintf("unknown scenario %q", name), nil)
				}
			}

			var reports map[string]*chain.Report
			if len(args) == 0 {
				reports = a.Runner.RunAll(ctx)
			} else {
				reports = make(map[string]*chain.Report, len(args))
				for _, name := range args {
					reports[name] = a.Runner.RunScenario(ctx, name)
				}
			}
			a.Handler.Wait()

			return printRun(cmd, a, reports, runOutput{diagrams: !noDiagram, values: showValues})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Scenario directory (default: scenarios.dir from config)")
	cmd.Flags().BoolVar(&noDiagram, "no-timeline", false, "Skip the per-scenario timeline")
	cmd.Flags().BoolVar(&showValues, "values", false, "Print the value produced by every step")
	return cmd
}

type runOutput struct {
	diagrams bool
	values   bool
}

func printRun(cmd *cobra.Command, a *app.App, reports map[string]*chain.Report, opts runOutput) error {
	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	sort.Strings(names)

	summary := a.Runner.Summary()
	var failed []string
	results := make([]runResult, 0, len(names))
	for _, name := range names {
		rep := reports[name]
		if rep == nil || !rep.FinalSuccess {
			failed = append(failed, name)
		}
		results = append(results, runResult{Name: name, Report: rep})
	}

	out := cmd.OutOrStdout()
	if shared.GetJSON() {
		err := shared.EmitJSON(out, struct {
			shared.JSONResponse
			Summary   scenario.Summary `json:"summary"`
			Scenarios []runResult      `json:"scenarios"`
		}{shared.NewJSONResponse("scenarios run", len(failed) == 0), summary, results})
		if err != nil {
			return err
		}
		if len(failed) > 0 {
			return &shared.ExitError{Code: shared.ExitScenarioFailed}
		}
		return nil
	}

	if opts.diagrams {
		renderer := timeline.NewRenderer()
		for _, r := range results {
			if diagram, err := renderer.Render(r.Report); err == nil {
				fmt.Fprint(out, diagram)
			}
		}
	}
	for _, r := range results {
		printOutcome(out, r)
		if opts.values {
			printValues(out, r)
		}
	}
	fmt.Fprintf(out, "\n%d scenario(s): %d passed, %d failed (%.0f%%)\n",
		summary.TotalScenarios, summary.PassedScenarios, summary.FailedScenarios, summary.SuccessRate)

	if len(failed) > 0 {
		return shared.NewScenarioFailedError(fmt.Sprintf("%d scenario(s) failed", len(failed)), nil)
	}
	return nil
}

func printOutcome(w io.Writer, r runResult) {
	if r.Report != nil && r.Report.FinalSuccess {
		fmt.Fprintln(w, shared.RenderOK(r.Name))
		return
	}
	line := r.Name
	if r.Report != nil {
		if res, ok := r.Report.FailedResult(); ok {
			line = fmt.Sprintf("%s: %s step %q failed", r.Name, res.Phase, res.StepName)
			if res.Error != nil {
				line += ": " + res.Error.Message()
			}
		}
	}
	fmt.Fprintln(w, shared.RenderError(line))
}

func printValues(w io.Writer, r runResult) {
	if r.Report == nil {
		return
	}
	for _, res := range r.Report.Results {
		if !res.Success {
			continue
		}
		v, err := format.Value(res.Value)
		if err != nil {
			v = err.Error()
		}
		fmt.Fprintf(w, "    %s %s\n", shared.RenderLabel(res.StepName+":"), strings.ReplaceAll(v, "\n", "\n    "))
	}
}
