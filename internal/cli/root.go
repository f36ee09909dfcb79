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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/tombee/mender/internal/commands/shared"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for mender.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mender",
		Short: "mender - classify failures and run recovery scenarios",
		Long: `mender turns raw failures into structured, classified errors and drives
phased recovery pipelines against them. A pipeline walks through search,
verify, plan, fix, test and verify_final steps, retrying where it is safe to.

Run 'mender scenarios run' to execute the scenarios in ./scenarios.
Run 'mender classify <message>' to see how a failure is categorized.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			shared.ConfigureColor(cmd.OutOrStdout(), shared.GetJSON())
		},
	}

	f := shared.RegisterFlagPointers()

	cmd.PersistentFlags().BoolVarP(f.Verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(f.Quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(f.JSON, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(f.Config, "config", "", "Path to config file (default: ./mender.yaml or ~/.config/mender/config.yaml)")
	cmd.PersistentFlags().BoolVar(f.Trace, "trace", false, "Print spans to stderr")
	cmd.PersistentFlags().StringVar(f.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
