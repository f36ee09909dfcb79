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

/*
Package cli provides the root command and help for mender's CLI.

This package creates the main Cobra command tree and handles global concerns
like version information, persistent flags, and exit codes. Individual
commands live in the internal/commands subpackages.

# Command Tree

	mender
	├── scenarios
	│   ├── list      List scenarios and their last outcome
	│   ├── run       Run scenarios and print reports
	│   ├── watch     Re-run scenarios when their files change
	│   ├── report    Show the stored report of a scenario
	│   ├── show      Print a scenario's description and source
	│   └── new       Create a scenario file interactively
	├── classify      Classify a failure message
	├── version       Show version
	└── help          Show help

# Usage

From main.go:

	cli.SetVersion(version, commit, date)
	rootCmd := cli.NewRootCommand()
	rootCmd.AddCommand(scenarios.NewCommand())
	rootCmd.SetHelpCommand(cli.NewHelpCommand(rootCmd))
	if err := rootCmd.Execute(); err != nil {
	    cli.HandleExitError(err)
	}

# Global Flags

	--verbose, -v      Enable debug logging
	--quiet, -q        Only log errors and suppress notifications
	--json             Output in JSON format
	--config           Path to config file
	--trace            Print spans to stderr
	--metrics-addr     Serve Prometheus metrics on this address

# Exit Codes

  - 0: success
  - 1: one or more scenarios failed
  - 2: invalid scenario file or unknown scenario
  - 3: configuration error
*/
package cli
