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
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func newHelpTestRoot() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "test",
		Short: "Test command",
	}
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose output")

	sampleCmd := &cobra.Command{
		Use:   "sample",
		Short: "Sample subcommand",
		Long:  "This is a sample subcommand for testing",
		Example: `  test sample
  test sample --flag value`,
		Annotations: map[string]string{
			"group": "testing",
		},
	}
	sampleCmd.Flags().String("flag", "", "A sample flag")
	sampleCmd.AddCommand(&cobra.Command{Use: "nested", Short: "Nested", Run: func(*cobra.Command, []string) {}})
	rootCmd.AddCommand(sampleCmd)

	rootCmd.SetHelpCommand(NewHelpCommand(rootCmd))
	return rootCmd
}

func runHelp(t *testing.T, rootCmd *cobra.Command, args ...string) HelpResponse {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"help"}, args...))

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var resp HelpResponse
	if err := json.NewDecoder(strings.NewReader(buf.String())).Decode(&resp); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nOutput: %s", err, buf.String())
	}
	if resp.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", resp.Version)
	}
	if !resp.Success {
		t.Errorf("Expected success true, got false")
	}
	if len(resp.ExitCodes) != 4 {
		t.Errorf("Expected 4 exit codes, got %d", len(resp.ExitCodes))
	}
	return resp
}

func TestHelpCommandJSON_All(t *testing.T) {
	resp := runHelp(t, newHelpTestRoot(), "--json")

	if resp.Command != nil {
		t.Errorf("Expected command to be nil for list, got %+v", resp.Command)
	}
	names := map[string]CommandMetadata{}
	for _, c := range resp.Commands {
		names[c.Name] = c
	}
	if _, ok := names["sample"]; !ok {
		t.Errorf("Expected sample in commands, got %+v", resp.Commands)
	}
	nested, ok := names["nested"]
	if !ok {
		t.Fatalf("Expected nested subcommand to be listed")
	}
	if nested.Group != "testing" {
		t.Errorf("Expected nested command to inherit group 'testing', got %q", nested.Group)
	}
	if len(resp.GlobalFlags) != 1 || resp.GlobalFlags[0].Name != "verbose" {
		t.Errorf("Expected verbose global flag, got %+v", resp.GlobalFlags)
	}
}

func TestHelpCommandJSON_Single(t *testing.T) {
	resp := runHelp(t, newHelpTestRoot(), "sample", "--json")

	if resp.Command == nil {
		t.Fatal("Expected command metadata, got nil")
	}
	if resp.Command.Name != "sample" {
		t.Errorf("Expected command name 'sample', got %s", resp.Command.Name)
	}
	if resp.Command.Group != "testing" {
		t.Errorf("Expected group 'testing', got %s", resp.Command.Group)
	}
	if resp.Command.Examples == "" {
		t.Errorf("Expected examples to be populated")
	}
	if len(resp.Command.Subcommands) != 1 || resp.Command.Subcommands[0] != "nested" {
		t.Errorf("Expected subcommand 'nested', got %v", resp.Command.Subcommands)
	}
	if len(resp.Commands) > 0 {
		t.Errorf("Expected commands to be empty for single command, got %d", len(resp.Commands))
	}
}

func TestHelpCommandHumanOutput(t *testing.T) {
	rootCmd := newHelpTestRoot()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"help"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("Expected human output, got JSON")
	}
}

func TestHelpCommandUnknown(t *testing.T) {
	rootCmd := newHelpTestRoot()
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"help", "bogus"})

	if err := rootCmd.Execute(); err == nil {
		t.Error("expected an error for an unknown command")
	}
}

func TestExtractCommandMetadata(t *testing.T) {
	cmd := &cobra.Command{
		Use:     "testcmd",
		Short:   "Test command",
		Long:    "This is a longer description",
		Example: "testcmd --flag value",
		Aliases: []string{"tc", "test"},
		Annotations: map[string]string{
			"group": "testing",
		},
	}
	cmd.Flags().String("flag", "default", "A test flag")
	cmd.Flags().Bool("bool-flag", false, "A boolean flag")

	metadata := extractCommandMetadata(cmd)

	if metadata.Name != "testcmd" {
		t.Errorf("Expected name 'testcmd', got %s", metadata.Name)
	}
	if metadata.Group != "testing" {
		t.Errorf("Expected group 'testing', got %s", metadata.Group)
	}
	if len(metadata.Aliases) != 2 {
		t.Errorf("Expected 2 aliases, got %d", len(metadata.Aliases))
	}
	if len(metadata.Flags) != 2 {
		t.Fatalf("Expected 2 flags, got %d", len(metadata.Flags))
	}
	for _, f := range metadata.Flags {
		if f.Name == "bool-flag" && f.Type != "bool" {
			t.Errorf("Expected bool-flag type 'bool', got %q", f.Type)
		}
	}
}

func TestExtractGlobalFlags(t *testing.T) {
	rootCmd := &cobra.Command{
		Use: "test",
	}
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file")

	flags := extractGlobalFlags(rootCmd)

	if len(flags) != 2 {
		t.Errorf("Expected 2 global flags, got %d", len(flags))
	}
	for _, f := range flags {
		if f.Name == "verbose" && f.Usage != "Verbose output" {
			t.Errorf("Expected usage 'Verbose output', got %s", f.Usage)
		}
	}
}
