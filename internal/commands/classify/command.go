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

// Package classify implements the classify command, which shows how a raw
// failure message is categorized.
package classify

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/mender/internal/commands/shared"
	"github.com/tombee/mender/pkg/errors"
)

type options struct {
	status   int
	endpoint string
	kind     string
	offline  bool
	handle   bool
}

// NewCommand creates the classify command.
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "classify <message>",
		Short: "Classify a failure message",
		Annotations: map[string]string{
			"group": "diagnostics",
		},
		Long: `Classify turns a failure message into a structured error and prints its
kind, severity, whether it is recoverable, and the message a user would see.

Without flags the message is treated as an unknown failure. --status makes it
an API response, --offline a failed request, and --kind forces a kind.

With --handle the error is also dispatched through the error handler, so it
is logged, notified, and any registered recovery strategy runs.`,
		Example: `  # HTTP 503 from an API
  mender classify "upstream unavailable" --status 503 --endpoint /api/items

  # A request that never reached the server
  mender classify "dial tcp: connection refused" --offline

  # Force a kind and print JSON
  mender classify "bad cache entry" --kind data-corrupted --json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.status, "status", 0, "HTTP status code of the failed response")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "Endpoint that returned the status")
	cmd.Flags().StringVar(&opts.kind, "kind", "", "Force an error kind (see --help for the list)")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Treat the message as a failed network request")
	cmd.Flags().BoolVar(&opts.handle, "handle", false, "Dispatch the error through the error handler")

	return cmd
}

// build converts message into a structured error according to opts.
func build(message string, opts options) (*errors.Error, error) {
	switch {
	case opts.kind != "":
		kind := errors.ParseKind(opts.kind)
		if kind == errors.KindUnknown && opts.kind != string(errors.KindUnknown) {
			return nil, fmt.Errorf("unknown kind %q", opts.kind)
		}
		return errors.New(kind, message), nil
	case opts.status > 0:
		return errors.NewAPI(message, opts.status, opts.endpoint), nil
	case opts.offline:
		return errors.NewNetwork(message, 0), nil
	default:
		return errors.Classify(message), nil
	}
}

func runClassify(cmd *cobra.Command, message string, opts options) error {
	classified, err := build(message, opts)
	if err != nil {
		return shared.NewInvalidScenarioError("invalid classification", err)
	}

	if opts.handle {
		a, err := shared.NewApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())
		classified = a.Handler.HandleError(cmd.Context(), classified, "cli:classify")
		a.Handler.Wait()
	}

	if shared.GetJSON() {
		type response struct {
			shared.JSONResponse
			Error *errors.Response `json:"error"`
		}
		return shared.EmitJSON(cmd.OutOrStdout(), response{
			JSONResponse: shared.NewJSONResponse("classify", true),
			Error:        errors.ToJSON(classified),
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("Kind:"), classified.Kind())
	fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("Severity:"), shared.RenderSeverity(classified.Severity()))
	fmt.Fprintf(out, "%s %t\n", shared.RenderLabel("Recoverable:"), classified.Recoverable())
	fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("Message:"), classified.UserMessage())
	if s := classified.Suggestion(); s != "" {
		fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("Suggestion:"), s)
	}
	return nil
}
