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

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	pkgerrors "github.com/tombee/mender/pkg/errors"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitScenarioFailed  = 1
	ExitInvalidScenario = 2
	ExitConfigError     = 3
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewScenarioFailedError reports that one or more scenarios failed.
func NewScenarioFailedError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitScenarioFailed, Message: msg, Cause: cause}
}

// NewInvalidScenarioError reports a scenario file that cannot be loaded.
func NewInvalidScenarioError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitInvalidScenario, Message: msg, Cause: cause}
}

// NewConfigError reports a configuration that cannot be loaded.
func NewConfigError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitConfigError, Message: msg, Cause: cause}
}

// ExitCode returns the exit code for err: 0 for nil, the carried code for
// an ExitError and ExitScenarioFailed otherwise.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitScenarioFailed
}

// HandleExitError prints err and exits with its code.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	PrintError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

// PrintError writes err and, when a structured error in its chain has
// one, the suggestion for fixing it. An ExitError with an empty message
// prints nothing; the command has already reported.
func PrintError(w io.Writer, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Message == "" && exitErr.Cause == nil {
		return
	}
	fmt.Fprintln(w, RenderError(err.Error()))

	var structured *pkgerrors.Error
	if errors.As(err, &structured) && structured.IsUserVisible() {
		if s := structured.Suggestion(); s != "" {
			fmt.Fprintf(w, "\n%s %s\n", Muted.Render("Suggestion:"), s)
		}
	}
}
