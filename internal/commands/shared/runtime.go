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
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/tombee/mender/internal/app"
	"github.com/tombee/mender/internal/config"
	"github.com/tombee/mender/pkg/handler"
)

// LoadConfig loads the configuration named by --config and applies the
// global flag overrides.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigPath())
	if err != nil {
		return nil, NewConfigError("failed to load configuration", err)
	}
	switch {
	case GetVerbose():
		cfg.Log.Level = "debug"
	case GetQuiet():
		cfg.Log.Level = "error"
	}
	if addr := GetMetricsAddr(); addr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = addr
	}
	return cfg, nil
}

// NewApp loads the configuration and builds the runtime for cmd. Logs and
// notifications go to cmd's error stream.
func NewApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	errOut := cmd.ErrOrStderr()
	opts := []app.Option{
		app.WithLogOutput(errOut),
		app.WithVersion(version),
	}
	if !GetJSON() && !GetQuiet() {
		opts = append(opts, app.WithNotifier(Notifier(errOut)))
	}
	if GetTrace() {
		opts = append(opts, app.WithConsoleTraces(errOut))
	}

	a, err := app.New(ctx, cfg, opts...)
	if err != nil {
		return nil, NewConfigError("failed to initialize", err)
	}
	return a, nil
}

// Notifier prints handler notifications to w, one per line.
func Notifier(w io.Writer) handler.Notifier {
	var mu sync.Mutex
	return func(n handler.Notification) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "%s %s: %s\n", notificationSymbol(n.Type), Bold.Render(n.Title), n.Message)
	}
}

func notificationSymbol(t handler.NotificationType) string {
	switch t {
	case handler.NotificationError:
		return StatusError.Render(SymbolError)
	case handler.NotificationWarning:
		return StatusWarn.Render(SymbolWarn)
	default:
		return StatusInfo.Render(SymbolInfo)
	}
}
