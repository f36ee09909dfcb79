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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/mender/internal/app"
	"github.com/tombee/mender/internal/commands/shared"
	internallog "github.com/tombee/mender/internal/log"
	"github.com/tombee/mender/internal/scenariofile"
	"github.com/tombee/mender/internal/watch"
)

func newWatchCommand() *cobra.Command {
	var (
		dir      string
		debounce time.Duration
		initial  bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run scenarios whenever their files change",
		Long: `Watch loads the scenario directory, then reloads and re-runs a scenario
each time its file is created or modified. Deleting a file unregisters its
scenario. When metrics are enabled the Prometheus endpoint is served for the
lifetime of the command.

Press Ctrl+C to stop.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, resolved, err := openApp(ctx, cmd, dir)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			w, err := watch.New(resolved,
				watch.WithFilter(scenariofile.IsScenarioFile),
				watch.WithDebounce(debounce),
				watch.WithLogger(a.Logger))
			if err != nil {
				return shared.NewConfigError("failed to watch scenarios", err)
			}
			return runWatch(ctx, cmd, a, w, initial)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Scenario directory (default: scenarios.dir from config)")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a changed file is reloaded")
	cmd.Flags().BoolVar(&initial, "run", true, "Run every scenario once at startup")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, a *app.App, w *watch.Watcher, initial bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.Config.Metrics.Enabled {
		go func() {
			err := a.ServeMetrics(ctx, a.Config.Metrics.Addr)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Logger.Error("metrics server stopped", internallog.Error(err))
			}
		}()
	}

	w.Start(ctx)
	defer w.Close()

	out := cmd.OutOrStdout()
	if initial {
		for name, rep := range a.Runner.RunAll(ctx) {
			printOutcome(out, runResult{Name: name, Report: rep})
		}
	}
	fmt.Fprintln(out, shared.Muted.Render("Watching for changes..."))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			handleEvent(ctx, cmd, a, ev)
		}
	}
}

func handleEvent(ctx context.Context, cmd *cobra.Command, a *app.App, ev watch.Event) {
	out := cmd.OutOrStdout()
	logger := a.Logger.With(slog.String("path", ev.Path), slog.String("op", string(ev.Op)))

	switch ev.Op {
	case watch.OpDeleted, watch.OpRenamed:
		if name, ok := a.RemoveFile(ev.Path); ok {
			logger.Info("scenario removed", slog.String(internallog.ScenarioKey, name))
			fmt.Fprintln(out, shared.RenderWarn(name+" removed"))
		}
		return
	}

	name, err := a.ReloadFile(ev.Path)
	if err != nil {
		logger.Warn("scenario reload failed", internallog.Error(err))
		fmt.Fprintln(out, shared.RenderError(fmt.Sprintf("%s: %v", ev.Path, err)))
		return
	}
	rep := a.Runner.RunScenario(ctx, name)
	a.Handler.Wait()
	printOutcome(out, runResult{Name: name, Report: rep})
}
