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

// Package app assembles mender's runtime from a loaded configuration: the
// error handler and its recovery strategies, storage, the HTTP client and
// connectivity probe, metrics, tracing and the scenario runner.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/tombee/mender/internal/config"
	internallog "github.com/tombee/mender/internal/log"
	"github.com/tombee/mender/internal/metrics"
	"github.com/tombee/mender/internal/network"
	"github.com/tombee/mender/internal/storage"
	"github.com/tombee/mender/internal/tracing"
	"github.com/tombee/mender/pkg/chain"
	"github.com/tombee/mender/pkg/handler"
	"github.com/tombee/mender/pkg/scenario"
)

// App holds the wired components. Fields are read-only after New.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracing *tracing.Provider
	Handler *handler.Handler
	Store   *storage.Store
	Fetcher *network.Fetcher
	Probe   *network.Probe
	Runner  *scenario.Runner

	scenarios *scenarioSet
}

type options struct {
	logOutput     io.Writer
	notifier      handler.Notifier
	consoleTraces io.Writer
	version       string
}

// Option configures New.
type Option func(*options)

// WithLogOutput sets where logs are written. Default: stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithNotifier receives user-facing notifications for handled errors.
func WithNotifier(n handler.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithConsoleTraces adds a console span exporter writing to w, whether or
// not tracing is enabled in the configuration.
func WithConsoleTraces(w io.Writer) Option {
	return func(o *options) { o.consoleTraces = w }
}

// WithVersion is reported as the tracing service version.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// New builds the runtime described by cfg. Close releases it.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	logger := internallog.New(cfg.ToLog(o.logOutput))
	collector := metrics.New()

	tracingCfg := cfg.Tracing
	if o.version != "" {
		tracingCfg.ServiceVersion = o.version
	}
	if o.consoleTraces != nil {
		tracingCfg.Enabled = true
		tracingCfg.Exporters = append(tracingCfg.Exporters, tracing.ExporterConfig{Type: tracing.ExporterConsole, Pretty: true})
	}
	var tracingOpts []tracing.ProviderOption
	tracingOpts = append(tracingOpts, tracing.WithRegisterer(collector.Registry()))
	if o.consoleTraces != nil {
		tracingOpts = append(tracingOpts, tracing.WithConsoleWriter(o.consoleTraces))
	}
	provider, err := tracing.NewProvider(ctx, tracingCfg, tracingOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	netOpts := []network.Option{
		network.WithLogger(internallog.WithComponent(logger, "network")),
		network.WithObserver(collector),
	}
	fetcher, err := network.NewFetcher(cfg.Network, netOpts...)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}
	probe, err := network.NewProbe(cfg.Network, netOpts...)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create connectivity probe: %w", err)
	}

	hopts := []handler.Option{
		handler.WithConfig(cfg.ToHandler()),
		handler.WithLogger(internallog.WithComponent(logger, "handler")),
		handler.WithConnectivity(probe),
		handler.WithNetworkWait(cfg.Recovery.NetworkWait),
		handler.WithObserver(collector),
	}
	if o.notifier != nil {
		hopts = append(hopts, handler.WithNotifier(o.notifier))
	}
	h := handler.New(hopts...)

	store, err := storage.Open(cfg.Storage,
		storage.WithReporter(h),
		storage.WithLogger(internallog.WithComponent(logger, "storage")),
	)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: collector,
		Tracing: provider,
		Handler: h,
		Store:   store,
		Fetcher: fetcher,
		Probe:   probe,
	}
	a.Runner = scenario.NewRunner(
		scenario.WithLogger(internallog.WithComponent(logger, "scenario")),
		scenario.WithConcurrency(cfg.Scenarios.Concurrency),
		scenario.WithObserver(scenario.Observers{collector, a.reportSink()}),
	)
	a.scenarios = newScenarioSet(a)
	return a, nil
}

// ChainOptions returns the options every scenario chain is built with.
// Step failures stay in the chain's report; they never reach the Handler.
func (a *App) ChainOptions() []chain.Option {
	return []chain.Option{
		chain.WithLogger(internallog.WithComponent(a.Logger, "chain")),
		chain.WithTracer(a.Tracing.Tracer("github.com/tombee/mender/pkg/chain")),
		chain.WithObserver(chain.Observers{
			a.Metrics,
			a.Tracing.Metrics(),
		}),
	}
}

// ServeMetrics serves /metrics and /healthz on addr until ctx is done.
func (a *App) ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.Logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close waits for pending notifications, flushes telemetry and closes
// storage.
func (a *App) Close(ctx context.Context) error {
	a.Handler.Wait()
	return errors.Join(
		a.Tracing.Shutdown(ctx),
		a.Store.Close(),
	)
}
