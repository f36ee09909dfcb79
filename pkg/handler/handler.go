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

// Package handler provides the error handler service: it classifies raw
// failures, records them in a bounded history, dispatches them to
// listeners, emits user notifications and runs recovery strategies.
//
// A Handler is meant to live for the whole process. Construct one at
// startup and inject it where failures are handled; tests should build a
// fresh instance each time.
package handler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	internallog "github.com/tombee/mender/internal/log"
	"github.com/tombee/mender/pkg/errors"
	"github.com/tombee/mender/pkg/recovery"
)

// Listener is called for every handled error. Listeners run concurrently
// with each other; a panicking listener does not affect the others.
type Listener func(ctx context.Context, err *errors.Error)

// Observer receives handler events, typically to update metrics.
type Observer interface {
	ErrorHandled(err *errors.Error)
	RecoveryAttempted(err *errors.Error, recovered bool)
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// Handler is the error handler service. It is safe for concurrent use.
type Handler struct {
	cfg      Config
	logger   *slog.Logger
	logFunc  LogFunc
	registry *recovery.Registry
	observer Observer

	connectivity recovery.Connectivity
	networkWait  time.Duration

	// mu guards history and notifier.
	mu       sync.Mutex
	history  []*errors.Error
	notifier Notifier

	listenersMu sync.RWMutex
	listeners   []listenerEntry
	nextID      uint64

	pending sync.WaitGroup
}

// Option configures a Handler.
type Option func(*Handler)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(h *Handler) { h.cfg = cfg }
}

// WithLogger sets the logger used for the default logging sink and for
// reporting sink and strategy failures.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithLogFunc replaces the logging sink.
func WithLogFunc(fn LogFunc) Option {
	return func(h *Handler) { h.logFunc = fn }
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(h *Handler) { h.notifier = n }
}

// WithRegistry uses r instead of a default registry. The built-in
// strategies are not added to r.
func WithRegistry(r *recovery.Registry) Option {
	return func(h *Handler) { h.registry = r }
}

// WithConnectivity sets the probe used by the default network strategy.
func WithConnectivity(c recovery.Connectivity) Option {
	return func(h *Handler) { h.connectivity = c }
}

// WithNetworkWait sets how long the default network strategy waits.
func WithNetworkWait(d time.Duration) Option {
	return func(h *Handler) { h.networkWait = d }
}

// WithObserver registers an observer for handled errors and recoveries.
func WithObserver(o Observer) Option {
	return func(h *Handler) { h.observer = o }
}

// New creates a Handler with the default configuration and the built-in
// recovery strategies.
func New(opts ...Option) *Handler {
	h := &Handler{
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.cfg.HistorySize <= 0 {
		h.cfg.HistorySize = DefaultHistorySize
	}
	if h.logFunc == nil {
		h.logFunc = SlogLogFunc(h.logger)
	}
	if h.registry == nil {
		h.registry = recovery.NewDefaultRegistry(recovery.DefaultOptions{
			Connectivity: h.connectivity,
			NetworkWait:  h.networkWait,
		})
	}

	h.history = make([]*errors.Error, 0, h.cfg.HistorySize)
	return h
}

// Config returns the handler's configuration.
func (h *Handler) Config() Config {
	return h.cfg
}

// Registry returns the recovery strategy registry.
func (h *Handler) Registry() *recovery.Registry {
	return h.registry
}

// HandleError classifies raw and runs the handling pipeline:
//
//  1. append to history (evicting the oldest entry beyond the cap)
//  2. write a log record, if logging is enabled
//  3. dispatch to every listener and wait for them
//  4. emit a notification, if enabled and a notifier is set
//  5. run the recovery strategy for the kind, if recovery is enabled and
//     the error is recoverable
//
// None of these steps can fail the call. The classified error is returned
// so callers can propagate it.
func (h *Handler) HandleError(ctx context.Context, raw any, origin string) *errors.Error {
	err := errors.ClassifyWithOrigin(raw, origin)

	h.record(err)
	h.logError(err, origin)

	if h.observer != nil {
		h.observer.ErrorHandled(err)
	}

	h.dispatch(ctx, err)

	if h.cfg.EnableNotifications {
		h.notify(err)
	}

	if h.cfg.EnableRecovery && err.Recoverable() {
		h.attemptRecovery(ctx, err)
	}

	return err
}

// LogError writes a log record for err without recording, dispatching or
// recovering it. Error boundaries use it to report render failures.
func (h *Handler) LogError(err error, origin string) {
	h.logError(errors.ClassifyWithOrigin(err, origin), origin)
}

// RegisterHandler adds a listener and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (h *Handler) RegisterHandler(l Listener) (unregister func()) {
	h.listenersMu.Lock()
	h.nextID++
	id := h.nextID
	h.listeners = append(h.listeners, listenerEntry{id: id, fn: l})
	h.listenersMu.Unlock()

	return func() {
		h.listenersMu.Lock()
		defer h.listenersMu.Unlock()
		for i, entry := range h.listeners {
			if entry.id == id {
				h.listeners = append(h.listeners[:i:i], h.listeners[i+1:]...)
				return
			}
		}
	}
}

// RegisterRecoveryStrategy sets the strategy for kind, replacing any
// previous one.
func (h *Handler) RegisterRecoveryStrategy(kind errors.Kind, s recovery.Strategy) {
	h.registry.Register(kind, s)
}

// SetNotifier replaces the notification sink. Nil disables notifications
// without error.
func (h *Handler) SetNotifier(n Notifier) {
	h.mu.Lock()
	h.notifier = n
	h.mu.Unlock()
}

// Wait blocks until every in-flight notification has been delivered.
func (h *Handler) Wait() {
	h.pending.Wait()
}

func (h *Handler) dispatch(ctx context.Context, err *errors.Error) {
	h.listenersMu.RLock()
	listeners := make([]listenerEntry, len(h.listeners))
	copy(listeners, h.listeners)
	h.listenersMu.RUnlock()

	if len(listeners) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, entry := range listeners {
		wg.Add(1)
		go func(entry listenerEntry) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					h.logger.Warn("error listener panicked",
						slog.Uint64("listener", entry.id),
						slog.String(internallog.KindKey, string(err.Kind())),
						slog.Any("panic", r),
					)
				}
			}()
			entry.fn(ctx, err)
		}(entry)
	}
	wg.Wait()
}

func (h *Handler) attemptRecovery(ctx context.Context, err *errors.Error) {
	out := h.registry.Attempt(ctx, err)
	if !out.Attempted {
		return
	}

	if h.observer != nil {
		h.observer.RecoveryAttempted(err, out.Recovered)
	}

	if out.Err != nil {
		h.logger.Warn("recovery strategy failed",
			slog.String(internallog.KindKey, string(err.Kind())),
			slog.String("trace_id", err.TraceID()),
			internallog.Error(out.Err),
		)
		return
	}

	h.logger.Debug("recovery strategy finished",
		slog.String(internallog.KindKey, string(err.Kind())),
		slog.String("trace_id", err.TraceID()),
		slog.Bool("recovered", out.Recovered),
	)
}
