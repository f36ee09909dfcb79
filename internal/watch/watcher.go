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

// Package watch reports debounced filesystem changes in a directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of change observed.
type Op string

const (
	OpCreated  Op = "created"
	OpModified Op = "modified"
	OpDeleted  Op = "deleted"
	OpRenamed  Op = "renamed"
)

var opMap = map[fsnotify.Op]Op{
	fsnotify.Create: OpCreated,
	fsnotify.Write:  OpModified,
	fsnotify.Remove: OpDeleted,
	fsnotify.Rename: OpRenamed,
}

// DefaultDebounce is the quiet period before a change is delivered.
const DefaultDebounce = 200 * time.Millisecond

// Event is one debounced change. Op is the last operation seen for Path
// during the debounce window.
type Event struct {
	Path string
	Op   Op
}

// Watcher delivers changes to files in one directory.
type Watcher struct {
	dir       string
	filter    func(name string) bool
	debounce  time.Duration
	fsw       *fsnotify.Watcher
	events    chan Event
	debouncer *Debouncer
	logger    *slog.Logger
	doneCh    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithFilter restricts events to base names for which fn returns true.
func WithFilter(fn func(name string) bool) Option {
	return func(w *Watcher) { w.filter = fn }
}

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New watches dir. Call Start to begin delivering events.
func New(dir string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(abs); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", abs, err)
	}

	w := &Watcher{
		dir:      abs,
		debounce: DefaultDebounce,
		fsw:      fsw,
		events:   make(chan Event, 64),
		logger:   slog.Default(),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(slog.String("component", "watch"), slog.String("dir", abs))
	w.debouncer = NewDebouncer(w.debounce, w.deliver)
	return w, nil
}

// Events returns the channel of debounced changes. It is closed after
// the watcher stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start runs the event loop until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Close stops watching and releases resources. It must follow Start.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.doneCh
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.events)
	defer w.debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	var op Op
	for fop, mapped := range opMap {
		if ev.Has(fop) {
			op = mapped
			break
		}
	}
	if op == "" {
		return
	}
	if w.filter != nil && !w.filter(filepath.Base(ev.Name)) {
		return
	}
	w.logger.Debug("file changed", slog.String("path", ev.Name), slog.String("op", string(op)))
	w.debouncer.Add(Event{Path: ev.Name, Op: op})
}

func (w *Watcher) deliver(ev Event) {
	select {
	case w.events <- ev:
	default:
		w.logger.Warn("event channel full, dropping event", slog.String("path", ev.Path))
	}
}
