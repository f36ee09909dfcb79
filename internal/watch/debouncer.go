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

package watch

import (
	"sync"
	"time"
)

// Debouncer delays delivery of an event until no newer event for the same
// path has arrived for the window. Only the latest event per path is
// delivered.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	timers  map[string]*pending
	onFlush func(Event)
	stopped bool
}

type pending struct {
	timer *time.Timer
	event Event
}

// NewDebouncer creates a debouncer that calls onFlush for each settled event.
func NewDebouncer(window time.Duration, onFlush func(Event)) *Debouncer {
	return &Debouncer{
		window:  window,
		timers:  make(map[string]*pending),
		onFlush: onFlush,
	}
}

// Add records ev, restarting the timer for its path.
func (d *Debouncer) Add(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	p, ok := d.timers[ev.Path]
	if ok {
		p.timer.Stop()
		p.event = ev
	} else {
		p = &pending{event: ev}
		d.timers[ev.Path] = p
	}
	path := ev.Path
	p.timer = time.AfterFunc(d.window, func() { d.flush(path) })
}

func (d *Debouncer) flush(path string) {
	d.mu.Lock()
	p, ok := d.timers[path]
	if !ok || d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.timers, path)
	d.mu.Unlock()

	// onFlush runs unlocked so it may call Add.
	d.onFlush(p.event)
}

// Stop cancels pending timers and discards their events.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for path, p := range d.timers {
		p.timer.Stop()
		delete(d.timers, path)
	}
}

// Pending returns the number of paths waiting to settle.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}
