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

package handler

import "github.com/tombee/mender/pkg/errors"

// record appends err to the history, evicting the oldest entry once the
// cap is reached.
func (h *Handler) record(err *errors.Error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.history) >= h.cfg.HistorySize {
		n := copy(h.history, h.history[len(h.history)-h.cfg.HistorySize+1:])
		h.history = h.history[:n]
	}
	h.history = append(h.history, err)
}

// History returns the recorded errors, oldest first.
func (h *Handler) History() []*errors.Error {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*errors.Error, len(h.history))
	copy(out, h.history)
	return out
}

// HistoryLen returns the number of recorded errors.
func (h *Handler) HistoryLen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.history)
}

// ClearHistory discards every recorded error.
func (h *Handler) ClearHistory() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.history)
	h.history = h.history[:0]
}

// Stats counts the recorded errors by kind.
func (h *Handler) Stats() map[errors.Kind]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := make(map[errors.Kind]int)
	for _, err := range h.history {
		stats[err.Kind()]++
	}
	return stats
}
