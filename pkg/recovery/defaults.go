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

package recovery

import (
	"context"
	"time"

	"github.com/tombee/mender/pkg/errors"
)

// DefaultNetworkWait is how long the network strategy waits before
// re-checking connectivity.
const DefaultNetworkWait = 2 * time.Second

// Connectivity reports whether the process currently has network access.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// ConnectivityFunc adapts a function to Connectivity.
type ConnectivityFunc func(ctx context.Context) bool

// Online implements Connectivity.
func (f ConnectivityFunc) Online(ctx context.Context) bool {
	return f(ctx)
}

// AssumeOnline always reports connectivity. It is used when no probe is
// configured.
var AssumeOnline Connectivity = ConnectivityFunc(func(context.Context) bool { return true })

// NetworkWait waits for wait and then reports the connectivity state as
// the recovery outcome. There is no guarantee the original operation will
// succeed afterwards. Cancelling ctx ends the wait early with ctx.Err().
func NetworkWait(conn Connectivity, wait time.Duration) Strategy {
	if conn == nil {
		conn = AssumeOnline
	}
	return func(ctx context.Context, _ *errors.Error) (bool, error) {
		if wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-timer.C:
			}
		}
		return conn.Online(ctx), nil
	}
}

// StorageParseNoop reports success without touching storage. Only the call
// site knows which key held the corrupted content, so dropping it is left
// to the caller.
func StorageParseNoop() Strategy {
	return func(context.Context, *errors.Error) (bool, error) {
		return true, nil
	}
}

// DefaultOptions configures RegisterDefaults.
type DefaultOptions struct {
	// Connectivity is consulted by the network strategy. Nil assumes online.
	Connectivity Connectivity

	// NetworkWait overrides DefaultNetworkWait when positive.
	NetworkWait time.Duration
}

// RegisterDefaults installs the built-in strategies:
//   - network-error: wait, then report connectivity
//   - storage-parse-error: no-op reporting success
func RegisterDefaults(r *Registry, opts DefaultOptions) {
	wait := opts.NetworkWait
	if wait <= 0 {
		wait = DefaultNetworkWait
	}
	r.Register(errors.KindNetworkError, NetworkWait(opts.Connectivity, wait))
	r.Register(errors.KindStorageParseError, StorageParseNoop())
}

// NewDefaultRegistry returns a registry with RegisterDefaults applied.
func NewDefaultRegistry(opts DefaultOptions) *Registry {
	r := NewRegistry()
	RegisterDefaults(r, opts)
	return r
}
