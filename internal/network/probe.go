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

package network

import (
	"context"
	"net/http"
	"time"
)

// DefaultProbeTimeout bounds a single connectivity check.
const DefaultProbeTimeout = 5 * time.Second

// Probe checks connectivity with a HEAD request. It implements
// recovery.Connectivity.
type Probe struct {
	client  *http.Client
	url     string
	timeout time.Duration
}

// NewProbe creates a probe against cfg.ProbeURL.
func NewProbe(cfg Config, opts ...Option) (*Probe, error) {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Probe{client: client, url: cfg.ProbeURL, timeout: DefaultProbeTimeout}, nil
}

// Online reports whether the probe URL answered at all. Any HTTP status
// counts as online; only transport failures count as offline.
func (p *Probe) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
