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

// Package network is the HTTP collaborator: a Fetcher whose failures are
// recognizable by errors.Classify, CheckResponse for turning HTTP statuses
// into API errors, and a Probe that reports connectivity to the recovery
// strategies.
package network

import (
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Option configures the client built by NewClient, NewFetcher and NewProbe.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	observer RequestObserver
	base     http.RoundTripper
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver reports each finished request, typically to metrics.
func WithObserver(obs RequestObserver) Option {
	return func(o *options) { o.observer = obs }
}

// WithTransport replaces the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// NewClient creates an HTTP client with request logging and, when
// cfg.RateLimit is set, client-side rate limiting. TLS 1.2 is the minimum.
func NewClient(cfg Config, opts ...Option) (*http.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	base := o.base
	if base == nil {
		base = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: cfg.Timeout,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}

	var rt http.RoundTripper = &loggingTransport{
		base:      base,
		userAgent: cfg.UserAgent,
		logger:    o.logger,
		observer:  o.observer,
	}
	if cfg.RateLimit > 0 {
		rt = &rateLimitTransport{
			base:    rt,
			limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		}
	}

	return &http.Client{Transport: rt, Timeout: cfg.Timeout}, nil
}
