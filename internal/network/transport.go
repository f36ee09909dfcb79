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
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// RequestObserver is told about every finished request. status is 0 when
// the transport failed.
type RequestObserver interface {
	RequestDone(method string, status int)
}

// loggingTransport sets the User-Agent, logs each request with a sanitized
// URL and reports it to the observer.
type loggingTransport struct {
	base      http.RoundTripper
	userAgent string
	logger    *slog.Logger
	observer  RequestObserver
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start).Milliseconds()
	logURL := SanitizeURL(req.URL)

	if err != nil {
		t.logger.Warn("http request failed",
			slog.String("method", req.Method),
			slog.String("url", logURL),
			slog.Int64("duration_ms", duration),
			slog.String("error", err.Error()),
		)
		if t.observer != nil {
			t.observer.RequestDone(req.Method, 0)
		}
		return nil, err
	}

	level := slog.LevelDebug
	if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}
	t.logger.Log(req.Context(), level, "http request",
		slog.String("method", req.Method),
		slog.String("url", logURL),
		slog.Int("status", resp.StatusCode),
		slog.Int64("duration_ms", duration),
	)
	if t.observer != nil {
		t.observer.RequestDone(req.Method, resp.StatusCode)
	}
	return resp, nil
}

// rateLimitTransport blocks until the limiter admits the request or the
// request context ends.
type rateLimitTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}
