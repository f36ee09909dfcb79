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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tombee/mender/pkg/errors"
)

// FetchOptions describe a request. The zero value is a GET with no body.
type FetchOptions struct {
	Method string
	Header http.Header
	Body   []byte
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	URL    string
}

// OK reports whether Status is 2xx.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// JSON decodes the body into v. Decode failures are data-invalid errors.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.NewData(errors.KindDataInvalid,
			"response body is not valid JSON",
			string(r.Body),
			errors.WithCause(err),
			errors.WithExtra("endpoint", SanitizeString(r.URL)),
		)
	}
	return nil
}

// Fetcher performs requests and reads whole bodies.
type Fetcher struct {
	client  *http.Client
	maxBody int64
}

// NewFetcher creates a Fetcher over a client built from cfg.
func NewFetcher(cfg Config, opts ...Option) (*Fetcher, error) {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Fetcher{client: client, maxBody: cfg.MaxBodyBytes}, nil
}

// Fetch performs the request. Transport failures are returned unchanged
// (a *url.Error, which errors.Classify maps to a network error with
// status 0). Any HTTP status, including 4xx and 5xx, is a successful
// fetch; use CheckResponse to turn it into an error.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts *FetchOptions) (*Response, error) {
	if opts == nil {
		opts = &FetchOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if f.maxBody > 0 {
		reader = io.LimitReader(resp.Body, f.maxBody)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", SanitizeString(url), err)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
		URL:    url,
	}, nil
}

// CheckResponse returns nil for statuses below 400 and an API error,
// kind chosen by status, otherwise. endpoint defaults to the response URL.
func CheckResponse(resp *Response, endpoint string) error {
	if resp == nil || resp.Status < 400 {
		return nil
	}
	if endpoint == "" {
		endpoint = SanitizeString(resp.URL)
	}
	msg := fmt.Sprintf("%s returned %d %s", endpoint, resp.Status, http.StatusText(resp.Status))
	return errors.NewAPI(msg, resp.Status, endpoint)
}
