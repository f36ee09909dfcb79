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

// Package storage is the key-value collaborator used to persist scenario
// reports and other small JSON documents. Backend failures come back as
// classified *errors.Error values; GetJSON never fails and reports parse
// problems through an injected Reporter instead.
package storage

import (
	"context"
	"encoding/json"
	"log/slog"

	internallog "github.com/tombee/mender/internal/log"
	"github.com/tombee/mender/pkg/errors"
)

// Backend is a raw string key-value store.
type Backend interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Reporter receives failures that Store swallows. *handler.Handler
// satisfies it.
type Reporter interface {
	HandleError(ctx context.Context, raw any, origin string) *errors.Error
}

// Store adds namespacing, error classification and JSON helpers on top of
// a Backend.
type Store struct {
	backend   Backend
	namespace string
	reporter  Reporter
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithNamespace prefixes every key with ns and a colon.
func WithNamespace(ns string) Option {
	return func(s *Store) { s.namespace = ns }
}

// WithReporter sets where swallowed failures are reported.
func WithReporter(r Reporter) Option {
	return func(s *Store) { s.reporter = r }
}

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New wraps backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the raw value for key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.backend.Get(ctx, s.key(key))
	if err != nil {
		return "", false, readError(key, err)
	}
	return v, ok, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.backend.Set(ctx, s.key(key), value); err != nil {
		return writeError(key, err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.backend.Remove(ctx, s.key(key)); err != nil {
		return writeError(key, err)
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// GetJSON decodes the value stored under key. It returns def when the key
// is absent, the backend fails or the content does not decode; the latter
// two are reported through the Store's Reporter.
func GetJSON[T any](ctx context.Context, s *Store, key string, def T) T {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		s.report(ctx, err)
		return def
	}
	if !ok {
		return def
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		s.report(ctx, errors.NewStorage(errors.KindStorageParseError,
			"failed to parse stored value for "+key,
			errors.WithCause(err),
			errors.WithExtra("key", key),
		))
		return def
	}
	return v
}

// SetJSON encodes v and stores it under key.
func SetJSON[T any](ctx context.Context, s *Store, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.NewStorage(errors.KindStorageWriteError,
			"failed to encode value for "+key,
			errors.WithCause(err),
			errors.WithExtra("key", key),
		)
	}
	return s.Set(ctx, key, string(data))
}

func (s *Store) key(k string) string {
	if s.namespace == "" {
		return k
	}
	return s.namespace + ":" + k
}

func (s *Store) report(ctx context.Context, err error) {
	if s.reporter != nil {
		s.reporter.HandleError(ctx, err, "storage")
		return
	}
	s.logger.Warn("storage failure",
		slog.String(internallog.KindKey, string(errors.KindOf(err))),
		internallog.Error(err),
	)
}
