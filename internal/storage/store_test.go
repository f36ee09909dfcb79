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

package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/mender/pkg/errors"
)

type recordingReporter struct {
	mu     sync.Mutex
	errors []*errors.Error
	origin []string
}

func (r *recordingReporter) HandleError(_ context.Context, raw any, origin string) *errors.Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := errors.ClassifyWithOrigin(raw, origin)
	r.errors = append(r.errors, e)
	r.origin = append(r.origin, origin)
	return e
}

type prefs struct {
	Theme string `json:"theme"`
	Size  int    `json:"size"`
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	sq, err := NewSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	mem, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })

	return map[string]Backend{
		"memory":        NewMemory(0),
		"sqlite":        sq,
		"sqlite-memory": mem,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(b, WithNamespace("test"))

			_, ok, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "k", "v1"))
			require.NoError(t, s.Set(ctx, "k", "v2"))
			v, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v2", v)

			require.NoError(t, s.Remove(ctx, "k"))
			require.NoError(t, s.Remove(ctx, "k"))
			_, ok, err = s.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_JSON(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rep := &recordingReporter{}
			s := New(b, WithReporter(rep))

			def := prefs{Theme: "light"}
			assert.Equal(t, def, GetJSON(ctx, s, "prefs", def))

			require.NoError(t, SetJSON(ctx, s, "prefs", prefs{Theme: "dark", Size: 3}))
			assert.Equal(t, prefs{Theme: "dark", Size: 3}, GetJSON(ctx, s, "prefs", def))
			assert.Empty(t, rep.errors)
		})
	}
}

func TestGetJSON_MalformedReturnsDefaultAndReports(t *testing.T) {
	ctx := context.Background()
	rep := &recordingReporter{}
	s := New(NewMemory(0), WithReporter(rep))

	require.NoError(t, s.Set(ctx, "prefs", "{not json"))

	def := prefs{Theme: "light"}
	got := GetJSON(ctx, s, "prefs", def)

	assert.Equal(t, def, got)
	require.Len(t, rep.errors, 1)
	assert.Equal(t, errors.KindStorageParseError, rep.errors[0].Kind())
	assert.Equal(t, "storage", rep.origin[0])
	assert.Equal(t, "prefs", rep.errors[0].Extra()["key"])
}

func TestGetJSON_NoReporterDoesNotPanic(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory(0))
	require.NoError(t, s.Set(ctx, "n", "nope"))

	assert.Equal(t, 7, GetJSON(ctx, s, "n", 7))
}

func TestSetJSON_EncodeFailure(t *testing.T) {
	s := New(NewMemory(0))
	err := SetJSON(context.Background(), s, "ch", make(chan int))

	require.Error(t, err)
	assert.Equal(t, errors.KindStorageWriteError, errors.KindOf(err))
}

func TestMemory_Quota(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory(10))

	require.NoError(t, s.Set(ctx, "a", "12345"))
	err := s.Set(ctx, "b", "123456789")

	require.Error(t, err)
	assert.Equal(t, errors.KindStorageQuotaExceeded, errors.KindOf(err))

	// Replacing a value only counts the difference.
	require.NoError(t, s.Set(ctx, "a", "1234567"))
	require.NoError(t, s.Remove(ctx, "a"))
	require.NoError(t, s.Set(ctx, "b", "123456789"))
}

func TestSQLite_ClosedDatabase(t *testing.T) {
	ctx := context.Background()
	sq, err := NewSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	rep := &recordingReporter{}
	s := New(sq, WithReporter(rep))
	require.NoError(t, s.Close())

	_, _, err = s.Get(ctx, "k")
	assert.Equal(t, errors.KindStorageUnavailable, errors.KindOf(err))

	err = s.Set(ctx, "k", "v")
	assert.Equal(t, errors.KindStorageWriteError, errors.KindOf(err))

	assert.Equal(t, "fallback", GetJSON(ctx, s, "k", "fallback"))
	require.Len(t, rep.errors, 1)
	assert.Equal(t, errors.KindStorageUnavailable, rep.errors[0].Kind())
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	first, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "report:a", `{"ok":true}`))
	require.NoError(t, first.Close())

	second, err := NewSQLite(path)
	require.NoError(t, err)
	defer second.Close()

	v, ok, err := second.Get(ctx, "report:a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"ok":true}`, v)
}

func TestNewSQLite_EmptyPath(t *testing.T) {
	_, err := NewSQLite("")
	assert.Error(t, err)
}

func TestRedis_BadURL(t *testing.T) {
	_, err := NewRedis(RedisConfig{URL: "mysql://nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse redis URL")
}

func TestRedis_UnreachableMapsToUnavailable(t *testing.T) {
	r, err := NewRedis(RedisConfig{URL: "redis://127.0.0.1:1/0", DialTimeout: 100 * time.Millisecond})
	require.NoError(t, err)
	s := New(r)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err = s.Get(ctx, "k")
	require.Error(t, err)
	assert.Equal(t, errors.KindStorageUnavailable, errors.KindOf(err))

	err = s.Set(ctx, "k", "v")
	require.Error(t, err)
	assert.Equal(t, errors.KindStorageWriteError, errors.KindOf(err))
}

func TestIsQuota(t *testing.T) {
	assert.True(t, isQuota(ErrQuotaExceeded))
	assert.False(t, isQuota(assert.AnError))
	assert.True(t, isQuota(stdError("database or disk is full (13)")))
}

type stdError string

func (e stdError) Error() string { return string(e) }

func TestOpen(t *testing.T) {
	s, err := Open(Config{Driver: DriverMemory, Namespace: "ns"})
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "k", "v"))
	v, ok, _ := s.backend.Get(context.Background(), "ns:k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	s, err = Open(Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(Config{Driver: "etcd"})
	assert.Error(t, err)

	assert.True(t, ValidDriver(DriverRedis))
	assert.False(t, ValidDriver("etcd"))
}
