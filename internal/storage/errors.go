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
	stderrors "errors"
	"strings"

	"github.com/tombee/mender/pkg/errors"
)

// ErrQuotaExceeded is returned by backends that refuse a write for lack
// of space.
var ErrQuotaExceeded = stderrors.New("storage quota exceeded")

func readError(key string, err error) *errors.Error {
	return errors.NewStorage(errors.KindStorageUnavailable,
		"storage read failed for "+key+": "+err.Error(),
		errors.WithCause(err),
		errors.WithExtra("key", key),
		errors.WithOrigin("storage"),
	)
}

func writeError(key string, err error) *errors.Error {
	kind := errors.KindStorageWriteError
	if isQuota(err) {
		kind = errors.KindStorageQuotaExceeded
	}
	return errors.NewStorage(kind,
		"storage write failed for "+key+": "+err.Error(),
		errors.WithCause(err),
		errors.WithExtra("key", key),
		errors.WithOrigin("storage"),
	)
}

// isQuota recognizes ErrQuotaExceeded and SQLite's "database or disk is
// full".
func isQuota(err error) bool {
	if stderrors.Is(err, ErrQuotaExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "is full") || strings.Contains(msg, "quota")
}
