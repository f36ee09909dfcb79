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

package errors_test

import (
	"errors"
	"strings"
	"testing"

	menderrors "github.com/tombee/mender/pkg/errors"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		original := errors.New("original error")
		wrapped := menderrors.Wrap(original, "additional context")

		if wrapped == nil {
			t.Fatal("Wrap should not return nil for non-nil error")
		}

		msg := wrapped.Error()
		if !strings.Contains(msg, "additional context") {
			t.Errorf("wrapped error should contain context, got: %s", msg)
		}
		if !strings.Contains(msg, "original error") {
			t.Errorf("wrapped error should contain original message, got: %s", msg)
		}
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		if wrapped := menderrors.Wrap(nil, "context"); wrapped != nil {
			t.Errorf("Wrap(nil, _) should return nil, got: %v", wrapped)
		}
	})

	t.Run("structured error survives wrapping", func(t *testing.T) {
		original := menderrors.NewStorage(menderrors.KindStorageWriteError, "disk full")
		wrapped := menderrors.Wrapf(original, "saving %s", "prefs")

		if got := menderrors.KindOf(wrapped); got != menderrors.KindStorageWriteError {
			t.Errorf("KindOf(wrapped) = %s, want %s", got, menderrors.KindStorageWriteError)
		}
		if menderrors.Classify(wrapped) != original {
			t.Error("Classify should return the wrapped structured error unchanged")
		}
	})
}

func TestIsKind(t *testing.T) {
	err := menderrors.NewNetwork("offline", 0, menderrors.WithKind(menderrors.KindNetworkOffline))

	if !menderrors.IsKind(err, menderrors.KindNetworkOffline) {
		t.Error("IsKind should match the error's own kind")
	}
	if menderrors.IsKind(err, menderrors.KindNetworkError) {
		t.Error("IsKind should not match a different kind")
	}
	if menderrors.IsKind(errors.New("plain"), menderrors.KindUnknown) {
		t.Error("IsKind should be false for unstructured errors")
	}
	if got := menderrors.KindOf(errors.New("plain")); got != menderrors.KindUnknown {
		t.Errorf("KindOf(plain) = %s, want unknown", got)
	}
}

func TestIsAndAs(t *testing.T) {
	root := errors.New("root")
	structured := menderrors.New(menderrors.KindDataCorrupted, "bad checksum", menderrors.WithCause(root))

	if !menderrors.Is(structured, root) {
		t.Error("Is should find the cause")
	}

	var target *menderrors.Error
	if !menderrors.As(menderrors.Wrap(structured, "ctx"), &target) {
		t.Fatal("As should find the structured error")
	}
	if target.Kind() != menderrors.KindDataCorrupted {
		t.Errorf("As target kind = %s", target.Kind())
	}
	if menderrors.Unwrap(structured) != root {
		t.Error("Unwrap should return the cause")
	}
}
