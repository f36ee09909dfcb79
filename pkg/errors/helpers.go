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

package errors

import (
	"errors"
	"fmt"
)

// Wrap adds context to err while keeping it reachable through errors.Is/As.
// If err is nil, returns nil.
//
// A structured error wrapped this way is still found by Classify, so the
// added context never changes its kind.
//
// Usage:
//
//	if err := store.SetJSON(ctx, key, v); err != nil {
//	    return errors.Wrap(err, "saving preferences")
//	}
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
// If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
//
// Usage:
//
//	var structured *errors.Error
//	if errors.As(err, &structured) {
//	    log.Printf("kind: %s", structured.Kind())
//	}
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if any.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// KindOf returns the kind of the first structured error in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) Kind {
	var structured *Error
	if errors.As(err, &structured) && structured != nil {
		return structured.Kind()
	}
	return KindUnknown
}

// IsKind reports whether err's chain contains a structured error of kind k.
func IsKind(err error, k Kind) bool {
	var structured *Error
	return errors.As(err, &structured) && structured != nil && structured.Kind() == k
}
