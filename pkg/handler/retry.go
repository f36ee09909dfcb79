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

package handler

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Operation is a unit of work that may be retried or executed with
// handling.
type Operation[T any] func(ctx context.Context) (T, error)

// Retry runs op and, on failure, retries it up to maxRetries more times.
// The wait before retry n (1-based) is baseDelay * 2^(n-1).
//
// When every attempt fails the last error is returned unmodified, with two
// exceptions: an op error wrapped in *backoff.PermanentError stops retrying
// at once and is returned unwrapped, and once ctx is done Retry returns
// ctx.Err() instead of the last op error. Retry performs no
// classification, logging or recovery.
func Retry[T any](ctx context.Context, op Operation[T], maxRetries int, baseDelay time.Duration) (T, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay < 0 {
		baseDelay = 0
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newExponential(baseDelay), uint64(maxRetries)),
		ctx,
	)

	return backoff.RetryWithData(func() (T, error) {
		return op(ctx)
	}, policy)
}

// newExponential returns a deterministic doubling schedule starting at base.
func newExponential(base time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Retry is the package-level Retry using the handler's configured retry
// count and base delay.
func (h *Handler) Retry(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Retry(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, h.cfg.MaxRetries, h.cfg.RetryBaseDelay)
	return err
}

// Execute runs op once. On failure the error is passed through
// h.HandleError (classify, log, notify, recover) and the classified error
// is returned, so callers never see the unclassified value. A panic in op
// is handled the same way.
func Execute[T any](ctx context.Context, h *Handler, op Operation[T], origin string) (T, error) {
	v, err := runGuarded(ctx, op)
	if err == nil {
		return v, nil
	}
	var zero T
	return zero, h.HandleError(ctx, err, origin)
}

// ExecuteWithFallback is Execute, returning fallback instead of an error
// when op fails. The failure is still handled.
func ExecuteWithFallback[T any](ctx context.Context, h *Handler, op Operation[T], origin string, fallback T) T {
	v, err := Execute(ctx, h, op, origin)
	if err != nil {
		return fallback
	}
	return v
}

func runGuarded[T any](ctx context.Context, op Operation[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v = zero
			if e, ok := r.(error); ok {
				err = fmt.Errorf("operation panicked: %w", e)
				return
			}
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return op(ctx)
}
