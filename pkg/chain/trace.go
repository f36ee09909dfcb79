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

package chain

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/mender/pkg/errors"
)

// chainSpan wraps an OpenTelemetry span with chain-specific helpers.
type chainSpan struct {
	span trace.Span
}

func startRunSpan(ctx context.Context, tracer trace.Tracer, name string, steps int) (context.Context, *chainSpan) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("chain.run: %s", name),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("chain.name", name),
			attribute.Int("chain.steps", steps),
			attribute.String("span.type", "chain.run"),
		),
	)
	return ctx, &chainSpan{span: span}
}

func startStepSpan(ctx context.Context, tracer trace.Tracer, step *Step) (context.Context, *chainSpan) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("step: %s", step.Name),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("step.name", step.Name),
			attribute.String("step.phase", string(step.Phase)),
			attribute.Bool("step.retryable", step.Retryable),
			attribute.Int("step.max_retries", step.retries()),
			attribute.String("span.type", "chain.step"),
		),
	)
	return ctx, &chainSpan{span: span}
}

func (s *chainSpan) attemptFailed(attempt int, err *errors.Error) {
	s.span.AddEvent("attempt.failed", trace.WithAttributes(
		attribute.Int("attempt", attempt+1),
		attribute.String("error.kind", string(err.Kind())),
		attribute.String("error.message", err.Message()),
	))
}

func (s *chainSpan) finish(v any) {
	switch r := v.(type) {
	case Result:
		s.span.SetAttributes(
			attribute.Bool("step.success", r.Success),
			attribute.Int("step.retries", r.Retries),
			attribute.Int64("step.duration_ms", r.DurationMs()),
		)
		if r.Success {
			s.span.SetStatus(codes.Ok, "")
			return
		}
		s.span.RecordError(r.Error)
		s.span.SetStatus(codes.Error, r.Error.Message())
	case *Report:
		s.span.SetAttributes(
			attribute.Int("chain.successful_steps", r.SuccessfulSteps),
			attribute.Int("chain.failed_steps", r.FailedSteps),
			attribute.Bool("chain.success", r.FinalSuccess),
		)
		if r.FinalSuccess {
			s.span.SetStatus(codes.Ok, "")
			return
		}
		s.span.SetStatus(codes.Error, fmt.Sprintf("%d step(s) failed", r.FailedSteps))
	}
}

// End marks the span as complete.
func (s *chainSpan) End() {
	s.span.End()
}
