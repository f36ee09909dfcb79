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

package tracing

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewSampler creates a parent-based ratio sampler. Child spans follow the
// decision of their root, so a chain run is either exported whole or not
// at all.
func NewSampler(cfg SamplingConfig) sdktrace.Sampler {
	var base sdktrace.Sampler
	switch {
	case cfg.Rate >= 1.0:
		base = sdktrace.AlwaysSample()
	case cfg.Rate <= 0.0:
		base = sdktrace.NeverSample()
	default:
		base = sdktrace.TraceIDRatioBased(cfg.Rate)
	}
	return sdktrace.ParentBased(base)
}
