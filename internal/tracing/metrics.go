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
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tombee/mender/pkg/chain"
)

const meterName = "github.com/tombee/mender"

// MetricsCollector records chain runs as OpenTelemetry metrics. It
// implements chain.Observer.
type MetricsCollector struct {
	runsTotal    metric.Int64Counter
	stepsTotal   metric.Int64Counter
	runDuration  metric.Float64Histogram
	stepDuration metric.Float64Histogram
}

// NewMetricsCollector creates the instruments on the given meter provider.
func NewMetricsCollector(mp metric.MeterProvider) (*MetricsCollector, error) {
	meter := mp.Meter(meterName)
	mc := &MetricsCollector{}

	var err error
	mc.runsTotal, err = meter.Int64Counter(
		"mender.chain.runs",
		metric.WithDescription("Chain runs by chain and outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	mc.stepsTotal, err = meter.Int64Counter(
		"mender.chain.steps",
		metric.WithDescription("Chain steps by chain, phase and outcome"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, err
	}

	mc.runDuration, err = meter.Float64Histogram(
		"mender.chain.run.duration",
		metric.WithDescription("Chain run duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	mc.stepDuration, err = meter.Float64Histogram(
		"mender.chain.step.duration",
		metric.WithDescription("Step duration including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return mc, nil
}

// StepFinished implements chain.Observer.
func (mc *MetricsCollector) StepFinished(name string, r chain.Result) {
	attrs := metric.WithAttributes(
		attribute.String("chain", name),
		attribute.String("phase", string(r.Phase)),
		attribute.Bool("success", r.Success),
	)
	ctx := context.Background()
	mc.stepsTotal.Add(ctx, 1, attrs)
	mc.stepDuration.Record(ctx, r.Duration.Seconds(), attrs)
}

// RunFinished implements chain.Observer.
func (mc *MetricsCollector) RunFinished(report *chain.Report) {
	attrs := metric.WithAttributes(
		attribute.String("chain", report.Name),
		attribute.Bool("success", report.FinalSuccess),
	)
	ctx := context.Background()
	mc.runsTotal.Add(ctx, 1, attrs)
	mc.runDuration.Record(ctx, report.TotalDuration.Seconds(), attrs)
}
