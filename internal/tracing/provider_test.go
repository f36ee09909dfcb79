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
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tombee/mender/pkg/chain"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"rate too high", func(c *Config) { c.Sampling.Rate = 1.5 }, "sampling rate"},
		{"negative batch timeout", func(c *Config) { c.BatchTimeout = -1 }, "batch_timeout"},
		{"otlp without endpoint", func(c *Config) {
			c.Exporters = []ExporterConfig{{Type: ExporterOTLP}}
		}, "endpoint is required"},
		{"unknown exporter", func(c *Config) {
			c.Exporters = []ExporterConfig{{Type: "jaeger"}}
		}, "unknown type"},
		{"console", func(c *Config) {
			c.Exporters = []ExporterConfig{{Type: ExporterConsole}}
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewSampler(t *testing.T) {
	assert.Contains(t, NewSampler(SamplingConfig{Rate: 1}).Description(), "root:AlwaysOnSampler")
	assert.Contains(t, NewSampler(SamplingConfig{Rate: 0}).Description(), "root:AlwaysOffSampler")
	assert.Contains(t, NewSampler(SamplingConfig{Rate: 0.25}).Description(), "TraceIDRatioBased")
}

func TestProvider_ChainSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	p, err := NewProvider(context.Background(), DefaultConfig(), WithSpanExporter(exp), WithoutGlobal())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	c := chain.New("repair", chain.WithTracer(p.Tracer("test")), chain.WithObserver(p.Metrics())).
		Search("find", func(context.Context) (any, error) { return "x", nil }).
		Verify("check", func(context.Context, any) (any, error) { return true, nil })
	report := c.Run(context.Background())
	require.True(t, report.FinalSuccess)

	var names []string
	for _, s := range exp.GetSpans() {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"chain.run: repair", "step: find", "step: check"}, names)
}

func TestProvider_ConsoleExporter(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporters = []ExporterConfig{{Type: ExporterConsole}}

	p, err := NewProvider(context.Background(), cfg, WithConsoleWriter(&buf), WithoutGlobal())
	require.NoError(t, err)

	_, span := p.Tracer("test").Start(context.Background(), "step: console")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "step: console")
}

func TestProvider_DisabledSkipsConfiguredExporters(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Exporters = []ExporterConfig{{Type: ExporterConsole}}

	p, err := NewProvider(context.Background(), cfg, WithConsoleWriter(&buf), WithoutGlobal())
	require.NoError(t, err)

	_, span := p.Tracer("test").Start(context.Background(), "hidden")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Empty(t, buf.String())
}

func TestProvider_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sampling.Rate = -1
	_, err := NewProvider(context.Background(), cfg, WithoutGlobal())
	assert.Error(t, err)
}

func TestProvider_MetricsShareRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewProvider(context.Background(), DefaultConfig(), WithRegisterer(reg), WithoutGlobal())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	p.Metrics().RunFinished(&chain.Report{Name: "repair", FinalSuccess: true})

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "mender_chain_runs") {
			found = true
		}
	}
	assert.True(t, found, "chain run counter should be exported through the shared registry")
}

func TestMetricsCollector_Records(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))

	mc, err := NewMetricsCollector(mp)
	require.NoError(t, err)

	mc.StepFinished("repair", chain.Result{Phase: chain.PhaseFix, Success: true})
	mc.StepFinished("repair", chain.Result{Phase: chain.PhaseTest, Success: false})
	mc.RunFinished(&chain.Report{Name: "repair"})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	got := map[string]metricdata.Aggregation{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		got[m.Name] = m.Data
	}

	steps, ok := got["mender.chain.steps"].(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range steps.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)
	assert.Len(t, steps.DataPoints, 2)

	runs, ok := got["mender.chain.runs"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, runs.DataPoints, 1)
	assert.Equal(t, int64(1), runs.DataPoints[0].Value)

	assert.Contains(t, got, "mender.chain.run.duration")
	assert.Contains(t, got, "mender.chain.step.duration")
}
