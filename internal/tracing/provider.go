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
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/mender/internal/tracing/export"
)

// Provider owns the tracer and meter providers for the process.
type Provider struct {
	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	metrics *MetricsCollector
}

type providerOptions struct {
	registerer    prometheus.Registerer
	consoleWriter io.Writer
	extra         []sdktrace.SpanExporter
	global        bool
}

// ProviderOption configures NewProvider.
type ProviderOption func(*providerOptions)

// WithRegisterer sets the Prometheus registerer the meter provider exports
// into. Without it metrics go to a private registry.
func WithRegisterer(r prometheus.Registerer) ProviderOption {
	return func(o *providerOptions) { o.registerer = r }
}

// WithConsoleWriter redirects console exporters.
func WithConsoleWriter(w io.Writer) ProviderOption {
	return func(o *providerOptions) { o.consoleWriter = w }
}

// WithSpanExporter adds an exporter that receives spans synchronously,
// regardless of Config.Enabled.
func WithSpanExporter(exp sdktrace.SpanExporter) ProviderOption {
	return func(o *providerOptions) { o.extra = append(o.extra, exp) }
}

// WithoutGlobal keeps the providers out of the otel globals.
func WithoutGlobal() ProviderOption {
	return func(o *providerOptions) { o.global = false }
}

// NewProvider creates the tracer and meter providers described by cfg and,
// unless WithoutGlobal is given, installs them as the otel globals.
func NewProvider(ctx context.Context, cfg Config, opts ...ProviderOption) (*Provider, error) {
	o := &providerOptions{global: true}
	for _, opt := range opts {
		opt(o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracing config: %w", err)
	}

	// Empty schema URL avoids conflicts when merging with the default resource
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(NewSampler(cfg.Sampling)),
	}
	if cfg.Enabled {
		for _, ec := range cfg.Exporters {
			exp, err := export.New(ctx, export.Config{
				Type:       ec.Type,
				Endpoint:   ec.Endpoint,
				Headers:    ec.Headers,
				Insecure:   ec.Insecure,
				CACertPath: ec.CACertPath,
				Writer:     o.consoleWriter,
				Pretty:     ec.Pretty,
			})
			if err != nil {
				return nil, err
			}
			tpOpts = append(tpOpts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(cfg.BatchTimeout)))
		}
	}
	for _, exp := range o.extra {
		tpOpts = append(tpOpts, sdktrace.WithSyncer(exp))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	registerer := o.registerer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	promExporter, err := otelprom.New(otelprom.WithRegisterer(registerer))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	)

	collector, err := NewMetricsCollector(mp)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metrics collector: %w", err)
	}

	if o.global {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	}

	return &Provider{tp: tp, mp: mp, metrics: collector}, nil
}

// Tracer returns a tracer for the given instrumentation scope.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tp.Tracer(name)
}

// Metrics returns the chain observer that records OpenTelemetry metrics.
func (p *Provider) Metrics() *MetricsCollector {
	return p.metrics
}

// ForceFlush exports all pending spans synchronously.
func (p *Provider) ForceFlush(ctx context.Context) error {
	return errors.Join(p.tp.ForceFlush(ctx), p.mp.ForceFlush(ctx))
}

// Shutdown flushes pending spans and releases resources.
func (p *Provider) Shutdown(ctx context.Context) error {
	return errors.Join(p.tp.Shutdown(ctx), p.mp.Shutdown(ctx))
}
