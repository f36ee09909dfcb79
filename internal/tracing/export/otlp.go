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

// Package export builds span exporters for the tracing provider.
package export

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials"
)

// Exporter types understood by New.
const (
	TypeConsole  = "console"
	TypeOTLP     = "otlp"
	TypeOTLPHTTP = "otlp-http"
)

// Config describes one exporter.
type Config struct {
	Type       string
	Endpoint   string
	Headers    map[string]string
	Insecure   bool
	CACertPath string

	// Console only.
	Writer io.Writer
	Pretty bool
}

// New builds the exporter named by cfg.Type.
func New(ctx context.Context, cfg Config) (trace.SpanExporter, error) {
	switch cfg.Type {
	case TypeConsole:
		return NewConsoleExporter(cfg.Writer, cfg.Pretty)
	case TypeOTLP:
		return NewOTLPExporter(ctx, cfg)
	case TypeOTLPHTTP:
		return NewOTLPHTTPExporter(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown exporter type %q", cfg.Type)
	}
}

// NewOTLPExporter creates an OTLP gRPC span exporter.
func NewOTLPExporter(ctx context.Context, cfg Config) (trace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}

	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		tlsCfg, err := clientTLS(cfg.CACertPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(tlsCfg)))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
	}
	return exporter, nil
}

// NewOTLPHTTPExporter creates an OTLP HTTP span exporter.
func NewOTLPHTTPExporter(ctx context.Context, cfg Config) (trace.SpanExporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}

	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	} else {
		tlsCfg, err := clientTLS(cfg.CACertPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, otlptracehttp.WithTLSClientConfig(tlsCfg))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
	}
	return exporter, nil
}

func clientTLS(caPath string) (*tls.Config, error) {
	b := NewTLSConfigBuilder()
	if caPath != "" {
		if err := b.WithCustomCA(caPath); err != nil {
			return nil, err
		}
	}
	cfg := b.Build()
	if err := ValidateTLSConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid TLS config: %w", err)
	}
	return cfg, nil
}
