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

/*
Package tracing wires OpenTelemetry into mender.

The provider built here is installed as the global tracer provider, so the
spans that pkg/chain emits for every run and step are exported through
whatever exporters the configuration names (console, otlp, otlp-http).

It also owns an OpenTelemetry meter provider whose Prometheus reader
registers into the same registry as internal/metrics, so a single
/metrics endpoint serves both.

	p, err := tracing.NewProvider(ctx, tracing.Config{
	    Enabled:     true,
	    ServiceName: "mender",
	    Exporters:   []tracing.ExporterConfig{{Type: "console"}},
	}, tracing.WithRegisterer(collector.Registry()))
	if err != nil {
	    return err
	}
	defer p.Shutdown(ctx)
*/
package tracing
