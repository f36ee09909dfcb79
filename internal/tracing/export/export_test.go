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

package export

import (
	"bytes"
	"context"
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	exp, err := New(context.Background(), Config{Type: TypeConsole, Writer: &buf})
	require.NoError(t, err)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	_, span := tp.Tracer("test").Start(context.Background(), "chain.run: demo")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "chain.run: demo")
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(context.Background(), Config{Type: "zipkin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zipkin")
}

func TestNew_OTLPInsecure(t *testing.T) {
	for _, typ := range []string{TypeOTLP, TypeOTLPHTTP} {
		t.Run(typ, func(t *testing.T) {
			exp, err := New(context.Background(), Config{
				Type:     typ,
				Endpoint: "localhost:4317",
				Insecure: true,
				Headers:  map[string]string{"x-team": "mender"},
			})
			require.NoError(t, err)
			assert.NoError(t, exp.Shutdown(context.Background()))
		})
	}
}

func TestNew_OTLPMissingCA(t *testing.T) {
	_, err := New(context.Background(), Config{
		Type:       TypeOTLP,
		Endpoint:   "collector:4317",
		CACertPath: filepath.Join(t.TempDir(), "missing.pem"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read CA certificate")
}

func TestTLSConfigBuilder_Defaults(t *testing.T) {
	cfg := NewTLSConfigBuilder().Build()
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.Nil(t, cfg.RootCAs)
}

func TestTLSConfigBuilder_Chaining(t *testing.T) {
	cfg := NewTLSConfigBuilder().
		WithMinVersion(tls.VersionTLS10).
		WithServerName("collector.example.com").
		Build()

	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion, "versions below 1.2 are raised")
	assert.Equal(t, "collector.example.com", cfg.ServerName)

	cfg = NewTLSConfigBuilder().WithMinVersion(tls.VersionTLS13).Build()
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
}

func TestTLSConfigBuilder_WithCustomCA_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

	err := NewTLSConfigBuilder().WithCustomCA(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse CA certificate")
}

func TestValidateTLSConfig(t *testing.T) {
	assert.Error(t, ValidateTLSConfig(nil))
	assert.Error(t, ValidateTLSConfig(&tls.Config{MinVersion: tls.VersionTLS10}))
	assert.NoError(t, ValidateTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
}
