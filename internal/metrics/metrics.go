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

// Package metrics exposes Prometheus collectors for handled errors,
// recoveries, chain steps and scenarios.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tombee/mender/pkg/chain"
	"github.com/tombee/mender/pkg/errors"
)

const namespace = "mender"

// Collector owns a Prometheus registry and the mender collectors on it.
// It implements handler.Observer, chain.Observer and scenario.Observer.
type Collector struct {
	registry *prometheus.Registry

	errorsHandled      *prometheus.CounterVec
	recoveryAttempts   *prometheus.CounterVec
	stepsTotal         *prometheus.CounterVec
	stepRetries        *prometheus.CounterVec
	stepDuration       *prometheus.HistogramVec
	chainRuns          *prometheus.CounterVec
	scenariosTotal     *prometheus.CounterVec
	scenarioLastResult *prometheus.GaugeVec
	httpRequests       *prometheus.CounterVec
}

// New creates a Collector on a fresh registry. Go runtime and process
// collectors are registered alongside.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		errorsHandled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_handled_total",
				Help:      "Total errors handled by kind and severity",
			},
			[]string{"kind", "severity"},
		),
		recoveryAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recovery_attempts_total",
				Help:      "Total recovery attempts by kind and result",
			},
			[]string{"kind", "result"},
		),
		stepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chain_steps_total",
				Help:      "Total chain steps by chain, phase and result",
			},
			[]string{"chain", "phase", "result"},
		),
		stepRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chain_step_retries_total",
				Help:      "Total step retries by chain and phase",
			},
			[]string{"chain", "phase"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chain_step_duration_seconds",
				Help:      "Step duration including retries",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"chain", "phase"},
		),
		chainRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chain_runs_total",
				Help:      "Total chain runs by chain and result",
			},
			[]string{"chain", "result"},
		),
		scenariosTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scenarios_total",
				Help:      "Total scenario runs by scenario and result",
			},
			[]string{"scenario", "result"},
		),
		scenarioLastResult: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scenario_last_success",
				Help:      "1 if the latest run of the scenario succeeded, 0 otherwise",
			},
			[]string{"scenario"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Outgoing HTTP requests by method and status code",
			},
			[]string{"method", "code"},
		),
	}
}

// Registry returns the underlying registry so other exporters can share it.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ErrorHandled implements handler.Observer.
func (c *Collector) ErrorHandled(err *errors.Error) {
	c.errorsHandled.WithLabelValues(string(err.Kind()), string(err.Severity())).Inc()
}

// RecoveryAttempted implements handler.Observer.
func (c *Collector) RecoveryAttempted(err *errors.Error, recovered bool) {
	c.recoveryAttempts.WithLabelValues(string(err.Kind()), result(recovered)).Inc()
}

// StepFinished implements chain.Observer.
func (c *Collector) StepFinished(name string, r chain.Result) {
	phase := string(r.Phase)
	c.stepsTotal.WithLabelValues(name, phase, result(r.Success)).Inc()
	if r.Retries > 0 {
		c.stepRetries.WithLabelValues(name, phase).Add(float64(r.Retries))
	}
	c.stepDuration.WithLabelValues(name, phase).Observe(r.Duration.Seconds())
}

// RunFinished implements chain.Observer.
func (c *Collector) RunFinished(report *chain.Report) {
	c.chainRuns.WithLabelValues(report.Name, result(report.FinalSuccess)).Inc()
}

// ScenarioFinished implements scenario.Observer.
func (c *Collector) ScenarioFinished(name string, report *chain.Report) {
	c.scenariosTotal.WithLabelValues(name, result(report.FinalSuccess)).Inc()
	v := 0.0
	if report.FinalSuccess {
		v = 1
	}
	c.scenarioLastResult.WithLabelValues(name).Set(v)
}

// RequestDone records an outgoing HTTP request. status is 0 for transport
// failures.
func (c *Collector) RequestDone(method string, status int) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
