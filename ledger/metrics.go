// Copyright 2026 Blink Labs Software
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

package ledger

import "github.com/prometheus/client_golang/prometheus"

type gatewayMetrics struct {
	calls        *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	breakerState prometheus.Gauge
	grants       prometheus.Counter
}

func newGatewayMetrics(promRegistry prometheus.Registerer) *gatewayMetrics {
	m := &gatewayMetrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_ledger_calls_total",
				Help: "Ledger calls, by entry point, mode and result",
			},
			[]string{"entry_point", "mode", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canopy_ledger_call_duration_seconds",
				Help:    "Ledger call latency including retries and confirmation",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
			},
			[]string{"entry_point", "mode"},
		),
		breakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "canopy_ledger_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
		),
		grants: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "canopy_ledger_editor_grants_total",
				Help: "Editor grants written to the ledger",
			},
		),
	}
	if promRegistry != nil {
		promRegistry.MustRegister(
			m.calls,
			m.duration,
			m.breakerState,
			m.grants,
		)
	}
	return m
}
