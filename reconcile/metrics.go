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

package reconcile

import "github.com/prometheus/client_golang/prometheus"

type reconcileMetrics struct {
	runs     *prometheus.CounterVec
	findings *prometheus.GaugeVec
	block    prometheus.Gauge
}

func newReconcileMetrics(promRegistry prometheus.Registerer) *reconcileMetrics {
	m := &reconcileMetrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_reconcile_runs_total",
				Help: "Reconciliation passes, by result",
			},
			[]string{"result"},
		),
		findings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "canopy_reconcile_findings",
				Help: "Findings of the last reconciliation pass, by kind",
			},
			[]string{"kind"},
		),
		block: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "canopy_reconcile_ledger_block",
			Help: "Highest ledger block seen by the last reconciliation pass",
		}),
	}
	if promRegistry != nil {
		promRegistry.MustRegister(m.runs, m.findings, m.block)
	}
	return m
}
