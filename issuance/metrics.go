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

package issuance

import "github.com/prometheus/client_golang/prometheus"

type issuanceMetrics struct {
	minted   prometheus.Counter
	records  prometheus.Counter
	failures *prometheus.CounterVec
}

func newIssuanceMetrics(promRegistry prometheus.Registerer) *issuanceMetrics {
	m := &issuanceMetrics{
		minted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canopy_issuance_credits_total",
			Help: "Credits minted",
		}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canopy_issuance_records_total",
			Help: "Activity records credited",
		}),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_issuance_failures_total",
				Help: "Failed mint workflows, by error kind",
			},
			[]string{"kind"},
		),
	}
	if promRegistry != nil {
		promRegistry.MustRegister(m.minted, m.records, m.failures)
	}
	return m
}
