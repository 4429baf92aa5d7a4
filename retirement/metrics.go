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

package retirement

import "github.com/prometheus/client_golang/prometheus"

type retirementMetrics struct {
	burned      prometheus.Counter
	transferred prometheus.Counter
	partial     prometheus.Counter
	failures    *prometheus.CounterVec
}

func newRetirementMetrics(promRegistry prometheus.Registerer) *retirementMetrics {
	m := &retirementMetrics{
		burned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canopy_retirement_credits_burned_total",
			Help: "Credits burned by retirements",
		}),
		transferred: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canopy_retirement_credits_transferred_total",
			Help: "Credits moved from helpers to cover deficits",
		}),
		partial: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canopy_retirement_partial_total",
			Help: "Retirements left with a committed transfer and no burn",
		}),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_retirement_failures_total",
				Help: "Failed retirements, by error kind",
			},
			[]string{"kind"},
		),
	}
	if promRegistry != nil {
		promRegistry.MustRegister(
			m.burned,
			m.transferred,
			m.partial,
			m.failures,
		)
	}
	return m
}
