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

import (
	"log/slog"
	"time"

	"github.com/blinklabs-io/canopy/database"
	"github.com/blinklabs-io/canopy/event"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultConfirmTimeout   = 30 * time.Second
	DefaultPollInterval     = 250 * time.Millisecond
	DefaultRetryMaxElapsed  = 10 * time.Second
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 30 * time.Second
)

type GatewayOptionFunc func(*Gateway)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) GatewayOptionFunc {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) GatewayOptionFunc {
	return func(g *Gateway) {
		g.promRegistry = registry
	}
}

// WithEventBus specifies the bus that receives ledger write and grant events
func WithEventBus(bus *event.EventBus) GatewayOptionFunc {
	return func(g *Gateway) {
		g.eventBus = bus
	}
}

// WithDatabase specifies the record store that persists the editor grant
// cache. Without one the cache lives only in memory
func WithDatabase(db *database.Database) GatewayOptionFunc {
	return func(g *Gateway) {
		g.db = db
	}
}

// WithConfirmTimeout bounds how long Write waits for a receipt
func WithConfirmTimeout(timeout time.Duration) GatewayOptionFunc {
	return func(g *Gateway) {
		g.confirmTimeout = timeout
	}
}

// WithPollInterval specifies the initial receipt polling interval
func WithPollInterval(interval time.Duration) GatewayOptionFunc {
	return func(g *Gateway) {
		g.pollInterval = interval
	}
}

// WithRetryMaxElapsed bounds the total time spent retrying a read
func WithRetryMaxElapsed(elapsed time.Duration) GatewayOptionFunc {
	return func(g *Gateway) {
		g.retryMaxElapsed = elapsed
	}
}

// WithBreaker configures the circuit breaker: it opens after threshold
// consecutive transport failures and half-opens after cooldown
func WithBreaker(threshold uint32, cooldown time.Duration) GatewayOptionFunc {
	return func(g *Gateway) {
		g.breakerThreshold = threshold
		g.breakerCooldown = cooldown
	}
}
