// Copyright 2025 Blink Labs Software
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

package canopy

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/canopy/ledger"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry     prometheus.Registerer
	logger           *slog.Logger
	contract         ledger.Contract
	dataDir          string
	blobPlugin       string
	metadataPlugin   string
	devnetOwner      string
	apiListenAddress string
	// Ledger gateway tuning (0 = use default)
	confirmTimeout   time.Duration
	pollInterval     time.Duration
	retryMaxElapsed  time.Duration
	breakerCooldown  time.Duration
	breakerThreshold uint32
	// Devnet block production interval (0 = confirm on submit)
	devnetBlockInterval time.Duration
	// Reconciliation loop interval (0 = disabled)
	reconcileInterval   time.Duration
	reconcileStallAfter time.Duration
	balanceConcurrency  int
	tracing             bool
	tracingStdout       bool
	shutdownTimeout     time.Duration
}

func (c *Config) validate() error {
	if c.confirmTimeout < 0 || c.pollInterval < 0 || c.retryMaxElapsed < 0 {
		return errors.New("ledger timeouts must not be negative")
	}
	if c.devnetBlockInterval < 0 {
		return errors.New("devnet block interval must not be negative")
	}
	if c.reconcileInterval < 0 {
		return errors.New("reconcile interval must not be negative")
	}
	if c.contract != nil && c.devnetOwner != "" {
		return errors.New("a devnet owner cannot be set with an external contract")
	}
	if c.devnetOwner != "" {
		if _, err := ledger.NormalizeAddress(c.devnetOwner); err != nil {
			return err
		}
	}
	return nil
}

// usesDevnet returns true when no external contract is configured
func (c *Config) usesDevnet() bool {
	return c.contract == nil
}

// ConfigOptionFunc is a type that represents functions that modify the engine config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new engine config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin that archives reconciliation reports
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithContract specifies a deployed credit token contract to use. The default is an in-process devnet contract
// persisted under the data directory
func WithContract(contract ledger.Contract) ConfigOptionFunc {
	return func(c *Config) {
		c.contract = contract
	}
}

// WithDevnetOwner specifies the owner address of the devnet contract when it is first deployed
func WithDevnetOwner(owner string) ConfigOptionFunc {
	return func(c *Config) {
		c.devnetOwner = owner
	}
}

// WithDevnetBlockInterval specifies how often the devnet contract confirms pending transactions while serving.
// Zero confirms each transaction as it is submitted
func WithDevnetBlockInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.devnetBlockInterval = interval
	}
}

// WithConfirmTimeout specifies how long a ledger write waits for its receipt
func WithConfirmTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.confirmTimeout = timeout
	}
}

// WithPollInterval specifies how often a pending ledger write is polled for its receipt
func WithPollInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.pollInterval = interval
	}
}

// WithRetryMaxElapsed specifies how long ledger reads are retried
func WithRetryMaxElapsed(elapsed time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.retryMaxElapsed = elapsed
	}
}

// WithBreaker specifies how many consecutive ledger failures open the circuit breaker and how long it stays open
func WithBreaker(threshold uint32, cooldown time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.breakerThreshold = threshold
		c.breakerCooldown = cooldown
	}
}

// WithBalanceConcurrency specifies how many balance reads helper discovery runs at once
func WithBalanceConcurrency(concurrency int) ConfigOptionFunc {
	return func(c *Config) {
		c.balanceConcurrency = concurrency
	}
}

// WithApiListenAddress specifies the listen address of the reporting API. An empty address disables it
func WithApiListenAddress(address string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = address
	}
}

// WithReconcileInterval specifies how often Serve runs a reconciliation pass. Zero disables the loop
func WithReconcileInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.reconcileInterval = interval
	}
}

// WithReconcileStallAfter specifies how long a saga leg may stay unfinished before reconciliation reports it
func WithReconcileStallAfter(stallAfter time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.reconcileStallAfter = stallAfter
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies how long Close waits for components to stop. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
