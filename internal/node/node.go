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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/canopy"
	"github.com/blinklabs-io/canopy/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EngineOptions translates the loaded configuration into engine options.
// The reporting API is only enabled by Run.
func EngineOptions(
	cfg *config.Config,
	logger *slog.Logger,
) []canopy.ConfigOptionFunc {
	return []canopy.ConfigOptionFunc{
		canopy.WithLogger(logger),
		canopy.WithDatabasePath(cfg.DatabasePath),
		canopy.WithBlobPlugin(cfg.BlobPlugin),
		canopy.WithMetadataPlugin(cfg.MetadataPlugin),
		canopy.WithDevnetOwner(cfg.Devnet.Owner),
		canopy.WithDevnetBlockInterval(cfg.Devnet.BlockInterval),
		canopy.WithConfirmTimeout(cfg.Ledger.ConfirmTimeout),
		canopy.WithPollInterval(cfg.Ledger.PollInterval),
		canopy.WithRetryMaxElapsed(cfg.Ledger.RetryMaxElapsed),
		canopy.WithBreaker(
			cfg.Ledger.BreakerThreshold,
			cfg.Ledger.BreakerCooldown,
		),
		canopy.WithBalanceConcurrency(cfg.BalanceConcurrency),
		canopy.WithReconcileInterval(cfg.Reconcile.Interval),
		canopy.WithReconcileStallAfter(cfg.Reconcile.StallAfter),
		canopy.WithTracing(cfg.Tracing.Enabled),
		canopy.WithTracingStdout(cfg.Tracing.Stdout),
		canopy.WithShutdownTimeout(cfg.ShutdownTimeout),
	}
}

// Open builds an engine for a one-shot command
func Open(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (*canopy.Engine, error) {
	return canopy.Open(ctx, canopy.NewConfig(EngineOptions(cfg, logger)...))
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")

	shutdownTimeout := config.DefaultShutdownTimeout
	if cfg.ShutdownTimeout > 0 {
		shutdownTimeout = cfg.ShutdownTimeout
	}

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	opts := append(
		EngineOptions(cfg, logger),
		canopy.WithApiListenAddress(cfg.ApiListenAddress()),
		// Enable metrics with default prometheus registry
		canopy.WithPrometheusRegistry(prometheus.DefaultRegisterer),
	)
	e, err := canopy.Open(signalCtx, canopy.NewConfig(opts...))
	if err != nil {
		return err
	}

	// Metrics and debug listener
	var metricsServer *http.Server
	metricsErr := make(chan error, 1)
	if cfg.MetricsPort > 0 {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
		http.Handle("/metrics", promhttp.Handler())
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component",
			"node",
		)
		metricsServer = &http.Server{
			Addr:              metricsAddr,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				metricsErr <- fmt.Errorf("metrics listener: %w", err)
			}
		}()
	}

	// Run engine in goroutine
	errChan := make(chan error, 1)
	go func() {
		//nolint:contextcheck
		errChan <- e.Serve(signalCtx)
	}()

	var runErr error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")
		runErr = <-errChan
	case runErr = <-errChan:
		if runErr != nil {
			logger.Error("engine error", "error", runErr)
		}
	case runErr = <-metricsErr:
		logger.Error("metrics server error", "error", runErr)
	}
	signalCtxStop()

	// Shutdown metrics server
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}

	// Shutdown engine
	if err := e.Close(); err != nil {
		logger.Error("shutdown errors occurred", "error", err)
		return errors.Join(runErr, err)
	}
	logger.Info("shutdown complete")
	return runErr
}
