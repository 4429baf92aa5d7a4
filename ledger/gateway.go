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

// Package ledger is the gateway to the credit token contract. It adds
// timeouts, read retries, a circuit breaker, tracing and metrics around a
// Contract backend, and manages editor grants.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/canopy/database"
	"github.com/blinklabs-io/canopy/event"
	"github.com/blinklabs-io/canopy/failure"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/canopy/ledger"

type Gateway struct {
	contract         Contract
	logger           *slog.Logger
	promRegistry     prometheus.Registerer
	eventBus         *event.EventBus
	db               *database.Database
	metrics          *gatewayMetrics
	breaker          *gobreaker.CircuitBreaker
	tracer           trace.Tracer
	grants           map[string]struct{}
	meta             Metadata
	confirmTimeout   time.Duration
	pollInterval     time.Duration
	retryMaxElapsed  time.Duration
	breakerCooldown  time.Duration
	grantsMu         sync.RWMutex
	authMu           sync.Mutex
	breakerThreshold uint32
}

// New creates a gateway for the given contract. The contract metadata is
// read once here, so an unreachable or misconfigured ledger fails startup
func New(
	ctx context.Context,
	contract Contract,
	opts ...GatewayOptionFunc,
) (*Gateway, error) {
	g := &Gateway{
		contract:         contract,
		grants:           make(map[string]struct{}),
		confirmTimeout:   DefaultConfirmTimeout,
		pollInterval:     DefaultPollInterval,
		retryMaxElapsed:  DefaultRetryMaxElapsed,
		breakerThreshold: DefaultBreakerThreshold,
		breakerCooldown:  DefaultBreakerCooldown,
		tracer:           otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	g.metrics = newGatewayMetrics(g.promRegistry)
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ledger",
		MaxRequests: 1,
		Timeout:     g.breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= g.breakerThreshold
		},
		IsSuccessful: func(err error) bool {
			// Only transport failures count against the breaker
			return err == nil ||
				IsRevert(err) ||
				errors.Is(err, ErrReceiptPending) ||
				errors.Is(err, ErrUnknownTransaction) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.metrics.breakerState.Set(float64(to))
			g.logger.Warn(
				fmt.Sprintf("circuit breaker %s: %s -> %s", name, from, to),
				"component", "ledger",
			)
		},
	})
	ret, err := g.retryRead(ctx, "metadata", func(ctx context.Context) (any, error) {
		return contract.Metadata(ctx)
	})
	if err != nil {
		return nil, failure.New(failure.KindLedgerCall, "metadata", err)
	}
	meta, ok := ret.(Metadata)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata value %T", ret)
	}
	owner, err := NormalizeAddress(meta.Owner)
	if err != nil {
		return nil, fmt.Errorf("contract owner: %w", err)
	}
	meta.Owner = owner
	g.meta = meta
	g.logger.Info(
		fmt.Sprintf("connected to contract %q", meta.Name),
		"component", "ledger",
		"owner", meta.Owner,
	)
	return g, nil
}

// Metadata returns the contract metadata read at startup
func (g *Gateway) Metadata() Metadata {
	return g.meta
}

// Owner returns the contract owner address, the sender of editor grants
func (g *Gateway) Owner() string {
	return g.meta.Owner
}

// Read runs a non-mutating entry point. Transport failures are retried with
// exponential backoff until the retry budget or the context runs out
func (g *Gateway) Read(
	ctx context.Context,
	entryPoint string,
	args ...any,
) (any, error) {
	ctx, span := g.tracer.Start(
		ctx,
		"ledger.read",
		trace.WithAttributes(attribute.String("ledger.entry_point", entryPoint)),
	)
	defer span.End()
	start := time.Now()
	ret, err := g.retryRead(ctx, entryPoint, func(ctx context.Context) (any, error) {
		return g.contract.Call(ctx, entryPoint, args...)
	})
	g.observe(span, entryPoint, "read", start, err)
	if err != nil {
		return nil, failure.New(failure.KindLedgerCall, entryPoint, err)
	}
	return ret, nil
}

// Submit sends a mutating call and returns without waiting for it to be
// confirmed. A submission is attempted once and never retried, since the
// ledger may have accepted it
func (g *Gateway) Submit(
	ctx context.Context,
	entryPoint string,
	caller string,
	args ...any,
) (*PendingTx, error) {
	caller, err := NormalizeAddress(caller)
	if err != nil {
		return nil, failure.New(failure.KindInvalidArgument, entryPoint, err)
	}
	ctx, span := g.tracer.Start(
		ctx,
		"ledger.submit",
		trace.WithAttributes(
			attribute.String("ledger.entry_point", entryPoint),
			attribute.String("ledger.caller", caller),
		),
	)
	defer span.End()
	start := time.Now()
	ret, err := g.breaker.Execute(func() (interface{}, error) {
		return g.contract.Transact(ctx, entryPoint, caller, args...)
	})
	g.observe(span, entryPoint, "submit", start, err)
	if err != nil {
		return nil, g.writeError(entryPoint, caller, err)
	}
	txHash, _ := ret.(string)
	span.SetAttributes(attribute.String("ledger.tx_hash", txHash))
	g.logger.Debug(
		fmt.Sprintf("submitted %s", entryPoint),
		"component", "ledger",
		"caller", caller,
		"tx_hash", txHash,
	)
	return g.Pending(txHash, entryPoint, caller), nil
}

// Write submits a mutating call and blocks until it is confirmed, the
// confirm timeout elapses or the context is done
func (g *Gateway) Write(
	ctx context.Context,
	entryPoint string,
	caller string,
	args ...any,
) (Receipt, error) {
	pending, err := g.Submit(ctx, entryPoint, caller, args...)
	if err != nil {
		return Receipt{}, err
	}
	return pending.Wait(ctx)
}

// SubmitAuthorized makes sure caller holds editor capability and then
// submits the call
func (g *Gateway) SubmitAuthorized(
	ctx context.Context,
	entryPoint string,
	caller string,
	args ...any,
) (*PendingTx, error) {
	if err := g.EnsureAuthorized(ctx, caller); err != nil {
		return nil, err
	}
	return g.Submit(ctx, entryPoint, caller, args...)
}

// WriteAuthorized is the blocking form of SubmitAuthorized
func (g *Gateway) WriteAuthorized(
	ctx context.Context,
	entryPoint string,
	caller string,
	args ...any,
) (Receipt, error) {
	pending, err := g.SubmitAuthorized(ctx, entryPoint, caller, args...)
	if err != nil {
		return Receipt{}, err
	}
	return pending.Wait(ctx)
}

// Events returns the contract event history from fromBlock on
func (g *Gateway) Events(
	ctx context.Context,
	fromBlock uint64,
) ([]LogEvent, error) {
	ctx, span := g.tracer.Start(
		ctx,
		"ledger.events",
		trace.WithAttributes(attribute.Int64("ledger.from_block", int64(fromBlock))),
	)
	defer span.End()
	start := time.Now()
	ret, err := g.retryRead(ctx, "events", func(ctx context.Context) (any, error) {
		return g.contract.Events(ctx, fromBlock)
	})
	g.observe(span, "events", "read", start, err)
	if err != nil {
		return nil, failure.New(failure.KindLedgerCall, "events", err)
	}
	events, _ := ret.([]LogEvent)
	return events, nil
}

// retryRead runs fn through the breaker, retrying transport failures
func (g *Gateway) retryRead(
	ctx context.Context,
	op string,
	fn func(context.Context) (any, error),
) (any, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = g.retryMaxElapsed
	return backoff.RetryNotifyWithData(
		func() (any, error) {
			ret, err := g.breaker.Execute(func() (interface{}, error) {
				return fn(ctx)
			})
			if err != nil && !retryable(ctx, err) {
				return nil, backoff.Permanent(err)
			}
			return ret, err
		},
		backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			g.logger.Debug(
				fmt.Sprintf("retrying %s in %s: %s", op, next, err),
				"component", "ledger",
			)
		},
	)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch {
	case IsRevert(err),
		errors.Is(err, ErrUnknownTransaction),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	}
	return true
}

// writeError classifies a failed write. A missing editor grant is an
// authorization failure and drops the cached grant for the caller
func (g *Gateway) writeError(entryPoint string, caller string, err error) error {
	if IsRevert(err, ReasonNotEditor, ReasonNotOwner) {
		g.forget(caller)
		return failure.New(failure.KindAuthorization, entryPoint, err)
	}
	return failure.New(failure.KindLedgerCall, entryPoint, err)
}

func (g *Gateway) observe(
	span trace.Span,
	entryPoint string,
	mode string,
	start time.Time,
	err error,
) {
	result := "ok"
	switch {
	case err == nil:
	case IsRevert(err):
		result = "revert"
	default:
		result = "error"
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	g.metrics.calls.WithLabelValues(entryPoint, mode, result).Inc()
	g.metrics.duration.WithLabelValues(entryPoint, mode).
		Observe(time.Since(start).Seconds())
}

func (g *Gateway) publish(eventType event.EventType, data any) {
	if g.eventBus == nil {
		return
	}
	g.eventBus.Publish(eventType, event.NewEvent(eventType, data))
}
