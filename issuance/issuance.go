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

// Package issuance turns approved PENDING claims into ledger credits: it
// mints the rounded CO2 reduction to the claimant, mirrors the mint and
// marks the claim CREDITED.
package issuance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/canopy/activity"
	"github.com/blinklabs-io/canopy/database"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/event"
	"github.com/blinklabs-io/canopy/failure"
	"github.com/blinklabs-io/canopy/identity"
	"github.com/blinklabs-io/canopy/internal/saga"
	"github.com/blinklabs-io/canopy/ledger"
	"github.com/blinklabs-io/canopy/mirror"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type CoordinatorConfig struct {
	Database     *database.Database
	Gateway      *ledger.Gateway
	Directory    identity.Directory
	Tracker      *activity.Tracker
	Mirror       *mirror.Mirror
	EventBus     *event.EventBus
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

type Coordinator struct {
	config  CoordinatorConfig
	saga    *saga.Log
	tracer  trace.Tracer
	metrics *issuanceMetrics
}

// Result describes a minted record
type Result struct {
	TxHash   string
	RecordID uint
	Amount   uint64
	Block    uint64
	// Resumed is set when an earlier run had already minted the credits
	Resumed bool
}

func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Database == nil || cfg.Gateway == nil {
		return nil, errors.New("issuance: database and gateway are required")
	}
	if cfg.Directory == nil || cfg.Tracker == nil || cfg.Mirror == nil {
		return nil, errors.New("issuance: directory, tracker and mirror are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Coordinator{
		config:  cfg,
		saga:    saga.NewLog(cfg.Database, cfg.Gateway, cfg.Logger),
		tracer:  otel.Tracer("github.com/blinklabs-io/canopy/issuance"),
		metrics: newIssuanceMetrics(cfg.PromRegistry),
	}, nil
}

// Mint issues credits for a PENDING record of target on behalf of
// certifier. Running it again for a record whose mint already reached the
// ledger finishes the local bookkeeping without minting twice
func (c *Coordinator) Mint(
	ctx context.Context,
	certifier models.Actor,
	target models.Actor,
	recordID uint,
) (Result, error) {
	ctx, span := c.tracer.Start(
		ctx,
		"issuance.mint",
		trace.WithAttributes(attribute.Int64("canopy.record_id", int64(recordID))),
	)
	defer span.End()
	ret, err := c.mint(ctx, certifier, target, recordID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.failures.WithLabelValues(failure.KindOf(err).String()).Inc()
		c.config.Logger.Error(
			fmt.Sprintf("mint of record %d failed", recordID),
			"component", "issuance",
			"error", err,
		)
		return ret, err
	}
	span.SetAttributes(attribute.String("ledger.tx_hash", ret.TxHash))
	return ret, nil
}

func (c *Coordinator) mint(
	ctx context.Context,
	certifier models.Actor,
	target models.Actor,
	recordID uint,
) (Result, error) {
	op := fmt.Sprintf("mint record %d", recordID)
	certifier, err := c.config.Directory.Get(certifier.ID)
	if err != nil {
		return Result{}, err
	}
	if certifier.Role != models.RoleCertifier {
		return Result{}, failure.Newf(
			failure.KindInvalidArgument,
			op,
			"%s is not a certifier",
			certifier.Username,
		)
	}
	record, err := c.config.Tracker.Get(recordID)
	if err != nil {
		return Result{}, err
	}
	if record.ActorID != target.ID {
		return Result{}, failure.Newf(
			failure.KindInvalidArgument,
			op,
			"record does not belong to %s",
			target.Username,
		)
	}
	existing, found, err := c.saga.Lookup(recordID, models.TxKindMint)
	if err != nil {
		return Result{}, err
	}
	resuming := found && existing.Status != models.OperationStatusFailed
	if record.State != models.RecordStatePending {
		if resuming && existing.Status == models.OperationStatusMirrored {
			return Result{
				TxHash:   existing.LedgerTxHash,
				RecordID: recordID,
				Amount:   existing.Amount,
				Resumed:  true,
			}, nil
		}
		return Result{}, failure.Newf(
			failure.KindInvalidStateTransition,
			op,
			"record is %s, expected %s",
			record.State,
			models.RecordStatePending,
		)
	}
	targetAddress, err := c.config.Directory.ResolveAddress(target)
	if err != nil {
		return Result{}, err
	}
	certifierAddress, err := c.config.Directory.ResolveAddress(certifier)
	if err != nil {
		return Result{}, err
	}
	amount := existing.Amount
	if !resuming {
		amount, err = activity.CreditAmount(record.Co2Reduction)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	out, err := c.saga.Run(ctx, recordID, models.TxKindMint, saga.Call{
		EntryPoint: ledger.EntryMint,
		Caller:     certifierAddress,
		ToAddress:  targetAddress,
		Args:       []any{targetAddress, amount},
		Amount:     amount,
	})
	if err != nil {
		return Result{}, err
	}
	txHash := out.Operation.LedgerTxHash
	ret := Result{
		TxHash:   txHash,
		RecordID: recordID,
		Amount:   amount,
		Block:    out.Receipt.Block,
		Resumed:  out.Resumed,
	}
	if out.Mirrored {
		// Mirrored and advanced in one transaction, so the record can
		// not still be PENDING
		return ret, failure.Newf(
			failure.KindInconsistentMirror,
			op,
			"mint %s is mirrored but the record is still %s",
			txHash,
			record.State,
		)
	}
	targetID := target.ID
	err = c.config.Database.Transaction(func(txn *database.Txn) error {
		err := c.config.Mirror.Append(&models.Transaction{
			Kind:             models.TxKindMint,
			ToActorID:        &targetID,
			Amount:           amount,
			LedgerTxHash:     txHash,
			ActivityRecordID: &record.ID,
		}, txn)
		if err != nil {
			return err
		}
		err = c.config.Tracker.AdvanceFrom(
			recordID,
			models.RecordStatePending,
			txn,
		)
		if err != nil {
			return err
		}
		return c.saga.MarkMirrored(&out.Operation, txn)
	})
	if err != nil {
		c.flagInconsistent(recordID, txHash, err)
		return ret, failure.New(
			failure.KindInconsistentMirror,
			op,
			fmt.Errorf("minted as %s but not recorded: %w", txHash, err),
		)
	}
	c.config.Tracker.Announce(recordID, models.RecordStatePending)
	c.metrics.minted.Add(float64(amount))
	c.metrics.records.Inc()
	c.config.Logger.Info(
		fmt.Sprintf("minted %d credits for record %d", amount, recordID),
		"component", "issuance",
		"actor", target.Username,
		"tx_hash", txHash,
	)
	c.publish(event.CreditIssuedEventType, event.CreditIssuedEvent{
		RecordID: recordID,
		ActorID:  target.ID,
		Amount:   amount,
		TxHash:   txHash,
	})
	return ret, nil
}

// MintPending issues every PENDING record. A failing record does not stop
// the others; the failures are returned joined
func (c *Coordinator) MintPending(
	ctx context.Context,
	certifier models.Actor,
) ([]Result, error) {
	records, err := c.config.Tracker.ListPending()
	if err != nil {
		return nil, err
	}
	var ret []Result
	var errs []error
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		target, err := c.config.Directory.Get(record.ActorID)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", record.ID, err))
			continue
		}
		result, err := c.Mint(ctx, certifier, target, record.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", record.ID, err))
			continue
		}
		ret = append(ret, result)
	}
	return ret, errors.Join(errs...)
}

func (c *Coordinator) flagInconsistent(recordID uint, txHash string, err error) {
	c.config.Logger.Error(
		"ledger mint not reflected locally",
		"component", "issuance",
		"record", recordID,
		"tx_hash", txHash,
		"error", err,
	)
	c.publish(event.InconsistentMirrorEventType, event.InconsistentMirrorEvent{
		Operation: string(models.TxKindMint),
		RecordID:  recordID,
		TxHash:    txHash,
		Error:     err.Error(),
	})
}

func (c *Coordinator) publish(eventType event.EventType, data any) {
	if c.config.EventBus == nil {
		return
	}
	c.config.EventBus.Publish(eventType, event.NewEvent(eventType, data))
}
