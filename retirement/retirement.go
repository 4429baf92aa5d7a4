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

// Package retirement burns credits against a CREDITED claim. When the
// debtor holds less than the amount to retire, another actor with enough
// surplus first transfers the deficit to the debtor.
package retirement

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

const DefaultBalanceConcurrency = 8

type ResolverConfig struct {
	Database     *database.Database
	Gateway      *ledger.Gateway
	Directory    identity.Directory
	Tracker      *activity.Tracker
	Mirror       *mirror.Mirror
	EventBus     *event.EventBus
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// BalanceConcurrency bounds the helper balance reads in flight
	BalanceConcurrency int
}

type Resolver struct {
	config  ResolverConfig
	saga    *saga.Log
	tracer  trace.Tracer
	metrics *retirementMetrics
	debtors keyedMutex
}

// Result describes a retirement. Helper is nil when the debtor covered the
// whole amount
type Result struct {
	Helper     *models.Actor
	TransferTx string
	BurnTx     string
	RecordID   uint
	Amount     uint64
	Deficit    uint64
	// Partial is set when the transfer is committed but the burn is not
	Partial bool
	Resumed bool
}

// PartialSuccessError is returned when the helper transfer is committed on
// the ledger but the burn failed. The transfer is not rolled back; running
// the retirement again only burns
type PartialSuccessError struct {
	Err    error
	Result Result
}

func (e *PartialSuccessError) Error() string {
	return fmt.Sprintf(
		"retirement of record %d partially applied, transfer %s committed: %s",
		e.Result.RecordID,
		e.Result.TransferTx,
		e.Err,
	)
}

func (e *PartialSuccessError) Unwrap() error {
	return e.Err
}

func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Database == nil || cfg.Gateway == nil {
		return nil, errors.New("retirement: database and gateway are required")
	}
	if cfg.Directory == nil || cfg.Tracker == nil || cfg.Mirror == nil {
		return nil, errors.New("retirement: directory, tracker and mirror are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.BalanceConcurrency <= 0 {
		cfg.BalanceConcurrency = DefaultBalanceConcurrency
	}
	return &Resolver{
		config:  cfg,
		saga:    saga.NewLog(cfg.Database, cfg.Gateway, cfg.Logger),
		tracer:  otel.Tracer("github.com/blinklabs-io/canopy/retirement"),
		metrics: newRetirementMetrics(cfg.PromRegistry),
	}, nil
}

// Retire burns amount credits from debtor against a CREDITED record of
// the debtor, on behalf of certifier. Retirements of the same debtor run
// one at a time
func (r *Resolver) Retire(
	ctx context.Context,
	certifier models.Actor,
	debtor models.Actor,
	amount uint64,
	recordID uint,
) (Result, error) {
	ctx, span := r.tracer.Start(
		ctx,
		"retirement.retire",
		trace.WithAttributes(
			attribute.Int64("canopy.record_id", int64(recordID)),
			attribute.Int64("canopy.amount", int64(amount)),
		),
	)
	defer span.End()
	r.debtors.Lock(debtor.ID)
	defer r.debtors.Unlock(debtor.ID)
	ret, err := r.retire(ctx, certifier, debtor, amount, recordID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.metrics.failures.WithLabelValues(failure.KindOf(err).String()).Inc()
		var partialErr *PartialSuccessError
		if errors.As(err, &partialErr) {
			r.metrics.partial.Inc()
		}
		r.config.Logger.Error(
			fmt.Sprintf("retirement of record %d failed", recordID),
			"component", "retirement",
			"error", err,
		)
		return ret, err
	}
	if ret.Helper != nil {
		span.SetAttributes(attribute.String("canopy.helper", ret.Helper.Username))
	}
	return ret, nil
}

func (r *Resolver) retire(
	ctx context.Context,
	certifier models.Actor,
	debtor models.Actor,
	amount uint64,
	recordID uint,
) (Result, error) {
	op := fmt.Sprintf("retire record %d", recordID)
	ret := Result{RecordID: recordID, Amount: amount}
	if amount == 0 {
		return ret, failure.Newf(failure.KindInvalidArgument, op, "amount must be positive")
	}
	certifier, err := r.config.Directory.Get(certifier.ID)
	if err != nil {
		return ret, err
	}
	if certifier.Role != models.RoleCertifier {
		return ret, failure.Newf(
			failure.KindInvalidArgument,
			op,
			"%s is not a certifier",
			certifier.Username,
		)
	}
	record, err := r.config.Tracker.Get(recordID)
	if err != nil {
		return ret, err
	}
	if record.ActorID != debtor.ID {
		return ret, failure.Newf(
			failure.KindInvalidArgument,
			op,
			"record does not belong to %s",
			debtor.Username,
		)
	}
	transferOp, transferFound, err := r.saga.Lookup(recordID, models.TxKindTransfer)
	if err != nil {
		return ret, err
	}
	burnOp, burnFound, err := r.saga.Lookup(recordID, models.TxKindBurn)
	if err != nil {
		return ret, err
	}
	if record.State != models.RecordStateCredited {
		if burnFound && burnOp.Status == models.OperationStatusMirrored {
			ret.Amount = burnOp.Amount
			ret.BurnTx = burnOp.LedgerTxHash
			ret.Resumed = true
			if transferFound && transferOp.Status == models.OperationStatusMirrored {
				ret.TransferTx = transferOp.LedgerTxHash
				ret.Deficit = transferOp.Amount
			}
			return ret, nil
		}
		return ret, failure.Newf(
			failure.KindInvalidStateTransition,
			op,
			"record is %s, expected %s",
			record.State,
			models.RecordStateCredited,
		)
	}
	debtorAddress, err := r.config.Directory.ResolveAddress(debtor)
	if err != nil {
		return ret, err
	}
	certifierAddress, err := r.config.Directory.ResolveAddress(certifier)
	if err != nil {
		return ret, err
	}
	burnInFlight := burnFound && burnOp.Status != models.OperationStatusFailed
	if burnInFlight {
		// The burn was submitted by an earlier run, so the transfer leg,
		// if any, is settled
		ret.Amount = burnOp.Amount
		ret.Resumed = true
		if transferFound && transferOp.Settled() {
			ret.TransferTx = transferOp.LedgerTxHash
			ret.Deficit = transferOp.Amount
		}
	} else {
		if err := r.transfer(ctx, op, debtor, debtorAddress, record, transferOp, transferFound, &ret); err != nil {
			return ret, err
		}
		// Re-check right before the burn, the debtor balance may have
		// moved since the plan
		balance, err := r.config.Gateway.BalanceOf(ctx, debtorAddress)
		if err != nil {
			return ret, r.partial(ret, err)
		}
		if balance < ret.Amount {
			return ret, r.partial(ret, failure.Newf(
				failure.KindInsufficientFunds,
				op,
				"debtor holds %d, needs %d",
				balance,
				ret.Amount,
			))
		}
	}
	out, err := r.saga.Run(ctx, recordID, models.TxKindBurn, saga.Call{
		EntryPoint:  ledger.EntryBurn,
		Caller:      certifierAddress,
		FromAddress: debtorAddress,
		Args:        []any{debtorAddress, ret.Amount},
		Amount:      ret.Amount,
	})
	if err != nil {
		return ret, r.partial(ret, err)
	}
	ret.BurnTx = out.Operation.LedgerTxHash
	if out.Mirrored {
		return ret, failure.Newf(
			failure.KindInconsistentMirror,
			op,
			"burn %s is mirrored but the record is still %s",
			ret.BurnTx,
			record.State,
		)
	}
	debtorID := debtor.ID
	err = r.config.Database.Transaction(func(txn *database.Txn) error {
		err := r.config.Mirror.Append(&models.Transaction{
			Kind:             models.TxKindBurn,
			FromActorID:      &debtorID,
			Amount:           ret.Amount,
			LedgerTxHash:     ret.BurnTx,
			ActivityRecordID: &record.ID,
		}, txn)
		if err != nil {
			return err
		}
		err = r.config.Tracker.AdvanceFrom(
			recordID,
			models.RecordStateCredited,
			txn,
		)
		if err != nil {
			return err
		}
		return r.saga.MarkMirrored(&out.Operation, txn)
	})
	if err != nil {
		r.flagInconsistent(models.TxKindBurn, recordID, ret.BurnTx, err)
		return ret, failure.New(
			failure.KindInconsistentMirror,
			op,
			fmt.Errorf("burned as %s but not recorded: %w", ret.BurnTx, err),
		)
	}
	r.config.Tracker.Announce(recordID, models.RecordStateCredited)
	r.metrics.burned.Add(float64(ret.Amount))
	r.metrics.transferred.Add(float64(ret.Deficit))
	r.config.Logger.Info(
		fmt.Sprintf("retired %d credits for record %d", ret.Amount, recordID),
		"component", "retirement",
		"actor", debtor.Username,
		"deficit", ret.Deficit,
		"tx_hash", ret.BurnTx,
	)
	evt := event.CreditRetiredEvent{
		RecordID:   recordID,
		DebtorID:   debtor.ID,
		Amount:     ret.Amount,
		Deficit:    ret.Deficit,
		TransferTx: ret.TransferTx,
		BurnTx:     ret.BurnTx,
	}
	if ret.Helper != nil {
		helperID := ret.Helper.ID
		evt.HelperID = &helperID
	}
	r.publish(event.CreditRetiredEventType, evt)
	return ret, nil
}

// transfer covers the debtor's deficit from a helper, resuming a transfer
// leg left by an earlier run when there is one
func (r *Resolver) transfer(
	ctx context.Context,
	op string,
	debtor models.Actor,
	debtorAddress string,
	record models.ActivityRecord,
	transferOp models.Operation,
	transferFound bool,
	ret *Result,
) error {
	var call saga.Call
	if transferFound && transferOp.Status != models.OperationStatusFailed {
		helper, err := r.config.Directory.GetByAddress(transferOp.FromAddress)
		if err != nil {
			return err
		}
		ret.Helper = &helper
		ret.Deficit = transferOp.Amount
		ret.Resumed = true
		call = transferCall(transferOp.FromAddress, debtorAddress, transferOp.Amount)
	} else {
		plan, err := r.plan(ctx, debtor, debtorAddress, ret.Amount)
		if err != nil {
			return err
		}
		if plan.Deficit == 0 {
			return nil
		}
		if plan.Helper == nil {
			return failure.Newf(
				failure.KindInsufficientFunds,
				op,
				"debtor holds %d of %d and no actor covers the deficit of %d",
				plan.DebtorBalance,
				ret.Amount,
				plan.Deficit,
			)
		}
		helperAddress, err := r.config.Directory.ResolveAddress(*plan.Helper)
		if err != nil {
			return err
		}
		// Re-check the helper right before the transfer
		balance, err := r.config.Gateway.BalanceOf(ctx, helperAddress)
		if err != nil {
			return err
		}
		if balance < plan.Deficit {
			return failure.Newf(
				failure.KindInsufficientFunds,
				op,
				"helper %s balance dropped to %d, deficit is %d",
				plan.Helper.Username,
				balance,
				plan.Deficit,
			)
		}
		ret.Helper = plan.Helper
		ret.Deficit = plan.Deficit
		call = transferCall(helperAddress, debtorAddress, plan.Deficit)
	}
	out, err := r.saga.Run(ctx, record.ID, models.TxKindTransfer, call)
	if err != nil {
		return err
	}
	ret.TransferTx = out.Operation.LedgerTxHash
	if out.Mirrored {
		return nil
	}
	helperID := ret.Helper.ID
	debtorID := debtor.ID
	err = r.config.Database.Transaction(func(txn *database.Txn) error {
		err := r.config.Mirror.Append(&models.Transaction{
			Kind:             models.TxKindTransfer,
			FromActorID:      &helperID,
			ToActorID:        &debtorID,
			Amount:           ret.Deficit,
			LedgerTxHash:     ret.TransferTx,
			ActivityRecordID: &record.ID,
		}, txn)
		if err != nil {
			return err
		}
		return r.saga.MarkMirrored(&out.Operation, txn)
	})
	if err != nil {
		r.flagInconsistent(models.TxKindTransfer, record.ID, ret.TransferTx, err)
		return r.partial(*ret, failure.New(
			failure.KindInconsistentMirror,
			op,
			fmt.Errorf("transferred as %s but not recorded: %w", ret.TransferTx, err),
		))
	}
	r.config.Logger.Info(
		fmt.Sprintf("transferred deficit of %d from %s", ret.Deficit, ret.Helper.Username),
		"component", "retirement",
		"actor", debtor.Username,
		"tx_hash", ret.TransferTx,
	)
	return nil
}

func transferCall(from, to string, amount uint64) saga.Call {
	return saga.Call{
		EntryPoint:  ledger.EntryTransferCredits,
		Caller:      from,
		FromAddress: from,
		ToAddress:   to,
		Args:        []any{from, to, amount},
		Amount:      amount,
	}
}

// partial wraps err in a PartialSuccessError when a transfer is already
// committed
func (r *Resolver) partial(ret Result, err error) error {
	if ret.TransferTx == "" {
		return err
	}
	var partialErr *PartialSuccessError
	if errors.As(err, &partialErr) {
		return err
	}
	ret.Partial = true
	return &PartialSuccessError{Err: err, Result: ret}
}

func (r *Resolver) flagInconsistent(
	leg models.TxKind,
	recordID uint,
	txHash string,
	err error,
) {
	r.config.Logger.Error(
		fmt.Sprintf("ledger %s not reflected locally", leg),
		"component", "retirement",
		"record", recordID,
		"tx_hash", txHash,
		"error", err,
	)
	r.publish(event.InconsistentMirrorEventType, event.InconsistentMirrorEvent{
		Operation: string(leg),
		RecordID:  recordID,
		TxHash:    txHash,
		Error:     err.Error(),
	})
}

func (r *Resolver) publish(eventType event.EventType, data any) {
	if r.config.EventBus == nil {
		return
	}
	r.config.EventBus.Publish(eventType, event.NewEvent(eventType, data))
}
