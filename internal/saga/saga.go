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

// Package saga records each ledger leg of a workflow in the operations
// table so a workflow that is run again after a failure or a crash picks
// up where it stopped instead of repeating a confirmed ledger write.
package saga

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/canopy/database"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/failure"
	"github.com/blinklabs-io/canopy/ledger"
	"github.com/google/uuid"
)

// Call is the ledger write made by a leg
type Call struct {
	EntryPoint  string
	Caller      string
	FromAddress string
	ToAddress   string
	Args        []any
	Amount      uint64
}

// Outcome describes a leg that is confirmed on the ledger
type Outcome struct {
	Operation models.Operation
	Receipt   ledger.Receipt
	// Resumed is set when the leg was confirmed by an earlier run
	Resumed bool
	// Mirrored is set when an earlier run also recorded it locally
	Mirrored bool
}

type Log struct {
	db      *database.Database
	gateway *ledger.Gateway
	logger  *slog.Logger
}

func NewLog(
	db *database.Database,
	gateway *ledger.Gateway,
	logger *slog.Logger,
) *Log {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Log{db: db, gateway: gateway, logger: logger}
}

// Lookup returns the recorded leg, if any
func (l *Log) Lookup(
	recordID uint,
	leg models.TxKind,
) (models.Operation, bool, error) {
	op, err := l.db.GetOperation(recordID, leg, nil)
	if errors.Is(err, database.ErrOperationNotFound) {
		return op, false, nil
	}
	if err != nil {
		return op, false, err
	}
	return op, true, nil
}

// Run makes sure the leg is confirmed on the ledger, submitting call only
// when no earlier run got it that far. A failed leg is submitted again
func (l *Log) Run(
	ctx context.Context,
	recordID uint,
	leg models.TxKind,
	call Call,
) (Outcome, error) {
	opName := fmt.Sprintf("%s leg of record %d", leg, recordID)
	op, found, err := l.Lookup(recordID, leg)
	if err != nil {
		return Outcome{}, err
	}
	if found {
		switch op.Status {
		case models.OperationStatusMirrored:
			return Outcome{Operation: op, Resumed: true, Mirrored: true}, nil
		case models.OperationStatusConfirmed:
			return Outcome{Operation: op, Resumed: true}, nil
		case models.OperationStatusSubmitted:
			if op.LedgerTxHash == "" {
				return Outcome{}, failure.Newf(
					failure.KindInconsistentMirror,
					opName,
					"submission outcome unknown, operation %s has no ledger hash",
					op.ID,
				)
			}
			l.logger.Info(
				"resuming submitted ledger leg",
				"component", "saga",
				"operation", op.ID,
				"tx_hash", op.LedgerTxHash,
			)
			pending := l.gateway.Pending(op.LedgerTxHash, call.EntryPoint, call.Caller)
			return l.confirm(ctx, opName, op, pending, true)
		case models.OperationStatusFailed:
			if err := l.db.DeleteOperation(op.ID, nil); err != nil {
				return Outcome{}, fmt.Errorf("%s: clear failed operation: %w", opName, err)
			}
		}
	}
	if err := l.gateway.EnsureAuthorized(ctx, call.Caller); err != nil {
		return Outcome{}, err
	}
	op = models.Operation{
		ID:               uuid.NewString(),
		ActivityRecordID: recordID,
		Leg:              leg,
		Status:           models.OperationStatusSubmitted,
		Amount:           call.Amount,
		FromAddress:      call.FromAddress,
		ToAddress:        call.ToAddress,
	}
	if err := l.db.CreateOperation(&op, nil); err != nil {
		if errors.Is(err, database.ErrDuplicateOperation) {
			return Outcome{}, failure.Newf(
				failure.KindInvalidStateTransition,
				opName,
				"leg is already in progress",
			)
		}
		return Outcome{}, fmt.Errorf("%s: record operation: %w", opName, err)
	}
	pending, err := l.gateway.Submit(ctx, call.EntryPoint, call.Caller, call.Args...)
	if err != nil {
		l.fail(&op, err)
		return Outcome{}, err
	}
	op.LedgerTxHash = pending.TxHash
	if err := l.db.UpdateOperation(&op, nil); err != nil {
		// The wait below still settles the leg, only a crash before it
		// finishes leaves the hash unrecorded
		l.logger.Error(
			"failed to record ledger hash",
			"component", "saga",
			"operation", op.ID,
			"tx_hash", pending.TxHash,
			"error", err,
		)
	}
	return l.confirm(ctx, opName, op, pending, false)
}

func (l *Log) confirm(
	ctx context.Context,
	opName string,
	op models.Operation,
	pending *ledger.PendingTx,
	resumed bool,
) (Outcome, error) {
	receipt, err := pending.Wait(ctx)
	if err != nil {
		// A reverted transaction is final. Anything else may still
		// confirm, so the leg stays SUBMITTED for the next run
		if ledger.IsRevert(err) {
			l.fail(&op, err)
		}
		return Outcome{}, err
	}
	op.Status = models.OperationStatusConfirmed
	op.Error = ""
	if err := l.db.UpdateOperation(&op, nil); err != nil {
		return Outcome{}, failure.New(
			failure.KindInconsistentMirror,
			opName,
			fmt.Errorf("confirmed as %s but not recorded: %w", receipt.TxHash, err),
		)
	}
	return Outcome{Operation: op, Receipt: receipt, Resumed: resumed}, nil
}

// MarkMirrored records that the leg is reflected in the mirror. Passing txn
// ties it to the mirror append
func (l *Log) MarkMirrored(op *models.Operation, txn *database.Txn) error {
	op.Status = models.OperationStatusMirrored
	return l.db.UpdateOperation(op, txn)
}

func (l *Log) fail(op *models.Operation, cause error) {
	op.Status = models.OperationStatusFailed
	op.Error = cause.Error()
	if err := l.db.UpdateOperation(op, nil); err != nil {
		l.logger.Error(
			"failed to record failed operation",
			"component", "saga",
			"operation", op.ID,
			"error", err,
		)
	}
}
