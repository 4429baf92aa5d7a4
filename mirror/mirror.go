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

// Package mirror keeps the local, append-only audit log of every credit
// movement made on the ledger.
package mirror

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/canopy/database"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/failure"
	"github.com/prometheus/client_golang/prometheus"
)

type Mirror struct {
	db       *database.Database
	logger   *slog.Logger
	appended *prometheus.CounterVec
}

func New(
	db *database.Database,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) *Mirror {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	m := &Mirror{
		db:     db,
		logger: logger,
		appended: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_mirror_transactions_total",
				Help: "Transactions appended to the mirror, by kind",
			},
			[]string{"kind"},
		),
	}
	if promRegistry != nil {
		promRegistry.MustRegister(m.appended)
	}
	return m
}

// Append records a ledger transaction. Rows are never changed afterwards,
// and a ledger hash can only be recorded once. Passing txn makes the append
// part of the caller's transaction
func (m *Mirror) Append(tx *models.Transaction, txn *database.Txn) error {
	if err := validate(tx); err != nil {
		return err
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	if err := m.db.AddTransaction(tx, txn); err != nil {
		if errors.Is(err, database.ErrDuplicateTxHash) {
			return failure.New(
				failure.KindInvalidArgument,
				"mirror append "+tx.LedgerTxHash,
				err,
			)
		}
		return fmt.Errorf("mirror append: %w", err)
	}
	kind := string(tx.Kind)
	count := func() {
		m.appended.WithLabelValues(kind).Inc()
	}
	if txn != nil {
		txn.OnCommit(count)
	} else {
		count()
	}
	m.logger.Debug(
		fmt.Sprintf("mirrored %s of %d", tx.Kind, tx.Amount),
		"component", "mirror",
		"tx_hash", tx.LedgerTxHash,
	)
	return nil
}

// validate checks the sender and receiver required by each kind: a mint has
// no sender, a burn has no receiver and a transfer has both
func validate(tx *models.Transaction) error {
	const op = "mirror append"
	if tx.Amount == 0 {
		return failure.Newf(failure.KindInvalidArgument, op, "amount must be positive")
	}
	if tx.LedgerTxHash == "" {
		return failure.Newf(failure.KindInvalidArgument, op, "ledger hash is required")
	}
	var ok bool
	switch tx.Kind {
	case models.TxKindMint:
		ok = tx.FromActorID == nil && tx.ToActorID != nil
	case models.TxKindBurn:
		ok = tx.FromActorID != nil && tx.ToActorID == nil
	case models.TxKindTransfer:
		ok = tx.FromActorID != nil && tx.ToActorID != nil
	default:
		return failure.Newf(failure.KindInvalidArgument, op, "unknown kind %q", tx.Kind)
	}
	if !ok {
		return failure.Newf(
			failure.KindInvalidArgument,
			op,
			"sender and receiver do not fit a %s",
			tx.Kind,
		)
	}
	return nil
}

// ListForActor returns the rows where actor is sender or receiver, most
// recent first
func (m *Mirror) ListForActor(
	actor models.Actor,
) ([]models.Transaction, error) {
	return m.db.ListTransactionsForActor(actor.ID, nil)
}

// ListAll returns every row, most recent first
func (m *Mirror) ListAll() ([]models.Transaction, error) {
	return m.db.ListTransactions(time.Time{}, nil)
}

// ListSince returns the rows recorded at or after since, most recent first
func (m *Mirror) ListSince(since time.Time) ([]models.Transaction, error) {
	return m.db.ListTransactions(since, nil)
}

func (m *Mirror) FindByHash(hash string) (models.Transaction, error) {
	tx, err := m.db.GetTransactionByHash(hash, nil)
	if errors.Is(err, database.ErrTransactionNotFound) {
		return tx, failure.New(failure.KindNotFound, "mirror lookup "+hash, err)
	}
	return tx, err
}
