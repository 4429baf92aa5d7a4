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

package database

import (
	"errors"
	"time"

	"github.com/blinklabs-io/canopy/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddTransaction appends an audit row. A ledger hash that is already
// recorded returns ErrDuplicateTxHash
func (d *Database) AddTransaction(tx *models.Transaction, txn *Txn) error {
	if txn == nil {
		return d.Transaction(func(txn *Txn) error {
			return d.AddTransaction(tx, txn)
		})
	}
	var count int64
	if err := txn.tx.Model(&models.Transaction{}).
		Where("ledger_tx_hash = ?", tx.LedgerTxHash).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateTxHash
	}
	if err := txn.tx.Omit(clause.Associations).Create(tx).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateTxHash
		}
		return err
	}
	return nil
}

func (d *Database) GetTransactionByHash(
	hash string,
	txn *Txn,
) (models.Transaction, error) {
	var ret models.Transaction
	result := d.gormDB(txn).
		Preload("FromActor").
		Preload("ToActor").
		Where("ledger_tx_hash = ?", hash).
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ret, ErrTransactionNotFound
		}
		return ret, result.Error
	}
	return ret, nil
}

// ListTransactionsForActor returns rows where the actor is sender or
// receiver, most recent first
func (d *Database) ListTransactionsForActor(
	actorID uint,
	txn *Txn,
) ([]models.Transaction, error) {
	var ret []models.Transaction
	result := d.gormDB(txn).
		Preload("FromActor").
		Preload("ToActor").
		Where("from_actor_id = ? OR to_actor_id = ?", actorID, actorID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&ret)
	return ret, result.Error
}

// ListTransactions returns rows created at or after since, most recent
// first. A zero since returns every row
func (d *Database) ListTransactions(
	since time.Time,
	txn *Txn,
) ([]models.Transaction, error) {
	query := d.gormDB(txn).Preload("FromActor").Preload("ToActor")
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}
	var ret []models.Transaction
	result := query.
		Order("created_at DESC").
		Order("id DESC").
		Find(&ret)
	return ret, result.Error
}
