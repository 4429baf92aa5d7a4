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

	"github.com/blinklabs-io/canopy/database/models"
	"gorm.io/gorm"
)

// GetOperation returns the saga row for a record and leg
func (d *Database) GetOperation(
	recordID uint,
	leg models.TxKind,
	txn *Txn,
) (models.Operation, error) {
	var ret models.Operation
	result := d.gormDB(txn).
		Where("activity_record_id = ? AND leg = ?", recordID, leg).
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ret, ErrOperationNotFound
		}
		return ret, result.Error
	}
	return ret, nil
}

// CreateOperation inserts a saga row. A row for the same record and leg
// returns ErrDuplicateOperation
func (d *Database) CreateOperation(op *models.Operation, txn *Txn) error {
	if txn == nil {
		return d.Transaction(func(txn *Txn) error {
			return d.CreateOperation(op, txn)
		})
	}
	_, err := d.GetOperation(op.ActivityRecordID, op.Leg, txn)
	if err == nil {
		return ErrDuplicateOperation
	}
	if !errors.Is(err, ErrOperationNotFound) {
		return err
	}
	if err := txn.tx.Create(op).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateOperation
		}
		return err
	}
	return nil
}

// UpdateOperation saves every field of an existing saga row
func (d *Database) UpdateOperation(op *models.Operation, txn *Txn) error {
	return d.gormDB(txn).Save(op).Error
}

// DeleteOperation removes a saga row. Only rows for legs that never reached
// the ledger may be removed
func (d *Database) DeleteOperation(id string, txn *Txn) error {
	return d.gormDB(txn).Delete(&models.Operation{ID: id}).Error
}

// ListOperations returns saga rows in any of the given statuses, oldest
// first. No statuses returns every row
func (d *Database) ListOperations(
	txn *Txn,
	statuses ...models.OperationStatus,
) ([]models.Operation, error) {
	query := d.gormDB(txn)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var ret []models.Operation
	result := query.Order("created_at").Order("id").Find(&ret)
	return ret, result.Error
}
