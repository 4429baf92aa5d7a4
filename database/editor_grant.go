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
	"gorm.io/gorm/clause"
)

func (d *Database) GetEditorGrant(
	address string,
	txn *Txn,
) (models.EditorGrant, error) {
	var ret models.EditorGrant
	result := d.gormDB(txn).Where("address = ?", address).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ret, ErrEditorGrantNotFound
		}
		return ret, result.Error
	}
	return ret, nil
}

// SetEditorGrant records a grant, replacing any existing row for the address
func (d *Database) SetEditorGrant(grant *models.EditorGrant, txn *Txn) error {
	return d.gormDB(txn).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"tx_hash", "granted_at"}),
	}).Create(grant).Error
}

// DeleteEditorGrant drops the cached grant for an address
func (d *Database) DeleteEditorGrant(address string, txn *Txn) error {
	return d.gormDB(txn).
		Where("address = ?", address).
		Delete(&models.EditorGrant{}).Error
}
