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

// RecordFilter narrows ListActivityRecords. Zero values match everything
type RecordFilter struct {
	ActorID *uint
	State   models.RecordState
}

// GetOrCreateActivity returns the activity with the given type and
// description, creating it when missing
func (d *Database) GetOrCreateActivity(
	activityType string,
	description string,
	txn *Txn,
) (models.Activity, error) {
	ret := models.Activity{Type: activityType, Description: description}
	result := d.gormDB(txn).
		Where("type = ? AND description = ?", activityType, description).
		FirstOrCreate(&ret)
	return ret, result.Error
}

func (d *Database) ListActivities(txn *Txn) ([]models.Activity, error) {
	var ret []models.Activity
	result := d.gormDB(txn).Order("id").Find(&ret)
	return ret, result.Error
}

// CreateActivityRecord inserts a record. Associations are not written
func (d *Database) CreateActivityRecord(
	record *models.ActivityRecord,
	txn *Txn,
) error {
	return d.gormDB(txn).Omit(clause.Associations).Create(record).Error
}

// GetActivityRecord returns a record with its activity and actor loaded
func (d *Database) GetActivityRecord(
	id uint,
	txn *Txn,
) (models.ActivityRecord, error) {
	var ret models.ActivityRecord
	result := d.gormDB(txn).
		Preload("Activity").
		Preload("Actor").
		First(&ret, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ret, ErrActivityRecordNotFound
		}
		return ret, result.Error
	}
	return ret, nil
}

// ListActivityRecords returns the matching records ordered by ID
func (d *Database) ListActivityRecords(
	filter RecordFilter,
	txn *Txn,
) ([]models.ActivityRecord, error) {
	query := d.gormDB(txn).Preload("Activity").Preload("Actor")
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	var ret []models.ActivityRecord
	result := query.Order("id").Find(&ret)
	return ret, result.Error
}

// SetActivityRecordState moves a record from one state to another. It
// returns false without error when the record is not in the from state
func (d *Database) SetActivityRecordState(
	id uint,
	from models.RecordState,
	to models.RecordState,
	txn *Txn,
) (bool, error) {
	result := d.gormDB(txn).
		Model(&models.ActivityRecord{}).
		Where("id = ? AND state = ?", id, from).
		Update("state", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
