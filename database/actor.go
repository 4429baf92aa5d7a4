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

// CreateActor inserts a new actor and fills in its ID
func (d *Database) CreateActor(actor *models.Actor, txn *Txn) error {
	return d.gormDB(txn).Create(actor).Error
}

func (d *Database) GetActor(id uint, txn *Txn) (models.Actor, error) {
	return d.findActor(txn, "id = ?", id)
}

func (d *Database) GetActorByUsername(
	username string,
	txn *Txn,
) (models.Actor, error) {
	return d.findActor(txn, "username = ?", username)
}

func (d *Database) GetActorByAddress(
	address string,
	txn *Txn,
) (models.Actor, error) {
	return d.findActor(txn, "address = ?", address)
}

func (d *Database) findActor(
	txn *Txn,
	query string,
	arg any,
) (models.Actor, error) {
	var ret models.Actor
	result := d.gormDB(txn).Where(query, arg).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ret, ErrActorNotFound
		}
		return ret, result.Error
	}
	return ret, nil
}

// ListActors returns every actor ordered by ID
func (d *Database) ListActors(txn *Txn) ([]models.Actor, error) {
	var ret []models.Actor
	result := d.gormDB(txn).Order("id").Find(&ret)
	return ret, result.Error
}

// ListActorsByRole returns the actors holding role ordered by ID
func (d *Database) ListActorsByRole(
	role models.Role,
	txn *Txn,
) ([]models.Actor, error) {
	var ret []models.Actor
	result := d.gormDB(txn).Where("role = ?", role).Order("id").Find(&ret)
	return ret, result.Error
}
