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

package models

import "time"

type OperationStatus string

const (
	OperationStatusSubmitted OperationStatus = "SUBMITTED"
	OperationStatusConfirmed OperationStatus = "CONFIRMED"
	OperationStatusMirrored  OperationStatus = "MIRRORED"
	OperationStatusFailed    OperationStatus = "FAILED"
)

// Operation is one leg of a ledger workflow, keyed by activity record and
// leg kind. It lets an interrupted workflow resume without re-submitting a
// leg the ledger already confirmed.
type Operation struct {
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ID               string          `gorm:"size:36;primarykey"`
	Leg              TxKind          `gorm:"size:16;uniqueIndex:idx_operation_record_leg;not null"`
	Status           OperationStatus `gorm:"size:16;index;not null"`
	LedgerTxHash     string          `gorm:"size:66;index"`
	FromAddress      string          `gorm:"size:64"`
	ToAddress        string          `gorm:"size:64"`
	Error            string
	Amount           uint64
	ActivityRecordID uint `gorm:"uniqueIndex:idx_operation_record_leg;not null"`
}

func (Operation) TableName() string {
	return "operation"
}

// Settled returns true once the ledger has confirmed the leg
func (o *Operation) Settled() bool {
	return o.Status == OperationStatusConfirmed ||
		o.Status == OperationStatusMirrored
}
