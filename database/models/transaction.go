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

type TxKind string

const (
	TxKindMint     TxKind = "MINT"
	TxKindBurn     TxKind = "BURN"
	TxKindTransfer TxKind = "TRANSFER"
)

// Transaction is an audit row mirroring one ledger-affecting call. Rows are
// append-only.
type Transaction struct {
	CreatedAt        time.Time `gorm:"index"`
	FromActor        *Actor    `gorm:"foreignKey:FromActorID"`
	ToActor          *Actor    `gorm:"foreignKey:ToActorID"`
	FromActorID      *uint     `gorm:"index"`
	ToActorID        *uint     `gorm:"index"`
	ActivityRecordID *uint     `gorm:"index"`
	Kind             TxKind    `gorm:"size:16;not null"`
	LedgerTxHash     string    `gorm:"size:66;uniqueIndex;not null"`
	Amount           uint64    `gorm:"not null"`
	ID               uint      `gorm:"primarykey"`
}

func (Transaction) TableName() string {
	return "transaction"
}

// Involves returns true if the actor is the sender or the receiver
func (t *Transaction) Involves(actorID uint) bool {
	if t.FromActorID != nil && *t.FromActorID == actorID {
		return true
	}
	return t.ToActorID != nil && *t.ToActorID == actorID
}
