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

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ActivityTypeInvestment = "investment in a project for reduction"
	ActivityTypeAction     = "performing an action"
)

// Activity is a claim template. Static reference data.
type Activity struct {
	Type        string `gorm:"size:64;index;not null"`
	Description string `gorm:"not null"`
	ID          uint   `gorm:"primarykey"`
}

func (Activity) TableName() string {
	return "activity"
}

type RecordState string

const (
	RecordStatePending  RecordState = "PENDING"
	RecordStateCredited RecordState = "CREDITED"
	RecordStateRetired  RecordState = "RETIRED"
)

// Next returns the state that follows s, or false when s is terminal or unknown
func (s RecordState) Next() (RecordState, bool) {
	switch s {
	case RecordStatePending:
		return RecordStateCredited, true
	case RecordStateCredited:
		return RecordStateRetired, true
	default:
		return "", false
	}
}

func (s RecordState) Valid() bool {
	switch s {
	case RecordStatePending, RecordStateCredited, RecordStateRetired:
		return true
	default:
		return false
	}
}

// ActivityRecord is one claim of CO2 reduction made by an actor
type ActivityRecord struct {
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Activity     *Activity       `gorm:"foreignKey:ActivityID"`
	Actor        *Actor          `gorm:"foreignKey:ActorID"`
	Description  string          `gorm:"not null"`
	State        RecordState     `gorm:"size:16;index;not null"`
	Co2Reduction decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	ID           uint            `gorm:"primarykey"`
	ActivityID   uint            `gorm:"index;not null"`
	ActorID      uint            `gorm:"index;not null"`
}

func (ActivityRecord) TableName() string {
	return "activity_record"
}
