// Copyright 2024 Blink Labs Software
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

package event

import (
	"github.com/shopspring/decimal"
)

const (
	RecordSubmittedEventType    = EventType("activity.submitted")
	RecordAdvancedEventType     = EventType("activity.advanced")
	LedgerWriteEventType        = EventType("ledger.write")
	EditorAuthorizedEventType   = EventType("ledger.editor_authorized")
	CreditIssuedEventType       = EventType("credit.issued")
	CreditRetiredEventType      = EventType("credit.retired")
	InconsistentMirrorEventType = EventType("mirror.inconsistent")
	ReconcileFindingEventType   = EventType("reconcile.finding")
	ReconcileCompletedEventType = EventType("reconcile.completed")
)

// RecordSubmittedEvent is emitted when an actor files a new PENDING claim
type RecordSubmittedEvent struct {
	Co2Reduction decimal.Decimal
	RecordID     uint
	ActorID      uint
}

// RecordAdvancedEvent is emitted after an activity record changes state
type RecordAdvancedEvent struct {
	From     string
	To       string
	RecordID uint
}

// LedgerWriteEvent is emitted for every confirmed ledger transaction
type LedgerWriteEvent struct {
	EntryPoint string
	Caller     string
	TxHash     string
	Block      uint64
}

type EditorAuthorizedEvent struct {
	Address string
	TxHash  string
}

// CreditIssuedEvent is emitted when a PENDING record has been minted and
// credited
type CreditIssuedEvent struct {
	TxHash   string
	RecordID uint
	ActorID  uint
	Amount   uint64
}

// CreditRetiredEvent is emitted when a CREDITED record has been burned.
// HelperID is nil when the debtor covered the full amount
type CreditRetiredEvent struct {
	HelperID   *uint
	TransferTx string
	BurnTx     string
	RecordID   uint
	DebtorID   uint
	Amount     uint64
	Deficit    uint64
}

// InconsistentMirrorEvent flags a ledger change that the local store failed
// to record
type InconsistentMirrorEvent struct {
	Operation string
	TxHash    string
	Error     string
	RecordID  uint
}

type ReconcileFindingEvent struct {
	Kind   string
	TxHash string
	Detail string
}

type ReconcileCompletedEvent struct {
	ReportKey string
	Findings  int
}
