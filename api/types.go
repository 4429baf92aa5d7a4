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
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package api

import (
	"time"

	"github.com/blinklabs-io/canopy/database/models"
)

type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// TransactionResponse is one mirror row. From is empty for a mint and To
// for a burn
type TransactionResponse struct {
	Timestamp time.Time `json:"timestamp"`
	RecordID  *uint     `json:"record_id,omitempty"`
	Kind      string    `json:"kind"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	TxHash    string    `json:"tx_hash"`
	Amount    uint64    `json:"amount"`
}

type ActivityRecordResponse struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `json:"username"`
	Type         string    `json:"type"`
	Description  string    `json:"description"`
	Co2Reduction string    `json:"co2_reduction"`
	State        string    `json:"state"`
	ID           uint      `json:"id"`
}

type BalanceResponse struct {
	Username string `json:"username"`
	Address  string `json:"address"`
	Balance  uint64 `json:"balance"`
}

func newTransactionResponse(tx models.Transaction) TransactionResponse {
	ret := TransactionResponse{
		Timestamp: tx.CreatedAt.UTC(),
		RecordID:  tx.ActivityRecordID,
		Kind:      string(tx.Kind),
		TxHash:    tx.LedgerTxHash,
		Amount:    tx.Amount,
	}
	if tx.FromActor != nil {
		ret.From = tx.FromActor.Username
	}
	if tx.ToActor != nil {
		ret.To = tx.ToActor.Username
	}
	return ret
}

func newActivityRecordResponse(record models.ActivityRecord) ActivityRecordResponse {
	ret := ActivityRecordResponse{
		CreatedAt:    record.CreatedAt.UTC(),
		UpdatedAt:    record.UpdatedAt.UTC(),
		Description:  record.Description,
		Co2Reduction: record.Co2Reduction.String(),
		State:        string(record.State),
		ID:           record.ID,
	}
	if record.Activity != nil {
		ret.Type = record.Activity.Type
	}
	if record.Actor != nil {
		ret.Username = record.Actor.Username
	}
	return ret
}
