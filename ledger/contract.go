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

package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Contract entry points
const (
	EntryBalanceOf       = "balanceOf"
	EntryTotalSupply     = "totalSupply"
	EntryIsEditor        = "isEditor"
	EntryGetOwner        = "getOwner"
	EntryAuthorizeEditor = "authorizeEditor"
	EntryMint            = "mint"
	EntryBurn            = "burn"
	EntryTransferCredits = "transferCredits"
)

// Contract event names
const (
	EventMint             = "Mint"
	EventBurn             = "Burn"
	EventTransfer         = "Transfer"
	EventEditorAuthorized = "EditorAuthorized"
)

// Revert reasons reported by the credit token contract
const (
	ReasonNotOwner            = "caller is not the owner"
	ReasonNotEditor           = "caller is not an editor"
	ReasonInsufficientBalance = "insufficient balance"
	ReasonInvalidAmount       = "amount must be positive"
	ReasonOverflow            = "amount overflows balance or supply"
	ReasonInvalidArguments    = "invalid arguments"
	ReasonUnknownEntryPoint   = "unknown entry point"
)

// ErrReceiptPending is returned by Contract.Receipt until the transaction
// has been included in a block
var ErrReceiptPending = errors.New("receipt pending")

// ErrUnknownTransaction is returned by Contract.Receipt for a hash the
// ledger has never seen
var ErrUnknownTransaction = errors.New("unknown transaction")

// RevertError is a contract-level rejection. It is deterministic, so it is
// never retried
type RevertError struct {
	EntryPoint string
	Reason     string
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("%s reverted: %s", e.EntryPoint, e.Reason)
}

// IsRevert reports whether err is a contract revert, optionally with one of
// the given reasons
func IsRevert(err error, reasons ...string) bool {
	var revertErr *RevertError
	if !errors.As(err, &revertErr) {
		return false
	}
	if len(reasons) == 0 {
		return true
	}
	for _, reason := range reasons {
		if revertErr.Reason == reason {
			return true
		}
	}
	return false
}

// Receipt is the outcome of a confirmed transaction
type Receipt struct {
	TxHash  string
	Reason  string
	Block   uint64
	Success bool
}

// LogEvent is one entry of the contract's event history. Address is set for
// EditorAuthorized, From and To for the credit movements
type LogEvent struct {
	Name    string
	TxHash  string
	From    string
	To      string
	Address string
	Block   uint64
	Index   uint32
	Amount  uint64
}

// Metadata describes a deployed contract
type Metadata struct {
	Name  string
	Owner string
}

// Contract is a deployed credit token contract
type Contract interface {
	Metadata(ctx context.Context) (Metadata, error)
	Owner(ctx context.Context) (string, error)
	// Call runs a non-mutating entry point
	Call(ctx context.Context, entryPoint string, args ...any) (any, error)
	// Transact submits a mutating call and returns its transaction hash
	// without waiting for confirmation
	Transact(
		ctx context.Context,
		entryPoint string,
		caller string,
		args ...any,
	) (string, error)
	// Receipt returns ErrReceiptPending until the transaction is confirmed
	Receipt(ctx context.Context, txHash string) (Receipt, error)
	// Events returns the event history from fromBlock on, in ledger order
	Events(ctx context.Context, fromBlock uint64) ([]LogEvent, error)
}

// NormalizeAddress lower-cases a hex address and checks its form: 0x
// followed by 40 hex digits
func NormalizeAddress(address string) (string, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if len(address) != 42 || !strings.HasPrefix(address, "0x") {
		return "", fmt.Errorf("invalid ledger address: %q", address)
	}
	for _, c := range address[2:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("invalid ledger address: %q", address)
		}
	}
	return address, nil
}

// ToUint64 converts a numeric result of Call
func ToUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case uint:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case int:
		if n >= 0 {
			return uint64(n), nil
		}
	case int64:
		if n >= 0 {
			return uint64(n), nil
		}
	}
	return 0, fmt.Errorf("unexpected numeric value %v (%T)", v, v)
}
