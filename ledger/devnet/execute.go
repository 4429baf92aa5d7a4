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

package devnet

import (
	"math"

	"github.com/blinklabs-io/canopy/ledger"
	"github.com/dgraph-io/badger/v4"
)

// argument count per mutating entry point
var writeArity = map[string]int{
	ledger.EntryAuthorizeEditor: 1,
	ledger.EntryMint:            2,
	ledger.EntryBurn:            2,
	ledger.EntryTransferCredits: 3,
}

func invalidArgs(entryPoint string) error {
	return &ledger.RevertError{
		EntryPoint: entryPoint,
		Reason:     ledger.ReasonInvalidArguments,
	}
}

func argAddress(entryPoint string, args []any, idx int, arity int) (string, error) {
	if len(args) != arity {
		return "", invalidArgs(entryPoint)
	}
	s, ok := args[idx].(string)
	if !ok {
		return "", invalidArgs(entryPoint)
	}
	address, err := ledger.NormalizeAddress(s)
	if err != nil {
		return "", invalidArgs(entryPoint)
	}
	return address, nil
}

// normalizeArgs checks the argument shape of a mutating call and returns
// addresses lower-cased and amounts as uint64
func normalizeArgs(entryPoint string, args []any) ([]any, error) {
	arity, ok := writeArity[entryPoint]
	if !ok {
		return nil, &ledger.RevertError{
			EntryPoint: entryPoint,
			Reason:     ledger.ReasonUnknownEntryPoint,
		}
	}
	if len(args) != arity {
		return nil, invalidArgs(entryPoint)
	}
	ret := make([]any, arity)
	for i := range arity {
		if entryPoint != ledger.EntryAuthorizeEditor && i == arity-1 {
			amount, err := ledger.ToUint64(args[i])
			if err != nil {
				return nil, invalidArgs(entryPoint)
			}
			ret[i] = amount
			continue
		}
		address, err := argAddress(entryPoint, args, i, arity)
		if err != nil {
			return nil, err
		}
		ret[i] = address
	}
	return ret, nil
}

// execute applies a transaction to the state in txn. A non-empty reason
// means the transaction reverted and nothing was changed
func (c *Contract) execute(
	txn *badger.Txn,
	rec *txRecord,
) ([]ledger.LogEvent, string, error) {
	if rec.EntryPoint == ledger.EntryAuthorizeEditor {
		if rec.Caller != c.owner {
			return nil, ledger.ReasonNotOwner, nil
		}
		address, _ := rec.Args[0].(string)
		already, err := isEditor(txn, c.owner, address)
		if err != nil || already {
			return nil, "", err
		}
		if err := txn.Set(editorKey(address), []byte{1}); err != nil {
			return nil, "", err
		}
		return []ledger.LogEvent{
			{Name: ledger.EventEditorAuthorized, Address: address},
		}, "", nil
	}
	editor, err := isEditor(txn, c.owner, rec.Caller)
	if err != nil {
		return nil, "", err
	}
	if !editor {
		return nil, ledger.ReasonNotEditor, nil
	}
	amount, _ := ledger.ToUint64(rec.Args[len(rec.Args)-1])
	if amount == 0 {
		return nil, ledger.ReasonInvalidAmount, nil
	}
	supply, err := getUint(txn, []byte(keySupply))
	if err != nil {
		return nil, "", err
	}
	switch rec.EntryPoint {
	case ledger.EntryMint:
		to, _ := rec.Args[0].(string)
		balance, err := getUint(txn, balanceKey(to))
		if err != nil {
			return nil, "", err
		}
		if amount > math.MaxUint64-supply || amount > math.MaxUint64-balance {
			return nil, ledger.ReasonOverflow, nil
		}
		if err := setValue(txn, balanceKey(to), balance+amount); err != nil {
			return nil, "", err
		}
		if err := setValue(txn, []byte(keySupply), supply+amount); err != nil {
			return nil, "", err
		}
		return []ledger.LogEvent{
			{Name: ledger.EventMint, To: to, Amount: amount},
		}, "", nil
	case ledger.EntryBurn:
		from, _ := rec.Args[0].(string)
		balance, err := getUint(txn, balanceKey(from))
		if err != nil {
			return nil, "", err
		}
		if balance < amount {
			return nil, ledger.ReasonInsufficientBalance, nil
		}
		if err := setValue(txn, balanceKey(from), balance-amount); err != nil {
			return nil, "", err
		}
		if err := setValue(txn, []byte(keySupply), supply-amount); err != nil {
			return nil, "", err
		}
		return []ledger.LogEvent{
			{Name: ledger.EventBurn, From: from, Amount: amount},
		}, "", nil
	case ledger.EntryTransferCredits:
		from, _ := rec.Args[0].(string)
		to, _ := rec.Args[1].(string)
		fromBalance, err := getUint(txn, balanceKey(from))
		if err != nil {
			return nil, "", err
		}
		if fromBalance < amount {
			return nil, ledger.ReasonInsufficientBalance, nil
		}
		toBalance, err := getUint(txn, balanceKey(to))
		if err != nil {
			return nil, "", err
		}
		if to == from {
			toBalance = fromBalance - amount
		}
		if amount > math.MaxUint64-toBalance {
			return nil, ledger.ReasonOverflow, nil
		}
		if err := setValue(txn, balanceKey(from), fromBalance-amount); err != nil {
			return nil, "", err
		}
		if err := setValue(txn, balanceKey(to), toBalance+amount); err != nil {
			return nil, "", err
		}
		return []ledger.LogEvent{
			{Name: ledger.EventTransfer, From: from, To: to, Amount: amount},
		}, "", nil
	}
	return nil, ledger.ReasonUnknownEntryPoint, nil
}
