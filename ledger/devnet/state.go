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
	"errors"
	"fmt"

	"github.com/blinklabs-io/canopy/ledger"
	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

const (
	keyMeta    = "meta"
	keyBlock   = "state/block"
	keyNonce   = "state/nonce"
	keySupply  = "state/supply"
	prefixBal  = "bal/"
	prefixEd   = "editor/"
	prefixTx   = "tx/"
	prefixEvt  = "evt/"
	txPending  = "pending"
	txSuccess  = "success"
	txReverted = "reverted"
)

type metaRecord struct {
	Name  string
	Owner string
}

// txRecord is a submitted transaction and, once its block is produced, its
// outcome
type txRecord struct {
	Hash       string
	EntryPoint string
	Caller     string
	Status     string
	Reason     string
	Args       []any
	Nonce      uint64
	Block      uint64
}

func (r *txRecord) receipt() ledger.Receipt {
	return ledger.Receipt{
		TxHash:  r.Hash,
		Block:   r.Block,
		Success: r.Status == txSuccess,
		Reason:  r.Reason,
	}
}

func balanceKey(address string) []byte {
	return []byte(prefixBal + address)
}

func editorKey(address string) []byte {
	return []byte(prefixEd + address)
}

func txKey(hash string) []byte {
	return []byte(prefixTx + hash)
}

func eventKey(block uint64, index uint32) []byte {
	return fmt.Appendf(nil, "%s%016x/%08x", prefixEvt, block, index)
}

func getValue(txn *badger.Txn, key []byte, dest any) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	err = item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, dest)
	})
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func setValue(txn *badger.Txn, key []byte, val any) error {
	data, err := cbor.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func getUint(txn *badger.Txn, key []byte) (uint64, error) {
	var ret uint64
	_, err := getValue(txn, key, &ret)
	return ret, err
}

func isEditor(txn *badger.Txn, owner string, address string) (bool, error) {
	if address == owner {
		return true, nil
	}
	_, err := txn.Get(editorKey(address))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}
