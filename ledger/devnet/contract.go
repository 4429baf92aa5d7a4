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

// Package devnet is an in-process credit token contract for development
// and tests. State is kept in badger and transactions are confirmed in
// blocks, either as they arrive or on a fixed interval.
package devnet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/blinklabs-io/canopy/ledger"
	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// FaultFunc can make a contract call fail before it reaches the contract
// state. op is one of "call", "transact" or "receipt"
type FaultFunc func(op string, entryPoint string) error

type Contract struct {
	db            *badger.DB
	logger        *slog.Logger
	fault         FaultFunc
	cancel        context.CancelFunc
	name          string
	owner         string
	pending       []*txRecord
	wg            sync.WaitGroup
	blockInterval time.Duration
	block         uint64
	nonce         uint64
	mu            sync.Mutex
	running       bool
}

var _ ledger.Contract = (*Contract)(nil)

// New opens the contract stored in db, deploying it on first use.
// Transactions that were pending when the contract was last closed are
// queued again
func New(db *badger.DB, opts ...ContractOptionFunc) (*Contract, error) {
	c := &Contract{
		db:   db,
		name: DefaultContractName,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Contract) load() error {
	return c.db.Update(func(txn *badger.Txn) error {
		var meta metaRecord
		found, err := getValue(txn, []byte(keyMeta), &meta)
		if err != nil {
			return err
		}
		if !found {
			owner := c.owner
			if owner == "" {
				owner = NewAddress()
			}
			owner, err = ledger.NormalizeAddress(owner)
			if err != nil {
				return fmt.Errorf("contract owner: %w", err)
			}
			meta = metaRecord{Name: c.name, Owner: owner}
			if err := setValue(txn, []byte(keyMeta), meta); err != nil {
				return err
			}
			c.logger.Info(
				fmt.Sprintf("deployed contract %q", meta.Name),
				"component", "devnet",
				"owner", meta.Owner,
			)
		}
		c.name = meta.Name
		c.owner = meta.Owner
		if c.block, err = getUint(txn, []byte(keyBlock)); err != nil {
			return err
		}
		if c.nonce, err = getUint(txn, []byte(keyNonce)); err != nil {
			return err
		}
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(prefixTx)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rec := &txRecord{}
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, rec)
			})
			if err != nil {
				return fmt.Errorf("decode transaction: %w", err)
			}
			if rec.Status == txPending {
				c.pending = append(c.pending, rec)
			}
		}
		sort.Slice(c.pending, func(i, j int) bool {
			return c.pending[i].Nonce < c.pending[j].Nonce
		})
		return nil
	})
}

// SetFault installs fn to inject failures. A nil fn clears it
func (c *Contract) SetFault(fn FaultFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fault = fn
}

func (c *Contract) checkFault(op string, entryPoint string) error {
	c.mu.Lock()
	fault := c.fault
	c.mu.Unlock()
	if fault == nil {
		return nil
	}
	return fault(op, entryPoint)
}

func (c *Contract) Metadata(ctx context.Context) (ledger.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Metadata{}, err
	}
	return ledger.Metadata{Name: c.name, Owner: c.owner}, nil
}

func (c *Contract) Owner(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.owner, nil
}

// Call runs a read-only entry point against the confirmed state
func (c *Contract) Call(
	ctx context.Context,
	entryPoint string,
	args ...any,
) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.checkFault("call", entryPoint); err != nil {
		return nil, err
	}
	var ret any
	err := c.db.View(func(txn *badger.Txn) error {
		switch entryPoint {
		case ledger.EntryBalanceOf:
			address, err := argAddress(entryPoint, args, 0, 1)
			if err != nil {
				return err
			}
			balance, err := getUint(txn, balanceKey(address))
			ret = balance
			return err
		case ledger.EntryTotalSupply:
			supply, err := getUint(txn, []byte(keySupply))
			ret = supply
			return err
		case ledger.EntryIsEditor:
			address, err := argAddress(entryPoint, args, 0, 1)
			if err != nil {
				return err
			}
			editor, err := isEditor(txn, c.owner, address)
			ret = editor
			return err
		case ledger.EntryGetOwner:
			ret = c.owner
			return nil
		default:
			return &ledger.RevertError{
				EntryPoint: entryPoint,
				Reason:     ledger.ReasonUnknownEntryPoint,
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Transact queues a mutating call. Arguments are checked here, while
// permissions and balances are checked when the block is produced
func (c *Contract) Transact(
	ctx context.Context,
	entryPoint string,
	caller string,
	args ...any,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := c.checkFault("transact", entryPoint); err != nil {
		return "", err
	}
	caller, err := ledger.NormalizeAddress(caller)
	if err != nil {
		return "", &ledger.RevertError{
			EntryPoint: entryPoint,
			Reason:     ledger.ReasonInvalidArguments,
		}
	}
	args, err = normalizeArgs(entryPoint, args)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := &txRecord{
		EntryPoint: entryPoint,
		Caller:     caller,
		Args:       args,
		Nonce:      c.nonce + 1,
		Status:     txPending,
	}
	envelope, err := cbor.Marshal(
		[]any{rec.Nonce, rec.EntryPoint, rec.Caller, rec.Args},
	)
	if err != nil {
		return "", err
	}
	hash := blake2b.Sum256(envelope)
	rec.Hash = "0x" + hex.EncodeToString(hash[:])
	err = c.db.Update(func(txn *badger.Txn) error {
		if err := setValue(txn, []byte(keyNonce), rec.Nonce); err != nil {
			return err
		}
		return setValue(txn, txKey(rec.Hash), rec)
	})
	if err != nil {
		return "", fmt.Errorf("store transaction: %w", err)
	}
	c.nonce = rec.Nonce
	c.pending = append(c.pending, rec)
	if c.blockInterval == 0 {
		if _, err := c.mine(); err != nil {
			return "", err
		}
	}
	return rec.Hash, nil
}

// Receipt returns ledger.ErrReceiptPending until the transaction's block
// has been produced
func (c *Contract) Receipt(
	ctx context.Context,
	txHash string,
) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	if err := c.checkFault("receipt", ""); err != nil {
		return ledger.Receipt{}, err
	}
	var rec txRecord
	err := c.db.View(func(txn *badger.Txn) error {
		found, err := getValue(txn, txKey(txHash), &rec)
		if err != nil {
			return err
		}
		if !found {
			return ledger.ErrUnknownTransaction
		}
		return nil
	})
	if err != nil {
		return ledger.Receipt{}, err
	}
	if rec.Status == txPending {
		return ledger.Receipt{}, ledger.ErrReceiptPending
	}
	return rec.receipt(), nil
}

// Events returns the events emitted from fromBlock on, in block order
func (c *Contract) Events(
	ctx context.Context,
	fromBlock uint64,
) ([]ledger.LogEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.checkFault("call", "events"); err != nil {
		return nil, err
	}
	var ret []ledger.LogEvent
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(prefixEvt)
		for it.Seek(eventKey(fromBlock, 0)); it.ValidForPrefix(prefix); it.Next() {
			var evt ledger.LogEvent
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &evt)
			})
			if err != nil {
				return fmt.Errorf("decode event: %w", err)
			}
			ret = append(ret, evt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Block returns the number of the last produced block
func (c *Contract) Block() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block
}

// PendingCount returns the number of transactions awaiting a block
func (c *Contract) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Mine produces a block holding every pending transaction. It returns the
// new block number, or the current one if nothing was pending
func (c *Contract) Mine() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mine()
}

func (c *Contract) mine() (uint64, error) {
	if len(c.pending) == 0 {
		return c.block, nil
	}
	block := c.block + 1
	done := make([]txRecord, 0, len(c.pending))
	err := c.db.Update(func(txn *badger.Txn) error {
		var index uint32
		for _, pending := range c.pending {
			rec := *pending
			rec.Block = block
			events, reason, err := c.execute(txn, &rec)
			if err != nil {
				return err
			}
			if reason != "" {
				rec.Status = txReverted
				rec.Reason = reason
			} else {
				rec.Status = txSuccess
				for _, evt := range events {
					evt.Block = block
					evt.Index = index
					evt.TxHash = rec.Hash
					if err := setValue(txn, eventKey(block, index), evt); err != nil {
						return err
					}
					index++
				}
			}
			if err := setValue(txn, txKey(rec.Hash), &rec); err != nil {
				return err
			}
			done = append(done, rec)
		}
		return setValue(txn, []byte(keyBlock), block)
	})
	if err != nil {
		return c.block, fmt.Errorf("produce block %d: %w", block, err)
	}
	c.block = block
	c.pending = nil
	for _, rec := range done {
		if rec.Status == txReverted {
			c.logger.Debug(
				fmt.Sprintf("%s reverted in block %d: %s", rec.EntryPoint, block, rec.Reason),
				"component", "devnet",
				"tx_hash", rec.Hash,
			)
		}
	}
	c.logger.Debug(
		fmt.Sprintf("produced block %d with %d transactions", block, len(done)),
		"component", "devnet",
	)
	return block, nil
}

// Start produces blocks on the configured interval until Stop is called or
// ctx is done. It does nothing when the interval is zero
func (c *Contract) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.blockInterval == 0 {
		return nil
	}
	if c.running {
		return errors.New("block production already running")
	}
	c.running = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.runLoop(ctx)
	c.logger.Info(
		fmt.Sprintf("producing blocks every %s", c.blockInterval),
		"component", "devnet",
	)
	return nil
}

// Stop halts block production. Pending transactions stay queued
func (c *Contract) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Contract) runLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.blockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Mine(); err != nil {
				c.logger.Error(
					"block production failed",
					"component", "devnet",
					"error", err,
				)
			}
		}
	}
}

// Revoke removes editor capability from address. It is an administrative
// action outside the contract surface, used to exercise stale grants
func (c *Contract) Revoke(address string) error {
	address, err := ledger.NormalizeAddress(address)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(editorKey(address))
	})
}

// NewAddress returns a random ledger address
func NewAddress() string {
	var buf [20]byte
	_, _ = rand.Read(buf[:])
	return "0x" + hex.EncodeToString(buf[:])
}

// AddressFor derives a stable ledger address from seed
func AddressFor(seed string) string {
	sum := blake2b.Sum256([]byte(seed))
	return "0x" + hex.EncodeToString(sum[:20])
}
