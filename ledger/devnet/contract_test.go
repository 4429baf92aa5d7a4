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

package devnet_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/blinklabs-io/canopy/database/plugin/blob/badger"
	"github.com/blinklabs-io/canopy/ledger"
	"github.com/blinklabs-io/canopy/ledger/devnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "0x00000000000000000000000000000000000000aa"

func newContract(
	t *testing.T,
	opts ...devnet.ContractOptionFunc,
) *devnet.Contract {
	t.Helper()
	store, err := badger.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	c, err := devnet.New(
		store.DB(),
		append([]devnet.ContractOptionFunc{devnet.WithOwner(owner)}, opts...)...,
	)
	require.NoError(t, err)
	return c
}

func transact(
	t *testing.T,
	c *devnet.Contract,
	entryPoint string,
	caller string,
	args ...any,
) ledger.Receipt {
	t.Helper()
	ctx := context.Background()
	hash, err := c.Transact(ctx, entryPoint, caller, args...)
	require.NoError(t, err)
	receipt, err := c.Receipt(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, hash, receipt.TxHash)
	return receipt
}

func balance(t *testing.T, c *devnet.Contract, address string) uint64 {
	t.Helper()
	ret, err := c.Call(context.Background(), ledger.EntryBalanceOf, address)
	require.NoError(t, err)
	return ret.(uint64)
}

func TestCreditMovements(t *testing.T) {
	c := newContract(t)
	alice := devnet.AddressFor("alice")
	bob := devnet.AddressFor("bob")
	r := transact(t, c, ledger.EntryMint, owner, alice, uint64(10))
	require.True(t, r.Success)
	assert.Equal(t, uint64(1), r.Block)
	r = transact(t, c, ledger.EntryTransferCredits, owner, alice, bob, 4)
	require.True(t, r.Success)
	r = transact(t, c, ledger.EntryBurn, owner, alice, uint64(3))
	require.True(t, r.Success)
	assert.Equal(t, uint64(3), balance(t, c, alice))
	assert.Equal(t, uint64(4), balance(t, c, bob))
	supply, err := c.Call(context.Background(), ledger.EntryTotalSupply)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), supply)
	events, err := c.Events(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, ledger.EventMint, events[0].Name)
	assert.Equal(t, alice, events[0].To)
	assert.Equal(t, ledger.EventTransfer, events[1].Name)
	assert.Equal(t, bob, events[1].To)
	assert.Equal(t, ledger.EventBurn, events[2].Name)
	assert.Equal(t, uint64(3), events[2].Amount)
	later, err := c.Events(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, ledger.EventBurn, later[0].Name)
}

func TestRevertedWritesLeaveState(t *testing.T) {
	c := newContract(t)
	alice := devnet.AddressFor("alice")
	stranger := devnet.AddressFor("stranger")
	r := transact(t, c, ledger.EntryMint, stranger, alice, uint64(5))
	assert.False(t, r.Success)
	assert.Equal(t, ledger.ReasonNotEditor, r.Reason)
	r = transact(t, c, ledger.EntryBurn, owner, alice, uint64(1))
	assert.False(t, r.Success)
	assert.Equal(t, ledger.ReasonInsufficientBalance, r.Reason)
	r = transact(t, c, ledger.EntryAuthorizeEditor, stranger, stranger)
	assert.False(t, r.Success)
	assert.Equal(t, ledger.ReasonNotOwner, r.Reason)
	assert.Equal(t, uint64(0), balance(t, c, alice))
	events, err := c.Events(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOverflowReverts(t *testing.T) {
	c := newContract(t)
	alice := devnet.AddressFor("alice")
	bob := devnet.AddressFor("bob")
	r := transact(t, c, ledger.EntryMint, owner, alice, uint64(math.MaxUint64-1))
	require.True(t, r.Success)
	r = transact(t, c, ledger.EntryMint, owner, bob, uint64(2))
	assert.False(t, r.Success)
	assert.Equal(t, ledger.ReasonOverflow, r.Reason)
	r = transact(t, c, ledger.EntryMint, owner, alice, uint64(2))
	assert.False(t, r.Success)
	assert.Equal(t, ledger.ReasonOverflow, r.Reason)
	r = transact(t, c, ledger.EntryMint, owner, bob, uint64(1))
	require.True(t, r.Success)
	r = transact(t, c, ledger.EntryTransferCredits, owner, alice, alice, uint64(5))
	require.True(t, r.Success)
	assert.Equal(t, uint64(math.MaxUint64-1), balance(t, c, alice))
	assert.Equal(t, uint64(1), balance(t, c, bob))
	supply, err := c.Call(context.Background(), ledger.EntryTotalSupply)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), supply)
	events, err := c.Events(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestAuthorizeEditorIdempotent(t *testing.T) {
	c := newContract(t)
	certifier := devnet.AddressFor("certifier")
	for range 2 {
		r := transact(t, c, ledger.EntryAuthorizeEditor, owner, certifier)
		require.True(t, r.Success)
	}
	ok, err := c.Call(context.Background(), ledger.EntryIsEditor, certifier)
	require.NoError(t, err)
	assert.Equal(t, true, ok)
	events, err := c.Events(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ledger.EventEditorAuthorized, events[0].Name)
	assert.Equal(t, certifier, events[0].Address)
	require.NoError(t, c.Revoke(certifier))
	ok, err = c.Call(context.Background(), ledger.EntryIsEditor, certifier)
	require.NoError(t, err)
	assert.Equal(t, false, ok)
}

func TestInvalidArguments(t *testing.T) {
	c := newContract(t)
	ctx := context.Background()
	_, err := c.Transact(ctx, ledger.EntryMint, owner, "nowhere", uint64(1))
	assert.True(t, ledger.IsRevert(err, ledger.ReasonInvalidArguments))
	_, err = c.Transact(ctx, ledger.EntryMint, owner, devnet.AddressFor("a"))
	assert.True(t, ledger.IsRevert(err, ledger.ReasonInvalidArguments))
	_, err = c.Transact(ctx, "selfdestruct", owner)
	assert.True(t, ledger.IsRevert(err, ledger.ReasonUnknownEntryPoint))
	_, err = c.Call(ctx, "selfdestruct")
	assert.True(t, ledger.IsRevert(err, ledger.ReasonUnknownEntryPoint))
	_, err = c.Receipt(ctx, "0xdeadbeef")
	assert.ErrorIs(t, err, ledger.ErrUnknownTransaction)
}

func TestBlockInterval(t *testing.T) {
	c := newContract(t, devnet.WithBlockInterval(time.Hour))
	ctx := context.Background()
	hash, err := c.Transact(
		ctx,
		ledger.EntryMint,
		owner,
		devnet.AddressFor("alice"),
		uint64(2),
	)
	require.NoError(t, err)
	_, err = c.Receipt(ctx, hash)
	require.ErrorIs(t, err, ledger.ErrReceiptPending)
	assert.Equal(t, 1, c.PendingCount())
	block, err := c.Mine()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), block)
	receipt, err := c.Receipt(ctx, hash)
	require.NoError(t, err)
	assert.True(t, receipt.Success)
	assert.Equal(t, uint64(1), receipt.Block)
	block, err = c.Mine()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), block, "empty pool produces no block")
}

func TestBlockProductionLoop(t *testing.T) {
	c := newContract(t, devnet.WithBlockInterval(10*time.Millisecond))
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	defer c.Stop()
	hash, err := c.Transact(
		ctx,
		ledger.EntryMint,
		owner,
		devnet.AddressFor("alice"),
		uint64(2),
	)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := c.Receipt(ctx, hash)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	c.Stop()
	c.Stop()
}

func TestReopenKeepsStateAndPending(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	alice := devnet.AddressFor("alice")
	store, err := badger.New(badger.WithDataDir(dir))
	require.NoError(t, err)
	c, err := devnet.New(
		store.DB(),
		devnet.WithOwner(owner),
		devnet.WithBlockInterval(time.Hour),
	)
	require.NoError(t, err)
	_, err = c.Transact(ctx, ledger.EntryMint, owner, alice, uint64(3))
	require.NoError(t, err)
	_, err = c.Mine()
	require.NoError(t, err)
	hash, err := c.Transact(ctx, ledger.EntryMint, owner, alice, uint64(4))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = badger.New(badger.WithDataDir(dir))
	require.NoError(t, err)
	defer store.Close()
	c, err = devnet.New(
		store.DB(),
		devnet.WithOwner(devnet.AddressFor("someone else")),
		devnet.WithBlockInterval(time.Hour),
	)
	require.NoError(t, err)
	meta, err := c.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, owner, meta.Owner)
	assert.Equal(t, devnet.DefaultContractName, meta.Name)
	assert.Equal(t, uint64(1), c.Block())
	assert.Equal(t, 1, c.PendingCount())
	_, err = c.Mine()
	require.NoError(t, err)
	receipt, err := c.Receipt(ctx, hash)
	require.NoError(t, err)
	assert.True(t, receipt.Success)
	assert.Equal(t, uint64(7), balance(t, c, alice))
}

func TestFaultInjection(t *testing.T) {
	c := newContract(t)
	boom := errors.New("connection reset")
	c.SetFault(func(op string, entryPoint string) error {
		if op == "transact" && entryPoint == ledger.EntryBurn {
			return boom
		}
		return nil
	})
	_, err := c.Transact(
		context.Background(),
		ledger.EntryBurn,
		owner,
		devnet.AddressFor("alice"),
		uint64(1),
	)
	require.ErrorIs(t, err, boom)
	c.SetFault(nil)
	assert.Equal(t, 0, c.PendingCount())
}
