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
	"fmt"

	"github.com/blinklabs-io/canopy/failure"
)

// BalanceOf returns the credit balance held by address
func (g *Gateway) BalanceOf(ctx context.Context, address string) (uint64, error) {
	address, err := NormalizeAddress(address)
	if err != nil {
		return 0, failure.New(failure.KindInvalidArgument, EntryBalanceOf, err)
	}
	ret, err := g.Read(ctx, EntryBalanceOf, address)
	if err != nil {
		return 0, err
	}
	balance, err := ToUint64(ret)
	if err != nil {
		return 0, failure.New(failure.KindLedgerCall, EntryBalanceOf, err)
	}
	return balance, nil
}

func (g *Gateway) TotalSupply(ctx context.Context) (uint64, error) {
	ret, err := g.Read(ctx, EntryTotalSupply)
	if err != nil {
		return 0, err
	}
	supply, err := ToUint64(ret)
	if err != nil {
		return 0, failure.New(failure.KindLedgerCall, EntryTotalSupply, err)
	}
	return supply, nil
}

func (g *Gateway) IsEditor(ctx context.Context, address string) (bool, error) {
	address, err := NormalizeAddress(address)
	if err != nil {
		return false, failure.New(failure.KindInvalidArgument, EntryIsEditor, err)
	}
	ret, err := g.Read(ctx, EntryIsEditor, address)
	if err != nil {
		return false, err
	}
	isEditor, ok := ret.(bool)
	if !ok {
		return false, failure.New(
			failure.KindLedgerCall,
			EntryIsEditor,
			fmt.Errorf("unexpected value %v (%T)", ret, ret),
		)
	}
	return isEditor, nil
}

// Mint creates amount credits for to, acting as caller
func (g *Gateway) Mint(
	ctx context.Context,
	caller string,
	to string,
	amount uint64,
) (Receipt, error) {
	to, err := NormalizeAddress(to)
	if err != nil {
		return Receipt{}, failure.New(failure.KindInvalidArgument, EntryMint, err)
	}
	return g.WriteAuthorized(ctx, EntryMint, caller, to, amount)
}

// Burn destroys amount credits held by from, acting as caller
func (g *Gateway) Burn(
	ctx context.Context,
	caller string,
	from string,
	amount uint64,
) (Receipt, error) {
	from, err := NormalizeAddress(from)
	if err != nil {
		return Receipt{}, failure.New(failure.KindInvalidArgument, EntryBurn, err)
	}
	return g.WriteAuthorized(ctx, EntryBurn, caller, from, amount)
}

// TransferCredits moves amount credits from one holder to another, acting
// as caller
func (g *Gateway) TransferCredits(
	ctx context.Context,
	caller string,
	from string,
	to string,
	amount uint64,
) (Receipt, error) {
	from, err := NormalizeAddress(from)
	if err != nil {
		return Receipt{}, failure.New(
			failure.KindInvalidArgument,
			EntryTransferCredits,
			err,
		)
	}
	to, err = NormalizeAddress(to)
	if err != nil {
		return Receipt{}, failure.New(
			failure.KindInvalidArgument,
			EntryTransferCredits,
			err,
		)
	}
	return g.WriteAuthorized(ctx, EntryTransferCredits, caller, from, to, amount)
}
