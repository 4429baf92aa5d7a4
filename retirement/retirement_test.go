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

package retirement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blinklabs-io/canopy/activity"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/event"
	"github.com/blinklabs-io/canopy/failure"
	"github.com/blinklabs-io/canopy/identity"
	"github.com/blinklabs-io/canopy/internal/test/testutil"
	"github.com/blinklabs-io/canopy/ledger"
	"github.com/blinklabs-io/canopy/mirror"
	"github.com/blinklabs-io/canopy/retirement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	*testutil.Env
	tracker   *activity.Tracker
	mirror    *mirror.Mirror
	resolver  *retirement.Resolver
	certifier models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := testutil.NewEnv(t)
	f := &fixture{
		Env:     env,
		tracker: activity.NewTracker(activity.TrackerConfig{Database: env.DB}),
		mirror:  mirror.New(env.DB, nil, nil),
	}
	var err error
	f.resolver, err = retirement.NewResolver(retirement.ResolverConfig{
		Database:     env.DB,
		Gateway:      env.Gateway,
		Directory:    identity.NewStoreDirectory(env.DB, nil),
		Tracker:      f.tracker,
		Mirror:       f.mirror,
		EventBus:     env.EventBus,
		PromRegistry: env.Registry,
	})
	require.NoError(t, err)
	f.certifier = env.AddActor(t, "authority", models.RoleCertifier)
	return f
}

// credited files a claim for actor and certifies it without minting
func (f *fixture) credited(t *testing.T, actor models.Actor) models.ActivityRecord {
	t.Helper()
	record, err := f.tracker.Submit(
		models.ActivityTypeInvestment,
		"solar panels",
		actor,
		decimal.NewFromInt(1),
	)
	require.NoError(t, err)
	record, err = f.tracker.Advance(record.ID)
	require.NoError(t, err)
	require.Equal(t, models.RecordStateCredited, record.State)
	return record
}

func (f *fixture) ledgerEvents(t *testing.T) []ledger.LogEvent {
	t.Helper()
	events, err := f.Gateway.Events(context.Background(), 0)
	require.NoError(t, err)
	return events
}

func (f *fixture) state(t *testing.T, recordID uint) models.RecordState {
	t.Helper()
	record, err := f.tracker.Get(recordID)
	require.NoError(t, err)
	return record.State
}

// The debtor holds 10 of 25. The richest other actor covers the deficit of
// 15 and the debtor burns 25
func TestRetireWithHelper(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.AddActor(t, "b", models.RoleSeller)
	c := f.AddActor(t, "c", models.RoleFarmer)
	d := f.AddActor(t, "d", models.RoleProducer)
	f.Fund(t, b.Address, 10)
	f.Fund(t, c.Address, 5)
	f.Fund(t, d.Address, 30)
	record := f.credited(t, b)
	_, ch := f.EventBus.Subscribe(event.CreditRetiredEventType)

	result, err := f.resolver.Retire(ctx, f.certifier, b, 25, record.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Helper)
	assert.Equal(t, d.ID, result.Helper.ID)
	assert.Equal(t, uint64(15), result.Deficit)
	assert.NotEmpty(t, result.TransferTx)
	assert.NotEmpty(t, result.BurnTx)
	assert.False(t, result.Partial)

	assert.Equal(t, uint64(0), f.Balance(t, b.Address))
	assert.Equal(t, uint64(5), f.Balance(t, c.Address))
	assert.Equal(t, uint64(15), f.Balance(t, d.Address))
	assert.Equal(t, models.RecordStateRetired, f.state(t, record.ID))

	rows, err := f.mirror.ListForActor(b)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Most recent first
	assert.Equal(t, models.TxKindBurn, rows[0].Kind)
	assert.Equal(t, uint64(25), rows[0].Amount)
	assert.Equal(t, result.BurnTx, rows[0].LedgerTxHash)
	assert.Equal(t, models.TxKindTransfer, rows[1].Kind)
	assert.Equal(t, uint64(15), rows[1].Amount)
	require.NotNil(t, rows[1].FromActorID)
	assert.Equal(t, d.ID, *rows[1].FromActorID)
	require.NotNil(t, rows[1].ToActorID)
	assert.Equal(t, b.ID, *rows[1].ToActorID)

	evt := testutil.RequireReceive(t, ch, time.Second, "credit retired")
	retired := evt.Data.(event.CreditRetiredEvent)
	require.NotNil(t, retired.HelperID)
	assert.Equal(t, d.ID, *retired.HelperID)
	assert.Equal(t, uint64(15), retired.Deficit)

	again, err := f.resolver.Retire(ctx, f.certifier, b, 25, record.ID)
	require.NoError(t, err)
	assert.True(t, again.Resumed)
	assert.Equal(t, result.BurnTx, again.BurnTx)
	assert.Equal(t, uint64(15), f.Balance(t, d.Address))
}

// The debtor holds 10 of 25 and neither candidate can cover the deficit of
// 15, so nothing moves on the ledger
func TestRetireInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.AddActor(t, "b", models.RoleSeller)
	c := f.AddActor(t, "c", models.RoleFarmer)
	d := f.AddActor(t, "d", models.RoleCarrier)
	f.Fund(t, b.Address, 10)
	f.Fund(t, c.Address, 5)
	f.Fund(t, d.Address, 5)
	record := f.credited(t, b)
	before := len(f.ledgerEvents(t))

	_, err := f.resolver.Retire(ctx, f.certifier, b, 25, record.ID)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindInsufficientFunds))
	assert.True(t, errors.Is(err, failure.ErrInsufficientFunds))
	assert.Len(t, f.ledgerEvents(t), before)
	assert.Equal(t, models.RecordStateCredited, f.state(t, record.ID))
	assert.Equal(t, uint64(10), f.Balance(t, b.Address))
	assert.Equal(t, uint64(5), f.Balance(t, c.Address))
	assert.Equal(t, uint64(5), f.Balance(t, d.Address))
	rows, err := f.mirror.ListAll()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRetireDirectBurn(t *testing.T) {
	f := newFixture(t)
	b := f.AddActor(t, "b", models.RoleSeller)
	d := f.AddActor(t, "d", models.RoleProducer)
	f.Fund(t, b.Address, 40)
	f.Fund(t, d.Address, 100)
	record := f.credited(t, b)
	_, ch := f.EventBus.Subscribe(event.CreditRetiredEventType)

	result, err := f.resolver.Retire(context.Background(), f.certifier, b, 25, record.ID)
	require.NoError(t, err)
	assert.Nil(t, result.Helper)
	assert.Zero(t, result.Deficit)
	assert.Empty(t, result.TransferTx)
	assert.Equal(t, uint64(15), f.Balance(t, b.Address))
	assert.Equal(t, uint64(100), f.Balance(t, d.Address))
	evt := testutil.RequireReceive(t, ch, time.Second, "credit retired")
	assert.Nil(t, evt.Data.(event.CreditRetiredEvent).HelperID)
	rows, err := f.mirror.ListAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.TxKindBurn, rows[0].Kind)
}

// Two candidates hold the same balance, the lower ID is picked. Certifiers
// never help
func TestPlanHelperSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.AddActor(t, "b", models.RoleSeller)
	c := f.AddActor(t, "c", models.RoleProducer)
	d := f.AddActor(t, "d", models.RoleFarmer)
	e := f.AddActor(t, "e", models.RoleCarrier)
	f.Fund(t, f.certifier.Address, 1000)
	f.Fund(t, c.Address, 30)
	f.Fund(t, d.Address, 30)
	f.Fund(t, e.Address, 12)

	plan, err := f.resolver.Plan(ctx, b, 20)
	require.NoError(t, err)
	assert.True(t, plan.Covered())
	assert.Equal(t, uint64(20), plan.Deficit)
	require.NotNil(t, plan.Helper)
	assert.Equal(t, c.ID, plan.Helper.ID)
	assert.Equal(t, uint64(30), plan.HelperBalance)

	f.Fund(t, d.Address, 1)
	plan, err = f.resolver.Plan(ctx, b, 20)
	require.NoError(t, err)
	require.NotNil(t, plan.Helper)
	assert.Equal(t, d.ID, plan.Helper.ID)

	plan, err = f.resolver.Plan(ctx, b, 40)
	require.NoError(t, err)
	assert.False(t, plan.Covered())
	assert.Nil(t, plan.Helper)

	// Planning is read only
	assert.Equal(t, uint64(0), f.Balance(t, b.Address))
	assert.Equal(t, uint64(30), f.Balance(t, c.Address))
}

// The transfer lands and the burn fails. The retirement is reported as
// partial and running it again only burns
func TestRetirePartialSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.AddActor(t, "b", models.RoleSeller)
	d := f.AddActor(t, "d", models.RoleProducer)
	f.Fund(t, b.Address, 10)
	f.Fund(t, d.Address, 30)
	record := f.credited(t, b)
	f.Contract.SetFault(func(op string, entryPoint string) error {
		if op == "transact" && entryPoint == ledger.EntryBurn {
			return assert.AnError
		}
		return nil
	})

	_, err := f.resolver.Retire(ctx, f.certifier, b, 25, record.ID)
	require.Error(t, err)
	var partialErr *retirement.PartialSuccessError
	require.ErrorAs(t, err, &partialErr)
	assert.True(t, partialErr.Result.Partial)
	assert.NotEmpty(t, partialErr.Result.TransferTx)
	assert.True(t, failure.Is(err, failure.KindLedgerCall))
	assert.Equal(t, uint64(25), f.Balance(t, b.Address))
	assert.Equal(t, uint64(15), f.Balance(t, d.Address))
	assert.Equal(t, models.RecordStateCredited, f.state(t, record.ID))
	rows, err := f.mirror.ListAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.TxKindTransfer, rows[0].Kind)

	f.Contract.SetFault(nil)
	result, err := f.resolver.Retire(ctx, f.certifier, b, 25, record.ID)
	require.NoError(t, err)
	assert.True(t, result.Resumed)
	assert.Equal(t, partialErr.Result.TransferTx, result.TransferTx)
	assert.Equal(t, uint64(0), f.Balance(t, b.Address))
	assert.Equal(t, uint64(15), f.Balance(t, d.Address))
	assert.Equal(t, models.RecordStateRetired, f.state(t, record.ID))
	rows, err = f.mirror.ListAll()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRetireValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.AddActor(t, "b", models.RoleSeller)
	c := f.AddActor(t, "c", models.RoleFarmer)
	f.Fund(t, b.Address, 50)
	record := f.credited(t, b)
	_, err := f.resolver.Retire(ctx, f.certifier, b, 0, record.ID)
	assert.True(t, failure.Is(err, failure.KindInvalidArgument))
	_, err = f.resolver.Retire(ctx, c, b, 5, record.ID)
	assert.True(t, failure.Is(err, failure.KindInvalidArgument))
	_, err = f.resolver.Retire(ctx, f.certifier, c, 5, record.ID)
	assert.True(t, failure.Is(err, failure.KindInvalidArgument))
	_, err = f.resolver.Retire(ctx, f.certifier, b, 5, 404)
	assert.True(t, failure.Is(err, failure.KindNotFound))
	pending, err := f.tracker.Submit(
		models.ActivityTypeAction,
		"composting",
		b,
		decimal.NewFromInt(3),
	)
	require.NoError(t, err)
	_, err = f.resolver.Retire(ctx, f.certifier, b, 5, pending.ID)
	assert.True(t, failure.Is(err, failure.KindInvalidStateTransition))
	assert.Equal(t, uint64(50), f.Balance(t, b.Address))
}
