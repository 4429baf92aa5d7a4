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

package canopy_test

import (
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/canopy"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/failure"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openEngine(t *testing.T, dataDir string, opts ...canopy.ConfigOptionFunc) *canopy.Engine {
	t.Helper()
	e, err := canopy.Open(
		context.Background(),
		canopy.NewConfig(
			append(
				[]canopy.ConfigOptionFunc{
					canopy.WithDatabasePath(dataDir),
					canopy.WithPollInterval(time.Millisecond),
					canopy.WithConfirmTimeout(5 * time.Second),
				},
				opts...,
			)...,
		),
	)
	require.NoError(t, err)
	return e
}

func TestEngineLifecycle(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	e := openEngine(t, dataDir)
	_, err := e.RegisterActor("authority", models.RoleCertifier, "")
	require.NoError(t, err)
	_, err = e.RegisterActor("a", models.RoleFarmer, "")
	require.NoError(t, err)
	record, err := e.SubmitActivity(
		models.ActivityTypeAction,
		"riparian buffer",
		"a",
		decimal.RequireFromString("42.6"),
	)
	require.NoError(t, err)

	_, err = e.Mint(ctx, "a", record.ID)
	assert.True(t, failure.Is(err, failure.KindInvalidArgument))
	minted, err := e.Mint(ctx, "authority", record.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(43), minted.Amount)

	plan, err := e.Plan(ctx, "a", 40)
	require.NoError(t, err)
	assert.Zero(t, plan.Deficit)
	retired, err := e.Retire(ctx, "authority", record.ID, 40)
	require.NoError(t, err)
	assert.Nil(t, retired.Helper)
	balance, err := e.Balance(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), balance)
	txs, err := e.Transactions("a")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TxKindBurn, txs[0].Kind)

	report, err := e.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Findings)
	assert.Equal(t, 2, report.LedgerEvents)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	// Ledger state and records survive a restart
	e = openEngine(t, dataDir)
	defer e.Close()
	balance, err = e.Balance(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), balance)
	got, err := e.Tracker().Get(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordStateRetired, got.State)
}

func TestEngineServe(t *testing.T) {
	e := openEngine(
		t,
		t.TempDir(),
		canopy.WithApiListenAddress("127.0.0.1:0"),
		canopy.WithReconcileInterval(10*time.Millisecond),
		canopy.WithDevnetBlockInterval(5*time.Millisecond),
	)
	defer e.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Serve(ctx)
	}()
	require.Eventually(t, func() bool {
		return e.API().Addr() != ""
	}, time.Second, 5*time.Millisecond)

	// Writes confirm through block production
	_, err := e.RegisterActor("authority", models.RoleCertifier, "")
	require.NoError(t, err)
	_, err = e.RegisterActor("b", models.RoleSeller, "")
	require.NoError(t, err)
	record, err := e.SubmitActivity(models.ActivityTypeInvestment, "wind", "b", decimal.NewFromInt(8))
	require.NoError(t, err)
	_, err = e.Mint(ctx, "authority", record.ID)
	require.NoError(t, err)
	assert.Positive(t, e.Devnet().Block())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}
}

func TestEngineInvalidConfig(t *testing.T) {
	_, err := canopy.Open(
		context.Background(),
		canopy.NewConfig(canopy.WithDevnetOwner("not an address")),
	)
	require.Error(t, err)
	_, err = canopy.Open(
		context.Background(),
		canopy.NewConfig(canopy.WithReconcileInterval(-time.Second)),
	)
	require.Error(t, err)
}
