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

package saga_test

import (
	"context"
	"testing"

	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/failure"
	"github.com/blinklabs-io/canopy/internal/saga"
	"github.com/blinklabs-io/canopy/internal/test/testutil"
	"github.com/blinklabs-io/canopy/ledger"
	"github.com/blinklabs-io/canopy/ledger/devnet"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mintCall(env *testutil.Env, to string, amount uint64) saga.Call {
	return saga.Call{
		EntryPoint: ledger.EntryMint,
		Caller:     env.Owner,
		ToAddress:  to,
		Args:       []any{to, amount},
		Amount:     amount,
	}
}

func TestRunConfirmsOnce(t *testing.T) {
	env := testutil.NewEnv(t)
	log := saga.NewLog(env.DB, env.Gateway, nil)
	ctx := context.Background()
	to := devnet.AddressFor("farmer")
	out, err := log.Run(ctx, 1, models.TxKindMint, mintCall(env, to, 5))
	require.NoError(t, err)
	assert.False(t, out.Resumed)
	assert.True(t, out.Receipt.Success)
	assert.Equal(t, models.OperationStatusConfirmed, out.Operation.Status)
	assert.Equal(t, out.Receipt.TxHash, out.Operation.LedgerTxHash)
	again, err := log.Run(ctx, 1, models.TxKindMint, mintCall(env, to, 5))
	require.NoError(t, err)
	assert.True(t, again.Resumed)
	assert.False(t, again.Mirrored)
	assert.Equal(t, out.Operation.ID, again.Operation.ID)
	assert.Equal(t, uint64(5), env.Balance(t, to))
	op := again.Operation
	require.NoError(t, log.MarkMirrored(&op, nil))
	mirrored, err := log.Run(ctx, 1, models.TxKindMint, mintCall(env, to, 5))
	require.NoError(t, err)
	assert.True(t, mirrored.Mirrored)
	assert.Equal(t, uint64(5), env.Balance(t, to))
}

func TestRunRetriesFailedLeg(t *testing.T) {
	env := testutil.NewEnv(t)
	log := saga.NewLog(env.DB, env.Gateway, nil)
	ctx := context.Background()
	from := devnet.AddressFor("debtor")
	burn := saga.Call{
		EntryPoint:  ledger.EntryBurn,
		Caller:      env.Owner,
		FromAddress: from,
		Args:        []any{from, uint64(3)},
		Amount:      3,
	}
	_, err := log.Run(ctx, 2, models.TxKindBurn, burn)
	require.Error(t, err)
	assert.True(t, ledger.IsRevert(err, ledger.ReasonInsufficientBalance))
	op, found, err := log.Lookup(2, models.TxKindBurn)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.OperationStatusFailed, op.Status)
	assert.NotEmpty(t, op.Error)
	env.Fund(t, from, 3)
	out, err := log.Run(ctx, 2, models.TxKindBurn, burn)
	require.NoError(t, err)
	assert.NotEqual(t, op.ID, out.Operation.ID)
	assert.Equal(t, uint64(0), env.Balance(t, from))
}

func TestRunResumesSubmittedLeg(t *testing.T) {
	env := testutil.NewEnv(t)
	log := saga.NewLog(env.DB, env.Gateway, nil)
	ctx := context.Background()
	to := devnet.AddressFor("farmer")
	call := mintCall(env, to, 8)
	// Simulate a crash after submission: the row holds the hash only
	pending, err := env.Gateway.Submit(ctx, call.EntryPoint, call.Caller, call.Args...)
	require.NoError(t, err)
	require.NoError(t, env.DB.CreateOperation(&models.Operation{
		ID:               uuid.NewString(),
		ActivityRecordID: 3,
		Leg:              models.TxKindMint,
		Status:           models.OperationStatusSubmitted,
		LedgerTxHash:     pending.TxHash,
		Amount:           8,
	}, nil))
	out, err := log.Run(ctx, 3, models.TxKindMint, call)
	require.NoError(t, err)
	assert.True(t, out.Resumed)
	assert.Equal(t, pending.TxHash, out.Receipt.TxHash)
	assert.Equal(t, uint64(8), env.Balance(t, to))
}

func TestRunFlagsUnknownSubmission(t *testing.T) {
	env := testutil.NewEnv(t)
	log := saga.NewLog(env.DB, env.Gateway, nil)
	require.NoError(t, env.DB.CreateOperation(&models.Operation{
		ID:               uuid.NewString(),
		ActivityRecordID: 4,
		Leg:              models.TxKindMint,
		Status:           models.OperationStatusSubmitted,
	}, nil))
	_, err := log.Run(
		context.Background(),
		4,
		models.TxKindMint,
		mintCall(env, devnet.AddressFor("farmer"), 1),
	)
	assert.True(t, failure.Is(err, failure.KindInconsistentMirror))
}
