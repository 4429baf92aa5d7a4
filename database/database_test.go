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

package database_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/canopy/database"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/database/plugin/metadata/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	store, err := sqlite.New("", nil, nil)
	require.NoError(t, err)
	db := database.NewWithStores(nil, store, nil)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func addActor(
	t *testing.T,
	db *database.Database,
	username string,
	role models.Role,
	address string,
) models.Actor {
	t.Helper()
	actor := models.Actor{Username: username, Role: role, Address: address}
	require.NoError(t, db.CreateActor(&actor, nil))
	return actor
}

func TestActors(t *testing.T) {
	db := newTestDatabase(t)
	alice := addActor(t, db, "alice", models.RoleFarmer, "0xa1")
	addActor(t, db, "carla", models.RoleCertifier, "0xc1")
	bob := addActor(t, db, "bob", models.RoleFarmer, "0xb1")

	got, err := db.GetActorByUsername("alice", nil)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	got, err = db.GetActorByAddress("0xb1", nil)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)
	_, err = db.GetActor(999, nil)
	require.ErrorIs(t, err, database.ErrActorNotFound)

	farmers, err := db.ListActorsByRole(models.RoleFarmer, nil)
	require.NoError(t, err)
	require.Len(t, farmers, 2)
	assert.Equal(t, "alice", farmers[0].Username)
	assert.Equal(t, "bob", farmers[1].Username)

	// Username is unique
	dup := models.Actor{Username: "alice", Role: models.RoleSeller, Address: "0xa2"}
	require.Error(t, db.CreateActor(&dup, nil))
}

func TestActivityRecordStateChange(t *testing.T) {
	db := newTestDatabase(t)
	alice := addActor(t, db, "alice", models.RoleFarmer, "0xa1")
	activity, err := db.GetOrCreateActivity(models.ActivityTypeAction, "planted trees", nil)
	require.NoError(t, err)
	again, err := db.GetOrCreateActivity(models.ActivityTypeAction, "planted trees", nil)
	require.NoError(t, err)
	assert.Equal(t, activity.ID, again.ID)

	record := models.ActivityRecord{
		ActivityID:   activity.ID,
		ActorID:      alice.ID,
		Description:  "spring planting",
		State:        models.RecordStatePending,
		Co2Reduction: decimal.RequireFromString("42.6"),
	}
	require.NoError(t, db.CreateActivityRecord(&record, nil))
	require.NotZero(t, record.ID)

	got, err := db.GetActivityRecord(record.ID, nil)
	require.NoError(t, err)
	assert.True(t, got.Co2Reduction.Equal(decimal.RequireFromString("42.6")))
	require.NotNil(t, got.Actor)
	assert.Equal(t, "alice", got.Actor.Username)
	require.NotNil(t, got.Activity)
	assert.Equal(t, models.ActivityTypeAction, got.Activity.Type)

	ok, err := db.SetActivityRecordState(record.ID, models.RecordStatePending, models.RecordStateCredited, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	// A second move from PENDING finds nothing to change
	ok, err = db.SetActivityRecordState(record.ID, models.RecordStatePending, models.RecordStateCredited, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	credited, err := db.ListActivityRecords(database.RecordFilter{
		ActorID: &alice.ID,
		State:   models.RecordStateCredited,
	}, nil)
	require.NoError(t, err)
	require.Len(t, credited, 1)
	pending, err := db.ListActivityRecords(database.RecordFilter{State: models.RecordStatePending}, nil)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = db.GetActivityRecord(record.ID+100, nil)
	require.ErrorIs(t, err, database.ErrActivityRecordNotFound)
}

func TestTransactionsOrderingAndUniqueness(t *testing.T) {
	db := newTestDatabase(t)
	alice := addActor(t, db, "alice", models.RoleFarmer, "0xa1")
	bob := addActor(t, db, "bob", models.RoleSeller, "0xb1")
	carol := addActor(t, db, "carol", models.RoleCarrier, "0xc1")

	now := time.Now()
	rows := []models.Transaction{
		{Kind: models.TxKindMint, ToActorID: &alice.ID, Amount: 10, LedgerTxHash: "0x01", CreatedAt: now.Add(-2 * time.Minute)},
		{Kind: models.TxKindTransfer, FromActorID: &bob.ID, ToActorID: &alice.ID, Amount: 3, LedgerTxHash: "0x02", CreatedAt: now.Add(-time.Minute)},
		{Kind: models.TxKindMint, ToActorID: &carol.ID, Amount: 7, LedgerTxHash: "0x03", CreatedAt: now.Add(-time.Minute)},
		{Kind: models.TxKindBurn, FromActorID: &alice.ID, Amount: 13, LedgerTxHash: "0x04", CreatedAt: now},
	}
	for i := range rows {
		require.NoError(t, db.AddTransaction(&rows[i], nil))
	}
	dup := models.Transaction{Kind: models.TxKindMint, ToActorID: &alice.ID, Amount: 1, LedgerTxHash: "0x01"}
	require.ErrorIs(t, db.AddTransaction(&dup, nil), database.ErrDuplicateTxHash)

	forAlice, err := db.ListTransactionsForActor(alice.ID, nil)
	require.NoError(t, err)
	hashes := make([]string, 0, len(forAlice))
	for _, tx := range forAlice {
		hashes = append(hashes, tx.LedgerTxHash)
	}
	assert.Equal(t, []string{"0x04", "0x02", "0x01"}, hashes)

	got, err := db.GetTransactionByHash("0x02", nil)
	require.NoError(t, err)
	require.NotNil(t, got.FromActor)
	assert.Equal(t, "bob", got.FromActor.Username)

	all, err := db.ListTransactions(time.Time{}, nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	// Equal timestamps fall back to descending ID
	assert.Equal(t, "0x03", all[1].LedgerTxHash)
	assert.Equal(t, "0x02", all[2].LedgerTxHash)
}

func TestEditorGrants(t *testing.T) {
	db := newTestDatabase(t)
	_, err := db.GetEditorGrant("0xa1", nil)
	require.ErrorIs(t, err, database.ErrEditorGrantNotFound)
	require.NoError(t, db.SetEditorGrant(&models.EditorGrant{Address: "0xa1", TxHash: "0x10", GrantedAt: time.Now()}, nil))
	require.NoError(t, db.SetEditorGrant(&models.EditorGrant{Address: "0xa1", TxHash: "0x11", GrantedAt: time.Now()}, nil))
	grant, err := db.GetEditorGrant("0xa1", nil)
	require.NoError(t, err)
	assert.Equal(t, "0x11", grant.TxHash)
	require.NoError(t, db.DeleteEditorGrant("0xa1", nil))
	_, err = db.GetEditorGrant("0xa1", nil)
	require.ErrorIs(t, err, database.ErrEditorGrantNotFound)
}

func TestOperations(t *testing.T) {
	db := newTestDatabase(t)
	op := models.Operation{
		ID:               uuid.NewString(),
		ActivityRecordID: 1,
		Leg:              models.TxKindMint,
		Status:           models.OperationStatusSubmitted,
		Amount:           43,
	}
	require.NoError(t, db.CreateOperation(&op, nil))
	dup := models.Operation{
		ID:               uuid.NewString(),
		ActivityRecordID: 1,
		Leg:              models.TxKindMint,
		Status:           models.OperationStatusSubmitted,
	}
	require.ErrorIs(t, db.CreateOperation(&dup, nil), database.ErrDuplicateOperation)

	op.Status = models.OperationStatusConfirmed
	op.LedgerTxHash = "0xabc"
	require.NoError(t, db.UpdateOperation(&op, nil))
	got, err := db.GetOperation(1, models.TxKindMint, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OperationStatusConfirmed, got.Status)
	assert.Equal(t, "0xabc", got.LedgerTxHash)

	stuck, err := db.ListOperations(nil, models.OperationStatusSubmitted, models.OperationStatusConfirmed)
	require.NoError(t, err)
	require.Len(t, stuck, 1)

	require.NoError(t, db.DeleteOperation(op.ID, nil))
	_, err = db.GetOperation(1, models.TxKindMint, nil)
	require.ErrorIs(t, err, database.ErrOperationNotFound)
}

func TestTransactionRollback(t *testing.T) {
	db := newTestDatabase(t)
	err := db.Transaction(func(txn *database.Txn) error {
		actor := models.Actor{Username: "ghost", Role: models.RoleFarmer, Address: "0xdead"}
		if err := db.CreateActor(&actor, txn); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	_, err = db.GetActorByUsername("ghost", nil)
	require.ErrorIs(t, err, database.ErrActorNotFound)
}

func TestTransactionOnCommit(t *testing.T) {
	db := newTestDatabase(t)
	var ran int
	err := db.Transaction(func(txn *database.Txn) error {
		txn.OnCommit(func() { ran++ })
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, ran)
	err = db.Transaction(func(txn *database.Txn) error {
		txn.OnCommit(func() { ran++ })
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
}
