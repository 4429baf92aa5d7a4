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
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/failure"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSource implements Source for testing
type mockSource struct {
	actors     map[string]models.Actor
	txs        []models.Transaction
	records    []models.ActivityRecord
	balance    uint64
	balanceErr error
	lastState  models.RecordState
}

func (m *mockSource) Actor(username string) (models.Actor, error) {
	actor, ok := m.actors[username]
	if !ok {
		return actor, failure.Newf(failure.KindNotFound, "get actor", "no actor %q", username)
	}
	return actor, nil
}

func (m *mockSource) Transactions(models.Actor) ([]models.Transaction, error) {
	return m.txs, nil
}

func (m *mockSource) Records(
	_ models.Actor,
	state models.RecordState,
) ([]models.ActivityRecord, error) {
	m.lastState = state
	if state != "" && !state.Valid() {
		return nil, failure.Newf(failure.KindInvalidArgument, "list", "unknown state %q", state)
	}
	return m.records, nil
}

func (m *mockSource) PendingRecords() ([]models.ActivityRecord, error) {
	return m.records, nil
}

func (m *mockSource) Balance(context.Context, models.Actor) (uint64, error) {
	return m.balance, m.balanceErr
}

func newMockSource() *mockSource {
	alice := models.Actor{ID: 1, Username: "alice", Role: models.RoleFarmer, Address: "0x01"}
	bob := models.Actor{ID: 2, Username: "bob", Role: models.RoleSeller, Address: "0x02"}
	m := &mockSource{
		actors:  map[string]models.Actor{"alice": alice, "bob": bob},
		balance: 42,
	}
	for i := range 3 {
		m.txs = append(m.txs, models.Transaction{
			ID:           uint(3 - i),
			Kind:         models.TxKindMint,
			ToActor:      &alice,
			Amount:       uint64(10 * (3 - i)),
			LedgerTxHash: fmt.Sprintf("0x%02d", 3-i),
			CreatedAt:    time.Date(2026, 1, 3-i, 0, 0, 0, 0, time.UTC),
		})
	}
	m.records = []models.ActivityRecord{
		{
			ID:           1,
			Actor:        &alice,
			Activity:     &models.Activity{Type: models.ActivityTypeAction},
			Description:  "hedgerow planting",
			State:        models.RecordStatePending,
			Co2Reduction: decimal.RequireFromString("12.5"),
		},
	}
	return m
}

func get(t *testing.T, handler http.Handler, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if v != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
	}
	return rec
}

func TestHealth(t *testing.T) {
	s := New(Config{}, newMockSource(), nil)
	var resp HealthResponse
	rec := get(t, s.Handler(), "/healthz", &resp)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.IsHealthy)
}

func TestActorTransactions(t *testing.T) {
	s := New(Config{}, newMockSource(), nil)
	var resp []TransactionResponse
	rec := get(t, s.Handler(), "/actors/alice/transactions", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp, 3)
	assert.Equal(t, "0x03", resp[0].TxHash)
	assert.Equal(t, "alice", resp[0].To)
	assert.Empty(t, resp[0].From)
	assert.Equal(t, "3", rec.Header().Get("X-Pagination-Count-Total"))

	rec = get(t, s.Handler(), "/actors/alice/transactions?order=asc&count=2", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp, 2)
	assert.Equal(t, "0x01", resp[0].TxHash)
	assert.Equal(t, "2", rec.Header().Get("X-Pagination-Page-Total"))
}

func TestActorNotFound(t *testing.T) {
	s := New(Config{}, newMockSource(), nil)
	rec := get(t, s.Handler(), "/actors/carol/transactions", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestActorActivities(t *testing.T) {
	source := newMockSource()
	s := New(Config{}, source, nil)
	var resp []ActivityRecordResponse
	rec := get(t, s.Handler(), "/actors/alice/activities?state=pending", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RecordStatePending, source.lastState)
	require.Len(t, resp, 1)
	assert.Equal(t, "12.5", resp[0].Co2Reduction)
	assert.Equal(t, models.ActivityTypeAction, resp[0].Type)
	assert.Equal(t, "alice", resp[0].Username)

	rec = get(t, s.Handler(), "/actors/alice/activities?state=lost", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = get(t, s.Handler(), "/actors/alice/activities?page=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPendingActivities(t *testing.T) {
	s := New(Config{}, newMockSource(), nil)
	var resp []ActivityRecordResponse
	rec := get(t, s.Handler(), "/activities/pending", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp, 1)
}

func TestActorBalance(t *testing.T) {
	source := newMockSource()
	s := New(Config{}, source, nil)
	var resp BalanceResponse
	rec := get(t, s.Handler(), "/actors/bob/balance", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(42), resp.Balance)
	assert.Equal(t, "0x02", resp.Address)

	source.balanceErr = failure.Newf(failure.KindLedgerCall, "balanceOf", "node unreachable")
	rec = get(t, s.Handler(), "/actors/bob/balance", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStartStop(t *testing.T) {
	s := New(Config{ListenAddress: "127.0.0.1:0"}, newMockSource(), nil)
	require.NoError(t, s.Start(t.Context()))
	addr := s.Addr()
	require.NotEmpty(t, addr)
	assert.Error(t, s.Start(t.Context()))

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	assert.Empty(t, s.Addr())
}
