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

package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blinklabs-io/canopy/activity"
	"github.com/blinklabs-io/canopy/api"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/identity"
	"github.com/blinklabs-io/canopy/internal/test/testutil"
	"github.com/blinklabs-io/canopy/mirror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentSource(t *testing.T) {
	env := testutil.NewEnv(t)
	tracker := activity.NewTracker(activity.TrackerConfig{Database: env.DB})
	m := mirror.New(env.DB, nil, nil)
	a := env.AddActor(t, "a", models.RoleFarmer)
	env.Fund(t, a.Address, 17)
	_, err := tracker.Submit(
		models.ActivityTypeAction,
		"cover crops",
		a,
		decimal.NewFromInt(4),
	)
	require.NoError(t, err)
	server := httptest.NewServer(api.New(
		api.Config{},
		api.NewComponentSource(identity.NewStoreDirectory(env.DB, nil), tracker, m, env.Gateway),
		nil,
	).Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/actors/a/balance")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var balance api.BalanceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&balance))
	assert.Equal(t, uint64(17), balance.Balance)

	resp2, err := http.Get(server.URL + "/activities/pending")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var records []api.ActivityRecordResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].Username)
	assert.Equal(t, string(models.RecordStatePending), records[0].State)

	resp3, err := http.Get(server.URL + "/actors/nobody/transactions")
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}
