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

package activity_test

import (
	"math"
	"testing"
	"time"

	"github.com/blinklabs-io/canopy/activity"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/event"
	"github.com/blinklabs-io/canopy/failure"
	"github.com/blinklabs-io/canopy/internal/test/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) (*testutil.Env, *activity.Tracker) {
	t.Helper()
	env := testutil.NewEnv(t)
	return env, activity.NewTracker(activity.TrackerConfig{
		Database:     env.DB,
		EventBus:     env.EventBus,
		PromRegistry: env.Registry,
	})
}

func TestSubmitCreatesPendingRecord(t *testing.T) {
	env, tracker := newTracker(t)
	farmer := env.AddActor(t, "farmer", models.RoleFarmer)
	_, ch := env.EventBus.Subscribe(event.RecordSubmittedEventType)
	record, err := tracker.Submit(
		models.ActivityTypeAction,
		"no-till planting",
		farmer,
		decimal.RequireFromString("42.6"),
	)
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatePending, record.State)
	assert.Equal(t, farmer.ID, record.ActorID)
	require.NotNil(t, record.Activity)
	assert.Equal(t, models.ActivityTypeAction, record.Activity.Type)
	assert.True(t, record.Co2Reduction.Equal(decimal.RequireFromString("42.6")))
	evt := testutil.RequireReceive(t, ch, time.Second, "submitted event")
	data := evt.Data.(event.RecordSubmittedEvent)
	assert.Equal(t, record.ID, data.RecordID)
	activities, err := tracker.ListActivities()
	require.NoError(t, err)
	assert.Len(t, activities, 1)
}

func TestSubmitValidation(t *testing.T) {
	env, tracker := newTracker(t)
	farmer := env.AddActor(t, "farmer", models.RoleFarmer)
	_, err := tracker.Submit("", "x", farmer, decimal.NewFromInt(1))
	assert.True(t, failure.Is(err, failure.KindInvalidArgument))
	_, err = tracker.Submit(
		models.ActivityTypeAction,
		"x",
		farmer,
		decimal.NewFromInt(-1),
	)
	assert.True(t, failure.Is(err, failure.KindInvalidArgument))
	for _, co2 := range []string{"0", "0.4", "2e19", "1e30"} {
		_, err = tracker.Submit(
			models.ActivityTypeAction,
			"x",
			farmer,
			decimal.RequireFromString(co2),
		)
		assert.True(t, failure.Is(err, failure.KindInvalidArgument), co2)
	}
	pending, err := tracker.ListPending()
	require.NoError(t, err)
	assert.Empty(t, pending)
	_, err = tracker.Submit(
		models.ActivityTypeAction,
		"x",
		models.Actor{ID: 404},
		decimal.NewFromInt(1),
	)
	assert.True(t, failure.Is(err, failure.KindNotFound))
}

func TestCreditAmount(t *testing.T) {
	tests := []struct {
		co2     string
		want    uint64
		invalid bool
	}{
		{co2: "42.6", want: 43},
		{co2: "42.5", want: 43},
		{co2: "42.4", want: 42},
		{co2: "0.5", want: 1},
		{co2: "18446744073709551615", want: math.MaxUint64},
		{co2: "18446744073709551614.5", want: math.MaxUint64},
		{co2: "0.4", invalid: true},
		{co2: "0", invalid: true},
		{co2: "-3", invalid: true},
		{co2: "18446744073709551615.5", invalid: true},
		{co2: "2e19", invalid: true},
		{co2: "1e30", invalid: true},
	}
	for _, tc := range tests {
		got, err := activity.CreditAmount(decimal.RequireFromString(tc.co2))
		if tc.invalid {
			assert.True(t, failure.Is(err, failure.KindInvalidArgument), tc.co2)
			continue
		}
		require.NoError(t, err, tc.co2)
		assert.Equal(t, tc.want, got, tc.co2)
	}
}

func TestAdvanceFollowsLifecycle(t *testing.T) {
	env, tracker := newTracker(t)
	farmer := env.AddActor(t, "farmer", models.RoleFarmer)
	record, err := tracker.Submit(
		models.ActivityTypeInvestment,
		"solar",
		farmer,
		decimal.NewFromInt(3),
	)
	require.NoError(t, err)
	record, err = tracker.Advance(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordStateCredited, record.State)
	record, err = tracker.Advance(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordStateRetired, record.State)
	_, err = tracker.Advance(record.ID)
	assert.True(t, failure.Is(err, failure.KindInvalidStateTransition))
	_, err = tracker.Advance(9999)
	assert.True(t, failure.Is(err, failure.KindNotFound))
}

func TestAdvanceFromRejectsSkipAndReverse(t *testing.T) {
	env, tracker := newTracker(t)
	farmer := env.AddActor(t, "farmer", models.RoleFarmer)
	record, err := tracker.Submit(
		models.ActivityTypeAction,
		"cover crops",
		farmer,
		decimal.NewFromInt(3),
	)
	require.NoError(t, err)
	// Retiring a PENDING record would skip CREDITED
	err = tracker.AdvanceFrom(record.ID, models.RecordStateCredited, nil)
	assert.True(t, failure.Is(err, failure.KindInvalidStateTransition))
	err = tracker.AdvanceFrom(record.ID, models.RecordStateRetired, nil)
	assert.True(t, failure.Is(err, failure.KindInvalidStateTransition))
	require.NoError(
		t,
		tracker.AdvanceFrom(record.ID, models.RecordStatePending, nil),
	)
	// A second caller holding the stale state loses
	err = tracker.AdvanceFrom(record.ID, models.RecordStatePending, nil)
	assert.True(t, failure.Is(err, failure.KindInvalidStateTransition))
	got, err := tracker.Get(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordStateCredited, got.State)
}

func TestListings(t *testing.T) {
	env, tracker := newTracker(t)
	farmer := env.AddActor(t, "farmer", models.RoleFarmer)
	seller := env.AddActor(t, "seller", models.RoleSeller)
	submit := func(actor models.Actor) models.ActivityRecord {
		record, err := tracker.Submit(
			models.ActivityTypeAction,
			"composting",
			actor,
			decimal.NewFromInt(1),
		)
		require.NoError(t, err)
		return record
	}
	first := submit(farmer)
	submit(farmer)
	submit(seller)
	_, err := tracker.Advance(first.ID)
	require.NoError(t, err)
	pending, err := tracker.ListPending()
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	farmerPending, err := tracker.ListPendingByActor(farmer)
	require.NoError(t, err)
	assert.Len(t, farmerPending, 1)
	credited, err := tracker.ListCreditedByActor(farmer)
	require.NoError(t, err)
	require.Len(t, credited, 1)
	assert.Equal(t, first.ID, credited[0].ID)
	all, err := tracker.ListByActor(farmer)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	_, err = tracker.ListByActorState(farmer, models.RecordState("LOST"))
	assert.True(t, failure.Is(err, failure.KindInvalidArgument))
}
