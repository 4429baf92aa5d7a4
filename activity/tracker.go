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

// Package activity tracks CO2 reduction claims through their lifecycle:
// PENDING, then CREDITED once credits are minted, then RETIRED once they
// are burned. No other transition is allowed.
package activity

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/blinklabs-io/canopy/database"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/event"
	"github.com/blinklabs-io/canopy/failure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// CreditAmount converts a CO2 reduction to whole credits, rounding half
// away from zero. The result must be positive and fit in a uint64.
func CreditAmount(co2Reduction decimal.Decimal) (uint64, error) {
	rounded := co2Reduction.Round(0)
	if !rounded.IsPositive() {
		return 0, failure.Newf(
			failure.KindInvalidArgument,
			"credit amount",
			"co2 reduction %s rounds to zero credits",
			co2Reduction,
		)
	}
	amount := rounded.BigInt()
	if !amount.IsUint64() {
		return 0, failure.Newf(
			failure.KindInvalidArgument,
			"credit amount",
			"co2 reduction %s exceeds the largest credit amount",
			co2Reduction,
		)
	}
	return amount.Uint64(), nil
}

type TrackerConfig struct {
	Database     *database.Database
	EventBus     *event.EventBus
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

type Tracker struct {
	db          *database.Database
	eventBus    *event.EventBus
	logger      *slog.Logger
	transitions *prometheus.CounterVec
}

func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	t := &Tracker{
		db:       cfg.Database,
		eventBus: cfg.EventBus,
		logger:   cfg.Logger,
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_activity_transitions_total",
				Help: "Activity record state changes, by target state",
			},
			[]string{"to"},
		),
	}
	if cfg.PromRegistry != nil {
		cfg.PromRegistry.MustRegister(t.transitions)
	}
	return t
}

// RegisterActivity returns the activity template with the given type and
// description, creating it when missing
func (t *Tracker) RegisterActivity(
	activityType string,
	description string,
) (models.Activity, error) {
	activityType = strings.TrimSpace(activityType)
	description = strings.TrimSpace(description)
	if activityType == "" || description == "" {
		return models.Activity{}, failure.Newf(
			failure.KindInvalidArgument,
			"register activity",
			"type and description are required",
		)
	}
	return t.db.GetOrCreateActivity(activityType, description, nil)
}

func (t *Tracker) ListActivities() ([]models.Activity, error) {
	return t.db.ListActivities(nil)
}

// Submit files a new PENDING claim for actor
func (t *Tracker) Submit(
	activityType string,
	description string,
	actor models.Actor,
	co2Reduction decimal.Decimal,
) (models.ActivityRecord, error) {
	activityType = strings.TrimSpace(activityType)
	description = strings.TrimSpace(description)
	if activityType == "" || description == "" {
		return models.ActivityRecord{}, failure.Newf(
			failure.KindInvalidArgument,
			"submit activity",
			"type and description are required",
		)
	}
	if co2Reduction.IsNegative() {
		return models.ActivityRecord{}, failure.Newf(
			failure.KindInvalidArgument,
			"submit activity",
			"co2 reduction must not be negative: %s",
			co2Reduction,
		)
	}
	if _, err := CreditAmount(co2Reduction); err != nil {
		return models.ActivityRecord{}, fmt.Errorf("submit activity: %w", err)
	}
	var record models.ActivityRecord
	err := t.db.Transaction(func(txn *database.Txn) error {
		if _, err := txn.DB().GetActor(actor.ID, txn); err != nil {
			if errors.Is(err, database.ErrActorNotFound) {
				return failure.New(failure.KindNotFound, "submit activity", err)
			}
			return err
		}
		activity, err := txn.DB().GetOrCreateActivity(
			activityType,
			description,
			txn,
		)
		if err != nil {
			return err
		}
		record = models.ActivityRecord{
			ActivityID:   activity.ID,
			ActorID:      actor.ID,
			Description:  activity.Description,
			Co2Reduction: co2Reduction,
			State:        models.RecordStatePending,
		}
		return txn.DB().CreateActivityRecord(&record, txn)
	})
	if err != nil {
		return models.ActivityRecord{}, fmt.Errorf("submit activity: %w", err)
	}
	t.logger.Info(
		fmt.Sprintf("submitted activity record %d", record.ID),
		"component", "activity",
		"actor", actor.Username,
		"co2_reduction", co2Reduction.String(),
	)
	t.publish(
		event.RecordSubmittedEventType,
		event.RecordSubmittedEvent{
			RecordID:     record.ID,
			ActorID:      actor.ID,
			Co2Reduction: co2Reduction,
		},
	)
	return t.Get(record.ID)
}

// Get returns a record with its activity and actor loaded
func (t *Tracker) Get(recordID uint) (models.ActivityRecord, error) {
	return t.get(recordID, nil)
}

func (t *Tracker) get(
	recordID uint,
	txn *database.Txn,
) (models.ActivityRecord, error) {
	record, err := t.db.GetActivityRecord(recordID, txn)
	if errors.Is(err, database.ErrActivityRecordNotFound) {
		return record, failure.New(
			failure.KindNotFound,
			fmt.Sprintf("activity record %d", recordID),
			err,
		)
	}
	return record, err
}

func (t *Tracker) ListPending() ([]models.ActivityRecord, error) {
	return t.db.ListActivityRecords(
		database.RecordFilter{State: models.RecordStatePending},
		nil,
	)
}

func (t *Tracker) ListPendingByActor(
	actor models.Actor,
) ([]models.ActivityRecord, error) {
	return t.ListByActorState(actor, models.RecordStatePending)
}

func (t *Tracker) ListCreditedByActor(
	actor models.Actor,
) ([]models.ActivityRecord, error) {
	return t.ListByActorState(actor, models.RecordStateCredited)
}

// ListByActor returns every record of actor regardless of state
func (t *Tracker) ListByActor(
	actor models.Actor,
) ([]models.ActivityRecord, error) {
	return t.ListByActorState(actor, "")
}

// ListByActorState returns the records of actor in state, or in any state
// when state is empty
func (t *Tracker) ListByActorState(
	actor models.Actor,
	state models.RecordState,
) ([]models.ActivityRecord, error) {
	if state != "" && !state.Valid() {
		return nil, failure.Newf(
			failure.KindInvalidArgument,
			"list activity records",
			"unknown state %q",
			state,
		)
	}
	actorID := actor.ID
	return t.db.ListActivityRecords(
		database.RecordFilter{ActorID: &actorID, State: state},
		nil,
	)
}

// Advance moves a record to the next state of its lifecycle
func (t *Tracker) Advance(recordID uint) (models.ActivityRecord, error) {
	record, err := t.Get(recordID)
	if err != nil {
		return record, err
	}
	if err := t.AdvanceFrom(recordID, record.State, nil); err != nil {
		return record, err
	}
	t.Announce(recordID, record.State)
	return t.Get(recordID)
}

// AdvanceFrom moves a record out of the expected state. It fails with
// InvalidStateTransition when the record is in any other state, including
// when another caller advanced it first. Passing txn makes the change part
// of the caller's transaction, in which case the caller announces it with
// Announce once committed
func (t *Tracker) AdvanceFrom(
	recordID uint,
	expected models.RecordState,
	txn *database.Txn,
) error {
	op := fmt.Sprintf("advance activity record %d", recordID)
	next, ok := expected.Next()
	if !ok {
		return failure.Newf(
			failure.KindInvalidStateTransition,
			op,
			"no transition out of %q",
			expected,
		)
	}
	record, err := t.get(recordID, txn)
	if err != nil {
		return err
	}
	if record.State != expected {
		return failure.Newf(
			failure.KindInvalidStateTransition,
			op,
			"record is %s, expected %s",
			record.State,
			expected,
		)
	}
	changed, err := t.db.SetActivityRecordState(recordID, expected, next, txn)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !changed {
		return failure.Newf(
			failure.KindInvalidStateTransition,
			op,
			"record left %s concurrently",
			expected,
		)
	}
	return nil
}

// Announce logs, counts and publishes a committed transition out of from
func (t *Tracker) Announce(recordID uint, from models.RecordState) {
	to, _ := from.Next()
	t.transitions.WithLabelValues(string(to)).Inc()
	t.logger.Info(
		fmt.Sprintf("activity record %d: %s -> %s", recordID, from, to),
		"component", "activity",
	)
	t.publish(
		event.RecordAdvancedEventType,
		event.RecordAdvancedEvent{
			RecordID: recordID,
			From:     string(from),
			To:       string(to),
		},
	)
}

func (t *Tracker) publish(eventType event.EventType, data any) {
	if t.eventBus == nil {
		return
	}
	t.eventBus.Publish(eventType, event.NewEvent(eventType, data))
}
