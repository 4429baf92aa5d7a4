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

	"github.com/blinklabs-io/canopy/activity"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/identity"
	"github.com/blinklabs-io/canopy/ledger"
	"github.com/blinklabs-io/canopy/mirror"
)

// Source is what the reporting API reads. It decouples the HTTP server from
// the components and allows testing with fakes
type Source interface {
	// Actor looks an actor up by username
	Actor(username string) (models.Actor, error)

	// Transactions returns the mirror rows involving actor, most recent
	// first
	Transactions(actor models.Actor) ([]models.Transaction, error)

	// Records returns the activity records of actor in state, or in any
	// state when state is empty
	Records(
		actor models.Actor,
		state models.RecordState,
	) ([]models.ActivityRecord, error)

	// PendingRecords returns every PENDING record
	PendingRecords() ([]models.ActivityRecord, error)

	// Balance reads the live ledger balance of actor
	Balance(ctx context.Context, actor models.Actor) (uint64, error)
}

// ComponentSource reads from the running components
type ComponentSource struct {
	directory identity.Directory
	tracker   *activity.Tracker
	mirror    *mirror.Mirror
	gateway   *ledger.Gateway
}

// NewComponentSource panics if any component is nil
func NewComponentSource(
	directory identity.Directory,
	tracker *activity.Tracker,
	mirror *mirror.Mirror,
	gateway *ledger.Gateway,
) *ComponentSource {
	if directory == nil || tracker == nil || mirror == nil || gateway == nil {
		panic("NewComponentSource: all components are required")
	}
	return &ComponentSource{
		directory: directory,
		tracker:   tracker,
		mirror:    mirror,
		gateway:   gateway,
	}
}

func (c *ComponentSource) Actor(username string) (models.Actor, error) {
	return c.directory.GetByUsername(username)
}

func (c *ComponentSource) Transactions(
	actor models.Actor,
) ([]models.Transaction, error) {
	return c.mirror.ListForActor(actor)
}

func (c *ComponentSource) Records(
	actor models.Actor,
	state models.RecordState,
) ([]models.ActivityRecord, error) {
	return c.tracker.ListByActorState(actor, state)
}

func (c *ComponentSource) PendingRecords() ([]models.ActivityRecord, error) {
	return c.tracker.ListPending()
}

func (c *ComponentSource) Balance(
	ctx context.Context,
	actor models.Actor,
) (uint64, error) {
	address, err := c.directory.ResolveAddress(actor)
	if err != nil {
		return 0, err
	}
	return c.gateway.BalanceOf(ctx, address)
}
