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

package canopy

import (
	"context"

	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/failure"
	"github.com/blinklabs-io/canopy/issuance"
	"github.com/blinklabs-io/canopy/ledger/devnet"
	"github.com/blinklabs-io/canopy/reconcile"
	"github.com/blinklabs-io/canopy/retirement"
	"github.com/shopspring/decimal"
)

// RegisterActor stores a new actor. With the devnet contract an empty
// address is replaced by a fresh one
func (e *Engine) RegisterActor(
	username string,
	role models.Role,
	address string,
) (models.Actor, error) {
	if address == "" && e.devnet != nil {
		address = devnet.NewAddress()
	}
	return e.directory.Register(username, role, address)
}

// SubmitActivity files a PENDING claim for the named actor
func (e *Engine) SubmitActivity(
	activityType string,
	description string,
	username string,
	co2Reduction decimal.Decimal,
) (models.ActivityRecord, error) {
	actor, err := e.directory.GetByUsername(username)
	if err != nil {
		return models.ActivityRecord{}, err
	}
	return e.tracker.Submit(activityType, description, actor, co2Reduction)
}

// Mint issues the credits of a PENDING record to its owner
func (e *Engine) Mint(
	ctx context.Context,
	certifier string,
	recordID uint,
) (issuance.Result, error) {
	certifierActor, err := e.certifier(certifier)
	if err != nil {
		return issuance.Result{}, err
	}
	record, err := e.tracker.Get(recordID)
	if err != nil {
		return issuance.Result{}, err
	}
	target, err := e.directory.Get(record.ActorID)
	if err != nil {
		return issuance.Result{}, err
	}
	return e.coordinator.Mint(ctx, certifierActor, target, recordID)
}

// MintPending issues the credits of every PENDING record
func (e *Engine) MintPending(
	ctx context.Context,
	certifier string,
) ([]issuance.Result, error) {
	certifierActor, err := e.certifier(certifier)
	if err != nil {
		return nil, err
	}
	return e.coordinator.MintPending(ctx, certifierActor)
}

// Retire burns amount credits from the owner of a CREDITED record
func (e *Engine) Retire(
	ctx context.Context,
	certifier string,
	recordID uint,
	amount uint64,
) (retirement.Result, error) {
	certifierActor, err := e.certifier(certifier)
	if err != nil {
		return retirement.Result{}, err
	}
	record, err := e.tracker.Get(recordID)
	if err != nil {
		return retirement.Result{}, err
	}
	debtor, err := e.directory.Get(record.ActorID)
	if err != nil {
		return retirement.Result{}, err
	}
	return e.resolver.Retire(ctx, certifierActor, debtor, amount, recordID)
}

// Plan reports how a retirement of amount by the named actor would be
// covered
func (e *Engine) Plan(
	ctx context.Context,
	username string,
	amount uint64,
) (retirement.Plan, error) {
	debtor, err := e.directory.GetByUsername(username)
	if err != nil {
		return retirement.Plan{}, err
	}
	return e.resolver.Plan(ctx, debtor, amount)
}

// Balance reads the ledger balance of the named actor
func (e *Engine) Balance(ctx context.Context, username string) (uint64, error) {
	actor, err := e.directory.GetByUsername(username)
	if err != nil {
		return 0, err
	}
	address, err := e.directory.ResolveAddress(actor)
	if err != nil {
		return 0, err
	}
	return e.gateway.BalanceOf(ctx, address)
}

// Transactions returns the mirror rows involving the named actor, most
// recent first
func (e *Engine) Transactions(username string) ([]models.Transaction, error) {
	actor, err := e.directory.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	return e.mirror.ListForActor(actor)
}

// Reconcile runs one reconciliation pass
func (e *Engine) Reconcile(ctx context.Context) (reconcile.Report, error) {
	return e.reconciler.Run(ctx)
}

func (e *Engine) certifier(username string) (models.Actor, error) {
	actor, err := e.directory.GetByUsername(username)
	if err != nil {
		return actor, err
	}
	if actor.Role != models.RoleCertifier {
		return actor, failure.Newf(
			failure.KindInvalidArgument,
			"certifier",
			"%s is not a certifier",
			username,
		)
	}
	return actor, nil
}
