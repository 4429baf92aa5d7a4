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

// Package identity resolves actors to their ledger addresses. Actor
// registration is owned elsewhere; Register only seeds rows for the CLI and
// development deployments.
package identity

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/blinklabs-io/canopy/database"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/failure"
	"github.com/blinklabs-io/canopy/ledger"
)

// Directory is the view of registered actors used by the workflows
type Directory interface {
	Get(id uint) (models.Actor, error)
	GetByUsername(username string) (models.Actor, error)
	GetByAddress(address string) (models.Actor, error)
	ResolveAddress(actor models.Actor) (string, error)
	ListActors() ([]models.Actor, error)
	ListActorsByRole(role models.Role) ([]models.Actor, error)
}

// StoreDirectory is a Directory backed by the record store
type StoreDirectory struct {
	db     *database.Database
	logger *slog.Logger
}

var _ Directory = (*StoreDirectory)(nil)

func NewStoreDirectory(
	db *database.Database,
	logger *slog.Logger,
) *StoreDirectory {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &StoreDirectory{db: db, logger: logger}
}

func (d *StoreDirectory) Get(id uint) (models.Actor, error) {
	actor, err := d.db.GetActor(id, nil)
	return actor, notFound("get actor", err)
}

func (d *StoreDirectory) GetByUsername(username string) (models.Actor, error) {
	actor, err := d.db.GetActorByUsername(username, nil)
	if err != nil {
		return actor, notFound("get actor "+username, err)
	}
	return actor, nil
}

func (d *StoreDirectory) GetByAddress(address string) (models.Actor, error) {
	normalized, err := ledger.NormalizeAddress(address)
	if err != nil {
		return models.Actor{}, failure.New(failure.KindInvalidArgument, "get actor", err)
	}
	actor, err := d.db.GetActorByAddress(normalized, nil)
	if err != nil {
		return actor, notFound("get actor "+normalized, err)
	}
	return actor, nil
}

// ResolveAddress returns the actor's ledger address. The stored row is
// authoritative, so an actor value carrying a different address is
// rejected
func (d *StoreDirectory) ResolveAddress(actor models.Actor) (string, error) {
	stored, err := d.db.GetActor(actor.ID, nil)
	if err != nil {
		return "", notFound("resolve address", err)
	}
	if stored.Address == "" {
		return "", failure.Newf(
			failure.KindNotFound,
			"resolve address",
			"actor %s has no ledger address",
			stored.Username,
		)
	}
	if actor.Address != "" && !strings.EqualFold(actor.Address, stored.Address) {
		return "", failure.Newf(
			failure.KindInvalidArgument,
			"resolve address",
			"actor %s address does not match the registered one",
			stored.Username,
		)
	}
	return stored.Address, nil
}

// ListActors returns every actor ordered by ID
func (d *StoreDirectory) ListActors() ([]models.Actor, error) {
	return d.db.ListActors(nil)
}

func (d *StoreDirectory) ListActorsByRole(
	role models.Role,
) ([]models.Actor, error) {
	if !role.Valid() {
		return nil, failure.Newf(
			failure.KindInvalidArgument,
			"list actors",
			"unknown role %q",
			role,
		)
	}
	return d.db.ListActorsByRole(role, nil)
}

// Register stores a new actor. The address is normalized and can not be
// changed afterwards
func (d *StoreDirectory) Register(
	username string,
	role models.Role,
	address string,
) (models.Actor, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Actor{}, failure.Newf(
			failure.KindInvalidArgument,
			"register actor",
			"username is required",
		)
	}
	if !role.Valid() {
		return models.Actor{}, failure.Newf(
			failure.KindInvalidArgument,
			"register actor",
			"unknown role %q",
			role,
		)
	}
	address, err := ledger.NormalizeAddress(address)
	if err != nil {
		return models.Actor{}, failure.New(
			failure.KindInvalidArgument,
			"register actor",
			err,
		)
	}
	if _, err := d.db.GetActorByAddress(address, nil); err == nil {
		return models.Actor{}, failure.Newf(
			failure.KindInvalidArgument,
			"register actor",
			"address %s is already registered",
			address,
		)
	}
	actor := models.Actor{Username: username, Role: role, Address: address}
	if err := d.db.CreateActor(&actor, nil); err != nil {
		return models.Actor{}, fmt.Errorf("register actor %s: %w", username, err)
	}
	d.logger.Info(
		fmt.Sprintf("registered actor %s", username),
		"component", "identity",
		"role", role,
		"address", address,
	)
	return actor, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, database.ErrActorNotFound) {
		return failure.New(failure.KindNotFound, op, err)
	}
	return err
}
