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

// Package testutil provides the shared fixtures used by the workflow
// tests: an in-memory record store, a devnet contract, a gateway in front
// of it and an event bus.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/canopy/database"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/database/plugin/blob/badger"
	"github.com/blinklabs-io/canopy/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/canopy/event"
	"github.com/blinklabs-io/canopy/ledger"
	"github.com/blinklabs-io/canopy/ledger/devnet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// Env is a complete in-process deployment
type Env struct {
	DB       *database.Database
	Archive  *badger.Store
	Contract *devnet.Contract
	Gateway  *ledger.Gateway
	EventBus *event.EventBus
	Registry *prometheus.Registry
	Owner    string
}

// NewEnv builds an Env whose contract confirms every transaction as it is
// submitted. Everything is released when the test ends
func NewEnv(t *testing.T, opts ...ledger.GatewayOptionFunc) *Env {
	t.Helper()
	metadataStore, err := sqlite.New("", nil, nil)
	require.NoError(t, err)
	archive, err := badger.New()
	require.NoError(t, err)
	e := &Env{
		DB:       database.NewWithStores(nil, metadataStore, archive),
		Archive:  archive,
		Registry: prometheus.NewRegistry(),
		Owner:    devnet.AddressFor("contract owner"),
	}
	e.EventBus = event.NewEventBus(e.Registry, nil)
	t.Cleanup(func() {
		e.EventBus.Stop()
		_ = e.DB.Close()
	})
	e.Contract, err = devnet.New(archive.DB(), devnet.WithOwner(e.Owner))
	require.NoError(t, err)
	e.Gateway, err = ledger.New(
		context.Background(),
		e.Contract,
		append(
			[]ledger.GatewayOptionFunc{
				ledger.WithDatabase(e.DB),
				ledger.WithEventBus(e.EventBus),
				ledger.WithPromRegistry(e.Registry),
				ledger.WithPollInterval(time.Millisecond),
				ledger.WithConfirmTimeout(5 * time.Second),
				ledger.WithRetryMaxElapsed(time.Second),
			},
			opts...,
		)...,
	)
	require.NoError(t, err)
	return e
}

// AddActor stores an actor whose address is derived from the username
func (e *Env) AddActor(
	t *testing.T,
	username string,
	role models.Role,
) models.Actor {
	t.Helper()
	actor := models.Actor{
		Username: username,
		Role:     role,
		Address:  devnet.AddressFor(username),
	}
	require.NoError(t, e.DB.CreateActor(&actor, nil))
	return actor
}

// Fund mints credits to address straight from the contract owner, without
// touching the mirror
func (e *Env) Fund(t *testing.T, address string, amount uint64) {
	t.Helper()
	receipt, err := e.Gateway.Write(
		context.Background(),
		ledger.EntryMint,
		e.Owner,
		address,
		amount,
	)
	require.NoError(t, err)
	require.True(t, receipt.Success)
}

// Balance reads the ledger balance of address
func (e *Env) Balance(t *testing.T, address string) uint64 {
	t.Helper()
	balance, err := e.Gateway.BalanceOf(context.Background(), address)
	require.NoError(t, err)
	return balance
}

// WaitForCondition polls the given condition function until it returns true
// or the timeout expires
func WaitForCondition(
	t *testing.T,
	condition func() bool,
	timeout time.Duration,
	msg string,
) {
	t.Helper()
	require.Eventually(
		t,
		condition,
		timeout,
		10*time.Millisecond,
		msg,
	)
}

// RequireReceive waits for a value on the given channel or fails the test
// if the timeout expires
func RequireReceive[T any](
	t *testing.T,
	ch <-chan T,
	timeout time.Duration,
	msg string,
) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		t.Fatalf("timeout waiting for channel receive: %s", msg)
		var zero T
		return zero
	}
}

// RequireNoReceive verifies that no value is received on the given channel
// within the specified duration
func RequireNoReceive[T any](
	t *testing.T,
	ch <-chan T,
	duration time.Duration,
	msg string,
) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf(
			"unexpected value received on channel: %v: %s",
			v,
			msg,
		)
	case <-time.After(duration):
	}
}
