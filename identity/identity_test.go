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

package identity_test

import (
	"testing"

	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/failure"
	"github.com/blinklabs-io/canopy/identity"
	"github.com/blinklabs-io/canopy/internal/test/testutil"
	"github.com/blinklabs-io/canopy/ledger/devnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndResolve(t *testing.T) {
	env := testutil.NewEnv(t)
	dir := identity.NewStoreDirectory(env.DB, nil)
	address := "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	actor, err := dir.Register("alice", models.RoleFarmer, address)
	require.NoError(t, err)
	assert.NotZero(t, actor.ID)
	resolved, err := dir.ResolveAddress(actor)
	require.NoError(t, err)
	assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", resolved)
	byName, err := dir.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, actor.ID, byName.ID)
	byAddress, err := dir.GetByAddress(address)
	require.NoError(t, err)
	assert.Equal(t, actor.ID, byAddress.ID)
	_, err = dir.Register("mallory", models.RoleSeller, address)
	assert.True(t, failure.Is(err, failure.KindInvalidArgument))
}

func TestRegisterValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	dir := identity.NewStoreDirectory(env.DB, nil)
	_, err := dir.Register(" ", models.RoleFarmer, devnet.AddressFor("x"))
	assert.True(t, failure.Is(err, failure.KindInvalidArgument))
	_, err = dir.Register("x", models.Role("AUDITOR"), devnet.AddressFor("x"))
	assert.True(t, failure.Is(err, failure.KindInvalidArgument))
	_, err = dir.Register("x", models.RoleFarmer, "0x1")
	assert.True(t, failure.Is(err, failure.KindInvalidArgument))
}

func TestResolveRejectsForeignAddress(t *testing.T) {
	env := testutil.NewEnv(t)
	dir := identity.NewStoreDirectory(env.DB, nil)
	actor := env.AddActor(t, "alice", models.RoleFarmer)
	actor.Address = devnet.AddressFor("bob")
	_, err := dir.ResolveAddress(actor)
	assert.True(t, failure.Is(err, failure.KindInvalidArgument))
	_, err = dir.ResolveAddress(models.Actor{ID: 999})
	assert.True(t, failure.Is(err, failure.KindNotFound))
	_, err = dir.Get(999)
	assert.True(t, failure.Is(err, failure.KindNotFound))
}

func TestListActorsByRole(t *testing.T) {
	env := testutil.NewEnv(t)
	dir := identity.NewStoreDirectory(env.DB, nil)
	env.AddActor(t, "cert", models.RoleCertifier)
	farmer := env.AddActor(t, "farmer", models.RoleFarmer)
	seller := env.AddActor(t, "seller", models.RoleSeller)
	farmer2 := env.AddActor(t, "farmer2", models.RoleFarmer)
	farmers, err := dir.ListActorsByRole(models.RoleFarmer)
	require.NoError(t, err)
	require.Len(t, farmers, 2)
	assert.Equal(t, farmer.ID, farmers[0].ID)
	assert.Equal(t, farmer2.ID, farmers[1].ID)
	all, err := dir.ListActors()
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, seller.ID, all[2].ID)
	_, err = dir.ListActorsByRole(models.Role("nobody"))
	assert.True(t, failure.Is(err, failure.KindInvalidArgument))
}
