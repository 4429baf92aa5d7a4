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

package retirement

import (
	"context"
	"fmt"
	"sort"

	"github.com/blinklabs-io/canopy/database/models"
	"golang.org/x/sync/errgroup"
)

// Plan is the outcome of helper discovery for a retirement
type Plan struct {
	// Helper covers the deficit. It is nil when no transfer is needed or
	// when no actor can cover it
	Helper        *models.Actor
	Debtor        models.Actor
	Amount        uint64
	DebtorBalance uint64
	Deficit       uint64
	HelperBalance uint64
}

// Covered reports whether the debtor can burn the amount once the planned
// transfer, if any, is done
func (p Plan) Covered() bool {
	return p.Deficit == 0 || p.Helper != nil
}

// Plan reads the balances a retirement of amount by debtor depends on and
// picks the helper, without changing anything
func (r *Resolver) Plan(
	ctx context.Context,
	debtor models.Actor,
	amount uint64,
) (Plan, error) {
	debtorAddress, err := r.config.Directory.ResolveAddress(debtor)
	if err != nil {
		return Plan{}, err
	}
	return r.plan(ctx, debtor, debtorAddress, amount)
}

func (r *Resolver) plan(
	ctx context.Context,
	debtor models.Actor,
	debtorAddress string,
	amount uint64,
) (Plan, error) {
	balance, err := r.config.Gateway.BalanceOf(ctx, debtorAddress)
	if err != nil {
		return Plan{}, err
	}
	ret := Plan{Debtor: debtor, Amount: amount, DebtorBalance: balance}
	if balance >= amount {
		return ret, nil
	}
	ret.Deficit = amount - balance
	helper, helperBalance, err := r.selectHelper(ctx, debtor, ret.Deficit)
	if err != nil {
		return Plan{}, err
	}
	ret.Helper = helper
	ret.HelperBalance = helperBalance
	return ret, nil
}

// candidates returns every actor except the debtor and the certifiers,
// ordered by ID
func (r *Resolver) candidates(debtor models.Actor) ([]models.Actor, error) {
	var ret []models.Actor
	for _, role := range models.Roles {
		if role == models.RoleCertifier {
			continue
		}
		actors, err := r.config.Directory.ListActorsByRole(role)
		if err != nil {
			return nil, fmt.Errorf("list %s actors: %w", role, err)
		}
		for _, actor := range actors {
			if actor.ID != debtor.ID {
				ret = append(ret, actor)
			}
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].ID < ret[j].ID
	})
	return ret, nil
}

// selectHelper returns the candidate with the highest balance among those
// holding at least deficit. Equal balances go to the lowest actor ID
func (r *Resolver) selectHelper(
	ctx context.Context,
	debtor models.Actor,
	deficit uint64,
) (*models.Actor, uint64, error) {
	candidates, err := r.candidates(debtor)
	if err != nil {
		return nil, 0, err
	}
	balances := make([]uint64, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.BalanceConcurrency)
	for i, candidate := range candidates {
		g.Go(func() error {
			address, err := r.config.Directory.ResolveAddress(candidate)
			if err != nil {
				return err
			}
			balance, err := r.config.Gateway.BalanceOf(gctx, address)
			if err != nil {
				return fmt.Errorf("balance of %s: %w", candidate.Username, err)
			}
			balances[i] = balance
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	best := -1
	for i := range candidates {
		if balances[i] < deficit {
			continue
		}
		if best == -1 || balances[i] > balances[best] {
			best = i
		}
	}
	if best == -1 {
		return nil, 0, nil
	}
	helper := candidates[best]
	return &helper, balances[best], nil
}
