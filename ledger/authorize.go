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

package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/canopy/database"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/event"
	"github.com/blinklabs-io/canopy/failure"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// EnsureAuthorized makes sure address holds editor capability, having the
// contract owner grant it when it does not. It is idempotent: an address
// confirmed during this process is not checked again, and the first check
// reads isEditor from the ledger so a grant revoked since the last run is
// noticed
func (g *Gateway) EnsureAuthorized(ctx context.Context, address string) error {
	address, err := NormalizeAddress(address)
	if err != nil {
		return failure.New(failure.KindInvalidArgument, "ensure_authorized", err)
	}
	if g.known(address) {
		return nil
	}
	g.authMu.Lock()
	defer g.authMu.Unlock()
	if g.known(address) {
		return nil
	}
	ctx, span := g.tracer.Start(
		ctx,
		"ledger.ensure_authorized",
		trace.WithAttributes(attribute.String("ledger.address", address)),
	)
	defer span.End()
	isEditor, err := g.IsEditor(ctx, address)
	if err != nil {
		return failure.New(failure.KindAuthorization, "ensure_authorized", err)
	}
	if isEditor {
		g.remember(address)
		return g.recordGrant(address, "")
	}
	if g.db != nil {
		if _, err := g.db.GetEditorGrant(address, nil); err == nil {
			g.logger.Warn(
				"cached editor grant no longer valid on ledger",
				"component", "ledger",
				"address", address,
			)
			if err := g.db.DeleteEditorGrant(address, nil); err != nil {
				return fmt.Errorf("drop stale editor grant: %w", err)
			}
		}
	}
	pending, err := g.Submit(ctx, EntryAuthorizeEditor, g.meta.Owner, address)
	if err != nil {
		return failure.New(failure.KindAuthorization, "ensure_authorized", err)
	}
	receipt, err := pending.Wait(ctx)
	if err != nil {
		return failure.New(failure.KindAuthorization, "ensure_authorized", err)
	}
	g.metrics.grants.Inc()
	g.remember(address)
	g.logger.Info(
		"granted editor capability",
		"component", "ledger",
		"address", address,
		"tx_hash", receipt.TxHash,
	)
	g.publish(
		event.EditorAuthorizedEventType,
		event.EditorAuthorizedEvent{Address: address, TxHash: receipt.TxHash},
	)
	return g.recordGrant(address, receipt.TxHash)
}

// recordGrant persists a confirmed grant. A grant found already in place on
// the ledger keeps the tx hash from any existing row
func (g *Gateway) recordGrant(address string, txHash string) error {
	if g.db == nil {
		return nil
	}
	if txHash == "" {
		_, err := g.db.GetEditorGrant(address, nil)
		if err == nil {
			return nil
		}
		if !errors.Is(err, database.ErrEditorGrantNotFound) {
			return fmt.Errorf("load editor grant: %w", err)
		}
	}
	grant := &models.EditorGrant{
		Address:   address,
		TxHash:    txHash,
		GrantedAt: time.Now(),
	}
	if err := g.db.SetEditorGrant(grant, nil); err != nil {
		return fmt.Errorf("record editor grant: %w", err)
	}
	return nil
}

func (g *Gateway) known(address string) bool {
	g.grantsMu.RLock()
	defer g.grantsMu.RUnlock()
	_, ok := g.grants[address]
	return ok
}

func (g *Gateway) remember(address string) {
	g.grantsMu.Lock()
	defer g.grantsMu.Unlock()
	g.grants[address] = struct{}{}
}

// forget drops a grant the ledger has rejected so the next EnsureAuthorized
// checks again
func (g *Gateway) forget(address string) {
	g.grantsMu.Lock()
	_, ok := g.grants[address]
	delete(g.grants, address)
	g.grantsMu.Unlock()
	if ok {
		g.logger.Warn(
			"ledger rejected cached editor grant",
			"component", "ledger",
			"address", address,
		)
	}
}
