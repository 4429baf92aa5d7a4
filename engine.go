// Copyright 2025 Blink Labs Software
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

// Package canopy wires the carbon credit components into an Engine: the
// record store, the ledger gateway, the issuance and retirement workflows,
// reconciliation and the reporting API.
package canopy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/canopy/activity"
	"github.com/blinklabs-io/canopy/api"
	"github.com/blinklabs-io/canopy/database"
	"github.com/blinklabs-io/canopy/database/plugin/blob/badger"
	"github.com/blinklabs-io/canopy/event"
	"github.com/blinklabs-io/canopy/identity"
	"github.com/blinklabs-io/canopy/issuance"
	"github.com/blinklabs-io/canopy/ledger"
	"github.com/blinklabs-io/canopy/ledger/devnet"
	"github.com/blinklabs-io/canopy/mirror"
	"github.com/blinklabs-io/canopy/reconcile"
	"github.com/blinklabs-io/canopy/retirement"
)

const devnetSubDir = "devnet"

type Engine struct {
	config        Config
	db            *database.Database
	eventBus      *event.EventBus
	devnetStore   *badger.Store
	devnet        *devnet.Contract
	gateway       *ledger.Gateway
	directory     *identity.StoreDirectory
	tracker       *activity.Tracker
	mirror        *mirror.Mirror
	coordinator   *issuance.Coordinator
	resolver      *retirement.Resolver
	reconciler    *reconcile.Reconciler
	api           *api.Server
	shutdownFuncs []func(context.Context) error
	closeOnce     sync.Once
}

// Open builds every component. The caller must Close the engine
func Open(ctx context.Context, cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	e := &Engine{config: cfg}
	if err := e.open(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) open(ctx context.Context) error {
	// Configure tracing
	if e.config.tracing {
		if err := e.setupTracing(ctx); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:        e.config.dataDir,
		Logger:         e.config.logger,
		PromRegistry:   e.config.promRegistry,
		MetadataPlugin: e.config.metadataPlugin,
		BlobPlugin:     e.config.blobPlugin,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	e.db = db
	e.eventBus = event.NewEventBus(e.config.promRegistry, e.config.logger)
	// Ledger contract
	contract := e.config.contract
	if e.config.usesDevnet() {
		if err := e.openDevnet(ctx); err != nil {
			return err
		}
		contract = e.devnet
	}
	gatewayOpts := []ledger.GatewayOptionFunc{
		ledger.WithLogger(e.config.logger),
		ledger.WithPromRegistry(e.config.promRegistry),
		ledger.WithEventBus(e.eventBus),
		ledger.WithDatabase(e.db),
	}
	if e.config.confirmTimeout > 0 {
		gatewayOpts = append(gatewayOpts, ledger.WithConfirmTimeout(e.config.confirmTimeout))
	}
	if e.config.pollInterval > 0 {
		gatewayOpts = append(gatewayOpts, ledger.WithPollInterval(e.config.pollInterval))
	}
	if e.config.retryMaxElapsed > 0 {
		gatewayOpts = append(gatewayOpts, ledger.WithRetryMaxElapsed(e.config.retryMaxElapsed))
	}
	if e.config.breakerThreshold > 0 {
		gatewayOpts = append(
			gatewayOpts,
			ledger.WithBreaker(e.config.breakerThreshold, e.config.breakerCooldown),
		)
	}
	e.gateway, err = ledger.New(ctx, contract, gatewayOpts...)
	if err != nil {
		return fmt.Errorf("failed to connect to ledger: %w", err)
	}
	// Workflows
	e.directory = identity.NewStoreDirectory(e.db, e.config.logger)
	e.tracker = activity.NewTracker(activity.TrackerConfig{
		Database:     e.db,
		EventBus:     e.eventBus,
		Logger:       e.config.logger,
		PromRegistry: e.config.promRegistry,
	})
	e.mirror = mirror.New(e.db, e.config.logger, e.config.promRegistry)
	e.coordinator, err = issuance.NewCoordinator(issuance.CoordinatorConfig{
		Database:     e.db,
		Gateway:      e.gateway,
		Directory:    e.directory,
		Tracker:      e.tracker,
		Mirror:       e.mirror,
		EventBus:     e.eventBus,
		Logger:       e.config.logger,
		PromRegistry: e.config.promRegistry,
	})
	if err != nil {
		return err
	}
	e.resolver, err = retirement.NewResolver(retirement.ResolverConfig{
		Database:           e.db,
		Gateway:            e.gateway,
		Directory:          e.directory,
		Tracker:            e.tracker,
		Mirror:             e.mirror,
		EventBus:           e.eventBus,
		Logger:             e.config.logger,
		PromRegistry:       e.config.promRegistry,
		BalanceConcurrency: e.config.balanceConcurrency,
	})
	if err != nil {
		return err
	}
	e.reconciler, err = reconcile.New(reconcile.Config{
		Database:     e.db,
		Gateway:      e.gateway,
		EventBus:     e.eventBus,
		Logger:       e.config.logger,
		PromRegistry: e.config.promRegistry,
		StallAfter:   e.config.reconcileStallAfter,
	})
	if err != nil {
		return err
	}
	if e.config.apiListenAddress != "" {
		e.api = api.New(
			api.Config{ListenAddress: e.config.apiListenAddress},
			api.NewComponentSource(e.directory, e.tracker, e.mirror, e.gateway),
			e.config.logger,
		)
	}
	return nil
}

// openDevnet opens the devnet contract state. It lives in its own badger
// store next to the record store, or in memory without a data dir
func (e *Engine) openDevnet(ctx context.Context) error {
	storeOpts := []badger.StoreOptionFunc{
		badger.WithLogger(e.config.logger),
		badger.WithSubDir(devnetSubDir),
	}
	if e.config.dataDir != "" {
		storeOpts = append(storeOpts, badger.WithDataDir(e.config.dataDir))
	}
	store, err := badger.New(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to open devnet state: %w", err)
	}
	e.devnetStore = store
	contractOpts := []devnet.ContractOptionFunc{
		devnet.WithLogger(e.config.logger),
		devnet.WithBlockInterval(e.config.devnetBlockInterval),
	}
	if e.config.devnetOwner != "" {
		contractOpts = append(contractOpts, devnet.WithOwner(e.config.devnetOwner))
	}
	e.devnet, err = devnet.New(store.DB(), contractOpts...)
	if err != nil {
		return fmt.Errorf("failed to load devnet contract: %w", err)
	}
	// Pending transactions only confirm while blocks are produced
	if err := e.devnet.Start(ctx); err != nil {
		return fmt.Errorf("failed to start devnet block production: %w", err)
	}
	return nil
}

// Serve runs the long-lived parts of the engine, the reporting API and the
// reconciliation loop, until ctx is done
func (e *Engine) Serve(ctx context.Context) error {
	if e.api != nil {
		if err := e.api.Start(ctx); err != nil {
			return err
		}
	}
	var wg sync.WaitGroup
	if e.config.reconcileInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := e.reconciler.Loop(ctx, e.config.reconcileInterval)
			if err != nil && !errors.Is(err, context.Canceled) {
				e.config.logger.Error(
					"reconciliation loop stopped",
					"component", "canopy",
					"error", err,
				)
			}
		}()
	}
	<-ctx.Done()
	wg.Wait()
	return nil
}

// Close releases every component. It is safe to call more than once
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		err = e.shutdown()
	})
	return err
}

func (e *Engine) shutdown() error {
	shutdownTimeout := 30 * time.Second
	if e.config.shutdownTimeout > 0 {
		shutdownTimeout = e.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	e.config.logger.Debug("starting graceful shutdown", "component", "canopy")

	// Phase 1: Stop accepting new work
	if e.api != nil {
		if stopErr := e.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}
	if e.devnet != nil {
		e.devnet.Stop()
	}

	// Phase 2: Close stores
	if e.devnetStore != nil {
		if closeErr := e.devnetStore.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("devnet state close: %w", closeErr))
		}
	}
	if e.db != nil {
		if closeErr := e.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 3: Cleanup resources
	for _, fn := range e.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	e.shutdownFuncs = nil

	if e.eventBus != nil {
		e.eventBus.Stop()
	}

	e.config.logger.Debug("graceful shutdown complete", "component", "canopy")
	return err
}

func (e *Engine) Database() *database.Database {
	return e.db
}

func (e *Engine) EventBus() *event.EventBus {
	return e.eventBus
}

func (e *Engine) Gateway() *ledger.Gateway {
	return e.gateway
}

// Devnet returns the in-process contract, or nil when an external contract
// is configured
func (e *Engine) Devnet() *devnet.Contract {
	return e.devnet
}

func (e *Engine) Directory() *identity.StoreDirectory {
	return e.directory
}

func (e *Engine) Tracker() *activity.Tracker {
	return e.tracker
}

func (e *Engine) Mirror() *mirror.Mirror {
	return e.mirror
}

func (e *Engine) Coordinator() *issuance.Coordinator {
	return e.coordinator
}

func (e *Engine) Resolver() *retirement.Resolver {
	return e.resolver
}

func (e *Engine) Reconciler() *reconcile.Reconciler {
	return e.reconciler
}

// API returns the reporting API server, or nil when it is disabled
func (e *Engine) API() *api.Server {
	return e.api
}
