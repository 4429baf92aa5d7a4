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

// Package reconcile compares the ledger's event history with the local
// transaction mirror and the saga log, and archives what it finds.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/blinklabs-io/canopy/database"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/blinklabs-io/canopy/event"
	"github.com/blinklabs-io/canopy/ledger"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultStallAfter = 5 * time.Minute

type FindingKind string

const (
	// A ledger credit movement with no mirror row
	FindingMissingMirror FindingKind = "missing_mirror"
	// A mirror row with no ledger event
	FindingPhantomMirror FindingKind = "phantom_mirror"
	// A mirror row whose kind, amount or parties differ from the ledger
	FindingMismatch FindingKind = "mismatch"
	// A saga leg that never reached MIRRORED
	FindingStalledOperation FindingKind = "stalled_operation"
)

type Finding struct {
	Kind     FindingKind `json:"kind"`
	TxHash   string      `json:"txHash,omitempty"`
	Detail   string      `json:"detail"`
	RecordID uint        `json:"recordId,omitempty"`
}

type Report struct {
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
	Key          string    `json:"key"`
	Findings     []Finding `json:"findings"`
	LedgerEvents int       `json:"ledgerEvents"`
	MirrorRows   int       `json:"mirrorRows"`
	Operations   int       `json:"operations"`
	Block        uint64    `json:"block"`
}

// Count returns the number of findings of the given kind
func (r Report) Count(kind FindingKind) int {
	var ret int
	for _, f := range r.Findings {
		if f.Kind == kind {
			ret++
		}
	}
	return ret
}

type Config struct {
	Database     *database.Database
	Gateway      *ledger.Gateway
	EventBus     *event.EventBus
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// StallAfter is how long a saga leg may sit in SUBMITTED or CONFIRMED
	// before it is reported
	StallAfter time.Duration
	// DisableArchive skips writing the report to the blob store
	DisableArchive bool
}

type Reconciler struct {
	config  Config
	metrics *reconcileMetrics
	now     func() time.Time
}

func New(cfg Config) (*Reconciler, error) {
	if cfg.Database == nil || cfg.Gateway == nil {
		return nil, errors.New("reconcile: database and gateway are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.StallAfter <= 0 {
		cfg.StallAfter = DefaultStallAfter
	}
	return &Reconciler{
		config:  cfg,
		metrics: newReconcileMetrics(cfg.PromRegistry),
		now:     time.Now,
	}, nil
}

// Run performs one full pass
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	report := Report{StartedAt: r.now().UTC()}
	events, err := r.config.Gateway.Events(ctx, 0)
	if err != nil {
		r.metrics.runs.WithLabelValues("error").Inc()
		return report, fmt.Errorf("read ledger events: %w", err)
	}
	rows, err := r.config.Database.ListTransactions(time.Time{}, nil)
	if err != nil {
		r.metrics.runs.WithLabelValues("error").Inc()
		return report, fmt.Errorf("list mirror rows: %w", err)
	}
	ops, err := r.config.Database.ListOperations(
		nil,
		models.OperationStatusSubmitted,
		models.OperationStatusConfirmed,
	)
	if err != nil {
		r.metrics.runs.WithLabelValues("error").Inc()
		return report, fmt.Errorf("list operations: %w", err)
	}
	report.MirrorRows = len(rows)
	report.Operations = len(ops)
	byHash := make(map[string]models.Transaction, len(rows))
	for _, row := range rows {
		byHash[row.LedgerTxHash] = row
	}
	seen := make(map[string]struct{}, len(events))
	for _, evt := range events {
		if evt.Block > report.Block {
			report.Block = evt.Block
		}
		kind, ok := eventKind(evt.Name)
		if !ok {
			continue
		}
		report.LedgerEvents++
		seen[evt.TxHash] = struct{}{}
		row, ok := byHash[evt.TxHash]
		if !ok {
			report.Findings = append(report.Findings, Finding{
				Kind:   FindingMissingMirror,
				TxHash: evt.TxHash,
				Detail: fmt.Sprintf(
					"%s of %d in block %d is not mirrored",
					kind,
					evt.Amount,
					evt.Block,
				),
			})
			continue
		}
		if detail := compare(kind, evt, row); detail != "" {
			report.Findings = append(report.Findings, Finding{
				Kind:     FindingMismatch,
				TxHash:   evt.TxHash,
				Detail:   detail,
				RecordID: recordID(row),
			})
		}
	}
	// Newest first from the store, report oldest first
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if _, ok := seen[row.LedgerTxHash]; ok {
			continue
		}
		report.Findings = append(report.Findings, Finding{
			Kind:     FindingPhantomMirror,
			TxHash:   row.LedgerTxHash,
			Detail:   fmt.Sprintf("%s of %d has no ledger event", row.Kind, row.Amount),
			RecordID: recordID(row),
		})
	}
	now := r.now()
	for _, op := range ops {
		if now.Sub(op.UpdatedAt) < r.config.StallAfter {
			continue
		}
		report.Findings = append(report.Findings, Finding{
			Kind:     FindingStalledOperation,
			TxHash:   op.LedgerTxHash,
			RecordID: op.ActivityRecordID,
			Detail: fmt.Sprintf(
				"%s leg %s is %s since %s",
				op.Leg,
				op.ID,
				op.Status,
				op.UpdatedAt.UTC().Format(time.RFC3339),
			),
		})
	}
	sort.SliceStable(report.Findings, func(i, j int) bool {
		return findingOrder(report.Findings[i].Kind) < findingOrder(report.Findings[j].Kind)
	})
	report.FinishedAt = r.now().UTC()
	if !r.config.DisableArchive && r.config.Database.Blob() != nil {
		key, err := r.archive(ctx, report)
		if err != nil {
			r.metrics.runs.WithLabelValues("error").Inc()
			return report, err
		}
		report.Key = key
	}
	r.record(report)
	return report, nil
}

// Loop runs a pass every interval until ctx is done. Failed passes are
// logged and the loop carries on
func (r *Reconciler) Loop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.config.Logger.Error(
					"reconciliation pass failed",
					"component", "reconcile",
					"error", err,
				)
			}
		}
	}
}

func (r *Reconciler) record(report Report) {
	r.metrics.runs.WithLabelValues("ok").Inc()
	r.metrics.block.Set(float64(report.Block))
	for _, kind := range []FindingKind{
		FindingMissingMirror,
		FindingPhantomMirror,
		FindingMismatch,
		FindingStalledOperation,
	} {
		r.metrics.findings.WithLabelValues(string(kind)).Set(float64(report.Count(kind)))
	}
	for _, f := range report.Findings {
		r.config.Logger.Warn(
			fmt.Sprintf("reconciliation finding: %s", f.Detail),
			"component", "reconcile",
			"kind", f.Kind,
			"tx_hash", f.TxHash,
		)
		r.publish(event.ReconcileFindingEventType, event.ReconcileFindingEvent{
			Kind:   string(f.Kind),
			TxHash: f.TxHash,
			Detail: f.Detail,
		})
	}
	r.config.Logger.Info(
		fmt.Sprintf(
			"reconciled %d ledger events with %d mirror rows",
			report.LedgerEvents,
			report.MirrorRows,
		),
		"component", "reconcile",
		"findings", len(report.Findings),
		"report", report.Key,
	)
	r.publish(event.ReconcileCompletedEventType, event.ReconcileCompletedEvent{
		ReportKey: report.Key,
		Findings:  len(report.Findings),
	})
}

func (r *Reconciler) publish(eventType event.EventType, data any) {
	if r.config.EventBus == nil {
		return
	}
	r.config.EventBus.Publish(eventType, event.NewEvent(eventType, data))
}

func eventKind(name string) (models.TxKind, bool) {
	switch name {
	case ledger.EventMint:
		return models.TxKindMint, true
	case ledger.EventBurn:
		return models.TxKindBurn, true
	case ledger.EventTransfer:
		return models.TxKindTransfer, true
	}
	return "", false
}

// compare returns a description of the first difference between a ledger
// event and its mirror row, or an empty string when they agree
func compare(kind models.TxKind, evt ledger.LogEvent, row models.Transaction) string {
	if row.Kind != kind {
		return fmt.Sprintf("ledger has %s, mirror has %s", kind, row.Kind)
	}
	if row.Amount != evt.Amount {
		return fmt.Sprintf("ledger amount %d, mirror amount %d", evt.Amount, row.Amount)
	}
	if from := actorAddress(row.FromActor); from != evt.From {
		return fmt.Sprintf("ledger sender %q, mirror sender %q", evt.From, from)
	}
	if to := actorAddress(row.ToActor); to != evt.To {
		return fmt.Sprintf("ledger receiver %q, mirror receiver %q", evt.To, to)
	}
	return ""
}

func actorAddress(actor *models.Actor) string {
	if actor == nil {
		return ""
	}
	address, err := ledger.NormalizeAddress(actor.Address)
	if err != nil {
		return actor.Address
	}
	return address
}

func recordID(row models.Transaction) uint {
	if row.ActivityRecordID == nil {
		return 0
	}
	return *row.ActivityRecordID
}

func findingOrder(kind FindingKind) int {
	switch kind {
	case FindingMissingMirror:
		return 0
	case FindingMismatch:
		return 1
	case FindingPhantomMirror:
		return 2
	default:
		return 3
	}
}
