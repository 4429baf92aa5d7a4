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

	"github.com/blinklabs-io/canopy/event"
	"github.com/blinklabs-io/canopy/failure"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PendingTx is a submitted transaction awaiting confirmation
type PendingTx struct {
	gateway    *Gateway
	TxHash     string
	EntryPoint string
	Caller     string
}

// Pending rebuilds a handle for a transaction submitted earlier, such as
// one recorded in the saga log before a restart
func (g *Gateway) Pending(txHash, entryPoint, caller string) *PendingTx {
	return &PendingTx{
		gateway:    g,
		TxHash:     txHash,
		EntryPoint: entryPoint,
		Caller:     caller,
	}
}

// Poll checks once for a receipt. It returns false while the transaction
// is unconfirmed. A confirmed but failed transaction is returned with an
// error
func (p *PendingTx) Poll(ctx context.Context) (Receipt, bool, error) {
	g := p.gateway
	ret, err := g.breaker.Execute(func() (interface{}, error) {
		return g.contract.Receipt(ctx, p.TxHash)
	})
	if errors.Is(err, ErrReceiptPending) {
		return Receipt{}, false, nil
	}
	if err != nil {
		return Receipt{}, false, failure.New(
			failure.KindLedgerCall,
			p.EntryPoint,
			fmt.Errorf("receipt %s: %w", p.TxHash, err),
		)
	}
	receipt, _ := ret.(Receipt)
	return receipt, true, p.settle(receipt)
}

// Wait polls until the transaction is confirmed. It gives up after the
// gateway confirm timeout or when ctx is done, whichever comes first. Only
// the confirmation is retried, never the submission
func (p *PendingTx) Wait(ctx context.Context) (Receipt, error) {
	g := p.gateway
	ctx, span := g.tracer.Start(
		ctx,
		"ledger.confirm",
		trace.WithAttributes(
			attribute.String("ledger.entry_point", p.EntryPoint),
			attribute.String("ledger.tx_hash", p.TxHash),
		),
	)
	defer span.End()
	if g.confirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.confirmTimeout)
		defer cancel()
	}
	start := time.Now()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.pollInterval
	b.MaxInterval = 4 * g.pollInterval
	b.MaxElapsedTime = 0
	receipt, err := backoff.RetryWithData(
		func() (Receipt, error) {
			ret, err := g.breaker.Execute(func() (interface{}, error) {
				return g.contract.Receipt(ctx, p.TxHash)
			})
			if errors.Is(err, ErrUnknownTransaction) {
				return Receipt{}, backoff.Permanent(err)
			}
			if err != nil {
				return Receipt{}, err
			}
			receipt, _ := ret.(Receipt)
			return receipt, nil
		},
		backoff.WithContext(b, ctx),
	)
	if err != nil {
		g.observe(span, p.EntryPoint, "confirm", start, err)
		if errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, ErrReceiptPending) {
			err = fmt.Errorf(
				"transaction %s not confirmed within %s: %w",
				p.TxHash,
				time.Since(start).Round(time.Millisecond),
				err,
			)
		}
		return Receipt{}, failure.New(failure.KindLedgerCall, p.EntryPoint, err)
	}
	span.SetAttributes(attribute.Int64("ledger.block", int64(receipt.Block)))
	if err := p.settle(receipt); err != nil {
		g.observe(span, p.EntryPoint, "confirm", start, errors.Unwrap(err))
		return receipt, err
	}
	g.observe(span, p.EntryPoint, "confirm", start, nil)
	return receipt, nil
}

// settle turns a failed receipt into an error and announces a successful
// one
func (p *PendingTx) settle(receipt Receipt) error {
	g := p.gateway
	if !receipt.Success {
		return g.writeError(
			p.EntryPoint,
			p.Caller,
			&RevertError{EntryPoint: p.EntryPoint, Reason: receipt.Reason},
		)
	}
	g.logger.Debug(
		fmt.Sprintf("confirmed %s in block %d", p.EntryPoint, receipt.Block),
		"component", "ledger",
		"tx_hash", receipt.TxHash,
	)
	g.publish(
		event.LedgerWriteEventType,
		event.LedgerWriteEvent{
			EntryPoint: p.EntryPoint,
			Caller:     p.Caller,
			TxHash:     receipt.TxHash,
			Block:      receipt.Block,
		},
	)
	return nil
}
