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

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/blinklabs-io/canopy"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/spf13/cobra"
)

func actorName(actor *models.Actor) string {
	if actor == nil {
		return "-"
	}
	return actor.Username
}

func transactionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions <username>",
		Short: "List the mirrored ledger transactions of an actor, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(
				cmd,
				func(_ context.Context, e *canopy.Engine) error {
					txs, err := e.Transactions(args[0])
					if err != nil {
						return err
					}
					fmt.Printf(
						"%-20s  %-9s  %-16s  %-16s  %10s  %s\n",
						"TIME",
						"KIND",
						"FROM",
						"TO",
						"AMOUNT",
						"TX",
					)
					for _, tx := range txs {
						fmt.Printf(
							"%-20s  %-9s  %-16s  %-16s  %10d  %s\n",
							tx.CreatedAt.UTC().Format(time.DateTime),
							tx.Kind,
							actorName(tx.FromActor),
							actorName(tx.ToActor),
							tx.Amount,
							tx.LedgerTxHash,
						)
					}
					return nil
				},
			)
		},
	}
	return cmd
}
