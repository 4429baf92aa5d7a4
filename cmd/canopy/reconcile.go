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

	"github.com/blinklabs-io/canopy"
	"github.com/spf13/cobra"
)

func reconcileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare the ledger with the local mirror once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(
				cmd,
				func(ctx context.Context, e *canopy.Engine) error {
					report, err := e.Reconcile(ctx)
					if err != nil {
						return err
					}
					fmt.Printf(
						"checked %d ledger events, %d mirror rows and %d open operations at block %d\n",
						report.LedgerEvents,
						report.MirrorRows,
						report.Operations,
						report.Block,
					)
					for _, f := range report.Findings {
						fmt.Printf("%-18s  %s  %s\n", f.Kind, f.TxHash, f.Detail)
					}
					if report.Key != "" {
						fmt.Printf("report archived as %s\n", report.Key)
					}
					if len(report.Findings) == 0 {
						fmt.Println("no discrepancies found")
					}
					return nil
				},
			)
		},
	}
	return cmd
}
