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
	"errors"
	"fmt"
	"strconv"

	"github.com/blinklabs-io/canopy"
	"github.com/blinklabs-io/canopy/internal/config"
	"github.com/blinklabs-io/canopy/retirement"
	"github.com/spf13/cobra"
)

func creditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credit",
		Short: "Credit issuance and retirement commands",
	}
	cmd.PersistentFlags().
		String("certifier", "", "username of the certifying actor (defaults to the configured certifier)")
	cmd.AddCommand(creditMintCommand())
	cmd.AddCommand(creditMintPendingCommand())
	cmd.AddCommand(creditRetireCommand())
	cmd.AddCommand(creditPlanCommand())
	cmd.AddCommand(creditBalanceCommand())
	return cmd
}

func certifierName(cmd *cobra.Command) (string, error) {
	name, _ := cmd.Flags().GetString("certifier")
	if name != "" {
		return name, nil
	}
	if cfg := config.FromContext(cmd.Context()); cfg != nil &&
		cfg.Certifier != "" {
		return cfg.Certifier, nil
	}
	return "", errors.New(
		"no certifier given (use --certifier or the certifier config option)",
	)
}

func parseRecordID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 0)
	if err != nil {
		return 0, fmt.Errorf("invalid record ID %q: %w", arg, err)
	}
	return uint(id), nil
}

func creditMintCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint <record>",
		Short: "Mint the credits of a PENDING activity record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			certifier, err := certifierName(cmd)
			if err != nil {
				return err
			}
			return withEngine(
				cmd,
				func(ctx context.Context, e *canopy.Engine) error {
					res, err := e.Mint(ctx, certifier, recordID)
					if err != nil {
						return err
					}
					fmt.Printf(
						"minted %d credits for record %d in tx %s (block %d)\n",
						res.Amount,
						res.RecordID,
						res.TxHash,
						res.Block,
					)
					return nil
				},
			)
		},
	}
	return cmd
}

func creditMintPendingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint-pending",
		Short: "Mint the credits of every PENDING activity record",
		RunE: func(cmd *cobra.Command, args []string) error {
			certifier, err := certifierName(cmd)
			if err != nil {
				return err
			}
			return withEngine(
				cmd,
				func(ctx context.Context, e *canopy.Engine) error {
					results, err := e.MintPending(ctx, certifier)
					for _, res := range results {
						fmt.Printf(
							"minted %d credits for record %d in tx %s\n",
							res.Amount,
							res.RecordID,
							res.TxHash,
						)
					}
					return err
				},
			)
		},
	}
	return cmd
}

func creditRetireCommand() *cobra.Command {
	var amount uint64
	cmd := &cobra.Command{
		Use:   "retire <record>",
		Short: "Retire credits against a CREDITED activity record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			certifier, err := certifierName(cmd)
			if err != nil {
				return err
			}
			return withEngine(
				cmd,
				func(ctx context.Context, e *canopy.Engine) error {
					res, err := e.Retire(ctx, certifier, recordID, amount)
					var partialErr *retirement.PartialSuccessError
					if errors.As(err, &partialErr) {
						fmt.Printf(
							"transferred %d credits in tx %s, burn failed; re-run to finish\n",
							partialErr.Result.Deficit,
							partialErr.Result.TransferTx,
						)
						return err
					}
					if err != nil {
						return err
					}
					if res.Helper != nil {
						fmt.Printf(
							"transferred %d credits from %s in tx %s\n",
							res.Deficit,
							res.Helper.Username,
							res.TransferTx,
						)
					}
					fmt.Printf(
						"retired %d credits for record %d in tx %s\n",
						res.Amount,
						res.RecordID,
						res.BurnTx,
					)
					return nil
				},
			)
		},
	}
	cmd.Flags().Uint64Var(&amount, "amount", 0, "credits to retire")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func creditPlanCommand() *cobra.Command {
	var amount uint64
	cmd := &cobra.Command{
		Use:   "plan <username>",
		Short: "Show how a retirement would be covered without changing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(
				cmd,
				func(ctx context.Context, e *canopy.Engine) error {
					plan, err := e.Plan(ctx, args[0], amount)
					if err != nil {
						return err
					}
					fmt.Printf(
						"debtor %s holds %d, needs %d, deficit %d\n",
						plan.Debtor.Username,
						plan.DebtorBalance,
						plan.Amount,
						plan.Deficit,
					)
					switch {
					case plan.Deficit == 0:
						fmt.Println("no transfer needed")
					case plan.Helper != nil:
						fmt.Printf(
							"helper %s (balance %d) would transfer %d\n",
							plan.Helper.Username,
							plan.HelperBalance,
							plan.Deficit,
						)
					default:
						fmt.Println("no actor can cover the deficit")
					}
					return nil
				},
			)
		},
	}
	cmd.Flags().Uint64Var(&amount, "amount", 0, "credits to retire")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func creditBalanceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance <username>",
		Short: "Show the ledger balance of an actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(
				cmd,
				func(ctx context.Context, e *canopy.Engine) error {
					balance, err := e.Balance(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Printf("%s: %d\n", args[0], balance)
					return nil
				},
			)
		},
	}
	return cmd
}
