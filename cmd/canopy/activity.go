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
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func activityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Activity record commands",
	}
	cmd.AddCommand(activitySubmitCommand())
	cmd.AddCommand(activityListCommand())
	cmd.AddCommand(activityPendingCommand())
	return cmd
}

func printRecords(records []models.ActivityRecord) {
	fmt.Printf(
		"%-6s  %-10s  %-8s  %-14s  %-20s  %s\n",
		"ID",
		"STATE",
		"ACTOR",
		"CO2",
		"ACTIVITY",
		"DESCRIPTION",
	)
	for _, r := range records {
		activityName := fmt.Sprintf("#%d", r.ActivityID)
		if r.Activity != nil {
			activityName = r.Activity.Type
		}
		fmt.Printf(
			"%-6d  %-10s  %-8d  %-14s  %-20s  %s\n",
			r.ID,
			r.State,
			r.ActorID,
			r.Co2Reduction.String(),
			activityName,
			r.Description,
		)
	}
}

func activitySubmitCommand() *cobra.Command {
	var activityType, description, co2 string
	cmd := &cobra.Command{
		Use:   "submit <username>",
		Short: "Submit a PENDING activity claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reduction, err := decimal.NewFromString(co2)
			if err != nil {
				return fmt.Errorf("invalid co2 reduction %q: %w", co2, err)
			}
			return withEngine(
				cmd,
				func(_ context.Context, e *canopy.Engine) error {
					record, err := e.SubmitActivity(
						activityType,
						description,
						args[0],
						reduction,
					)
					if err != nil {
						return err
					}
					fmt.Printf(
						"submitted record %d (%s)\n",
						record.ID,
						record.State,
					)
					return nil
				},
			)
		},
	}
	cmd.Flags().StringVar(&activityType, "type", "", "activity type")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&co2, "co2", "", "CO2 reduction")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("co2")
	return cmd
}

func activityListCommand() *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "list <username>",
		Short: "List the activity records of an actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(
				cmd,
				func(_ context.Context, e *canopy.Engine) error {
					actor, err := e.Directory().GetByUsername(args[0])
					if err != nil {
						return err
					}
					records, err := e.Tracker().ListByActorState(
						actor,
						models.RecordState(state),
					)
					if err != nil {
						return err
					}
					printRecords(records)
					return nil
				},
			)
		},
	}
	cmd.Flags().
		StringVar(&state, "state", "", "only list records in this state (PENDING, CREDITED, RETIRED)")
	return cmd
}

func activityPendingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List every PENDING activity record",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(
				cmd,
				func(_ context.Context, e *canopy.Engine) error {
					records, err := e.Tracker().ListPending()
					if err != nil {
						return err
					}
					printRecords(records)
					return nil
				},
			)
		},
	}
	return cmd
}
