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
	"strings"

	"github.com/blinklabs-io/canopy"
	"github.com/blinklabs-io/canopy/database/models"
	"github.com/spf13/cobra"
)

func actorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actor",
		Short: "Actor seeding commands",
	}
	cmd.AddCommand(actorAddCommand())
	cmd.AddCommand(actorListCommand())
	return cmd
}

func roleNames() string {
	names := make([]string, 0, len(models.Roles))
	for _, r := range models.Roles {
		names = append(names, string(r))
	}
	return strings.Join(names, ", ")
}

func actorAddCommand() *cobra.Command {
	var role, address string
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Register an actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := models.ParseRole(role)
			if err != nil {
				return err
			}
			return withEngine(
				cmd,
				func(_ context.Context, e *canopy.Engine) error {
					actor, err := e.RegisterActor(args[0], r, address)
					if err != nil {
						return err
					}
					fmt.Printf(
						"registered %s (id %d, %s) at %s\n",
						actor.Username,
						actor.ID,
						actor.Role,
						actor.Address,
					)
					return nil
				},
			)
		},
	}
	cmd.Flags().
		StringVar(&role, "role", "", "actor role, one of: "+roleNames())
	cmd.Flags().
		StringVar(&address, "address", "", "ledger address (generated on the devnet when empty)")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func actorListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered actors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(
				cmd,
				func(_ context.Context, e *canopy.Engine) error {
					actors, err := e.Directory().ListActors()
					if err != nil {
						return err
					}
					fmt.Printf(
						"%-6s  %-20s  %-10s  %s\n",
						"ID",
						"USERNAME",
						"ROLE",
						"ADDRESS",
					)
					for _, a := range actors {
						fmt.Printf(
							"%-6d  %-20s  %-10s  %s\n",
							a.ID,
							a.Username,
							a.Role,
							a.Address,
						)
					}
					return nil
				},
			)
		},
	}
	return cmd
}
