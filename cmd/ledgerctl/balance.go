/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"

	"storefront-deposits-go/internal/common"
	"storefront-deposits-go/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func balanceCmd(cfg func() *models.Config) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "balance [user-id]",
		Short: "Show stored balances and recent ledger entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := common.InitializeDatabaseOnly(ctx, cfg())
			if err != nil {
				return err
			}
			defer db.Close()

			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			profiles, err := common.ResolveProfiles(ctx, db, filter)
			if err != nil {
				return err
			}

			out := newReport(cmd.OutOrStdout(), wideWidth)
			out.header("USER BALANCES")
			for _, p := range profiles {
				entries, err := db.GetTransactionHistory(ctx, p.Id, limit, 0)
				if err != nil {
					zap.L().Error("Failed to get history", zap.String("user_id", p.Id), zap.Error(err))
					continue
				}
				printProfile(out, p, entries)
			}
			out.footer(fmt.Sprintf("%d profiles", len(profiles)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Ledger entries to show per user")
	return cmd
}

func printProfile(out *report, p models.Profile, entries []models.LedgerTransaction) {
	out.section("User: %s (%s)", p.Id, p.Email)
	out.row(false, "Balance: %s", money(p.Balance))
	out.row(len(entries) == 0, "Entries: %d", len(entries))
	if len(entries) == 0 {
		return
	}
	out.rule()

	for i, e := range entries {
		isLast := i == len(entries)-1
		out.row(isLast, "%-10s %12s  ref: %-15s  %s",
			e.Type,
			money(e.Amount),
			shortRef(e.ReferenceId),
			e.CreatedAt.Format("2006-01-02 15:04:05"))
		if e.Description != "" {
			out.detail(isLast, e.Description)
		}
	}
}
