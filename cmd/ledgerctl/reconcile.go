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
	"errors"
	"fmt"

	"storefront-deposits-go/internal/common"
	"storefront-deposits-go/internal/models"

	"github.com/spf13/cobra"
)

func reconcileCmd(cfg func() *models.Config) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reconcile [user-id]",
		Short: "Recompute balances from the ledger and correct drift",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("pass either a user id or --all")
			}
			return withServices(cmd.Context(), cfg(), func(s *common.Services) error {
				var results []models.ReconcileResult
				if all {
					var err error
					results, err = s.Reconciler.ReconcileAllUsers(cmd.Context())
					if err != nil {
						return err
					}
				} else {
					r, err := s.Reconciler.ReconcileUserBalance(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					results = append(results, *r)
				}
				printReconcileResults(newReport(cmd.OutOrStdout(), wideWidth), results)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Reconcile every profile")
	return cmd
}

func printReconcileResults(out *report, results []models.ReconcileResult) {
	out.header("BALANCE RECONCILIATION")
	adjusted := 0
	for _, r := range results {
		out.section("User: %s", r.UserId)
		out.row(false, "Stored:     %s", money(r.OldBalance))
		out.row(false, "Calculated: %s", money(r.CalculatedBalance))
		out.row(false, "Difference: %s", money(r.Difference))
		out.row(true, "Adjusted:   %t (now %s)", r.Adjusted, money(r.NewBalance))
		if r.Adjusted {
			adjusted++
		}
	}
	out.footer(fmt.Sprintf("Reconciled %d profiles, %d adjusted", len(results), adjusted))
}
