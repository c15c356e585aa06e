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
	"storefront-deposits-go/internal/common"
	"storefront-deposits-go/internal/models"

	"github.com/spf13/cobra"
)

func processCmd(cfg func() *models.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "process [transaction-or-deposit-id]",
		Short: "Re-drive one deposit through the credit routine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), cfg(), func(s *common.Services) error {
				result, err := s.Reconciler.ProcessSpecificTransaction(cmd.Context(), args[0])
				if result != nil {
					printProcessResult(newReport(cmd.OutOrStdout(), narrowWidth), args[0], result)
				}
				return err
			})
		},
	}
}

func processPendingCmd(cfg func() *models.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "process-pending",
		Short: "Replay every pending deposit that already carries a transaction id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), cfg(), func(s *common.Services) error {
				result, err := s.Reconciler.ProcessAllPendingDeposits(cmd.Context())
				if err != nil {
					return err
				}
				printBatchResult(newReport(cmd.OutOrStdout(), narrowWidth), result)
				return nil
			})
		},
	}
}

func printProcessResult(out *report, ref string, result *models.ProcessResult) {
	out.section("Reference: %s", ref)
	out.row(false, "Success: %t", result.Success)
	if result.DepositId != "" {
		out.row(false, "Deposit: %s", result.DepositId)
	}
	if result.Outcome != "" {
		out.row(false, "Outcome: %s", result.Outcome)
	}
	out.row(true, "Message: %s", result.Message)
}

func printBatchResult(out *report, result *models.BatchResult) {
	out.header("PENDING DEPOSIT REPLAY")
	out.row(false, "Deposits examined: %d", result.Count)
	out.row(false, "Succeeded:         %d", result.Succeeded)
	out.row(true, "Failed:            %d", result.Failed)
	out.footer(result.Message)
}
