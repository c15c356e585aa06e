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

func mirrorAuditCmd(cfg func() *models.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "mirror-audit [user-id]",
		Short: "Compare stored balances against the Formance mirror",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withServices(ctx, cfg(), func(s *common.Services) error {
				if s.Mirror == nil {
					return errors.New("formance mirror is not configured (FORMANCE_STACK_URL)")
				}

				filter := ""
				if len(args) == 1 {
					filter = args[0]
				}
				profiles, err := common.ResolveProfiles(ctx, s.DbService, filter)
				if err != nil {
					return err
				}

				out := newReport(cmd.OutOrStdout(), wideWidth)
				out.header("FORMANCE MIRROR AUDIT")
				drifted := 0
				for i, p := range profiles {
					mirrored, err := s.Mirror.GetUserBalance(ctx, p.Id)
					if err != nil {
						return err
					}
					status := "ok"
					if !mirrored.Equal(p.Balance) {
						status = "DRIFT"
						drifted++
					}
					out.row(i == len(profiles)-1, "%-24s local %12s  mirror %12s  %s",
						p.Id,
						money(p.Balance),
						money(mirrored),
						status)
				}
				out.footer(fmt.Sprintf("%d profiles audited, %d drifted", len(profiles), drifted))
				return nil
			})
		},
	}
}
