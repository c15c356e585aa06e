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
)

func profileCmd(cfg func() *models.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage user profiles",
	}

	var email string
	add := &cobra.Command{
		Use:   "add [user-id]",
		Short: "Create a profile with a zero balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := common.InitializeDatabaseOnly(ctx, cfg())
			if err != nil {
				return err
			}
			defer db.Close()

			p, err := db.CreateProfile(ctx, args[0], email)
			if err != nil {
				return err
			}
			fmt.Printf("Created profile %s (%s)\n", p.Id, p.Email)
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "Profile email address")

	cmd.AddCommand(add)
	return cmd
}
