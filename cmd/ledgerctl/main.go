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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront-deposits-go/internal/common"
	"storefront-deposits-go/internal/config"
	"storefront-deposits-go/internal/models"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	var cfg *models.Config
	var loggerCleanup func()

	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operator tooling for storefront deposits and balances",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			_, loggerCleanup = common.InitializeLogger(cfg.LogLevel)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if loggerCleanup != nil {
				loggerCleanup()
			}
		},
	}

	loadConfig := func() *models.Config { return cfg }

	rootCmd.AddCommand(processCmd(loadConfig))
	rootCmd.AddCommand(processPendingCmd(loadConfig))
	rootCmd.AddCommand(reconcileCmd(loadConfig))
	rootCmd.AddCommand(balanceCmd(loadConfig))
	rootCmd.AddCommand(profileCmd(loadConfig))
	rootCmd.AddCommand(mirrorAuditCmd(loadConfig))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withServices runs fn with the full service graph and closes it afterwards.
func withServices(ctx context.Context, cfg *models.Config, fn func(*common.Services) error) error {
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer services.Close()
	return fn(services)
}
