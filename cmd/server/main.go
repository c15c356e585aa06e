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
	"os/signal"
	"syscall"

	"storefront-deposits-go/internal/common"
	"storefront-deposits-go/internal/config"
	"storefront-deposits-go/internal/server"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		common.InitializeBootstrapLogger()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.LogLevel)
	defer loggerCleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zap.L().Info("Starting storefront deposits server", zap.String("address", cfg.Server.Address))
	for _, w := range config.Warnings(cfg) {
		zap.L().Warn(w)
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	srv := server.New(cfg.Server, server.Deps{
		Webhooks:   services.Webhooks,
		Reconciler: services.Reconciler,
		Ledger:     services.Ledger,
		Verifier:   services.Verifier,
	})

	if err := srv.Run(ctx); err != nil {
		zap.L().Error("Server stopped with error", zap.Error(err))
		return
	}
	zap.L().Info("Server stopped gracefully")
}
