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

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"storefront-deposits-go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type WebhookHandler interface {
	Handle(ctx context.Context, event *models.WebhookEvent) (*models.ProcessResult, error)
}

type Reconciler interface {
	ProcessSpecificTransaction(ctx context.Context, id string) (*models.ProcessResult, error)
	ProcessAllPendingDeposits(ctx context.Context) (*models.BatchResult, error)
	ReconcileUserBalance(ctx context.Context, userId string) (*models.ReconcileResult, error)
}

type Ledger interface {
	CreateDepositRecord(ctx context.Context, userId string, grossAmount decimal.Decimal) (*models.CreateDepositResult, error)
	UpdateDepositWithTransaction(ctx context.Context, depositId, transactionId string) (*models.UpdateDepositResult, error)
	GetUserBalance(ctx context.Context, userId string) (*models.UserBalance, error)
	GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.TransactionRecord, error)
	HealthCheck(ctx context.Context) error
}

type SignatureVerifier interface {
	Verify(ctx context.Context, header http.Header, payload []byte) (bool, error)
}

type Deps struct {
	Webhooks   WebhookHandler
	Reconciler Reconciler
	Ledger     Ledger
	Verifier   SignatureVerifier
}

type Server struct {
	cfg        models.ServerConfig
	deps       Deps
	router     *gin.Engine
	httpServer *http.Server
}

func New(cfg models.ServerConfig, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: gin.New(),
	}
	s.setupRouter()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := s.router
	r.HandleMethodNotAllowed = true
	r.Use(requestLogger(), recovery())

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"success": false, "message": "method not allowed"})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "not found"})
	})

	h := &handlers{deps: s.deps}

	r.GET("/health", h.health)
	r.GET("/ready", h.ready)

	r.POST("/webhooks/paypal", h.paypalWebhook)
	r.POST("/payments/process", h.processPayment)

	r.POST("/deposits", h.createDeposit)
	r.POST("/deposits/:id/transaction", h.attachTransaction)
	r.GET("/users/:id/balance", h.userBalance)
	r.GET("/users/:id/transactions", h.userTransactions)

	admin := r.Group("/admin", APIKeyAuth(s.cfg.AdminApiKey))
	admin.POST("/deposits/process-pending", h.processPending)
	admin.POST("/users/:id/reconcile", h.reconcileUser)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}

	errChan := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("address", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("Shutting down HTTP server")
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	zap.L().Info("HTTP server stopped gracefully")
	return nil
}
