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
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/paypal"
	"storefront-deposits-go/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type handlers struct {
	deps Deps
}

type processPaymentRequest struct {
	TransactionId string `json:"transaction_id"`
	OrderId       string `json:"order_id"`
}

type createDepositRequest struct {
	UserId string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

type attachTransactionRequest struct {
	TransactionId string `json:"transaction_id"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) ready(c *gin.Context) {
	if err := h.deps.Ledger.HealthCheck(c.Request.Context()); err != nil {
		zap.L().Warn("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *handlers) paypalWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, failureBody("unable to read request body"))
		return
	}

	verified, err := h.deps.Verifier.Verify(c.Request.Context(), c.Request.Header, body)
	if err != nil {
		zap.L().Error("Webhook signature could not be verified", zap.Error(err))
		if errors.Is(err, store.ErrProviderUnavailable) {
			// The provider redelivers on 5xx.
			c.JSON(http.StatusBadGateway, failureBody("signature verification unavailable"))
			return
		}
		c.JSON(http.StatusUnauthorized, failureBody("invalid signature"))
		return
	}
	if !verified {
		zap.L().Warn("Webhook signature verification failed", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, failureBody("invalid signature"))
		return
	}

	event, err := paypal.ParseWebhook(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, failureBody(err.Error()))
		return
	}

	ctx := models.WithDeliveryContext(c.Request.Context(), &models.DeliveryContext{
		EventId:    event.Id,
		EventType:  event.EventType,
		RawPayload: body,
		RemoteAddr: c.ClientIP(),
		ReceivedAt: time.Now().UTC(),
	})

	result, err := h.deps.Webhooks.Handle(ctx, event)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrDepositNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, resultOrFailure(result, err))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) processPayment(c *gin.Context) {
	var req processPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failureBody("invalid request body"))
		return
	}
	id := req.TransactionId
	if id == "" {
		id = req.OrderId
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, failureBody("transaction_id or order_id is required"))
		return
	}

	result, err := h.deps.Reconciler.ProcessSpecificTransaction(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), resultOrFailure(result, err))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) createDeposit(c *gin.Context) {
	var req createDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.CreateDepositResult{Success: false, Error: "invalid request body"})
		return
	}

	result, err := h.deps.Ledger.CreateDepositRecord(c.Request.Context(), req.UserId, req.Amount)
	if err != nil {
		if result == nil {
			result = &models.CreateDepositResult{Success: false, Error: err.Error()}
		}
		c.JSON(statusFor(err), result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *handlers) attachTransaction(c *gin.Context) {
	var req attachTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.UpdateDepositResult{Success: false, Error: "invalid request body"})
		return
	}

	result, err := h.deps.Ledger.UpdateDepositWithTransaction(c.Request.Context(), c.Param("id"), req.TransactionId)
	if err != nil {
		if result == nil {
			result = &models.UpdateDepositResult{Success: false, Error: err.Error()}
		}
		c.JSON(statusFor(err), result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) userBalance(c *gin.Context) {
	balance, err := h.deps.Ledger.GetUserBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (h *handlers) userTransactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, err := h.deps.Ledger.GetTransactionHistory(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": records})
}

func (h *handlers) processPending(c *gin.Context) {
	result, err := h.deps.Reconciler.ProcessAllPendingDeposits(c.Request.Context())
	if err != nil {
		if result == nil {
			result = &models.BatchResult{Success: false, Message: err.Error()}
		}
		c.JSON(statusFor(err), result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) reconcileUser(c *gin.Context) {
	result, err := h.deps.Reconciler.ReconcileUserBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// statusFor maps an error chain to an HTTP status. Ledger failures are checked
// before not-found so a missing profile during a credit stays a server error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, store.ErrLedger):
		return http.StatusInternalServerError
	case errors.Is(err, store.ErrDepositNotFound), errors.Is(err, store.ErrProfileNotFound),
		errors.Is(err, store.ErrProviderNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateTransaction):
		return http.StatusConflict
	case errors.Is(err, store.ErrProviderUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func failureBody(message string) models.ProcessResult {
	return models.ProcessResult{Success: false, Message: message, Outcome: models.OutcomeFailed}
}

func resultOrFailure(result *models.ProcessResult, err error) *models.ProcessResult {
	if result != nil {
		return result
	}
	r := failureBody(err.Error())
	return &r
}
