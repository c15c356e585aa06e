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

package reconcile

import (
	"context"
	"errors"
	"fmt"

	"storefront-deposits-go/internal/idempotency"
	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/paypal"
	"storefront-deposits-go/internal/retry"
	"storefront-deposits-go/internal/store"

	"go.uber.org/zap"
)

const manualEventType = "PAYMENT.CAPTURE.COMPLETED"

// ProcessSpecificTransaction re-checks one transaction (or order) id with the provider
// and drives its deposit through the processor. Transient failures are retried
// with linear backoff; when the provider stays unreachable the deposit carrying
// that transaction id is credited from local records.
func (r *Reconciler) ProcessSpecificTransaction(ctx context.Context, id string) (*models.ProcessResult, error) {
	if id == "" {
		return &models.ProcessResult{Message: "transaction id is required", Outcome: models.OutcomeFailed},
			fmt.Errorf("%w: transaction id is required", store.ErrValidation)
	}

	if r.provider == nil {
		zap.L().Warn("Provider client not configured, crediting deposit directly",
			zap.String("transaction_id", id))
		return r.processor.ProcessDepositBalance(ctx, id)
	}

	var result *models.ProcessResult
	policy := retry.Policy{
		MaxAttempts: r.opts.ManualRetries + 1,
		Delay:       r.opts.RetryDelay,
		Backoff:     retry.Linear,
		Retryable:   transient,
		Name:        "process_specific_transaction",
	}
	err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		req, err := r.checkProvider(ctx, id)
		if err != nil {
			return err
		}
		res, err := r.processor.ProcessDeposit(ctx, *req)
		result = res
		return err
	})
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return &models.ProcessResult{Message: "cancelled", Outcome: models.OutcomeFailed}, err
	}
	// A definitive provider answer is final. Only an unreachable provider falls
	// back to the locally recorded transaction.
	if !errors.Is(err, store.ErrProviderUnavailable) {
		if result == nil {
			result = &models.ProcessResult{Message: describe(err), Outcome: models.OutcomeFailed}
		}
		zap.L().Warn("Manual processing failed",
			zap.String("transaction_id", id),
			zap.Error(err))
		return result, err
	}

	zap.L().Warn("Provider check failed, falling back to direct deposit credit",
		zap.String("transaction_id", id),
		zap.Error(err))

	fallback, ferr := r.processor.ProcessDepositBalance(ctx, id)
	if ferr != nil {
		return &models.ProcessResult{
			Success: false,
			Message: describe(ferr),
			Outcome: models.OutcomeFailed,
		}, errors.Join(err, ferr)
	}
	return fallback, nil
}

// checkProvider looks id up as a capture, then as an order, and turns the
// provider's view into a processing request.
func (r *Reconciler) checkProvider(ctx context.Context, id string) (*models.ProcessRequest, error) {
	capture, err := r.provider.GetCapture(ctx, id)
	if err == nil {
		return captureRequest(capture, capture.CustomId, capture.OrderId()), nil
	}
	if !errors.Is(err, store.ErrProviderNotFound) {
		return nil, err
	}

	order, err := r.provider.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if c := order.FirstCapture(); c != nil {
		customId := c.CustomId
		if customId == "" {
			customId = order.CustomId()
		}
		req := captureRequest(c, customId, order.Id)
		if order.Payer != nil {
			req.PayerEmail = order.Payer.EmailAddress
			req.PayerId = order.Payer.PayerId
		}
		return req, nil
	}

	// An order without a capture carries no transaction id yet.
	req := &models.ProcessRequest{
		CustomId:       order.CustomId(),
		OrderId:        order.Id,
		DeclaredStatus: paypal.StatusFromCapture(order.Status),
		Source:         "manual",
	}
	if order.Payer != nil {
		req.PayerEmail = order.Payer.EmailAddress
		req.PayerId = order.Payer.PayerId
	}
	return req, nil
}

func captureRequest(c *models.Capture, customId, orderId string) *models.ProcessRequest {
	return &models.ProcessRequest{
		TransactionId:  c.Id,
		CustomId:       customId,
		OrderId:        orderId,
		DeclaredStatus: paypal.StatusFromCapture(c.Status),
		IdempotencyKey: idempotency.Key(c.Id, manualEventType),
		Source:         "manual",
	}
}
