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

package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type createDepositInput struct {
	UserId string          `validate:"required"`
	Amount decimal.Decimal `validate:"gte=1"`
}

type attachInput struct {
	DepositId     string `validate:"required"`
	TransactionId string `validate:"required"`
}

// CreateDepositRecord records a pending deposit for a checkout. The returned id
// is what the checkout passes to the provider as custom_id.
func (s *LedgerService) CreateDepositRecord(ctx context.Context, userId string, grossAmount decimal.Decimal) (*models.CreateDepositResult, error) {
	input := createDepositInput{UserId: strings.TrimSpace(userId), Amount: grossAmount}
	if err := s.validate.Struct(input); err != nil {
		msg := validationMessage(err)
		zap.L().Warn("Invalid deposit parameters",
			zap.String("user_id", userId),
			zap.String("amount", grossAmount.String()),
			zap.String("reason", msg))
		return &models.CreateDepositResult{Success: false, Error: msg},
			fmt.Errorf("%w: %s", store.ErrValidation, msg)
	}

	net := s.fees.NetAmount(grossAmount)
	deposit, err := s.store.CreateDeposit(ctx, store.CreateDepositParams{
		UserId:    input.UserId,
		Amount:    grossAmount.Round(2),
		NetAmount: net,
	})
	if err != nil {
		msg := "failed to create deposit"
		if errors.Is(err, store.ErrAuthorization) {
			msg = "not authorized to create deposit"
		}
		zap.L().Error("Deposit creation failed",
			zap.String("user_id", input.UserId),
			zap.String("amount", grossAmount.String()),
			zap.Error(err))
		return &models.CreateDepositResult{Success: false, Error: msg}, err
	}

	zap.L().Info("Deposit created",
		zap.String("deposit_id", deposit.Id),
		zap.String("user_id", deposit.UserId),
		zap.String("amount", deposit.Amount.String()),
		zap.String("net_amount", deposit.NetAmount.String()))

	return &models.CreateDepositResult{
		Id:        deposit.Id,
		NetAmount: deposit.NetAmount,
		Success:   true,
	}, nil
}

// UpdateDepositWithTransaction is the client-redirect confirmation: it attaches the
// provider transaction id and runs the same credit routine as the webhook.
func (s *LedgerService) UpdateDepositWithTransaction(ctx context.Context, depositId, transactionId string) (*models.UpdateDepositResult, error) {
	input := attachInput{DepositId: strings.TrimSpace(depositId), TransactionId: strings.TrimSpace(transactionId)}
	if err := s.validate.Struct(input); err != nil {
		msg := validationMessage(err)
		return &models.UpdateDepositResult{Success: false, Error: msg},
			fmt.Errorf("%w: %s", store.ErrValidation, msg)
	}

	if err := s.store.AttachTransactionId(ctx, input.DepositId, input.TransactionId); err != nil {
		zap.L().Error("Failed to attach transaction id",
			zap.String("deposit_id", input.DepositId),
			zap.String("transaction_id", input.TransactionId),
			zap.Error(err))
		return &models.UpdateDepositResult{Success: false, Error: err.Error()}, err
	}

	result, err := s.processor.ProcessDepositBalance(ctx, input.TransactionId)
	if err != nil {
		msg := "failed to credit deposit"
		if result != nil && result.Message != "" {
			msg = result.Message
		}
		return &models.UpdateDepositResult{Success: false, Error: msg}, err
	}

	return &models.UpdateDepositResult{Success: result.Success}, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Field() {
	case "UserId":
		return "user_id is required"
	case "Amount":
		return "amount must be at least 1"
	case "DepositId":
		return "deposit_id is required"
	case "TransactionId":
		return "transaction_id is required"
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
