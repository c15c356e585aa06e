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
	"fmt"

	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/store"

	"go.uber.org/zap"
)

// GetUserBalance returns the stored balance of a profile
func (s *LedgerService) GetUserBalance(ctx context.Context, userId string) (*models.UserBalance, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user_id is required", store.ErrValidation)
	}

	balance, err := s.store.GetUserBalance(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get user balance",
			zap.String("user_id", userId),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve balance: %w", err)
	}
	if balance == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrProfileNotFound, userId)
	}

	return &models.UserBalance{UserId: userId, Balance: *balance}, nil
}

// GetTransactionHistory returns paginated ledger entries for a user
func (s *LedgerService) GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.TransactionRecord, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user_id is required", store.ErrValidation)
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	transactions, err := s.store.GetTransactionHistory(ctx, userId, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get transaction history",
			zap.String("user_id", userId),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}

	result := make([]models.TransactionRecord, len(transactions))
	for i, tx := range transactions {
		result[i] = models.TransactionRecord{
			Id:          tx.Id,
			Type:        tx.Type,
			Amount:      tx.Amount,
			ReferenceId: tx.ReferenceId,
			Status:      tx.Status,
			CreatedAt:   tx.CreatedAt,
		}
	}

	return result, nil
}
