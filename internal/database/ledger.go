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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreditDeposit claims the deposit and credits its owner in one database transaction:
//  1. is_processed flips false -> true (zero rows means someone else already credited it)
//  2. the ledger entry is recorded
//  3. the profile balance is incremented in place
//
// Any failure rolls back all three, so is_processed=true always means the credit is durable.
func (s *Service) CreditDeposit(ctx context.Context, params store.CreditDepositParams) (*models.LedgerTransaction, error) {
	zap.L().Info("Crediting deposit",
		zap.String("deposit_id", params.DepositId),
		zap.String("user_id", params.UserId),
		zap.String("amount", params.Amount.String()))

	if params.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: credit amount must be positive, got %s", store.ErrValidation, params.Amount.String())
	}

	// Start database transaction for atomicity
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classifyError("begin credit", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			zap.L().Warn("Failed to roll back credit", zap.String("deposit_id", params.DepositId), zap.Error(err))
		}
	}()

	now := time.Now().UTC()

	result, err := tx.ExecContext(ctx, s.q(queryClaimDeposit), now, params.DepositId)
	if err != nil {
		return nil, classifyError("claim deposit", err)
	}
	claimed, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if claimed == 0 {
		zap.L().Info("Deposit already credited, skipping",
			zap.String("deposit_id", params.DepositId))
		return nil, fmt.Errorf("%w: deposit %s", store.ErrAlreadyCredited, params.DepositId)
	}

	entry := &models.LedgerTransaction{
		Id:          uuid.New().String(),
		UserId:      params.UserId,
		Type:        models.LedgerTypeDeposit,
		Amount:      params.Amount.Round(2),
		ReferenceId: params.DepositId,
		Status:      models.LedgerStatusCompleted,
		Description: params.Description,
		CreatedAt:   now,
	}

	_, err = tx.ExecContext(ctx, s.q(queryInsertLedgerTransaction),
		entry.Id, entry.UserId, entry.Type, entry.Amount.StringFixed(2), entry.ReferenceId,
		entry.Status, entry.Description, entry.CreatedAt)
	if err != nil {
		err = classifyError("insert ledger transaction", err)
		if errors.Is(err, store.ErrDuplicateTransaction) {
			return nil, fmt.Errorf("%w: ledger entry for deposit %s exists: %w", store.ErrAlreadyCredited, params.DepositId, err)
		}
		return nil, fmt.Errorf("%w: %w", store.ErrLedger, err)
	}

	if err := s.addBalance(ctx, tx, params.UserId, entry.Amount, now); err != nil {
		zap.L().Error("Ledger credit failed, rolling back",
			zap.String("deposit_id", params.DepositId),
			zap.String("user_id", params.UserId),
			zap.String("amount", entry.Amount.String()),
			zap.Error(err))
		return nil, err
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrLedger, classifyError("commit credit", err))
	}

	zap.L().Info("Deposit credited",
		zap.String("deposit_id", params.DepositId),
		zap.String("ledger_transaction_id", entry.Id),
		zap.String("user_id", params.UserId),
		zap.String("amount", entry.Amount.String()))

	return entry, nil
}

// AddBalance applies an additive change to a profile balance in a single statement.
func (s *Service) AddBalance(ctx context.Context, userId string, amount decimal.Decimal) error {
	return s.addBalance(ctx, s.db, userId, amount, time.Now().UTC())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Service) addBalance(ctx context.Context, ex execer, userId string, amount decimal.Decimal, now time.Time) error {
	result, err := ex.ExecContext(ctx, s.q(queryAddBalance), amount.StringFixed(2), now, userId)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrLedger, classifyError("update balance", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to check rows affected: %w", store.ErrLedger, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %w: %s", store.ErrLedger, store.ErrProfileNotFound, userId)
	}
	return nil
}

// GetUserBalance returns the stored balance, or nil when the user has no profile.
func (s *Service) GetUserBalance(ctx context.Context, userId string) (*decimal.Decimal, error) {
	zap.L().Debug("Getting balance", zap.String("user_id", userId))

	var balanceStr string
	err := s.db.QueryRowContext(ctx, s.q(queryGetBalance), userId).Scan(&balanceStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("user_id", userId), zap.Error(err))
		return nil, classifyError("get balance", err)
	}

	balance, err := parseAmount(balanceStr)
	if err != nil {
		zap.L().Error("Failed to parse balance", zap.String("balance_str", balanceStr), zap.Error(err))
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	return &balance, nil
}

// CalculateUserBalance recomputes a balance from completed ledger entries.
func (s *Service) CalculateUserBalance(ctx context.Context, userId string) (decimal.Decimal, error) {
	var sumStr string
	if err := s.db.QueryRowContext(ctx, s.q(queryCalculateBalance), userId).Scan(&sumStr); err != nil {
		return decimal.Zero, classifyError("calculate balance", err)
	}

	sum, err := parseAmount(sumStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse calculated balance '%s': %w", sumStr, err)
	}
	return sum, nil
}

// GetTransactionHistory returns paginated ledger entries for a user, newest first
func (s *Service) GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.LedgerTransaction, error) {
	zap.L().Debug("Getting transaction history",
		zap.String("user_id", userId),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, s.q(queryGetTransactionHistory), userId, limit, offset)
	if err != nil {
		return nil, classifyError("get transaction history", err)
	}
	defer closeRows(rows)

	var transactions []models.LedgerTransaction
	for rows.Next() {
		var tx models.LedgerTransaction
		var amountStr string
		err := rows.Scan(&tx.Id, &tx.UserId, &tx.Type, &amountStr, &tx.ReferenceId,
			&tx.Status, &tx.Description, &tx.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		tx.Amount, err = parseAmount(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}

		transactions = append(transactions, tx)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}
