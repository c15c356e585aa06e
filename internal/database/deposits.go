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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeposit(row rowScanner) (*models.Deposit, error) {
	var d models.Deposit
	var amountStr, netAmountStr, status string
	err := row.Scan(&d.Id, &d.UserId, &amountStr, &netAmountStr, &status, &d.TransactionId,
		&d.ProcessAttempts, &d.IsProcessed, &d.IdempotencyKey, &d.PayerEmail, &d.PayerId,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	d.Status = models.DepositStatus(status)
	if d.Amount, err = parseAmount(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	if d.NetAmount, err = parseAmount(netAmountStr); err != nil {
		return nil, fmt.Errorf("failed to parse net amount '%s': %w", netAmountStr, err)
	}
	return &d, nil
}

// parseAmount reads a stored money value. SQLite keeps REAL columns, so values
// are rounded back to cents.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Round(2), nil
}

// CreateDeposit inserts a pending deposit. Input validation is the caller's job.
func (s *Service) CreateDeposit(ctx context.Context, params store.CreateDepositParams) (*models.Deposit, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, s.q(queryInsertDeposit),
		id, params.UserId, params.Amount.StringFixed(2), params.NetAmount.StringFixed(2), now, now)
	if err != nil {
		zap.L().Error("Failed to insert deposit",
			zap.String("user_id", params.UserId),
			zap.String("amount", params.Amount.String()),
			zap.Error(err))
		return nil, classifyError("insert deposit", err)
	}

	zap.L().Info("Deposit created",
		zap.String("deposit_id", id),
		zap.String("user_id", params.UserId),
		zap.String("amount", params.Amount.String()),
		zap.String("net_amount", params.NetAmount.String()))

	return &models.Deposit{
		Id:        id,
		UserId:    params.UserId,
		Amount:    params.Amount,
		NetAmount: params.NetAmount,
		Status:    models.DepositStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Service) FindDepositById(ctx context.Context, id string) (*models.Deposit, error) {
	return s.findDeposit(ctx, queryGetDepositById, id)
}

func (s *Service) FindDepositByTransactionId(ctx context.Context, transactionId string) (*models.Deposit, error) {
	return s.findDeposit(ctx, queryGetDepositByTransactionId, transactionId)
}

// FindLatestUnmatchedPendingDeposit returns the most recently created pending
// deposit that has no provider transaction id yet.
func (s *Service) FindLatestUnmatchedPendingDeposit(ctx context.Context) (*models.Deposit, error) {
	deposit, err := scanDeposit(s.db.QueryRowContext(ctx, s.q(queryGetLatestUnmatchedPending)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyError("find latest unmatched deposit", err)
	}
	return deposit, nil
}

// findDeposit returns nil, nil when no row matches.
func (s *Service) findDeposit(ctx context.Context, query, arg string) (*models.Deposit, error) {
	if arg == "" {
		return nil, nil
	}
	deposit, err := scanDeposit(s.db.QueryRowContext(ctx, s.q(query), arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyError("find deposit", err)
	}
	return deposit, nil
}

// AttachTransactionId records the provider transaction id on a deposit and marks it
// completed. Attaching the same id twice is a no-op; a different id is rejected.
func (s *Service) AttachTransactionId(ctx context.Context, depositId, transactionId string) error {
	result, err := s.db.ExecContext(ctx, s.q(queryAttachTransactionId),
		transactionId, time.Now().UTC(), depositId, transactionId)
	if err != nil {
		return classifyError("attach transaction id", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected > 0 {
		zap.L().Info("Transaction id attached to deposit",
			zap.String("deposit_id", depositId),
			zap.String("transaction_id", transactionId))
		return nil
	}

	existing, err := s.FindDepositById(ctx, depositId)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: deposit %s", store.ErrDepositNotFound, depositId)
	}
	return fmt.Errorf("%w: deposit %s already has transaction %s", store.ErrDuplicateTransaction, depositId, existing.TransactionId.String)
}

// UpdateDepositProcessing persists one processing attempt and returns the row as stored.
func (s *Service) UpdateDepositProcessing(ctx context.Context, params store.UpdateDepositParams) (*models.Deposit, error) {
	if !params.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown deposit status %q", store.ErrValidation, params.Status)
	}

	result, err := s.db.ExecContext(ctx, s.q(queryUpdateDepositProcessing),
		string(params.Status), params.PayerEmail, params.PayerId, params.TransactionId,
		params.IdempotencyKey, time.Now().UTC(), params.DepositId)
	if err != nil {
		return nil, classifyError("update deposit", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: deposit %s", store.ErrDepositNotFound, params.DepositId)
	}

	deposit, err := s.FindDepositById(ctx, params.DepositId)
	if err != nil {
		return nil, err
	}
	if deposit == nil {
		return nil, fmt.Errorf("%w: deposit %s", store.ErrDepositNotFound, params.DepositId)
	}
	return deposit, nil
}

// ListPendingWithTransaction returns pending deposits that already carry a provider
// transaction id.
func (s *Service) ListPendingWithTransaction(ctx context.Context) ([]models.Deposit, error) {
	return s.listDeposits(ctx, queryListPendingWithTransaction)
}

// ListCompletedSince returns completed deposits created at or after since.
func (s *Service) ListCompletedSince(ctx context.Context, since time.Time) ([]models.Deposit, error) {
	return s.listDeposits(ctx, queryListCompletedSince, since.UTC())
}

func (s *Service) listDeposits(ctx context.Context, query string, args ...any) ([]models.Deposit, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, classifyError("list deposits", err)
	}
	defer closeRows(rows)

	var deposits []models.Deposit
	for rows.Next() {
		deposit, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposits = append(deposits, *deposit)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during deposit row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating deposit rows: %w", err)
	}

	return deposits, nil
}
