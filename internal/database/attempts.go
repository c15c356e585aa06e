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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogAttempt appends one processing attempt to transaction_logs.
func (s *Service) LogAttempt(ctx context.Context, entry models.AttemptLog) error {
	if entry.Id == "" {
		entry.Id = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, s.q(queryInsertAttemptLog),
		entry.Id, entry.TransactionId, entry.DepositId, string(entry.Status), entry.ErrorMessage,
		entry.RequestData, entry.ResponseData, entry.ProcessingTimeMs, entry.IdempotencyKey,
		entry.CreatedAt.UTC())
	if err != nil {
		return classifyError("insert attempt log", err)
	}

	zap.L().Debug("Processing attempt logged",
		zap.String("transaction_id", entry.TransactionId),
		zap.String("status", string(entry.Status)),
		zap.Int64("processing_time_ms", entry.ProcessingTimeMs))
	return nil
}

func (s *Service) HasSuccessfulAttempt(ctx context.Context, idempotencyKey string) (bool, error) {
	return s.exists(ctx, queryHasSuccessfulAttempt, idempotencyKey)
}

func (s *Service) IsDepositProcessedByKey(ctx context.Context, idempotencyKey string) (bool, error) {
	return s.exists(ctx, queryIsDepositProcessedByKey, idempotencyKey)
}

func (s *Service) exists(ctx context.Context, query, arg string) (bool, error) {
	if arg == "" {
		return false, nil
	}
	var one int
	err := s.db.QueryRowContext(ctx, s.q(query), arg).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classifyError("lookup", err)
	}
	return true, nil
}

// ListAttemptsForDeposit returns the audit trail for a deposit, oldest first.
func (s *Service) ListAttemptsForDeposit(ctx context.Context, depositId string) ([]models.AttemptLog, error) {
	rows, err := s.db.QueryContext(ctx, s.q(queryListAttemptsForDeposit), depositId)
	if err != nil {
		return nil, classifyError("list attempts", err)
	}
	defer closeRows(rows)

	var entries []models.AttemptLog
	for rows.Next() {
		var e models.AttemptLog
		var status string
		if err := rows.Scan(&e.Id, &e.TransactionId, &e.DepositId, &status, &e.ErrorMessage,
			&e.RequestData, &e.ResponseData, &e.ProcessingTimeMs, &e.IdempotencyKey, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt log: %w", err)
		}
		e.Status = models.AttemptStatus(status)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempt rows: %w", err)
	}
	return entries, nil
}
