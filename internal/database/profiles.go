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

	"go.uber.org/zap"
)

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	var balanceStr string
	if err := row.Scan(&p.Id, &p.Email, &balanceStr, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	balance, err := parseAmount(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
	}
	p.Balance = balance
	return &p, nil
}

// CreateProfile inserts a zero-balance profile.
func (s *Service) CreateProfile(ctx context.Context, userId, email string) (*models.Profile, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user id is required", store.ErrValidation)
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, s.q(queryInsertProfile), userId, email, now, now); err != nil {
		return nil, classifyError("insert profile", err)
	}

	zap.L().Info("Profile created", zap.String("user_id", userId), zap.String("email", email))
	return &models.Profile{Id: userId, Email: email, CreatedAt: now, UpdatedAt: now}, nil
}

// GetProfile returns nil, nil when the profile does not exist.
func (s *Service) GetProfile(ctx context.Context, userId string) (*models.Profile, error) {
	profile, err := scanProfile(s.db.QueryRowContext(ctx, s.q(queryGetProfile), userId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyError("get profile", err)
	}
	return profile, nil
}

func (s *Service) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	rows, err := s.db.QueryContext(ctx, s.q(queryListProfiles))
	if err != nil {
		return nil, classifyError("list profiles", err)
	}
	defer closeRows(rows)

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during profile row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating profile rows: %w", err)
	}
	return profiles, nil
}
