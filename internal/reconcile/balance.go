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
	"encoding/json"
	"fmt"
	"time"

	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/store"

	"go.uber.org/zap"
)

// ReconcileUserBalance recomputes the balance from the ledger and applies the
// difference additively when it exceeds the tolerance. Difference is
// calculated minus stored.
func (r *Reconciler) ReconcileUserBalance(ctx context.Context, userId string) (*models.ReconcileResult, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user id is required", store.ErrValidation)
	}
	start := time.Now()

	stored, err := r.store.GetUserBalance(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored balance: %w", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrProfileNotFound, userId)
	}

	calculated, err := r.store.CalculateUserBalance(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate balance: %w", err)
	}

	diff := calculated.Sub(*stored).Round(2)
	result := &models.ReconcileResult{
		UserId:            userId,
		OldBalance:        *stored,
		CalculatedBalance: calculated,
		NewBalance:        *stored,
		Difference:        diff,
	}

	if diff.Abs().LessThanOrEqual(r.opts.Tolerance) {
		zap.L().Debug("Balance within tolerance",
			zap.String("user_id", userId),
			zap.String("balance", stored.String()),
			zap.String("difference", diff.String()))
		return result, nil
	}

	zap.L().Warn("Balance drift detected, applying adjustment",
		zap.String("user_id", userId),
		zap.String("stored", stored.String()),
		zap.String("calculated", calculated.String()),
		zap.String("difference", diff.String()))

	if err := r.store.AddBalance(ctx, userId, diff); err != nil {
		r.logAdjustment(ctx, result, err, time.Since(start))
		return nil, fmt.Errorf("failed to apply balance adjustment: %w", err)
	}

	result.Adjusted = true
	if fresh, err := r.store.GetUserBalance(ctx, userId); err == nil && fresh != nil {
		result.NewBalance = *fresh
	} else {
		result.NewBalance = stored.Add(diff)
	}

	r.logAdjustment(ctx, result, nil, time.Since(start))
	r.mirrorAdjustment(ctx, result)
	return result, nil
}

// ReconcileAllUsers reconciles every profile. A failure for one user is logged
// and the rest continue.
func (r *Reconciler) ReconcileAllUsers(ctx context.Context) ([]models.ReconcileResult, error) {
	profiles, err := r.store.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	results := make([]models.ReconcileResult, 0, len(profiles))
	for _, p := range profiles {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		res, err := r.ReconcileUserBalance(ctx, p.Id)
		if err != nil {
			zap.L().Error("Failed to reconcile user", zap.String("user_id", p.Id), zap.Error(err))
			continue
		}
		results = append(results, *res)
	}
	return results, nil
}

func (r *Reconciler) logAdjustment(ctx context.Context, result *models.ReconcileResult, cause error, elapsed time.Duration) {
	data, _ := json.Marshal(result)
	entry := models.AttemptLog{
		TransactionId:    "reconcile:" + result.UserId,
		Status:           models.AttemptStatusSuccess,
		ResponseData:     string(data),
		ProcessingTimeMs: elapsed.Milliseconds(),
	}
	if cause != nil {
		entry.Status = models.AttemptStatusError
		entry.ErrorMessage = cause.Error()
	}
	if err := r.store.LogAttempt(context.WithoutCancel(ctx), entry); err != nil {
		zap.L().Warn("Failed to log balance adjustment", zap.String("user_id", result.UserId), zap.Error(err))
	}
}

func (r *Reconciler) mirrorAdjustment(ctx context.Context, result *models.ReconcileResult) {
	if r.mirror == nil {
		return
	}
	now := r.now().UTC()
	err := r.mirror.Mirror(ctx, store.MirrorEntry{
		Reference: fmt.Sprintf("reconcile:%s:%d", result.UserId, now.UnixNano()),
		UserId:    result.UserId,
		Amount:    result.Difference,
		Kind:      "adjustment",
		Timestamp: now,
	})
	if err != nil {
		zap.L().Warn("Failed to mirror balance adjustment", zap.String("user_id", result.UserId), zap.Error(err))
	}
}
