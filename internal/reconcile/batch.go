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
	"fmt"
	"sync"

	"storefront-deposits-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProcessAllPendingDeposits replays the backlog: pending deposits that already
// carry a transaction id plus recently completed deposits whose credit may never
// have landed. Users are processed concurrently up to BatchConcurrency; the
// deposits of one user run sequentially. Item failures are counted, not returned.
func (r *Reconciler) ProcessAllPendingDeposits(ctx context.Context) (*models.BatchResult, error) {
	backlog, err := r.backlog(ctx)
	if err != nil {
		return &models.BatchResult{Success: false, Message: "failed to load backlog"}, err
	}
	if len(backlog) == 0 {
		zap.L().Info("No pending deposits to process")
		return &models.BatchResult{Success: true, Count: 0, Message: "no pending deposits"}, nil
	}

	byUser := make(map[string][]models.Deposit)
	var users []string
	for _, d := range backlog {
		if _, ok := byUser[d.UserId]; !ok {
			users = append(users, d.UserId)
		}
		byUser[d.UserId] = append(byUser[d.UserId], d)
	}

	zap.L().Info("Processing deposit backlog",
		zap.Int("deposits", len(backlog)),
		zap.Int("users", len(users)),
		zap.Int("concurrency", r.opts.BatchConcurrency))

	var (
		mu        sync.Mutex
		succeeded int
		failed    int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.BatchConcurrency)
	for _, userId := range users {
		deposits := byUser[userId]
		g.Go(func() error {
			for _, d := range deposits {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				ok := r.replay(gctx, d)
				mu.Lock()
				if ok {
					succeeded++
				} else {
					failed++
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &models.BatchResult{
			Success:   false,
			Count:     succeeded + failed,
			Succeeded: succeeded,
			Failed:    failed,
			Message:   "batch interrupted",
		}, err
	}

	result := &models.BatchResult{
		Success:   true,
		Count:     succeeded + failed,
		Succeeded: succeeded,
		Failed:    failed,
		Message:   fmt.Sprintf("processed %d deposits, %d failed", succeeded+failed, failed),
	}
	zap.L().Info("Deposit backlog processed",
		zap.Int("count", result.Count),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))
	return result, nil
}

func (r *Reconciler) replay(ctx context.Context, d models.Deposit) bool {
	res, err := r.processor.ProcessDepositBalance(ctx, d.Id)
	if err != nil {
		zap.L().Error("Failed to replay deposit",
			zap.String("deposit_id", d.Id),
			zap.String("user_id", d.UserId),
			zap.String("net_amount", d.NetAmount.String()),
			zap.Error(err))
		return false
	}
	return res != nil && res.Success
}

// backlog returns the deduplicated work list, pending items first.
func (r *Reconciler) backlog(ctx context.Context) ([]models.Deposit, error) {
	pending, err := r.store.ListPendingWithTransaction(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending deposits: %w", err)
	}
	since := r.now().Add(-r.opts.RecentCompletedWindow)
	recent, err := r.store.ListCompletedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list recently completed deposits: %w", err)
	}

	seen := make(map[string]struct{}, len(pending)+len(recent))
	backlog := make([]models.Deposit, 0, len(pending)+len(recent))
	for _, list := range [][]models.Deposit{pending, recent} {
		for _, d := range list {
			if _, dup := seen[d.Id]; dup {
				continue
			}
			seen[d.Id] = struct{}{}
			backlog = append(backlog, d)
		}
	}
	return backlog, nil
}
