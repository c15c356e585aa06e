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

package idempotency

import (
	"context"
	"fmt"

	"storefront-deposits-go/internal/store"

	"go.uber.org/zap"
)

const keyPrefix = "paypal"

// Key derives the idempotency key for a provider transaction and event type.
func Key(transactionId, eventType string) string {
	if transactionId == "" || eventType == "" {
		return ""
	}
	return fmt.Sprintf("%s-%s-%s", keyPrefix, transactionId, eventType)
}

// Cache remembers recently applied keys. It only short-circuits lookups; the
// database stays authoritative.
type Cache interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string) error
}

// Guard answers whether an idempotency key has already been applied.
type Guard struct {
	lookup store.IdempotencyLookup
	cache  Cache
}

func NewGuard(lookup store.IdempotencyLookup, cache Cache) *Guard {
	return &Guard{lookup: lookup, cache: cache}
}

// AlreadyProcessed reports true when the key is in the recent-key cache, has a
// successful attempt log entry, or belongs to a deposit whose credit has been applied.
func (g *Guard) AlreadyProcessed(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}

	if g.cache != nil {
		seen, err := g.cache.Seen(ctx, key)
		if err != nil {
			zap.L().Warn("Idempotency cache lookup failed, falling back to database",
				zap.String("idempotency_key", key),
				zap.Error(err))
		} else if seen {
			return true, nil
		}
	}

	logged, err := g.lookup.HasSuccessfulAttempt(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check attempt log: %w", err)
	}
	if logged {
		g.remember(ctx, key)
		return true, nil
	}

	// The attempt log and the deposit update are separate writes, so both are checked.
	processed, err := g.lookup.IsDepositProcessedByKey(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check deposit processed flag: %w", err)
	}
	if processed {
		g.remember(ctx, key)
	}
	return processed, nil
}

// MarkProcessed records a key after its credit was applied.
func (g *Guard) MarkProcessed(ctx context.Context, key string) {
	if key == "" {
		return
	}
	g.remember(ctx, key)
}

func (g *Guard) remember(ctx context.Context, key string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Remember(ctx, key); err != nil {
		zap.L().Warn("Failed to record idempotency key in cache",
			zap.String("idempotency_key", key),
			zap.Error(err))
	}
}
