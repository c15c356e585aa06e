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

package common

import (
	"context"
	"fmt"

	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/store"

	"go.uber.org/zap"
)

// ResolveProfiles returns the single profile named by userFilter, or every
// profile when the filter is empty.
func ResolveProfiles(ctx context.Context, profiles store.ProfileStore, userFilter string) ([]models.Profile, error) {
	if userFilter != "" {
		zap.L().Info("Looking up profile", zap.String("user_id", userFilter))
		p, err := profiles.GetProfile(ctx, userFilter)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", userFilter, err)
		}
		if p == nil {
			return nil, fmt.Errorf("profile %s: %w", userFilter, store.ErrProfileNotFound)
		}
		return []models.Profile{*p}, nil
	}

	all, err := profiles.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	zap.L().Info("Retrieved profiles", zap.Int("count", len(all)))
	return all, nil
}
