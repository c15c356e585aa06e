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

package paypal

import (
	"encoding/json"
	"fmt"
	"strings"

	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/store"
)

// ParseWebhook decodes a webhook body. An event without event_type is rejected.
func ParseWebhook(body []byte) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: invalid webhook payload: %w", store.ErrValidation, err)
	}
	event.EventType = strings.TrimSpace(event.EventType)
	if event.EventType == "" {
		return nil, fmt.Errorf("%w: webhook payload has no event_type", store.ErrValidation)
	}
	return &event, nil
}

// StatusFromCapture maps a provider capture or order status to a deposit status.
func StatusFromCapture(status string) models.DepositStatus {
	switch strings.ToUpper(status) {
	case "COMPLETED":
		return models.DepositStatusCompleted
	case "DECLINED", "FAILED", "VOIDED":
		return models.DepositStatusFailed
	case "REFUNDED", "PARTIALLY_REFUNDED", "REVERSED":
		return models.DepositStatusRefunded
	default:
		return models.DepositStatusPending
	}
}
