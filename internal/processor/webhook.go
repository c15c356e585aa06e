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

package processor

import (
	"context"

	"storefront-deposits-go/internal/idempotency"
	"storefront-deposits-go/internal/models"

	"go.uber.org/zap"
)

// WebhookHandler classifies provider events and feeds them to the processor.
type WebhookHandler struct {
	processor  *Processor
	classifier *Classifier
}

func NewWebhookHandler(p *Processor, c *Classifier) *WebhookHandler {
	if c == nil {
		c = DefaultClassifier()
	}
	return &WebhookHandler{processor: p, classifier: c}
}

// Handle processes one webhook event. Unknown event types are acknowledged
// without touching any deposit.
func (h *WebhookHandler) Handle(ctx context.Context, event *models.WebhookEvent) (*models.ProcessResult, error) {
	bucket := h.classifier.Classify(event.EventType)
	status, ok := bucket.Status()
	if !ok {
		zap.L().Info("Ignoring unhandled webhook event type",
			zap.String("event_id", event.Id),
			zap.String("event_type", event.EventType))
		return &models.ProcessResult{
			Success: true,
			Message: "unhandled event type: " + event.EventType,
			Outcome: models.OutcomeUnhandled,
		}, nil
	}

	txId := event.TransactionId()
	zap.L().Info("Processing webhook event",
		zap.String("event_id", event.Id),
		zap.String("event_type", event.EventType),
		zap.String("bucket", string(bucket)),
		zap.String("transaction_id", txId))

	return h.processor.ProcessDeposit(ctx, models.ProcessRequest{
		TransactionId:  txId,
		PayerEmail:     event.PayerEmail(),
		PayerId:        event.PayerId(),
		CustomId:       event.CustomId(),
		OrderId:        event.OrderId(),
		DeclaredStatus: status,
		IdempotencyKey: idempotency.Key(txId, event.EventType),
		Source:         "webhook",
	})
}
