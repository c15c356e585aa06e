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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-deposits-go/internal/idempotency"
	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/store"

	"go.uber.org/zap"
)

// Store is the persistence the processor drives.
type Store interface {
	store.DepositStore
	store.BalanceLedger
	store.AttemptLogger
}

type Options struct {
	// AllowHeuristicMatch enables the most-recent-pending-deposit fallback when only
	// an order id hint is available.
	AllowHeuristicMatch bool
	// OverridePendingOnly limits the transaction-id status override to pending events.
	OverridePendingOnly bool
}

type Processor struct {
	store  Store
	guard  *idempotency.Guard
	mirror store.LedgerMirror
	opts   Options
}

// New builds a processor. guard and mirror may be nil.
func New(st Store, guard *idempotency.Guard, mirror store.LedgerMirror, opts Options) *Processor {
	return &Processor{
		store:  st,
		guard:  guard,
		mirror: mirror,
		opts:   opts,
	}
}

// attempt accumulates what ends up in the attempt log row.
type attempt struct {
	status    models.AttemptStatus
	depositId string
	errMsg    string
	before    *models.Deposit
	after     *models.Deposit
	result    *models.ProcessResult
}

// ProcessDeposit applies one provider notification to its deposit. Every call
// leaves exactly one attempt log row behind, whatever the outcome.
func (p *Processor) ProcessDeposit(ctx context.Context, req models.ProcessRequest) (result *models.ProcessResult, err error) {
	start := time.Now()
	rec := &attempt{status: models.AttemptStatusError}
	defer func() {
		rec.result = result
		if err != nil && rec.errMsg == "" {
			rec.errMsg = err.Error()
		}
		p.logAttempt(ctx, req, rec, time.Since(start))
	}()

	if req.IdempotencyKey != "" && p.guard != nil {
		processed, gerr := p.guard.AlreadyProcessed(ctx, req.IdempotencyKey)
		if gerr != nil {
			zap.L().Warn("Idempotency check failed, continuing with deposit checks",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Error(gerr))
		} else if processed {
			zap.L().Info("Event already processed, skipping",
				zap.String("transaction_id", req.TransactionId),
				zap.String("idempotency_key", req.IdempotencyKey))
			rec.status = models.AttemptStatusSkipped
			return &models.ProcessResult{
				Success: true,
				Message: "already processed",
				Outcome: models.OutcomeAlreadyProcessed,
			}, nil
		}
	}

	deposit, err := p.resolve(ctx, req)
	if err != nil {
		return failure("", "deposit lookup failed"), err
	}
	if deposit == nil {
		zap.L().Error("No deposit found for event",
			zap.String("transaction_id", req.TransactionId),
			zap.String("custom_id", req.CustomId),
			zap.String("order_id", req.OrderId),
			zap.String("source", req.Source))
		return failure("", "no deposit found"), fmt.Errorf("%w: transaction %q custom id %q", store.ErrDepositNotFound, req.TransactionId, req.CustomId)
	}
	rec.depositId = deposit.Id
	rec.before = deposit

	target := p.targetStatus(req, deposit)

	if deposit.IsProcessed && deposit.Status == target {
		zap.L().Info("Deposit already in target status, skipping",
			zap.String("deposit_id", deposit.Id),
			zap.String("status", string(target)))
		rec.status = models.AttemptStatusSkipped
		p.markProcessed(ctx, req.IdempotencyKey)
		return &models.ProcessResult{
			Success:   true,
			Message:   "already in status",
			DepositId: deposit.Id,
			Outcome:   models.OutcomeAlreadyInStatus,
		}, nil
	}

	updated, err := p.store.UpdateDepositProcessing(ctx, store.UpdateDepositParams{
		DepositId:      deposit.Id,
		Status:         target,
		PayerEmail:     req.PayerEmail,
		PayerId:        req.PayerId,
		TransactionId:  req.TransactionId,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return failure(deposit.Id, "failed to update deposit"), err
	}
	rec.after = updated

	if updated.Status != models.DepositStatusCompleted {
		zap.L().Info("Deposit status updated",
			zap.String("deposit_id", updated.Id),
			zap.String("status", string(updated.Status)))
		rec.status = models.AttemptStatusSuccess
		p.markProcessed(ctx, req.IdempotencyKey)
		return &models.ProcessResult{
			Success:   true,
			Message:   fmt.Sprintf("deposit marked %s", updated.Status),
			DepositId: updated.Id,
			Outcome:   models.OutcomeUpdated,
		}, nil
	}

	entry, err := p.store.CreditDeposit(ctx, store.CreditDepositParams{
		DepositId:   updated.Id,
		UserId:      updated.UserId,
		Amount:      updated.NetAmount,
		Description: creditDescription(req, updated),
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyCredited) {
			rec.status = models.AttemptStatusSkipped
			p.markProcessed(ctx, req.IdempotencyKey)
			return &models.ProcessResult{
				Success:   true,
				Message:   "already processed",
				DepositId: updated.Id,
				Outcome:   models.OutcomeAlreadyProcessed,
			}, nil
		}
		// The status update above is already persisted; reconciliation repairs this.
		zap.L().Error("Ledger credit failed for completed deposit",
			zap.String("deposit_id", updated.Id),
			zap.String("user_id", updated.UserId),
			zap.String("amount", updated.NetAmount.String()),
			zap.Error(err))
		return failure(updated.Id, "failed to credit balance"), err
	}

	if fresh, ferr := p.store.FindDepositById(ctx, updated.Id); ferr == nil && fresh != nil {
		rec.after = fresh
	}
	rec.status = models.AttemptStatusSuccess
	p.markProcessed(ctx, req.IdempotencyKey)
	p.mirrorCredit(ctx, entry)

	zap.L().Info("Deposit processed and credited",
		zap.String("deposit_id", updated.Id),
		zap.String("user_id", updated.UserId),
		zap.String("amount", entry.Amount.String()),
		zap.String("source", req.Source))

	return &models.ProcessResult{
		Success:   true,
		Message:   "deposit credited",
		DepositId: updated.Id,
		Outcome:   models.OutcomeCredited,
	}, nil
}

// ProcessDepositBalance resolves ref as a transaction id, then as a deposit id, and
// runs the deposit through ProcessDeposit as completed. Deposits without an
// attached provider transaction are refused.
func (p *Processor) ProcessDepositBalance(ctx context.Context, ref string) (*models.ProcessResult, error) {
	if ref == "" {
		return failure("", "reference is required"), fmt.Errorf("%w: empty deposit reference", store.ErrValidation)
	}

	deposit, err := p.store.FindDepositByTransactionId(ctx, ref)
	if err != nil {
		return failure("", "deposit lookup failed"), err
	}
	if deposit == nil {
		deposit, err = p.store.FindDepositById(ctx, ref)
		if err != nil {
			return failure("", "deposit lookup failed"), err
		}
	}
	if deposit == nil {
		zap.L().Warn("No deposit matches reference", zap.String("reference", ref))
		return failure("", "no deposit found"), fmt.Errorf("%w: reference %q", store.ErrDepositNotFound, ref)
	}
	// Only a provider transaction proves payment.
	if !deposit.HasTransaction() {
		zap.L().Warn("Refusing to credit deposit without a provider transaction",
			zap.String("reference", ref),
			zap.String("deposit_id", deposit.Id))
		return failure(deposit.Id, "deposit has no provider transaction"),
			fmt.Errorf("%w: deposit %s has no provider transaction id", store.ErrValidation, deposit.Id)
	}

	return p.ProcessDeposit(ctx, models.ProcessRequest{
		TransactionId:  deposit.TransactionId.String,
		CustomId:       deposit.Id,
		DeclaredStatus: models.DepositStatusCompleted,
		Source:         "balance",
	})
}

// resolve finds the deposit by transaction id, then by custom id, then (when
// enabled) by the most recent unmatched pending deposit.
func (p *Processor) resolve(ctx context.Context, req models.ProcessRequest) (*models.Deposit, error) {
	if req.TransactionId != "" {
		deposit, err := p.store.FindDepositByTransactionId(ctx, req.TransactionId)
		if err != nil {
			return nil, err
		}
		if deposit != nil {
			return deposit, nil
		}
	}

	if req.CustomId != "" {
		deposit, err := p.store.FindDepositById(ctx, req.CustomId)
		if err != nil {
			return nil, err
		}
		if deposit != nil {
			return deposit, nil
		}
	}

	if req.OrderId == "" {
		return nil, nil
	}
	if !p.opts.AllowHeuristicMatch {
		zap.L().Debug("Heuristic deposit match disabled",
			zap.String("order_id", req.OrderId))
		return nil, nil
	}

	deposit, err := p.store.FindLatestUnmatchedPendingDeposit(ctx)
	if err != nil {
		return nil, err
	}
	if deposit != nil {
		zap.L().Warn("Deposit resolved heuristically from most recent pending deposit; attribution is not guaranteed",
			zap.String("deposit_id", deposit.Id),
			zap.String("user_id", deposit.UserId),
			zap.String("order_id", req.OrderId),
			zap.String("transaction_id", req.TransactionId))
	}
	return deposit, nil
}

// targetStatus applies the transaction-id override: a provider transaction id is
// taken as proof of a completed charge.
func (p *Processor) targetStatus(req models.ProcessRequest, deposit *models.Deposit) models.DepositStatus {
	declared := req.DeclaredStatus
	if !declared.Valid() {
		declared = models.DepositStatusPending
	}
	if req.TransactionId == "" || declared == models.DepositStatusCompleted {
		return declared
	}
	if p.opts.OverridePendingOnly && declared != models.DepositStatusPending {
		return declared
	}

	zap.L().Warn("Declared status overridden to completed because a transaction id is present",
		zap.String("deposit_id", deposit.Id),
		zap.String("transaction_id", req.TransactionId),
		zap.String("declared_status", string(declared)))
	return models.DepositStatusCompleted
}

func (p *Processor) markProcessed(ctx context.Context, key string) {
	if p.guard != nil {
		p.guard.MarkProcessed(ctx, key)
	}
}

func (p *Processor) mirrorCredit(ctx context.Context, entry *models.LedgerTransaction) {
	if p.mirror == nil || entry == nil {
		return
	}
	err := p.mirror.Mirror(ctx, store.MirrorEntry{
		Reference: "deposit:" + entry.ReferenceId,
		UserId:    entry.UserId,
		Amount:    entry.Amount,
		Kind:      "deposit",
		DepositId: entry.ReferenceId,
		Timestamp: entry.CreatedAt,
	})
	if err != nil {
		zap.L().Warn("Failed to mirror credit to external ledger",
			zap.String("deposit_id", entry.ReferenceId),
			zap.Error(err))
	}
}

func (p *Processor) logAttempt(ctx context.Context, req models.ProcessRequest, rec *attempt, elapsed time.Duration) {
	txId := req.TransactionId
	if txId == "" {
		txId = req.OrderId
	}
	if txId == "" {
		txId = req.CustomId
	}

	entry := models.AttemptLog{
		TransactionId:    txId,
		DepositId:        models.NullString(rec.depositId),
		Status:           rec.status,
		ErrorMessage:     rec.errMsg,
		RequestData:      requestSnapshot(ctx, req),
		ResponseData:     responseSnapshot(rec),
		ProcessingTimeMs: elapsed.Milliseconds(),
		IdempotencyKey:   models.NullString(req.IdempotencyKey),
	}

	// The attempt is recorded even if the caller has gone away.
	if err := p.store.LogAttempt(context.WithoutCancel(ctx), entry); err != nil {
		zap.L().Warn("Failed to write attempt log",
			zap.String("transaction_id", txId),
			zap.String("deposit_id", rec.depositId),
			zap.Error(err))
	}
}

func requestSnapshot(ctx context.Context, req models.ProcessRequest) string {
	snapshot := map[string]any{"request": req}
	if dc := models.GetDeliveryContext(ctx); dc != nil {
		snapshot["event_id"] = dc.EventId
		snapshot["event_type"] = dc.EventType
		snapshot["remote_addr"] = dc.RemoteAddr
		if json.Valid(dc.RawPayload) {
			snapshot["payload"] = json.RawMessage(dc.RawPayload)
		}
	}
	return marshalSnapshot(snapshot)
}

func responseSnapshot(rec *attempt) string {
	return marshalSnapshot(map[string]any{
		"result": rec.result,
		"before": rec.before,
		"after":  rec.after,
	})
}

func marshalSnapshot(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"marshal_error":%q}`, err.Error())
	}
	return string(data)
}

func creditDescription(req models.ProcessRequest, deposit *models.Deposit) string {
	if deposit.TransactionId.Valid {
		return fmt.Sprintf("PayPal deposit %s", deposit.TransactionId.String)
	}
	if req.Source != "" {
		return fmt.Sprintf("Deposit %s (%s)", deposit.Id, req.Source)
	}
	return fmt.Sprintf("Deposit %s", deposit.Id)
}

func failure(depositId, message string) *models.ProcessResult {
	return &models.ProcessResult{
		Success:   false,
		Message:   message,
		DepositId: depositId,
		Outcome:   models.OutcomeFailed,
	}
}
