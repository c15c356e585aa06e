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
	"errors"
	"fmt"
	"time"

	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/store"

	"github.com/shopspring/decimal"
)

// Provider is the read side of the payment provider API.
type Provider interface {
	GetCapture(ctx context.Context, captureId string) (*models.Capture, error)
	GetOrder(ctx context.Context, orderId string) (*models.Order, error)
}

// DepositProcessor is the core the reconciler replays deposits through.
type DepositProcessor interface {
	ProcessDeposit(ctx context.Context, req models.ProcessRequest) (*models.ProcessResult, error)
	ProcessDepositBalance(ctx context.Context, ref string) (*models.ProcessResult, error)
}

type Store interface {
	store.DepositStore
	store.BalanceLedger
	store.AttemptLogger
	store.ProfileStore
}

type Options struct {
	ManualRetries         int // retries after the first provider check
	RetryDelay            time.Duration
	RecentCompletedWindow time.Duration
	BatchConcurrency      int
	Tolerance             decimal.Decimal
}

func (o Options) withDefaults() Options {
	if o.ManualRetries < 0 {
		o.ManualRetries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.RecentCompletedWindow <= 0 {
		o.RecentCompletedWindow = 24 * time.Hour
	}
	if o.BatchConcurrency <= 0 {
		o.BatchConcurrency = 1
	}
	if o.Tolerance.IsZero() {
		o.Tolerance = decimal.RequireFromString("0.01")
	}
	return o
}

type Reconciler struct {
	store     Store
	processor DepositProcessor
	provider  Provider
	mirror    store.LedgerMirror
	opts      Options
	now       func() time.Time
}

// New builds a reconciler. provider and mirror may be nil.
func New(st Store, processor DepositProcessor, provider Provider, mirror store.LedgerMirror, opts Options) *Reconciler {
	return &Reconciler{
		store:     st,
		processor: processor,
		provider:  provider,
		mirror:    mirror,
		opts:      opts.withDefaults(),
		now:       time.Now,
	}
}

// transient reports whether another attempt could succeed.
func transient(err error) bool {
	return errors.Is(err, store.ErrProviderUnavailable) || errors.Is(err, store.ErrPersistence)
}

func describe(err error) string {
	switch {
	case errors.Is(err, store.ErrDepositNotFound):
		return "no deposit found"
	case errors.Is(err, store.ErrLedger):
		return "balance credit failed"
	case errors.Is(err, store.ErrProviderNotFound):
		return "transaction not found at provider"
	case errors.Is(err, store.ErrProviderUnavailable):
		return "payment provider unavailable"
	default:
		return fmt.Sprintf("processing failed: %v", err)
	}
}
