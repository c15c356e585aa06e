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

package api

import (
	"context"
	"fmt"
	"reflect"

	"storefront-deposits-go/internal/fees"
	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DepositProcessor converges the client-redirect path into the credit routine.
type DepositProcessor interface {
	ProcessDepositBalance(ctx context.Context, ref string) (*models.ProcessResult, error)
}

// LedgerService is the collaborator interface the checkout flow calls.
type LedgerService struct {
	store     store.Store
	fees      fees.Calculator
	processor DepositProcessor
	validate  *validator.Validate
}

func NewLedgerService(st store.Store, calc fees.Calculator, processor DepositProcessor) *LedgerService {
	return &LedgerService{
		store:     st,
		fees:      calc,
		processor: processor,
		validate:  newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Money fields are validated numerically.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
