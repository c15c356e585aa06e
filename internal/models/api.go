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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProcessOutcome describes what a processing attempt did to the deposit
type ProcessOutcome string

const (
	OutcomeCredited         ProcessOutcome = "credited"
	OutcomeUpdated          ProcessOutcome = "updated"
	OutcomeAlreadyProcessed ProcessOutcome = "already_processed"
	OutcomeAlreadyInStatus  ProcessOutcome = "already_in_status"
	OutcomeUnhandled        ProcessOutcome = "unhandled"
	OutcomeFailed           ProcessOutcome = "failed"
)

// ProcessRequest carries one provider notification (or a replay of one) into the processor
type ProcessRequest struct {
	TransactionId  string
	PayerEmail     string
	PayerId        string
	CustomId       string
	OrderId        string
	DeclaredStatus DepositStatus
	IdempotencyKey string
	Source         string // "webhook", "manual", "redirect", "batch"
}

// ProcessResult is the response shape shared by the webhook and manual endpoints
type ProcessResult struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	DepositId string         `json:"deposit_id,omitempty"`
	Outcome   ProcessOutcome `json:"outcome,omitempty"`
}

// BatchResult summarises a replay of the pending backlog
type BatchResult struct {
	Success   bool   `json:"success"`
	Count     int    `json:"count"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Message   string `json:"message,omitempty"`
}

// ReconcileResult reports the outcome of recomputing a user's balance
type ReconcileResult struct {
	UserId            string          `json:"user_id"`
	OldBalance        decimal.Decimal `json:"old_balance"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	NewBalance        decimal.Decimal `json:"new_balance"`
	Difference        decimal.Decimal `json:"difference"`
	Adjusted          bool            `json:"adjusted"`
}

// CreateDepositResult is returned to the checkout flow after a deposit is recorded
type CreateDepositResult struct {
	Id        string          `json:"id,omitempty"`
	NetAmount decimal.Decimal `json:"net_amount,omitempty"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
}

// UpdateDepositResult is returned after the client-redirect confirmation path
type UpdateDepositResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// UserBalance is the public balance view of a profile
type UserBalance struct {
	UserId  string          `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

// TransactionRecord represents a ledger entry in the user's history
type TransactionRecord struct {
	Id          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	ReferenceId string          `json:"reference_id"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}
