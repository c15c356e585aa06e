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
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// DepositStatus is the lifecycle state of a deposit
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusCompleted DepositStatus = "completed"
	DepositStatusFailed    DepositStatus = "failed"
	DepositStatusRefunded  DepositStatus = "refunded"
)

// Valid reports whether s is one of the known deposit states.
func (s DepositStatus) Valid() bool {
	switch s {
	case DepositStatusPending, DepositStatusCompleted, DepositStatusFailed, DepositStatusRefunded:
		return true
	}
	return false
}

func (s DepositStatus) String() string { return string(s) }

// AttemptStatus is the outcome recorded for one processing attempt
type AttemptStatus string

const (
	AttemptStatusSuccess AttemptStatus = "success"
	AttemptStatusError   AttemptStatus = "error"
	AttemptStatusSkipped AttemptStatus = "skipped"
)

// Profile holds the stored balance of a storefront user
type Profile struct {
	Id        string          `db:"id"`
	Email     string          `db:"email"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Deposit represents one user-initiated top-up attempt
type Deposit struct {
	Id              string          `db:"id" json:"id"`
	UserId          string          `db:"user_id" json:"user_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	NetAmount       decimal.Decimal `db:"net_amount" json:"net_amount"`
	Status          DepositStatus   `db:"status" json:"status"`
	TransactionId   sql.NullString  `db:"transaction_id" json:"-"`
	ProcessAttempts int64           `db:"process_attempts" json:"process_attempts"`
	IsProcessed     bool            `db:"is_processed" json:"is_processed"`
	IdempotencyKey  sql.NullString  `db:"idempotency_key" json:"-"`
	PayerEmail      sql.NullString  `db:"payer_email" json:"-"`
	PayerId         sql.NullString  `db:"payer_id" json:"-"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// HasTransaction reports whether the provider transaction id has been attached.
func (d *Deposit) HasTransaction() bool {
	return d.TransactionId.Valid && d.TransactionId.String != ""
}

// LedgerTransaction is an immutable balance-affecting entry
type LedgerTransaction struct {
	Id          string          `db:"id" json:"id"`
	UserId      string          `db:"user_id" json:"user_id"`
	Type        string          `db:"type" json:"type"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	ReferenceId string          `db:"reference_id" json:"reference_id"`
	Status      string          `db:"status" json:"status"`
	Description string          `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// AttemptLog is one row of the append-only processing audit log
type AttemptLog struct {
	Id               string         `db:"id"`
	TransactionId    string         `db:"transaction_id"`
	DepositId        sql.NullString `db:"deposit_id"`
	Status           AttemptStatus  `db:"status"`
	ErrorMessage     string         `db:"error_message"`
	RequestData      string         `db:"request_data"`
	ResponseData     string         `db:"response_data"`
	ProcessingTimeMs int64          `db:"processing_time_ms"`
	IdempotencyKey   sql.NullString `db:"idempotency_key"`
	CreatedAt        time.Time      `db:"created_at"`
}

// Transaction types recorded in the ledger
const (
	LedgerTypeDeposit = "deposit"
)

// Ledger entry statuses
const (
	LedgerStatusCompleted = "completed"
)

// NullString wraps s as a valid sql.NullString, or an invalid one when s is empty.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
