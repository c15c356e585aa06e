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

package database

import (
	"strconv"
	"strings"
)

const (
	driverSQLite   = "sqlite3"
	driverPostgres = "postgres"
)

// dialect isolates the differences between the SQLite and Postgres backends.
// Queries are written once with '?' placeholders and rebound per driver.
type dialect struct {
	driver string
	schema string
}

func dialectFor(driver string) dialect {
	if driver == driverPostgres {
		return dialect{driver: driverPostgres, schema: schemaPostgres}
	}
	return dialect{driver: driverSQLite, schema: schemaSQLite}
}

// rebind rewrites '?' placeholders into '$1..$n' for Postgres.
func (d dialect) rebind(query string) string {
	if d.driver != driverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

const schemaSQLite = `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		balance REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS deposits (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount REAL NOT NULL,
		net_amount REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		transaction_id TEXT UNIQUE,
		process_attempts INTEGER NOT NULL DEFAULT 0,
		is_processed BOOLEAN NOT NULL DEFAULT 0,
		idempotency_key TEXT UNIQUE,
		payer_email TEXT,
		payer_id TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deposits_user_id ON deposits(user_id);
	CREATE INDEX IF NOT EXISTS idx_deposits_status_created ON deposits(status, created_at);

	-- Immutable ledger; one deposit credit per deposit id
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount REAL NOT NULL,
		reference_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'completed',
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		UNIQUE(reference_id, type)
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);

	-- Append-only processing audit log
	CREATE TABLE IF NOT EXISTS transaction_logs (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL DEFAULT '',
		deposit_id TEXT,
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_data TEXT NOT NULL DEFAULT '',
		response_data TEXT NOT NULL DEFAULT '',
		processing_time_ms INTEGER NOT NULL DEFAULT 0,
		idempotency_key TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transaction_logs_key_status ON transaction_logs(idempotency_key, status);
	CREATE INDEX IF NOT EXISTS idx_transaction_logs_deposit_id ON transaction_logs(deposit_id);
`

const schemaPostgres = `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		balance NUMERIC(18,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS deposits (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount NUMERIC(18,2) NOT NULL,
		net_amount NUMERIC(18,2) NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		transaction_id TEXT UNIQUE,
		process_attempts INTEGER NOT NULL DEFAULT 0,
		is_processed BOOLEAN NOT NULL DEFAULT FALSE,
		idempotency_key TEXT UNIQUE,
		payer_email TEXT,
		payer_id TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deposits_user_id ON deposits(user_id);
	CREATE INDEX IF NOT EXISTS idx_deposits_status_created ON deposits(status, created_at);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount NUMERIC(18,2) NOT NULL,
		reference_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'completed',
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE(reference_id, type)
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);

	CREATE TABLE IF NOT EXISTS transaction_logs (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL DEFAULT '',
		deposit_id TEXT,
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_data TEXT NOT NULL DEFAULT '',
		response_data TEXT NOT NULL DEFAULT '',
		processing_time_ms BIGINT NOT NULL DEFAULT 0,
		idempotency_key TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transaction_logs_key_status ON transaction_logs(idempotency_key, status);
	CREATE INDEX IF NOT EXISTS idx_transaction_logs_deposit_id ON transaction_logs(deposit_id);
`
