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

const (
	depositColumns = `id, user_id, amount, net_amount, status, transaction_id, process_attempts,
		is_processed, idempotency_key, payer_email, payer_id, created_at, updated_at`

	// Deposit queries
	queryInsertDeposit = `
		INSERT INTO deposits (id, user_id, amount, net_amount, status, process_attempts, is_processed, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'pending', 0, FALSE, ?, ?)`

	queryGetDepositById = `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE id = ?`

	queryGetDepositByTransactionId = `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE transaction_id = ?`

	queryGetLatestUnmatchedPending = `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE status = 'pending' AND transaction_id IS NULL
		ORDER BY created_at DESC
		LIMIT 1`

	queryAttachTransactionId = `
		UPDATE deposits
		SET transaction_id = ?, status = 'completed', updated_at = ?
		WHERE id = ? AND (transaction_id IS NULL OR transaction_id = ?)`

	queryUpdateDepositProcessing = `
		UPDATE deposits
		SET status = ?,
			process_attempts = process_attempts + 1,
			payer_email = COALESCE(NULLIF(?, ''), payer_email),
			payer_id = COALESCE(NULLIF(?, ''), payer_id),
			transaction_id = COALESCE(transaction_id, NULLIF(?, '')),
			idempotency_key = COALESCE(idempotency_key, NULLIF(?, '')),
			updated_at = ?
		WHERE id = ?`

	queryListPendingWithTransaction = `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE status = 'pending' AND transaction_id IS NOT NULL
		ORDER BY created_at`

	queryListCompletedSince = `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE status = 'completed' AND created_at >= ?
		ORDER BY created_at`

	// Ledger queries
	queryClaimDeposit = `
		UPDATE deposits
		SET is_processed = TRUE, updated_at = ?
		WHERE id = ? AND is_processed = FALSE`

	queryInsertLedgerTransaction = `
		INSERT INTO transactions (id, user_id, type, amount, reference_id, status, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryAddBalance = `
		UPDATE profiles
		SET balance = balance + ?, updated_at = ?
		WHERE id = ?`

	queryGetBalance = `
		SELECT balance FROM profiles WHERE id = ?`

	queryCalculateBalance = `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = ? AND status = 'completed'`

	queryGetTransactionHistory = `
		SELECT id, user_id, type, amount, reference_id, status, description, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	// Attempt log queries
	queryInsertAttemptLog = `
		INSERT INTO transaction_logs (id, transaction_id, deposit_id, status, error_message,
			request_data, response_data, processing_time_ms, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryHasSuccessfulAttempt = `
		SELECT 1 FROM transaction_logs
		WHERE idempotency_key = ? AND status = 'success'
		LIMIT 1`

	queryIsDepositProcessedByKey = `
		SELECT 1 FROM deposits
		WHERE idempotency_key = ? AND is_processed = TRUE
		LIMIT 1`

	queryListAttemptsForDeposit = `
		SELECT id, transaction_id, deposit_id, status, error_message, request_data,
			response_data, processing_time_ms, idempotency_key, created_at
		FROM transaction_logs
		WHERE deposit_id = ?
		ORDER BY created_at`

	// Profile queries
	queryInsertProfile = `
		INSERT INTO profiles (id, email, balance, created_at, updated_at) VALUES (?, ?, 0, ?, ?)`

	queryGetProfile = `
		SELECT id, email, balance, created_at, updated_at
		FROM profiles
		WHERE id = ?`

	queryListProfiles = `
		SELECT id, email, balance, created_at, updated_at
		FROM profiles
		ORDER BY created_at`
)
