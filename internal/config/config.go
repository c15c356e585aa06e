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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"storefront-deposits-go/internal/fees"
	"storefront-deposits-go/internal/models"

	"github.com/shopspring/decimal"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	readTimeout, err := getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	writeTimeout, err := getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	retryDelay, err := getEnvDuration("MANUAL_RETRY_DELAY", time.Second)
	if err != nil {
		return nil, err
	}

	recentWindow, err := getEnvDuration("RECENT_COMPLETED_WINDOW", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	paypalTimeout, err := getEnvDuration("PAYPAL_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := getEnvDuration("IDEMPOTENCY_CACHE_TTL", 6*time.Hour)
	if err != nil {
		return nil, err
	}

	if cacheTTL <= 0 {
		return nil, fmt.Errorf("IDEMPOTENCY_CACHE_TTL must be positive, got %v", cacheTTL)
	}

	cacheCleanup, err := getEnvDuration("IDEMPOTENCY_CACHE_CLEANUP_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	if cacheCleanup <= 0 {
		return nil, fmt.Errorf("IDEMPOTENCY_CACHE_CLEANUP_INTERVAL must be positive, got %v", cacheCleanup)
	}

	feeRate, err := getEnvDecimal("FEE_RATE", fees.DefaultRate)
	if err != nil {
		return nil, err
	}

	feeFixed, err := getEnvDecimal("FEE_FIXED", fees.DefaultFixed)
	if err != nil {
		return nil, err
	}

	tolerance, err := getEnvDecimal("RECONCILE_TOLERANCE", decimal.RequireFromString("0.01"))
	if err != nil {
		return nil, err
	}

	driver := getEnvString("DATABASE_DRIVER", "sqlite3")
	if driver != "sqlite3" && driver != "postgres" {
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q (expected sqlite3 or postgres)", driver)
	}

	paypal := models.PayPalConfig{
		BaseURL:      getEnvString("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
		ClientID:     getEnvString("PAYPAL_CLIENT_ID", ""),
		ClientSecret: getEnvString("PAYPAL_CLIENT_SECRET", ""),
		WebhookId:    getEnvString("PAYPAL_WEBHOOK_ID", ""),
		Timeout:      paypalTimeout,
	}
	// Signatures are checked by the provider API, which needs the OAuth credentials.
	if paypal.WebhookId != "" && !paypal.Configured() {
		return nil, fmt.Errorf("PAYPAL_WEBHOOK_ID requires PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET")
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Driver:          driver,
			Path:            getEnvString("DATABASE_PATH", "storefront.db"),
			DSN:             getEnvString("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Server: models.ServerConfig{
			Address:         getEnvString("SERVER_ADDRESS", ":8080"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AdminApiKey:     getEnvString("ADMIN_API_KEY", ""),
		},
		Processing: models.ProcessingConfig{
			AllowHeuristicMatch:   getEnvBool("ALLOW_HEURISTIC_MATCH", false),
			OverridePendingOnly:   getEnvBool("STATUS_OVERRIDE_PENDING_ONLY", false),
			EventsFile:            getEnvString("EVENTS_FILE", ""),
			ManualRetries:         getEnvInt("MANUAL_RETRIES", 2),
			RetryDelay:            retryDelay,
			RecentCompletedWindow: recentWindow,
			BatchConcurrency:      getEnvInt("BATCH_CONCURRENCY", 1),
			ReconcileTolerance:    tolerance,
		},
		Fees: models.FeeConfig{
			Rate:  feeRate,
			Fixed: feeFixed,
		},
		PayPal: paypal,
		Cache: models.CacheConfig{
			Addr:            getEnvString("CACHE_ADDR", ""),
			Password:        getEnvString("CACHE_PASSWORD", ""),
			DB:              getEnvInt("CACHE_DB", 0),
			TTL:             cacheTTL,
			CleanupInterval: cacheCleanup,
		},
		Formance: models.FormanceConfig{
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "storefront-deposits"),
		},
		LogLevel: getEnvString("LOG_LEVEL", "info"),
	}, nil
}

// Warnings lists settings that put the service in a reduced-trust or degraded mode.
// They are logged once at startup.
func Warnings(cfg *models.Config) []string {
	var warnings []string
	if cfg.PayPal.WebhookId == "" {
		warnings = append(warnings, "PAYPAL_WEBHOOK_ID is not set: webhook signatures will NOT be verified (reduced-trust mode)")
	}
	if cfg.Server.AdminApiKey == "" {
		warnings = append(warnings, "ADMIN_API_KEY is not set: admin reconciliation endpoints are disabled")
	}
	if cfg.Processing.AllowHeuristicMatch {
		warnings = append(warnings, "ALLOW_HEURISTIC_MATCH is enabled: unmatched events may be attributed to the most recent pending deposit")
	}
	if !cfg.PayPal.Configured() {
		warnings = append(warnings, "PAYPAL_CLIENT_ID/PAYPAL_CLIENT_SECRET are not set: manual reprocessing skips the provider check")
	}
	if cfg.Database.Driver == "postgres" && cfg.Database.DSN == "" {
		warnings = append(warnings, "DATABASE_URL is empty while DATABASE_DRIVER=postgres")
	}
	return warnings
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
		}
		return d, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
