package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Processing ProcessingConfig
	Fees       FeeConfig
	PayPal     PayPalConfig
	Cache      CacheConfig
	Formance   FormanceConfig
	LogLevel   string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // "sqlite3" or "postgres"
	Path            string // SQLite file path
	DSN             string // Postgres connection string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AdminApiKey     string
}

// ProcessingConfig holds webhook and reconciliation tunables
type ProcessingConfig struct {
	AllowHeuristicMatch   bool
	OverridePendingOnly   bool
	EventsFile            string
	ManualRetries         int
	RetryDelay            time.Duration
	RecentCompletedWindow time.Duration
	BatchConcurrency      int
	ReconcileTolerance    decimal.Decimal
}

// FeeConfig holds the processor fee schedule
type FeeConfig struct {
	Rate  decimal.Decimal
	Fixed decimal.Decimal
}

// PayPalConfig holds provider credentials and webhook verification settings
type PayPalConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	// WebhookId identifies the subscription whose deliveries are verified.
	WebhookId string
	Timeout   time.Duration
}

// CacheConfig holds the idempotency cache settings. An empty Addr selects the in-memory cache.
type CacheConfig struct {
	Addr            string
	Password        string
	DB              int
	TTL             time.Duration
	CleanupInterval time.Duration
}

// FormanceConfig holds the optional external ledger mirror settings
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// Enabled reports whether the mirror has enough configuration to connect.
func (c FormanceConfig) Enabled() bool {
	return c.StackURL != "" && c.ClientID != "" && c.ClientSecret != ""
}

// Configured reports whether API credentials for the provider are present.
func (c PayPalConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}
