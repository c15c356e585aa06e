package store

import (
	"context"
	"errors"
	"time"

	"storefront-deposits-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrValidation           = errors.New("validation failed")
	ErrAuthorization        = errors.New("rejected by access control")
	ErrDepositNotFound      = errors.New("no deposit found")
	ErrLedger               = errors.New("ledger update failed")
	ErrProfileNotFound      = errors.New("user profile not found")
	ErrAlreadyCredited      = errors.New("deposit already credited")
	ErrProviderUnavailable  = errors.New("payment provider unavailable")
	ErrProviderNotFound     = errors.New("payment provider has no such transaction")
	ErrPersistence          = errors.New("persistence failure")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
)

// CreateDepositParams contains the parameters for recording a new deposit.
type CreateDepositParams struct {
	UserId    string
	Amount    decimal.Decimal
	NetAmount decimal.Decimal
}

// UpdateDepositParams captures the state written by one processing attempt.
// TransactionId and IdempotencyKey are only written when the stored column is null.
type UpdateDepositParams struct {
	DepositId      string
	Status         models.DepositStatus
	PayerEmail     string
	PayerId        string
	TransactionId  string
	IdempotencyKey string
}

// CreditDepositParams describes a ledger credit for a resolved deposit.
type CreditDepositParams struct {
	DepositId   string
	UserId      string
	Amount      decimal.Decimal
	Description string
}

// DepositStore is the deposit record store.
type DepositStore interface {
	CreateDeposit(ctx context.Context, params CreateDepositParams) (*models.Deposit, error)
	FindDepositById(ctx context.Context, id string) (*models.Deposit, error)
	FindDepositByTransactionId(ctx context.Context, transactionId string) (*models.Deposit, error)
	FindLatestUnmatchedPendingDeposit(ctx context.Context) (*models.Deposit, error)
	AttachTransactionId(ctx context.Context, depositId, transactionId string) error
	UpdateDepositProcessing(ctx context.Context, params UpdateDepositParams) (*models.Deposit, error)
	ListPendingWithTransaction(ctx context.Context) ([]models.Deposit, error)
	ListCompletedSince(ctx context.Context, since time.Time) ([]models.Deposit, error)
}

// BalanceLedger mutates profile balances only through additive operations.
type BalanceLedger interface {
	// CreditDeposit claims the deposit and applies its credit in one unit of work.
	// It returns ErrAlreadyCredited when the claim finds the deposit already processed.
	CreditDeposit(ctx context.Context, params CreditDepositParams) (*models.LedgerTransaction, error)
	AddBalance(ctx context.Context, userId string, amount decimal.Decimal) error
	GetUserBalance(ctx context.Context, userId string) (*decimal.Decimal, error)
	CalculateUserBalance(ctx context.Context, userId string) (decimal.Decimal, error)
	GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.LedgerTransaction, error)
}

// AttemptLogger appends processing attempts to the audit log.
type AttemptLogger interface {
	LogAttempt(ctx context.Context, entry models.AttemptLog) error
}

// IdempotencyLookup answers the two durable questions the idempotency guard asks.
type IdempotencyLookup interface {
	HasSuccessfulAttempt(ctx context.Context, idempotencyKey string) (bool, error)
	IsDepositProcessedByKey(ctx context.Context, idempotencyKey string) (bool, error)
}

// ProfileStore manages the minimal profile rows the ledger credits.
type ProfileStore interface {
	CreateProfile(ctx context.Context, userId, email string) (*models.Profile, error)
	GetProfile(ctx context.Context, userId string) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)
}

// MirrorEntry is a balance movement forwarded to an external ledger.
type MirrorEntry struct {
	Reference string
	UserId    string
	Amount    decimal.Decimal
	Kind      string // "deposit" or "adjustment"
	DepositId string
	Timestamp time.Time
}

// LedgerMirror receives a copy of every applied balance movement.
type LedgerMirror interface {
	Mirror(ctx context.Context, entry MirrorEntry) error
}

// Store is the full contract the relational backend satisfies.
type Store interface {
	DepositStore
	BalanceLedger
	AttemptLogger
	IdempotencyLookup
	ProfileStore

	Ping(ctx context.Context) error
	Close()
}
