package api

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"storefront-deposits-go/internal/database"
	"storefront-deposits-go/internal/fees"
	"storefront-deposits-go/internal/idempotency"
	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/processor"
	"storefront-deposits-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLedgerService(t *testing.T) (*LedgerService, *database.Service) {
	t.Helper()
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Driver:          "sqlite3",
		Path:            filepath.Join(t.TempDir(), "api.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	proc := processor.New(db, idempotency.NewGuard(db, nil), nil, processor.Options{})
	return NewLedgerService(db, fees.Default(), proc), db
}

func TestCreateDepositRecord(t *testing.T) {
	svc, db := setupLedgerService(t)
	ctx := context.Background()

	result, err := svc.CreateDepositRecord(ctx, "u1", decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.Id)
	assert.True(t, result.NetAmount.Equal(decimal.RequireFromString("47.75")))

	stored, err := db.FindDepositById(ctx, result.Id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.DepositStatusPending, stored.Status)
	assert.False(t, stored.HasTransaction())
}

func TestCreateDepositRecord_Validation(t *testing.T) {
	svc, _ := setupLedgerService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		userId string
		amount decimal.Decimal
		msg    string
	}{
		{"missing user", "", decimal.NewFromInt(10), "user_id is required"},
		{"blank user", "   ", decimal.NewFromInt(10), "user_id is required"},
		{"below minimum", "u1", decimal.RequireFromString("0.99"), "amount must be at least 1"},
		{"negative", "u1", decimal.NewFromInt(-5), "amount must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.CreateDepositRecord(ctx, tt.userId, tt.amount)
			require.Error(t, err)
			assert.True(t, errors.Is(err, store.ErrValidation))
			assert.False(t, result.Success)
			assert.Equal(t, tt.msg, result.Error)
		})
	}

	result, err := svc.CreateDepositRecord(ctx, "u1", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.True(t, result.NetAmount.Equal(decimal.RequireFromString("0.66")))
}

func TestUpdateDepositWithTransaction_CreditsOnce(t *testing.T) {
	svc, db := setupLedgerService(t)
	ctx := context.Background()
	_, err := db.CreateProfile(ctx, "u1", "u1@example.com")
	require.NoError(t, err)

	created, err := svc.CreateDepositRecord(ctx, "u1", decimal.NewFromInt(100))
	require.NoError(t, err)

	result, err := svc.UpdateDepositWithTransaction(ctx, created.Id, "TX-REDIRECT")
	require.NoError(t, err)
	assert.True(t, result.Success)

	again, err := svc.UpdateDepositWithTransaction(ctx, created.Id, "TX-REDIRECT")
	require.NoError(t, err)
	assert.True(t, again.Success)

	balance, err := svc.GetUserBalance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.RequireFromString("95.80")))

	history, err := svc.GetTransactionHistory(ctx, "u1", 0, -1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, created.Id, history[0].ReferenceId)
	assert.Equal(t, models.LedgerTypeDeposit, history[0].Type)
}

func TestUpdateDepositWithTransaction_Errors(t *testing.T) {
	svc, db := setupLedgerService(t)
	ctx := context.Background()

	_, err := svc.UpdateDepositWithTransaction(ctx, "", "TX")
	assert.True(t, errors.Is(err, store.ErrValidation))

	_, err = svc.UpdateDepositWithTransaction(ctx, "missing", "TX")
	assert.True(t, errors.Is(err, store.ErrDepositNotFound))

	created, err := svc.CreateDepositRecord(ctx, "u1", decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, db.AttachTransactionId(ctx, created.Id, "TX-A"))
	result, err := svc.UpdateDepositWithTransaction(ctx, created.Id, "TX-B")
	assert.True(t, errors.Is(err, store.ErrDuplicateTransaction))
	assert.False(t, result.Success)
}

func TestGetUserBalance_Errors(t *testing.T) {
	svc, _ := setupLedgerService(t)
	ctx := context.Background()

	_, err := svc.GetUserBalance(ctx, "")
	assert.True(t, errors.Is(err, store.ErrValidation))
	_, err = svc.GetUserBalance(ctx, "nobody")
	assert.True(t, errors.Is(err, store.ErrProfileNotFound))
}

func TestHealthCheck(t *testing.T) {
	svc, db := setupLedgerService(t)
	require.NoError(t, svc.HealthCheck(context.Background()))

	db.Close()
	assert.Error(t, svc.HealthCheck(context.Background()))
}
