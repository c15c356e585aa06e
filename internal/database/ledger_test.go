package database

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront-deposits-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestCreditDeposit(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	mustCreateProfile(t, service, "u1")
	deposit := createTestDeposit(t, service, "u1", "50", "47.75")

	entry, err := service.CreditDeposit(ctx, store.CreditDepositParams{
		DepositId: deposit.Id,
		UserId:    "u1",
		Amount:    deposit.NetAmount,
	})
	if err != nil {
		t.Fatalf("CreditDeposit failed: %v", err)
	}
	if entry.ReferenceId != deposit.Id {
		t.Errorf("expected reference %s, got %s", deposit.Id, entry.ReferenceId)
	}

	if got := mustBalance(t, service, "u1"); !got.Equal(decimal.RequireFromString("47.75")) {
		t.Errorf("expected balance 47.75, got %s", got.String())
	}

	found, err := service.FindDepositById(ctx, deposit.Id)
	if err != nil {
		t.Fatalf("FindDepositById failed: %v", err)
	}
	if !found.IsProcessed {
		t.Error("expected deposit to be marked processed")
	}

	calculated, err := service.CalculateUserBalance(ctx, "u1")
	if err != nil {
		t.Fatalf("CalculateUserBalance failed: %v", err)
	}
	if !calculated.Equal(decimal.RequireFromString("47.75")) {
		t.Errorf("expected calculated 47.75, got %s", calculated.String())
	}
}

func TestCreditDeposit_SecondClaimIsRejected(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	mustCreateProfile(t, service, "u1")
	deposit := createTestDeposit(t, service, "u1", "100", "95.80")
	params := store.CreditDepositParams{DepositId: deposit.Id, UserId: "u1", Amount: deposit.NetAmount}

	if _, err := service.CreditDeposit(ctx, params); err != nil {
		t.Fatalf("first CreditDeposit failed: %v", err)
	}
	_, err := service.CreditDeposit(ctx, params)
	if !errors.Is(err, store.ErrAlreadyCredited) {
		t.Fatalf("expected already credited, got %v", err)
	}

	if got := mustBalance(t, service, "u1"); !got.Equal(decimal.RequireFromString("95.80")) {
		t.Errorf("expected a single credit of 95.80, got %s", got.String())
	}
}

func TestCreditDeposit_ConcurrentClaimsCreditOnce(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	mustCreateProfile(t, service, "u1")
	deposit := createTestDeposit(t, service, "u1", "100", "95.80")
	params := store.CreditDepositParams{DepositId: deposit.Id, UserId: "u1", Amount: deposit.NetAmount}

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	credited, rejected := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CreditDeposit(ctx, params)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				credited++
			case errors.Is(err, store.ErrAlreadyCredited):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if credited != 1 {
		t.Errorf("expected exactly one credit, got %d (rejected %d)", credited, rejected)
	}
	if got := mustBalance(t, service, "u1"); !got.Equal(decimal.RequireFromString("95.80")) {
		t.Errorf("expected balance 95.80, got %s", got.String())
	}
}

func TestCreditDeposit_MissingProfileRollsBack(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	deposit := createTestDeposit(t, service, "ghost", "50", "47.75")

	_, err := service.CreditDeposit(ctx, store.CreditDepositParams{DepositId: deposit.Id, UserId: "ghost", Amount: deposit.NetAmount})
	if !errors.Is(err, store.ErrLedger) || !errors.Is(err, store.ErrProfileNotFound) {
		t.Fatalf("expected ledger/profile error, got %v", err)
	}

	found, err := service.FindDepositById(ctx, deposit.Id)
	if err != nil {
		t.Fatalf("FindDepositById failed: %v", err)
	}
	if found.IsProcessed {
		t.Error("failed credit must not leave the deposit marked processed")
	}

	calculated, err := service.CalculateUserBalance(ctx, "ghost")
	if err != nil {
		t.Fatalf("CalculateUserBalance failed: %v", err)
	}
	if !calculated.IsZero() {
		t.Errorf("expected no ledger entry after rollback, got %s", calculated.String())
	}

	// Once the profile exists the same deposit can still be credited
	mustCreateProfile(t, service, "ghost")
	if _, err := service.CreditDeposit(ctx, store.CreditDepositParams{DepositId: deposit.Id, UserId: "ghost", Amount: deposit.NetAmount}); err != nil {
		t.Fatalf("retry after profile creation failed: %v", err)
	}
}

func TestCreditDeposit_RejectsNonPositive(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	_, err := service.CreditDeposit(context.Background(), store.CreditDepositParams{DepositId: "d", UserId: "u", Amount: decimal.Zero})
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAddBalance_NoLostUpdates(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	mustCreateProfile(t, service, "u1")
	if err := service.AddBalance(ctx, "u1", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("AddBalance failed: %v", err)
	}

	amounts := []string{"12.34", "0.66", "5.00", "7.25", "1.10", "3.65", "20.00", "0.01"}
	var wg sync.WaitGroup
	for _, a := range amounts {
		wg.Add(1)
		go func(amount decimal.Decimal) {
			defer wg.Done()
			if err := service.AddBalance(ctx, "u1", amount); err != nil {
				t.Errorf("AddBalance failed: %v", err)
			}
		}(decimal.RequireFromString(a))
	}
	wg.Wait()

	want := decimal.NewFromInt(10)
	for _, a := range amounts {
		want = want.Add(decimal.RequireFromString(a))
	}
	if got := mustBalance(t, service, "u1"); !got.Equal(want) {
		t.Errorf("expected %s, got %s", want.String(), got.String())
	}
}

func TestAddBalance_MissingProfile(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	err := service.AddBalance(context.Background(), "nobody", decimal.NewFromInt(1))
	if !errors.Is(err, store.ErrProfileNotFound) {
		t.Errorf("expected profile not found, got %v", err)
	}
}

func TestGetUserBalance_AbsentIsNil(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	balance, err := service.GetUserBalance(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if balance != nil {
		t.Errorf("expected nil balance, got %s", balance.String())
	}
}

func TestGetTransactionHistory(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	mustCreateProfile(t, service, "u1")
	for _, amount := range []string{"10", "20", "30"} {
		d := createTestDeposit(t, service, "u1", amount, amount)
		if _, err := service.CreditDeposit(ctx, store.CreditDepositParams{DepositId: d.Id, UserId: "u1", Amount: d.NetAmount}); err != nil {
			t.Fatalf("CreditDeposit failed: %v", err)
		}
	}

	history, err := service.GetTransactionHistory(ctx, "u1", 2, 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}

	rest, err := service.GetTransactionHistory(ctx, "u1", 10, 2)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("expected 1 remaining entry, got %d", len(rest))
	}
}
