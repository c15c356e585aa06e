package database

import (
	"context"
	"testing"

	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/store"
)

func TestAttemptLogLookups(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	key := "paypal-TX1-PAYMENT.CAPTURE.COMPLETED"

	ok, err := service.HasSuccessfulAttempt(ctx, key)
	if err != nil || ok {
		t.Fatalf("expected no successful attempt, got %v, %v", ok, err)
	}

	if err := service.LogAttempt(ctx, models.AttemptLog{
		TransactionId:  "TX1",
		Status:         models.AttemptStatusError,
		ErrorMessage:   "no deposit found",
		IdempotencyKey: models.NullString(key),
	}); err != nil {
		t.Fatalf("LogAttempt failed: %v", err)
	}

	ok, err = service.HasSuccessfulAttempt(ctx, key)
	if err != nil || ok {
		t.Fatalf("error attempts must not count as success, got %v, %v", ok, err)
	}

	if err := service.LogAttempt(ctx, models.AttemptLog{
		TransactionId:    "TX1",
		DepositId:        models.NullString("d1"),
		Status:           models.AttemptStatusSuccess,
		IdempotencyKey:   models.NullString(key),
		ProcessingTimeMs: 12,
	}); err != nil {
		t.Fatalf("LogAttempt failed: %v", err)
	}

	ok, err = service.HasSuccessfulAttempt(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected successful attempt, got %v, %v", ok, err)
	}

	entries, err := service.ListAttemptsForDeposit(ctx, "d1")
	if err != nil {
		t.Fatalf("ListAttemptsForDeposit failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != models.AttemptStatusSuccess {
		t.Errorf("unexpected attempts: %+v", entries)
	}
}

func TestIsDepositProcessedByKey(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	key := "paypal-TX2-PAYMENT.CAPTURE.COMPLETED"
	mustCreateProfile(t, service, "u1")
	deposit := createTestDeposit(t, service, "u1", "10", "9.31")

	if _, err := service.UpdateDepositProcessing(ctx, store.UpdateDepositParams{
		DepositId: deposit.Id, Status: models.DepositStatusCompleted, TransactionId: "TX2", IdempotencyKey: key,
	}); err != nil {
		t.Fatalf("UpdateDepositProcessing failed: %v", err)
	}

	ok, err := service.IsDepositProcessedByKey(ctx, key)
	if err != nil || ok {
		t.Fatalf("key stored but not yet credited, got %v, %v", ok, err)
	}

	if _, err := service.CreditDeposit(ctx, store.CreditDepositParams{DepositId: deposit.Id, UserId: "u1", Amount: deposit.NetAmount}); err != nil {
		t.Fatalf("CreditDeposit failed: %v", err)
	}

	ok, err = service.IsDepositProcessedByKey(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected processed, got %v, %v", ok, err)
	}

	ok, err = service.IsDepositProcessedByKey(ctx, "")
	if err != nil || ok {
		t.Errorf("empty key should never match, got %v, %v", ok, err)
	}
}
