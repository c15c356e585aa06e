package formance

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"storefront-deposits-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
)

// ---------- Unit tests for pure helpers (no Formance stack needed) ----------

func TestFormanceAsset(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"USD", "USD/2"},
		{"UNKNOWN", "UNKNOWN/2"}, // default precision
	}
	for _, tt := range tests {
		if got := formanceAsset(tt.symbol); got != tt.want {
			t.Errorf("formanceAsset(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestAssetSymbol(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"USD/2", "USD"},
		{"PLAIN", "PLAIN"},
	}
	for _, tt := range tests {
		if got := assetSymbol(tt.input); got != tt.want {
			t.Errorf("assetSymbol(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestBigIntToDecimal(t *testing.T) {
	// 4775 cents = 47.75
	result := bigIntToDecimal(big.NewInt(4775), "USD")
	if !result.Equal(decimal.RequireFromString("47.75")) {
		t.Errorf("expected 47.75, got %s", result.String())
	}

	result = bigIntToDecimal(nil, "USD")
	if !result.IsZero() {
		t.Errorf("expected 0, got %s", result.String())
	}
}

func TestVolumeBalance(t *testing.T) {
	vols := map[string]shared.V2Volume{
		"USD/2": {Input: big.NewInt(10000), Output: big.NewInt(2500)},
	}
	if got := volumeBalance(vols, "USD/2"); got == nil || got.Int64() != 7500 {
		t.Errorf("expected 7500, got %v", got)
	}
	if got := volumeBalance(vols, "EUR/2"); got != nil {
		t.Errorf("expected nil for missing asset, got %v", got)
	}
}

func TestScriptFor(t *testing.T) {
	script, amt := scriptFor(decimal.RequireFromString("95.80"))
	if script != numscriptCredit || amt != "9580" {
		t.Errorf("credit: got amount %s", amt)
	}

	script, amt = scriptFor(decimal.RequireFromString("-5.00"))
	if script != numscriptDebit || amt != "500" {
		t.Errorf("debit: got amount %s", amt)
	}
	if !strings.Contains(numscriptDebit, "allowing unbounded overdraft") {
		t.Error("debit script must allow the user account to go negative")
	}
}

func TestMirrorValidation(t *testing.T) {
	s := &Service{ledger: "test"}

	err := s.Mirror(context.Background(), store.MirrorEntry{Reference: "deposit:d1", Amount: decimal.NewFromInt(1)})
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("expected validation error for missing user, got %v", err)
	}

	// Zero movements never reach the stack.
	if err := s.Mirror(context.Background(), store.MirrorEntry{Reference: "r", UserId: "u1"}); err != nil {
		t.Errorf("expected nil for zero amount, got %v", err)
	}
}

func TestIsConflictError(t *testing.T) {
	// nil error should not be a conflict
	if isConflictError(nil) {
		t.Error("nil should not be a conflict error")
	}
	if isNotFoundError(errors.New("plain")) {
		t.Error("plain error should not be not-found")
	}
}
