package database

import (
	"errors"
	"testing"

	"storefront-deposits-go/internal/store"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"row level security", &pq.Error{Code: "42501"}, store.ErrAuthorization},
		{"postgres unique", &pq.Error{Code: "23505"}, store.ErrDuplicateTransaction},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, store.ErrDuplicateTransaction},
		{"sqlite permission", sqlite3.Error{Code: sqlite3.ErrPerm}, store.ErrAuthorization},
		{"other", errors.New("connection reset"), store.ErrPersistence},
	}
	for _, tt := range tests {
		got := classifyError("op", tt.err)
		if !errors.Is(got, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}

	if classifyError("op", nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestRebind(t *testing.T) {
	pg := dialectFor(driverPostgres)
	got := pg.rebind("UPDATE profiles SET balance = balance + ? WHERE id = ?")
	want := "UPDATE profiles SET balance = balance + $1 WHERE id = $2"
	if got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}

	sqlite := dialectFor(driverSQLite)
	q := "SELECT 1 WHERE id = ?"
	if sqlite.rebind(q) != q {
		t.Error("sqlite queries should not be rebound")
	}
}
