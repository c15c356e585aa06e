package database

import (
	"errors"
	"fmt"

	"storefront-deposits-go/internal/store"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	pqInsufficientPrivilege = "42501"
	pqUniqueViolation       = "23505"
)

// classifyError maps driver errors onto the shared store sentinels.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqInsufficientPrivilege:
			return fmt.Errorf("%s: %w: %w", op, store.ErrAuthorization, err)
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w: %w", op, store.ErrDuplicateTransaction, err)
		}
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%s: %w: %w", op, store.ErrDuplicateTransaction, err)
		}
		if sqliteErr.Code == sqlite3.ErrAuth || sqliteErr.Code == sqlite3.ErrPerm {
			return fmt.Errorf("%s: %w: %w", op, store.ErrAuthorization, err)
		}
	}

	return fmt.Errorf("%s: %w: %w", op, store.ErrPersistence, err)
}
