package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrorsAreDistinct(t *testing.T) {
	all := []error{
		ErrValidation,
		ErrAuthorization,
		ErrDepositNotFound,
		ErrLedger,
		ErrProfileNotFound,
		ErrAlreadyCredited,
		ErrProviderUnavailable,
		ErrProviderNotFound,
		ErrPersistence,
		ErrDuplicateTransaction,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}

func TestSentinelErrorsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("credit deposit d1: %w", fmt.Errorf("%w: %w", ErrLedger, ErrProfileNotFound))
	if !errors.Is(err, ErrLedger) {
		t.Errorf("expected wrapped error to match ErrLedger")
	}
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected wrapped error to match ErrProfileNotFound")
	}
}
