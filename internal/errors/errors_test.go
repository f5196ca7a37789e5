package errors

import (
	"database/sql"
	"testing"
)

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := Wrap(NewValidationError("exitTime", "2026-01-01", "must not precede entryTime"), "recording trade")

	if !Is(err, ErrInputValidation) {
		t.Fatalf("expected %v to match ErrInputValidation", err)
	}

	var ve *ValidationError
	if !As(err, &ve) {
		t.Fatalf("expected ValidationError in chain")
	}
	if ve.Field != "exitTime" {
		t.Errorf("Field = %q, want exitTime", ve.Field)
	}
}

func TestStoreErrorUnwraps(t *testing.T) {
	err := NewStoreError("get", "user", sql.ErrNoRows)
	if !Is(err, sql.ErrNoRows) {
		t.Errorf("expected StoreError to unwrap to sql.ErrNoRows")
	}
	if got := err.Error(); got != "store error [get] user: sql: no rows in result set" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
}
