package core

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorConstructorsWrapSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
		contains string
	}{
		{NewEmptyTableError(3), ErrEmptyTable, "3 fields"},
		{NewDegenerateFieldError("SIX4", 1), ErrDegenerateField, `"SIX4"`},
		{NewUnknownLevelError("Aggressiveness", 7, "Extreme"), ErrUnknownLevel, "row 7"},
		{NewInvalidComponentCountError(5, 6, 5), ErrInvalidComponentCount, "[1, 4]"},
		{NewSingularInputError("all residuals are zero"), ErrSingularInput, "all residuals"},
		{NewCapacityError("cells", 10, 5), ErrCapacityExceeded, "limit 5"},
	}

	for _, tc := range cases {
		if !errors.Is(tc.err, tc.sentinel) {
			t.Errorf("Expected %v to wrap %v", tc.err, tc.sentinel)
		}
		if !strings.Contains(tc.err.Error(), tc.contains) {
			t.Errorf("Expected %q to contain %q", tc.err.Error(), tc.contains)
		}
	}

	if !IsInputError(NewDegenerateFieldError("x", 1)) {
		t.Error("Expected degenerate field to be an input error")
	}
	if !IsFactorizationError(NewSingularInputError("x")) {
		t.Error("Expected singular input to be a factorization error")
	}
	if IsFactorizationError(NewEmptyTableError(1)) {
		t.Error("Expected empty table not to be a factorization error")
	}
}
