package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input errors
	ErrEmptyTable       = errors.New("categorical table has no records")
	ErrDegenerateField  = errors.New("field has fewer than two observed levels")
	ErrUnknownLevel     = errors.New("level not in declared level set")
	ErrInvalidTable     = errors.New("invalid categorical table")
	ErrCapacityExceeded = errors.New("analysis exceeds configured capacity")

	// Factorization errors
	ErrInvalidComponentCount = errors.New("invalid component count")
	ErrSingularInput         = errors.New("residual matrix has no extractable structure")
)

// Error constructors with context
func NewEmptyTableError(fields int) error {
	return fmt.Errorf("%w: 0 rows across %d fields", ErrEmptyTable, fields)
}

func NewDegenerateFieldError(field string, observed int) error {
	return fmt.Errorf("%w: field %q has %d observed level(s)", ErrDegenerateField, field, observed)
}

func NewUnknownLevelError(field string, row int, level string) error {
	return fmt.Errorf("%w: field %q row %d has level %q", ErrUnknownLevel, field, row, level)
}

func NewInvalidTableError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidTable, reason)
}

func NewCapacityError(what string, got, limit int) error {
	return fmt.Errorf("%w: %s %d > limit %d", ErrCapacityExceeded, what, got, limit)
}

func NewInvalidComponentCountError(requested, rows, cols int) error {
	return fmt.Errorf("%w: requested %d, valid range is [1, %d] for a %dx%d indicator matrix",
		ErrInvalidComponentCount, requested, min(rows, cols)-1, rows, cols)
}

func NewSingularInputError(reason string) error {
	return fmt.Errorf("%w: %s", ErrSingularInput, reason)
}

// Error checking helpers
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyTable) ||
		errors.Is(err, ErrDegenerateField) ||
		errors.Is(err, ErrUnknownLevel) ||
		errors.Is(err, ErrInvalidTable)
}

func IsFactorizationError(err error) bool {
	return errors.Is(err, ErrInvalidComponentCount) ||
		errors.Is(err, ErrSingularInput)
}
