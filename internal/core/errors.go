package core

import (
	"errors"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)

var (
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrMissingDate      = errors.New("date is required")
	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidBudget    = errors.New("budget must not be negative")
	ErrMissingBudget    = errors.New("budget is required")
	ErrInvalidRange     = errors.New("end date before start date")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field string
	Err   error
}

// NewValidationError wraps err as a validation failure on field.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var (
	ErrEmptyName    = errors.New("name is required")
	ErrInvalidEmail = errors.New("invalid email address")
	ErrEmailTaken   = errors.New("email already registered")
)
