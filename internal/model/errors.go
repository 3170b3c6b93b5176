package model

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the service and repository layers. Handlers
// translate each of them into an HTTP status in one place, so callers
// should compare with errors.Is rather than matching on messages.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateIdentity  = errors.New("user already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrIdentityGone       = errors.New("user no longer exists")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrInvalidTarget      = errors.New("exactly one of productId or packageId must be provided")
	ErrInvalidReference   = errors.New("one or more products not found")
	ErrValidationFailed   = errors.New("invalid input data")

	// ErrConflict is returned when a delete cannot proceed because other
	// records still depend on the target, e.g. a product that belongs to a
	// package.
	ErrConflict = errors.New("conflict")
)

// ValidationError names the offending field. It unwraps to
// ErrValidationFailed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// Invalid is shorthand for building a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ReferenceError reports how many of the requested product ids resolved.
// It unwraps to ErrInvalidReference.
type ReferenceError struct {
	Expected int
	Found    int
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: expected %d, found %d", ErrInvalidReference, e.Expected, e.Found)
}

func (e *ReferenceError) Unwrap() error { return ErrInvalidReference }
