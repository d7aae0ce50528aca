// Package service implements the domain layer on top of the store:
// entity-specific validation, relational consistency (cascades, tag-set
// maintenance), and aggregation.
package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain error kinds. Callers classify with
// errors.Is / errors.As.
var (
	// ErrNotFound wraps a missing entity of any kind.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials is returned for unknown usernames and wrong
	// passwords alike, so callers cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountDisabled is returned when authenticating against an
	// account whose active flag is off.
	ErrAccountDisabled = errors.New("account is disabled")
)

// ValidationError describes rejected input: a bad field value or a
// uniqueness violation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// notFoundErr wraps ErrNotFound with the entity kind and id.
func notFoundErr(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}
