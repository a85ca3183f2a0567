package contact

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("invalid contact")
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("contact not found")
	// ErrPrimaryProtected matches every *PrimaryContactProtectedError.
	ErrPrimaryProtected = errors.New("primary contact is protected")
)

// ValidationError reports malformed contact input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports an unknown contact id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %q", ErrNotFound, e.ID)
}

// Unwrap allows errors.Is(err, ErrNotFound).
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PrimaryContactProtectedError reports an attempt to delete the primary
// contact while other contacts remain. Reassign primacy first.
type PrimaryContactProtectedError struct {
	ID string
}

func (e *PrimaryContactProtectedError) Error() string {
	return fmt.Sprintf("%s: %q, set another primary contact first", ErrPrimaryProtected, e.ID)
}

// Unwrap allows errors.Is(err, ErrPrimaryProtected).
func (e *PrimaryContactProtectedError) Unwrap() error { return ErrPrimaryProtected }
