package contacts

import (
	"context"
	"errors"

	"github.com/oshokin/safeguardian/internal/domain/contact"
)

// Repository defines persistence operations for the ordered contact list.
type Repository interface {
	// Load returns the saved list, or ErrNotFound when nothing was ever saved.
	Load(ctx context.Context) ([]*contact.Contact, error)
	// Save replaces the saved list.
	Save(ctx context.Context, contacts []*contact.Contact) error
}

// ErrNotFound is returned when no contact list has been saved yet.
var ErrNotFound = errors.New("contacts not found")
