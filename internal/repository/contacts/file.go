package contacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/safeguardian/internal/domain/contact"
	"github.com/oshokin/safeguardian/internal/wire"
)

// filePermissions restricts the contact file to its owner.
const filePermissions = 0o600

// FileRepository persists the contact list to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON file.
	path string
	// mu serializes access to the file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the contact list from disk.
func (r *FileRepository) Load(_ context.Context) ([]*contact.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read contacts file: %w", err)
	}

	return wire.UnmarshalContacts(contents)
}

// Save writes the list to a temporary file and renames it over the old one.
func (r *FileRepository) Save(_ context.Context, contacts []*contact.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := wire.MarshalContacts(contacts)
	if err != nil {
		return err
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, filePermissions); err != nil {
		return fmt.Errorf("write contacts file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace contacts file: %w", err)
	}

	return nil
}
