package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/oshokin/safeguardian/internal/domain/contact"
	"github.com/oshokin/safeguardian/internal/logger"
	"github.com/oshokin/safeguardian/internal/metrics"
	repo "github.com/oshokin/safeguardian/internal/repository/contacts"
)

// Directory is the in-memory contact list backed by a Repository.
type Directory struct {
	// repo persists the list after every mutation; nil keeps it in memory only.
	repo repo.Repository
	// newID issues contact ids.
	newID func() string
	// seed is used when the repository has never been saved.
	seed []contact.Draft
	// contacts is the committed list in insertion order.
	contacts []*contact.Contact
	// mu protects contacts.
	mu sync.RWMutex
}

// Option configures a Directory.
type Option func(*Directory)

// WithIDGenerator overrides uuid-based contact ids.
func WithIDGenerator(fn func() string) Option {
	return func(d *Directory) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// WithSeed sets the contacts written on first start. Nil disables seeding.
func WithSeed(seed []contact.Draft) Option {
	return func(d *Directory) {
		d.seed = seed
	}
}

// New creates an empty directory backed by repository.
func New(repository repo.Repository, opts ...Option) *Directory {
	d := &Directory{
		repo:  repository,
		newID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Load initialises the directory from the repository. A repository that was
// never saved is seeded. Loaded data that violates the primary invariant is
// repaired and written back.
func (d *Directory) Load(ctx context.Context) error {
	if d.repo == nil {
		return d.applySeed(ctx)
	}

	loaded, err := d.repo.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrNotFound):
		return d.applySeed(ctx)
	default:
		return fmt.Errorf("load contacts: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if ensurePrimary(loaded) {
		logger.Warn(ctx, "Stored contacts had no single primary contact, repaired")

		if err = d.repo.Save(ctx, loaded); err != nil {
			return fmt.Errorf("persist repaired contacts: %w", err)
		}
	}

	d.contacts = loaded
	metrics.Contacts.Set(float64(len(loaded)))

	logger.InfoKV(ctx, "Contacts loaded", "count", len(loaded))

	return nil
}

func (d *Directory) applySeed(ctx context.Context) error {
	if len(d.seed) == 0 {
		return nil
	}

	err := d.mutate(ctx, func(list []*contact.Contact) ([]*contact.Contact, error) {
		for _, draft := range d.seed {
			c := contact.New(d.newID(), draft)
			c.IsPrimary = len(list) == 0
			list = append(list, c)
		}

		return list, nil
	})
	if err != nil {
		return fmt.Errorf("seed contacts: %w", err)
	}

	logger.InfoKV(ctx, "Default contacts seeded", "count", len(d.seed))

	return nil
}

// Add validates the draft and appends a new contact. The first contact of an
// empty directory becomes primary.
func (d *Directory) Add(ctx context.Context, draft contact.Draft) (*contact.Contact, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	var added *contact.Contact

	err := d.mutate(ctx, func(list []*contact.Contact) ([]*contact.Contact, error) {
		added = contact.New(d.newID(), draft)
		added.IsPrimary = len(list) == 0

		return append(list, added), nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Contact added", "id", added.ID, "is_primary", added.IsPrimary, "is_family", added.IsFamily)

	return added.Clone(), nil
}

// Remove deletes a contact. The primary contact can only be removed when it
// is the last one; otherwise primacy has to be reassigned first.
func (d *Directory) Remove(ctx context.Context, id string) error {
	err := d.mutate(ctx, func(list []*contact.Contact) ([]*contact.Contact, error) {
		idx := indexOf(list, id)
		if idx < 0 {
			return nil, &contact.NotFoundError{ID: id}
		}

		if list[idx].IsPrimary && len(list) > 1 {
			return nil, &contact.PrimaryContactProtectedError{ID: id}
		}

		return append(list[:idx], list[idx+1:]...), nil
	})
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Contact deleted", "id", id)

	return nil
}

// Update merges patch into the contact.
func (d *Directory) Update(ctx context.Context, id string, patch contact.Patch) (*contact.Contact, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated *contact.Contact

	err := d.mutate(ctx, func(list []*contact.Contact) ([]*contact.Contact, error) {
		idx := indexOf(list, id)
		if idx < 0 {
			return nil, &contact.NotFoundError{ID: id}
		}

		patch.Apply(list[idx])
		updated = list[idx]

		return list, nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Contact updated", "id", id, "is_family", updated.IsFamily)

	return updated.Clone(), nil
}

// SetPrimary makes id the only primary contact.
func (d *Directory) SetPrimary(ctx context.Context, id string) error {
	err := d.mutate(ctx, func(list []*contact.Contact) ([]*contact.Contact, error) {
		if indexOf(list, id) < 0 {
			return nil, &contact.NotFoundError{ID: id}
		}

		for _, c := range list {
			c.IsPrimary = c.ID == id
		}

		return list, nil
	})
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Primary contact updated", "id", id)

	return nil
}

// List returns copies of all contacts in insertion order.
func (d *Directory) List() []*contact.Contact {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return cloneAll(d.contacts)
}

// Family returns copies of the family members, evaluated on each call.
func (d *Directory) Family() []*contact.Contact {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var family []*contact.Contact

	for _, c := range d.contacts {
		if c.IsFamily {
			family = append(family, c.Clone())
		}
	}

	return family
}

// Primary returns a copy of the primary contact.
func (d *Directory) Primary() (*contact.Contact, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, c := range d.contacts {
		if c.IsPrimary {
			return c.Clone(), true
		}
	}

	return nil, false
}

// Get returns a copy of one contact.
func (d *Directory) Get(id string) (*contact.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	idx := indexOf(d.contacts, id)
	if idx < 0 {
		return nil, &contact.NotFoundError{ID: id}
	}

	return d.contacts[idx].Clone(), nil
}

// Len returns the number of contacts.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.contacts)
}

// mutate applies fn to a copy of the list, reconciles the primary invariant,
// persists the result and only then commits it.
func (d *Directory) mutate(
	ctx context.Context,
	fn func(list []*contact.Contact) ([]*contact.Contact, error),
) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	next, err := fn(cloneAll(d.contacts))
	if err != nil {
		return err
	}

	if ensurePrimary(next) {
		logger.Debug(ctx, "Primary contact reassigned during reconciliation")
	}

	if d.repo != nil {
		if err = d.repo.Save(ctx, next); err != nil {
			logger.ErrorKV(ctx, "Failed to persist contacts", "error", err)

			return fmt.Errorf("persist contacts: %w", err)
		}
	}

	d.contacts = next
	metrics.Contacts.Set(float64(len(next)))

	return nil
}

// ensurePrimary leaves exactly one primary in a non-empty list: the first
// primary found, or the first contact when none is. It reports whether it
// changed anything.
func ensurePrimary(list []*contact.Contact) bool {
	if len(list) == 0 {
		return false
	}

	changed := false
	seen := false

	for _, c := range list {
		switch {
		case c.IsPrimary && seen:
			c.IsPrimary = false
			changed = true
		case c.IsPrimary:
			seen = true
		}
	}

	if !seen {
		list[0].IsPrimary = true
		changed = true
	}

	return changed
}

func indexOf(list []*contact.Contact, id string) int {
	for i, c := range list {
		if c.ID == id {
			return i
		}
	}

	return -1
}

func cloneAll(list []*contact.Contact) []*contact.Contact {
	if list == nil {
		return nil
	}

	cloned := make([]*contact.Contact, 0, len(list))
	for _, c := range list {
		cloned = append(cloned, c.Clone())
	}

	return cloned
}
