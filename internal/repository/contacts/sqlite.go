package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// Registers the pure Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/oshokin/safeguardian/internal/domain/contact"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS contacts (
	position     INTEGER NOT NULL,
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	phone        TEXT NOT NULL,
	email        TEXT NOT NULL DEFAULT '',
	relationship TEXT NOT NULL DEFAULT '',
	is_primary   INTEGER NOT NULL DEFAULT 0,
	is_family    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS directory_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// savedMarker distinguishes an empty saved directory from a fresh database.
const savedMarker = "saved"

// SQLiteRepository persists the contact list in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Load reads contacts in their saved order.
func (r *SQLiteRepository) Load(ctx context.Context) ([]*contact.Contact, error) {
	var marker string

	err := r.db.QueryRowContext(ctx, `SELECT value FROM directory_meta WHERE key = ?`, savedMarker).Scan(&marker)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("read directory marker: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, phone, email, relationship, is_primary, is_family
		FROM contacts
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var result []*contact.Contact

	for rows.Next() {
		c := new(contact.Contact)
		if err = rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Relationship, &c.IsPrimary, &c.IsFamily); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}

		result = append(result, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}

	return result, nil
}

// Save replaces all rows in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, contacts []*contact.Contact) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM contacts`); err != nil {
		return fmt.Errorf("clear contacts: %w", err)
	}

	for position, c := range contacts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO contacts (position, id, name, phone, email, relationship, is_primary, is_family)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			position, c.ID, c.Name, c.Phone, c.Email, c.Relationship, c.IsPrimary, c.IsFamily)
		if err != nil {
			return fmt.Errorf("insert contact %q: %w", c.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO directory_meta (key, value) VALUES (?, '1')
		ON CONFLICT(key) DO NOTHING`, savedMarker)
	if err != nil {
		return fmt.Errorf("mark directory saved: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit contacts: %w", err)
	}

	return nil
}
