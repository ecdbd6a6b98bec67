package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-schemaform/pkg/document"
)

// SQLiteDriver is the database/sql driver name registered by modernc.org/sqlite.
const SQLiteDriver = "sqlite"

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS form_documents (
	name       TEXT PRIMARY KEY,
	format     TEXT NOT NULL,
	body       BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLStore keeps raw document bodies in a SQL table and decodes them on read.
type SQLStore struct {
	db  *sql.DB
	cfg config
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open database. Call Migrate before first use.
func NewSQLStore(db *sql.DB, options ...Option) *SQLStore {
	return &SQLStore{db: db, cfg: newConfig(options)}
}

// OpenSQLite opens dsn with the pure Go SQLite driver and migrates the schema.
// An empty dsn opens a private in-memory database.
func OpenSQLite(ctx context.Context, dsn string, options ...Option) (*SQLStore, error) {
	if dsn == "" {
		dsn = "file::memory:"
	}
	dsn = strings.TrimPrefix(dsn, "sqlite://")

	db, err := sql.Open(SQLiteDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// SQLite serializes writers; an in-memory database also lives per connection.
	db.SetMaxOpenConns(1)

	s := NewSQLStore(db, options...)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the documents table when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createDocumentsTable); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Put stores body under name, replacing any previous version. The body is
// decoded first so invalid documents never reach the table.
func (s *SQLStore) Put(ctx context.Context, name string, format document.Format, body []byte) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("store: document name is required")
	}
	if _, err := s.cfg.decoder.Decode(body, format, document.SourceFromSQL(name)); err != nil {
		return fmt.Errorf("store: put %q: %w", name, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO form_documents (name, format, body, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			format = excluded.format,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		name, string(format), body,
	)
	if err != nil {
		return fmt.Errorf("store: put %q: %w", name, err)
	}
	return nil
}

// Get decodes the stored document. The row name wins over any name declared
// in the body so lookups stay consistent.
func (s *SQLStore) Get(ctx context.Context, name string) (document.Document, error) {
	var (
		format string
		body   []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT format, body FROM form_documents WHERE name = ?`, name,
	).Scan(&format, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return document.Document{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("store: get %q: %w", name, err)
	}

	doc, err := s.cfg.decoder.Decode(body, document.Format(format), document.SourceFromSQL(name))
	if err != nil {
		return document.Document{}, fmt.Errorf("store: decode %q: %w", name, err)
	}
	doc.Name = name
	return doc, nil
}

// List returns stored names in alphabetical order.
func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM form_documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return names, nil
}

// Delete removes name. Deleting a missing document reports ErrNotFound.
func (s *SQLStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM form_documents WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

// Import copies every document from src, keeping their original bytes.
func (s *SQLStore) Import(ctx context.Context, src Store) error {
	names, err := src.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		doc, err := src.Get(ctx, name)
		if err != nil {
			return err
		}
		if err := s.Put(ctx, name, doc.Format, doc.Raw()); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
