// Package pgstate persists state documents in PostgreSQL.
package pgstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/statefile"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodegrid_documents (
	name TEXT PRIMARY KEY,
	id UUID NOT NULL,
	body JSONB NOT NULL,
	saved_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
)`

// Store implements statefile.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ statefile.Store = (*Store)(nil)

// Connect opens a pool for databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Connected to state database.")
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateSchema creates the documents table if it is missing.
func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save implements statefile.Store.
func (s *Store) Save(ctx context.Context, name string, doc *statefile.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO nodegrid_documents (name, id, body, saved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			id = EXCLUDED.id,
			body = EXCLUDED.body,
			saved_at = EXCLUDED.saved_at`
	if _, err := s.pool.Exec(ctx, query, name, doc.ID.String(), body, doc.SavedAt); err != nil {
		return fmt.Errorf("failed to save document %q: %w", name, err)
	}
	return nil
}

// Load implements statefile.Store.
func (s *Store) Load(ctx context.Context, name string) (*statefile.Document, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM nodegrid_documents WHERE name = $1`, name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, statefile.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %q: %w", name, err)
	}
	return statefile.JSON.Decode(body)
}

// List returns the stored document names, most recently saved first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM nodegrid_documents ORDER BY saved_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return names, nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM nodegrid_documents WHERE name = $1`, name); err != nil {
		return fmt.Errorf("failed to delete document %q: %w", name, err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() {
	s.pool.Close()
}
