package vectordb

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGStore is a Store backed by PostgreSQL with the pgvector extension.
type PGStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PGStore)(nil)

// NewPGStore connects to databaseURL and prepares the schema.
func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
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

	s := &PGStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGStore) initSchema(ctx context.Context) error {
	queries := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS nodegrid_vectors (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT '',
			embedding vector NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (collection, id)
		)`,
	}
	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}
	return nil
}

// Upsert implements Store.
func (s *PGStore) Upsert(ctx context.Context, collection string, p Point) error {
	const query = `
		INSERT INTO nodegrid_vectors (collection, id, payload, embedding, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (collection, id) DO UPDATE SET
			payload = EXCLUDED.payload,
			embedding = EXCLUDED.embedding,
			updated_at = EXCLUDED.updated_at`

	if _, err := s.pool.Exec(ctx, query, collection, p.ID, p.Payload, pgvector.NewVector(p.Vector)); err != nil {
		return fmt.Errorf("failed to upsert vector: %w", err)
	}
	return nil
}

// Search implements Store.
func (s *PGStore) Search(ctx context.Context, collection string, vec []float32, limit int) ([]Match, error) {
	const query = `
		SELECT id, payload, 1 - (embedding <=> $2) AS similarity
		FROM nodegrid_vectors
		WHERE collection = $1 AND vector_dims(embedding) = $3
		ORDER BY embedding <=> $2, id
		LIMIT $4`

	rows, err := s.pool.Query(ctx, query, collection, pgvector.NewVector(vec), len(vec), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Payload, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return matches, nil
}

// Close implements Store.
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
