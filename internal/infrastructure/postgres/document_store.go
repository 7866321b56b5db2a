package postgres

import (
	"context"
	"errors"
	"time"

	"doccrm/backend/internal/infrastructure/docstore"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentStore persists JSON documents in the documents table.
type DocumentStore struct {
	pool    *pgxpool.Pool
	nowFunc func() time.Time
}

// NewDocumentStore constructs a store over the pool.
func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool, nowFunc: time.Now}
}

var _ docstore.Store = (*DocumentStore)(nil)

// Get fetches a document body.
func (s *DocumentStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	const query = `SELECT body FROM documents WHERE collection = $1 AND key = $2`
	var body []byte
	if err := s.pool.QueryRow(ctx, query, collection, key).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}
	return body, nil
}

// Set upserts a document.
func (s *DocumentStore) Set(ctx context.Context, collection, key string, doc []byte) error {
	const query = `
INSERT INTO documents (collection, key, body, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (collection, key) DO UPDATE
SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
`
	tag, err := s.pool.Exec(ctx, query, collection, key, string(doc), s.nowFunc().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return docstore.ErrUnconfirmedWrite
	}
	return nil
}

// Create inserts a document unless the key is already present.
func (s *DocumentStore) Create(ctx context.Context, collection, key string, doc []byte) error {
	const query = `
INSERT INTO documents (collection, key, body, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (collection, key) DO NOTHING
`
	tag, err := s.pool.Exec(ctx, query, collection, key, string(doc), s.nowFunc().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrAlreadyExists
	}
	return nil
}

// Exists reports whether a document is stored under the key.
func (s *DocumentStore) Exists(ctx context.Context, collection, key string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM documents WHERE collection = $1 AND key = $2)`
	var ok bool
	if err := s.pool.QueryRow(ctx, query, collection, key).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Ping checks database reachability.
func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
