// Package sqlite implements the document store over a local SQLite file. It is
// meant for single-node deployments and development.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"doccrm/backend/internal/infrastructure/docstore"

	_ "modernc.org/sqlite"
)

// DocumentStore persists JSON documents in a SQLite database.
type DocumentStore struct {
	db      *sql.DB
	nowFunc func() time.Time
}

var _ docstore.Store = (*DocumentStore)(nil)

// Open opens the SQLite file at path and applies the schema.
func Open(ctx context.Context, path string) (*DocumentStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := "file:" + filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY on upserts.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &DocumentStore{db: db, nowFunc: time.Now}
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite db: %w", err)
	}
	return store, nil
}

// Close releases the database handle.
func (s *DocumentStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get fetches a document body.
func (s *DocumentStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	const query = `SELECT body FROM documents WHERE collection = ? AND key = ?`
	var body string
	if err := s.db.QueryRowContext(ctx, query, collection, key).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}
	return []byte(body), nil
}

// Set upserts a document.
func (s *DocumentStore) Set(ctx context.Context, collection, key string, doc []byte) error {
	const query = `
INSERT INTO documents (collection, key, body, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (collection, key) DO UPDATE
SET body = excluded.body, updated_at = excluded.updated_at
`
	res, err := s.db.ExecContext(ctx, query, collection, key, string(doc), s.nowFunc().UTC().UnixMilli())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return docstore.ErrUnconfirmedWrite
	}
	return nil
}

// Create inserts a document unless the key is already present.
func (s *DocumentStore) Create(ctx context.Context, collection, key string, doc []byte) error {
	const query = `
INSERT INTO documents (collection, key, body, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (collection, key) DO NOTHING
`
	res, err := s.db.ExecContext(ctx, query, collection, key, string(doc), s.nowFunc().UTC().UnixMilli())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return docstore.ErrAlreadyExists
	}
	return nil
}

// Exists reports whether a document is stored under the key.
func (s *DocumentStore) Exists(ctx context.Context, collection, key string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM documents WHERE collection = ? AND key = ?)`
	var ok bool
	if err := s.db.QueryRowContext(ctx, query, collection, key).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Ping checks the database handle.
func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
