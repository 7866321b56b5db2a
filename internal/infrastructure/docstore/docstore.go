// Package docstore defines the key/value document capability the credential
// store is built on. Backends (postgres, sqlite, the REST proxy and the
// in-memory map) implement Store and are chosen at startup.
//
// Documents are opaque JSON objects addressed by collection and key. Keys are
// compared byte for byte; no backend normalises case or whitespace.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when no document exists for the key.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the key is taken.
	ErrAlreadyExists = errors.New("document already exists")
	// ErrUnconfirmedWrite means the backend accepted the request but did not
	// acknowledge that the document was stored.
	ErrUnconfirmedWrite = errors.New("write not acknowledged")
)

// Store is the get/set/create/exists capability over keyed JSON documents.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, collection, key string) ([]byte, error)
	// Set inserts or replaces the document.
	Set(ctx context.Context, collection, key string, doc []byte) error
	// Create inserts the document only if the key is free.
	Create(ctx context.Context, collection, key string, doc []byte) error
	Exists(ctx context.Context, collection, key string) (bool, error)
}

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
