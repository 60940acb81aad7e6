// ABOUTME: Interface definition for the durable key-value persistence medium.
// ABOUTME: Selects between file and SQLite backends by name.
package kv

import (
	"context"
	"fmt"
	"regexp"
)

// Store is a durable local key-value store. Values are opaque bytes.
type Store interface {
	// Get returns the value for key. ok is false when the key has never been written.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put overwrites the value for key.
	Put(ctx context.Context, key string, value []byte) error

	// Close releases any resources held by the store.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}

// Open returns the store for backend rooted at path. For the file backend path is a
// directory; for SQLite it is the database file.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (valid: file, sqlite)", backend)
	}
}
