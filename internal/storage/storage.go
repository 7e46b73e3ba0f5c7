// Package storage provides durable namespace → blob stores used as the
// backing for mediavault's client-side caches.
//
// Each cache instance owns one namespace and always reads and writes its
// whole serialized value; no store supports addressing individual keys
// inside a blob.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Load when a namespace has never been saved.
var ErrNotFound = errors.New("storage: namespace not found")

// Store persists opaque blobs by namespace.
// Implementations must be safe for concurrent use.
type Store interface {
	Load(ctx context.Context, namespace string) ([]byte, error)
	Save(ctx context.Context, namespace string, data []byte) error
	Delete(ctx context.Context, namespace string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the store for backend rooted at path.
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFileStore(path)
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
