package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ioutils "github.com/handiism/mediavault/internal/io"
)

// FileStore keeps one JSON file per namespace inside a directory.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates the directory if needed and returns a FileStore.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := ioutils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{dir: filepath.Clean(dir)}, nil
}

func (s *FileStore) path(namespace string) string {
	return filepath.Join(s.dir, ioutils.SanitizeFileName(namespace)+".json")
}

// Load reads the blob saved under namespace.
func (s *FileStore) Load(ctx context.Context, namespace string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(namespace))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Save replaces the blob under namespace atomically.
func (s *FileStore) Save(ctx context.Context, namespace string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ioutils.WriteFile(ctx, s.path(namespace), data)
}

// Delete removes namespace. Deleting a missing namespace is not an error.
func (s *FileStore) Delete(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(namespace))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
