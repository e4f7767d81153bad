// Package file provides the filesystem persistence adapter: one file per key
// in a data directory, replaced atomically on every write.
package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/thebtf/recall/internal/db"
)

// ErrInvalidKey is returned for keys that are not plain file names.
var ErrInvalidKey = errors.New("file: invalid key")

// Store is a db.Adapter over a directory.
type Store struct {
	dir string
}

// NewStore creates the directory if needed and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, key), nil
}

// Exists reports whether a file is stored under key.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %w", db.ErrPersistence, key, err)
	}
	return true, nil
}

// Read returns the file content stored under key or db.ErrNotFound.
func (s *Store) Read(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", db.ErrPersistence, key, err)
	}
	return data, nil
}

// Write atomically replaces the file stored under key.
func (s *Store) Write(_ context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(p, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: write %s: %w", db.ErrPersistence, key, err)
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

var _ db.Adapter = (*Store)(nil)
