// Package db defines the persistence interfaces for recall and opens the
// configured storage backend.
package db

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Read when no value is stored under the key.
	ErrNotFound = errors.New("db: key not found")
	// ErrPersistence marks a backend read or write failure.
	ErrPersistence = errors.New("db: persistence failure")
)

// Reader defines read operations on the key-value persistence contract.
type Reader interface {
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
}

// Writer defines write operations on the key-value persistence contract.
type Writer interface {
	// Write stores data under key, replacing any previous value atomically.
	Write(ctx context.Context, key string, data []byte) error
}

// Adapter is a storage backend holding the aggregate review state as one
// serialized document per key.
type Adapter interface {
	Reader
	Writer
	Close() error
}
