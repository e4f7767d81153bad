// Package sqlite provides the SQLite-backed persistence adapter, storing each
// key's value as one row of a kv_store table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/thebtf/recall/internal/db"
)

// Store is a db.Adapter over an SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// StoreConfig holds configuration for the database store.
type StoreConfig struct {
	Path     string
	MaxConns int
}

// NewStore opens (creating if needed) the database at cfg.Path and runs migrations.
func NewStore(cfg StoreConfig) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 1
	}
	conn.SetMaxOpenConns(maxConns)
	conn.SetMaxIdleConns(maxConns)
	conn.SetConnMaxLifetime(0)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set synchronous: %w", err)
	}

	mgr := NewMigrationManager(conn)
	if err := mgr.RunMigrations(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: conn, path: cfg.Path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a value is stored under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM kv_store WHERE key = ?", key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %w", db.ErrPersistence, key, err)
	}
	return true, nil
}

// Read returns the value stored under key or db.ErrNotFound.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", db.ErrPersistence, key, err)
	}
	return value, nil
}

// Write upserts the value under key.
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at_epoch) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at_epoch = excluded.updated_at_epoch
	`, key, data, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", db.ErrPersistence, key, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ db.Adapter = (*Store)(nil)
