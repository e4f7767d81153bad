// Package redis provides the networked persistence adapter over a redis server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/thebtf/recall/internal/db"
)

// Config configures the redis store.
type Config struct {
	Addr string
	// Prefix is prepended to every key.
	Prefix      string
	MaxIdle     int
	IdleTimeout time.Duration
	DialTimeout time.Duration
}

// Store is a db.Adapter over redis string values.
type Store struct {
	pool   *redis.Pool
	prefix string
}

// NewStore creates a connection pool and verifies the server responds.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = 3
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 4 * time.Minute
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "recall:"
	}

	pool := &redis.Pool{
		MaxIdle:     cfg.MaxIdle,
		IdleTimeout: cfg.IdleTimeout,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", cfg.Addr, redis.DialConnectTimeout(cfg.DialTimeout))
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	s := &Store{pool: pool, prefix: cfg.Prefix}
	if err := s.Ping(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return s, nil
}

// Ping verifies the server connection.
func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = redis.DoContext(conn, ctx, "PING")
	return err
}

func (s *Store) do(ctx context.Context, cmd string, args ...any) (any, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return redis.DoContext(conn, ctx, cmd, args...)
}

// Exists reports whether a value is stored under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := redis.Bool(s.do(ctx, "EXISTS", s.prefix+key))
	if err != nil {
		return false, fmt.Errorf("%w: exists %s: %w", db.ErrPersistence, key, err)
	}
	return ok, nil
}

// Read returns the value stored under key or db.ErrNotFound.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	value, err := redis.Bytes(s.do(ctx, "GET", s.prefix+key))
	if errors.Is(err, redis.ErrNil) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", db.ErrPersistence, key, err)
	}
	return value, nil
}

// Write sets the value under key.
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	if _, err := s.do(ctx, "SET", s.prefix+key, data); err != nil {
		return fmt.Errorf("%w: write %s: %w", db.ErrPersistence, key, err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

var _ db.Adapter = (*Store)(nil)
