// Package backend opens the persistence adapter selected by configuration.
package backend

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/thebtf/recall/internal/config"
	"github.com/thebtf/recall/internal/db"
	"github.com/thebtf/recall/internal/db/badger"
	"github.com/thebtf/recall/internal/db/file"
	"github.com/thebtf/recall/internal/db/gorm"
	"github.com/thebtf/recall/internal/db/redis"
	"github.com/thebtf/recall/internal/db/sqlite"
)

// Open creates the adapter for cfg. Relative or empty paths of the embedded
// backends resolve inside dataDir.
func Open(ctx context.Context, cfg config.StorageConfig, dataDir string, log zerolog.Logger) (db.Adapter, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		s, err := file.NewStore(resolve(dataDir, cfg.Path, ""))
		if err != nil {
			return nil, fmt.Errorf("open file storage: %w", err)
		}
		return s, nil

	case config.BackendSQLite:
		s, err := sqlite.NewStore(sqlite.StoreConfig{Path: resolve(dataDir, cfg.Path, "recall.db")})
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return s, nil

	case config.BackendBadger:
		s, err := badger.NewStore(badger.DefaultConfig(resolve(dataDir, cfg.Path, "badger")), log)
		if err != nil {
			return nil, fmt.Errorf("open badger storage: %w", err)
		}
		return s, nil

	case config.BackendPostgres:
		s, err := gorm.NewStore(gorm.Config{DSN: cfg.DSN})
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		return s, nil

	case config.BackendRedis:
		s, err := redis.NewStore(ctx, redis.Config{Addr: cfg.Addr})
		if err != nil {
			return nil, fmt.Errorf("open redis storage: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("open storage: unknown backend %q", cfg.Backend)
}

func resolve(dataDir, path, def string) string {
	if path == "" {
		return filepath.Join(dataDir, def)
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dataDir, path)
}
