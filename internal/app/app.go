// Package app assembles the review engine from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/thebtf/recall/internal/algorithm"
	"github.com/thebtf/recall/internal/config"
	"github.com/thebtf/recall/internal/db"
	"github.com/thebtf/recall/internal/db/backend"
	"github.com/thebtf/recall/internal/extract"
	"github.com/thebtf/recall/internal/maintenance"
	"github.com/thebtf/recall/internal/srs"
	"github.com/thebtf/recall/internal/vault"
)

// App holds the wired components.
type App struct {
	Config  *config.Config
	Store   *srs.Store
	Vault   *vault.FS
	adapter db.Adapter
	log     zerolog.Logger
}

// Open builds every component described by cfg and loads the stored review data.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	algo, err := algorithm.DefaultRegistry().New(cfg.Algorithm, cfg.AlgorithmSettings)
	if err != nil {
		return nil, fmt.Errorf("create algorithm: %w", err)
	}
	ex, err := extract.New(cfg.Selectors)
	if err != nil {
		return nil, fmt.Errorf("create extractor: %w", err)
	}
	v, err := vault.New(cfg.VaultRoot, cfg.ExistenceTimeout.Std())
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	adapter, err := backend.Open(ctx, cfg.Storage, cfg.DataDir, log)
	if err != nil {
		return nil, err
	}

	store := srs.NewStore(adapter, v, ex, algo, StoreOptions(cfg), log)
	if err := store.Load(ctx); err != nil {
		_ = adapter.Close()
		return nil, fmt.Errorf("load review data: %w", err)
	}

	log.Info().
		Str("algorithm", algo.Name()).
		Str("storage", cfg.Storage.Backend).
		Str("vault", v.Root()).
		Msg("Review engine ready")

	return &App{
		Config:  cfg,
		Store:   store,
		Vault:   v,
		adapter: adapter,
		log:     log,
	}, nil
}

// StoreOptions maps configuration onto engine options.
func StoreOptions(cfg *config.Config) srs.Options {
	opts := srs.DefaultOptions()
	opts.Key = cfg.Storage.Key
	opts.MaxNewPerDay = cfg.MaxNewPerDay
	opts.RepeatItems = cfg.RepeatItems
	opts.Shuffle = cfg.ShuffleQueue
	opts.CheckConcurrency = cfg.CheckConcurrency
	opts.ExistenceTimeout = cfg.ExistenceTimeout.Std()
	return opts
}

// Compactor returns the storage backend as a maintenance.Compactor when it supports compaction.
func (a *App) Compactor() maintenance.Compactor {
	if c, ok := a.adapter.(maintenance.Compactor); ok {
		return c
	}
	return nil
}

// MoveStorage copies the review data into the backend described by target
// and makes it the active storage. The storage key is kept.
func (a *App) MoveStorage(ctx context.Context, target config.StorageConfig) error {
	target.Key = a.Config.Storage.Key
	adapter, err := backend.Open(ctx, target, a.Config.DataDir, a.log)
	if err != nil {
		return err
	}
	if err := a.Store.MoveTo(ctx, adapter); err != nil {
		_ = adapter.Close()
		return err
	}
	a.adapter = adapter
	a.Config.Storage = target
	return nil
}

// Close saves the review data and releases storage.
func (a *App) Close(ctx context.Context) error {
	return a.Store.Close(ctx)
}
