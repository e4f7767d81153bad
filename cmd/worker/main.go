// Package main provides the entry point for the recall worker daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/recall/internal/app"
	"github.com/thebtf/recall/internal/config"
	"github.com/thebtf/recall/internal/maintenance"
	"github.com/thebtf/recall/internal/vault"
	"github.com/thebtf/recall/internal/worker"
)

var Version = "dev"

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().
		Str("version", Version).
		Msg("Starting recall worker")

	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare data directory")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	mp, metricsHandler, err := initMetrics(Version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Open(ctx, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open review engine")
	}

	svc := worker.NewService(a.Store, worker.Options{
		Addr:    fmt.Sprintf("127.0.0.1:%d", config.GetWorkerPort()),
		Version: Version,
		Metrics: metricsHandler,
	}, log.Logger)
	if err := svc.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start service")
	}

	snapshots := maintenance.NewService(a.Store, a.Compactor(), cfg.SnapshotInterval.Std(), log.Logger)
	go snapshots.Start(ctx)

	watcher, err := vault.NewWatcher(a.Vault, svc.HandleVaultEvent, nil, log.Logger)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create vault watcher, renames and deletions will not be followed")
	} else if err := watcher.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to start vault watcher")
		watcher = nil
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Received shutdown signal")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if watcher != nil {
		watcher.Stop()
	}
	if err := svc.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
	snapshots.Stop()
	snapshots.Wait()
	if err := a.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to save review data on shutdown")
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Meter provider shutdown error")
	}

	log.Info().Msg("Worker shutdown complete")
}
