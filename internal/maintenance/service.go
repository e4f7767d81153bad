// Package maintenance provides the periodic snapshot loop for the review store.
package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the snapshot period used when none is configured.
const DefaultInterval = 5 * time.Minute

// finalSaveTimeout bounds the save performed when the loop exits.
const finalSaveTimeout = 10 * time.Second

// Snapshotter persists the in-memory review state.
type Snapshotter interface {
	Save(ctx context.Context) error
}

// Compactor is implemented by storage backends that can reclaim space.
type Compactor interface {
	Compact(ctx context.Context) error
}

// Service periodically saves the review state and compacts storage.
type Service struct {
	log           zerolog.Logger
	lastRunTime   time.Time
	store         Snapshotter
	compactor     Compactor
	stopCh        chan struct{}
	doneCh        chan struct{}
	interval      time.Duration
	lastRunErr    error
	totalSaves    int64
	totalFailures int64
	mu            sync.Mutex
	running       bool
}

// NewService creates a new maintenance service. compactor may be nil.
func NewService(store Snapshotter, compactor Compactor, interval time.Duration, log zerolog.Logger) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		store:     store,
		compactor: compactor,
		interval:  interval,
		log:       log.With().Str("component", "maintenance").Logger(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the snapshot loop until ctx is cancelled or Stop is called.
// The state is saved once more before Start returns.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(s.doneCh)
	}()

	s.log.Info().Dur("interval", s.interval).Msg("Starting snapshot scheduler")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Snapshot scheduler shutting down due to context cancellation")
			s.finalSave()
			return
		case <-s.stopCh:
			s.log.Info().Msg("Snapshot scheduler shutting down due to stop signal")
			s.finalSave()
			return
		case <-ticker.C:
			s.runMaintenance(ctx)
		}
	}
}

// Stop signals the service to stop.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
}

// Wait waits for the service to finish.
func (s *Service) Wait() {
	<-s.doneCh
}

func (s *Service) finalSave() {
	ctx, cancel := context.WithTimeout(context.Background(), finalSaveTimeout)
	defer cancel()
	s.runMaintenance(ctx)
}

// runMaintenance saves the state and then compacts storage. A failed save
// is logged and retried on the next tick.
func (s *Service) runMaintenance(ctx context.Context) {
	start := time.Now()

	err := s.store.Save(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to save review data")
	} else if s.compactor != nil {
		if cerr := s.compactor.Compact(ctx); cerr != nil {
			s.log.Warn().Err(cerr).Msg("Failed to compact storage")
		}
	}

	s.mu.Lock()
	s.lastRunTime = time.Now()
	s.lastRunErr = err
	if err != nil {
		s.totalFailures++
	} else {
		s.totalSaves++
	}
	s.mu.Unlock()

	s.log.Debug().Dur("duration", time.Since(start)).Bool("ok", err == nil).Msg("Snapshot run completed")
}

// Stats returns snapshot statistics.
func (s *Service) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastErr := ""
	if s.lastRunErr != nil {
		lastErr = s.lastRunErr.Error()
	}
	return map[string]any{
		"interval_seconds": s.interval.Seconds(),
		"last_run":         s.lastRunTime,
		"last_error":       lastErr,
		"total_saves":      s.totalSaves,
		"total_failures":   s.totalFailures,
		"running":          s.running,
	}
}

// RunNow saves immediately and returns once the run has finished.
func (s *Service) RunNow(ctx context.Context) {
	s.runMaintenance(ctx)
}
