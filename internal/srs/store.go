// Package srs implements the review data store and scheduling engine: tracked
// documents, their review items, the due and retry queues, and the review
// state machine driven by a pluggable algorithm.
package srs

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/thebtf/recall/internal/algorithm"
	"github.com/thebtf/recall/internal/db"
	"github.com/thebtf/recall/pkg/models"
)

// DefaultKey is the persistence key of the aggregate state.
const DefaultKey = "tracked_files.json"

// Vault is the document backing store consumed by the engine.
type Vault interface {
	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, content []byte) error
	List(ctx context.Context, folder string, recursive bool) ([]string, error)
}

// Extractor turns document content into review items.
type Extractor interface {
	Supports(path string) bool
	Extract(path string, content []byte) (models.Extraction, error)
}

// Options configure a Store.
type Options struct {
	// Key is the persistence key. Defaults to DefaultKey.
	Key string
	// MaxNewPerDay caps new-item admissions per calendar day; -1 is unlimited.
	MaxNewPerDay int
	// RepeatItems re-queues incorrectly answered items for a same-session retry.
	RepeatItems bool
	// Shuffle permutes the due queue after a build that admitted items.
	Shuffle bool
	// CheckConcurrency bounds parallel existence checks during a queue build.
	CheckConcurrency int
	// ExistenceTimeout bounds a single existence check.
	ExistenceTimeout time.Duration
	// Location decides calendar-day boundaries. Defaults to time.Local.
	Location *time.Location
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// Rand drives queue shuffling. Defaults to a time-seeded source.
	Rand *rand.Rand
}

// DefaultOptions returns the options matching the default settings.
func DefaultOptions() Options {
	return Options{
		Key:              DefaultKey,
		MaxNewPerDay:     20,
		RepeatItems:      true,
		CheckConcurrency: 16,
		ExistenceTimeout: 2 * time.Second,
	}
}

// Store owns the aggregate review state. All exported methods are safe for
// concurrent use; mutations are serialized by one mutex.
type Store struct {
	adapter   db.Adapter
	vault     Vault
	extractor Extractor
	algo      algorithm.Algorithm
	data      *Data
	rng       *rand.Rand
	now       func() time.Time
	log       zerolog.Logger
	opts      Options
	// degraded is set when the stored aggregate could not be decoded.
	degraded bool
	mu       sync.Mutex
}

// NewStore creates a store with empty state. Call Load to restore persisted state.
func NewStore(adapter db.Adapter, vault Vault, extractor Extractor, algo algorithm.Algorithm, opts Options, log zerolog.Logger) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.CheckConcurrency <= 0 {
		opts.CheckConcurrency = 16
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Store{
		adapter:   adapter,
		vault:     vault,
		extractor: extractor,
		algo:      algo,
		data:      NewData(),
		rng:       opts.Rand,
		now:       opts.Now,
		opts:      opts,
		log:       log.With().Str("component", "srs").Logger(),
	}
}

// Algorithm returns the active scheduling algorithm.
func (s *Store) Algorithm() algorithm.Algorithm {
	return s.algo
}

// Outcomes returns the active algorithm's outcome labels.
func (s *Store) Outcomes() []string {
	return s.algo.Outcomes()
}

// Load restores the aggregate from the adapter. When nothing is stored the
// defaults are written immediately. Stored content that cannot be decoded is
// replaced by defaults in memory and the store is marked degraded: saves fail
// with ErrDegraded and the stored bytes stay untouched until Reset.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.adapter.Read(ctx, s.opts.Key)
	if errors.Is(err, db.ErrNotFound) {
		s.data = NewData()
		s.degraded = false
		s.log.Info().Str("key", s.opts.Key).Msg("No stored review data, writing defaults")
		return s.saveLocked(ctx)
	}
	if err != nil {
		return fmt.Errorf("%w: load %s: %w", ErrPersistence, s.opts.Key, err)
	}

	data, err := DecodeData(raw)
	if err != nil {
		s.log.Error().Err(err).Str("key", s.opts.Key).Msg("Stored review data unreadable, using defaults; saving disabled until reset")
		s.data = NewData()
		s.degraded = true
		return nil
	}
	if dropped := data.repairQueues(); dropped > 0 {
		s.log.Warn().Int("entries", dropped).Msg("Dropped dead or duplicate queue entries")
	}
	if verr := data.Validate(); verr != nil {
		s.log.Warn().Err(verr).Msg("Loaded review data violates invariants")
	}
	s.data = data
	s.degraded = false
	s.log.Info().
		Int("items", data.Items.LiveCount()).
		Int("documents", data.Documents.LiveCount()).
		Msg("Review data loaded")
	return nil
}

// Save writes the aggregate to the adapter.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Store) saveLocked(ctx context.Context) error {
	return s.writeTo(ctx, s.adapter)
}

func (s *Store) writeTo(ctx context.Context, adapter db.Adapter) error {
	if s.degraded {
		s.log.Error().Str("key", s.opts.Key).Msg("Refusing to overwrite unreadable review data")
		return fmt.Errorf("save %s: %w", s.opts.Key, ErrDegraded)
	}
	raw, err := s.data.Encode()
	if err != nil {
		return err
	}
	if err := adapter.Write(ctx, s.opts.Key, raw); err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrPersistence, s.opts.Key, err)
	}
	return nil
}

// Close saves the aggregate and closes the active adapter.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saveErr := s.saveLocked(ctx)
	if err := s.adapter.Close(); err != nil && saveErr == nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return saveErr
}

// MoveTo writes the current aggregate into target and makes it the active adapter.
// The previous adapter is closed.
func (s *Store) MoveTo(ctx context.Context, target db.Adapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeTo(ctx, target); err != nil {
		return err
	}
	prev := s.adapter
	s.adapter = target
	if prev != nil {
		if err := prev.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to close previous storage")
		}
	}
	s.log.Info().Msg("Review data moved to new storage")
	return nil
}

// Reset discards all review state and persists the empty aggregate. It also
// clears the degraded mode set by Load.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = NewData()
	s.degraded = false
	s.log.Info().Msg("Review data reset")
	return s.saveLocked(ctx)
}

// Validate checks the aggregate's structural invariants.
func (s *Store) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Validate()
}

// Stats returns a snapshot of aggregate sizes.
func (s *Store) Stats() models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Stats{
		Algorithm:      s.algo.Name(),
		Items:          s.data.Items.LiveCount(),
		Documents:      s.data.Documents.LiveCount(),
		QueueSize:      len(s.data.DueQueue),
		RetryQueueSize: len(s.data.RetryQueue),
		NewAddedToday:  s.data.NewItemsAddedToday,
		LastQueueAt:    s.data.LastQueueBuildAt,
		Degraded:       s.degraded,
	}
}

// Degraded reports whether Load found unreadable stored data.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Item returns a copy of the live item at index.
func (s *Store) Item(index int) (models.ReviewItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.data.Items.Get(index)
	if !ok {
		return models.ReviewItem{}, fmt.Errorf("item %d: %w", index, ErrNotFound)
	}
	out := *item
	out.AlgorithmState = item.AlgorithmState.Clone()
	return out, nil
}

// IsQueued reports whether the item is in the due queue.
func (s *Store) IsQueued(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DueQueue.Contains(index)
}

// IsInRetryQueue reports whether the item is in the retry queue.
func (s *Store) IsInRetryQueue(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.RetryQueue.Contains(index)
}

// DueQueue returns a copy of the due queue.
func (s *Store) DueQueue() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.data.DueQueue...)
}

// RetryQueue returns a copy of the retry queue.
func (s *Store) RetryQueue() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.data.RetryQueue...)
}

// Next returns the head of the due queue, falling back to the retry queue.
func (s *Store) Next() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.data.DueQueue.Head(); ok {
		return i, true
	}
	return s.data.RetryQueue.Head()
}

// NextReviewIn returns the hours until the item is due, or -1 when the item
// does not exist.
func (s *Store) NextReviewIn(index int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.data.Items.Get(index)
	if !ok {
		return -1
	}
	return item.DueIn(s.now()).Hours()
}
