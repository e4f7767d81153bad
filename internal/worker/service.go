// Package worker exposes the review engine over a local HTTP API.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/thebtf/recall/internal/algorithm"
	"github.com/thebtf/recall/internal/srs"
	"github.com/thebtf/recall/internal/vault"
	"github.com/thebtf/recall/pkg/models"
)

// Service configuration constants
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// MaxRequestBody bounds JSON request bodies.
	MaxRequestBody = 1 << 20
)

// Engine is the subset of the review store served over HTTP.
type Engine interface {
	Track(ctx context.Context, path string) (models.TrackResult, error)
	Untrack(path string) (int, error)
	Refresh(ctx context.Context, path string) (models.TrackResult, error)
	Rename(oldPath, newPath string) error
	TrackFolder(ctx context.Context, folder string, recursive bool) (models.TrackResult, error)
	UntrackFolder(ctx context.Context, folder string, recursive bool) (models.TrackResult, error)
	TrackedPaths() []string
	ItemsOf(path string) (map[string]int, error)
	BuildQueue(ctx context.Context) (models.QueueReport, error)
	DueQueue() []int
	RetryQueue() []int
	Next() (int, bool)
	Item(index int) (models.ReviewItem, error)
	PathOf(index int) (path, key string, err error)
	Content(ctx context.Context, index int) (models.ItemContent, error)
	IsInRetryQueue(index int) bool
	NextReviewIn(index int) float64
	Review(ctx context.Context, index int, outcome string) (models.ReviewResult, error)
	Reset(ctx context.Context) error
	Save(ctx context.Context) error
	Stats() models.Stats
	Outcomes() []string
}

var _ Engine = (*srs.Store)(nil)

// Options configure a Service.
type Options struct {
	// Addr is the listen address, e.g. ":37790".
	Addr    string
	Version string
	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
}

// Service is the HTTP front of the review engine.
type Service struct {
	engine    Engine
	router    *chi.Mux
	server    *http.Server
	listener  net.Listener
	startTime time.Time
	log       zerolog.Logger
	opts      Options
	wg        sync.WaitGroup
}

// NewService creates a service with its routes configured. Call Start to listen.
func NewService(engine Engine, opts Options, log zerolog.Logger) *Service {
	s := &Service{
		engine:    engine,
		router:    chi.NewRouter(),
		startTime: time.Now(),
		log:       log.With().Str("component", "worker").Logger(),
		opts:      opts,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the router.
func (s *Service) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures HTTP middleware.
func (s *Service) setupMiddleware() {
	s.router.Use(RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(DefaultHTTPTimeout))
	s.router.Use(SecurityHeaders)
}

// setupRoutes configures HTTP routes.
func (s *Service) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	if s.opts.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(RequireJSONContentType)
		r.Use(MaxBodySize(MaxRequestBody))

		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)

		// Documents
		r.Post("/track", s.handleTrack)
		r.Post("/untrack", s.handleUntrack)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/rename", s.handleRename)
		r.Post("/folders/track", s.handleTrackFolder)
		r.Post("/folders/untrack", s.handleUntrackFolder)
		r.Get("/documents", s.handleGetDocuments)
		r.Get("/documents/items", s.handleGetDocumentItems)

		// Queue and review
		r.Post("/queue/build", s.handleBuildQueue)
		r.Get("/queue", s.handleGetQueue)
		r.Get("/next", s.handleNext)
		r.Get("/items/{index}", s.handleGetItem)
		r.Post("/review", s.handleReview)

		// Data
		r.Post("/reset", s.handleReset)
		r.Post("/save", s.handleSave)
		r.Get("/stats", s.handleGetStats)
		r.Get("/outcomes", s.handleGetOutcomes)
	})
}

// requestLogger logs each request at debug level with its request id.
func (s *Service) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("request_id", GetRequestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// Start listens on the configured address and serves in the background.
func (s *Service) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Int("pid", os.Getpid()).
		Msg("Worker HTTP server started")
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Service) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the HTTP server.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			s.log.Error().Err(err).Msg("HTTP server shutdown error")
			return err
		}
	}
	s.wg.Wait()
	s.log.Info().Msg("Worker service shutdown complete")
	return nil
}

// HandleVaultEvent applies a vault change to the tracked documents. Events
// for untracked paths are ignored.
func (s *Service) HandleVaultEvent(e vault.Event) {
	var err error
	switch e.Op {
	case vault.EventRename:
		err = s.engine.Rename(e.OldPath, e.Path)
	case vault.EventDelete:
		_, err = s.engine.Untrack(e.Path)
	}
	if err != nil && !errors.Is(err, srs.ErrNotFound) {
		s.log.Warn().Err(err).Str("op", e.Op.String()).Str("path", e.Path).Msg("Failed to apply vault event")
	}
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, srs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, srs.ErrAlreadyTracked):
		return http.StatusConflict
	case errors.Is(err, algorithm.ErrInvalidOutcome), errors.Is(err, vault.ErrOutsideRoot):
		return http.StatusBadRequest
	case errors.Is(err, srs.ErrDegraded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
