package worker

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// PathRequest names one vault document.
type PathRequest struct {
	Path string `json:"path"`
}

// RenameRequest moves a tracked document to a new path.
type RenameRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// FolderRequest names a vault folder. Recursive defaults to true.
type FolderRequest struct {
	Recursive *bool  `json:"recursive,omitempty"`
	Path      string `json:"path"`
}

// ReviewRequest submits an outcome for an item.
type ReviewRequest struct {
	Outcome string `json:"outcome"`
	Item    int    `json:"item"`
}

// NextResponse is the item to review next.
type NextResponse struct {
	Path     string `json:"path"`
	Key      string `json:"key"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Item     int    `json:"item"`
	Retry    bool   `json:"retry"`
}

// writeJSON writes a JSON response with proper error handling.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes err with the status matching its kind.
func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

// decodeBody reads a JSON request body into v. An empty body leaves v unchanged.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func decodePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req PathRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	if req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return "", false
	}
	return req.Path, true
}

// handleHealth handles health check requests.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ready",
		"version": s.opts.Version,
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}

// handleVersion returns the worker version.
func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"version": s.opts.Version,
	})
}

func (s *Service) handleTrack(w http.ResponseWriter, r *http.Request) {
	path, ok := decodePath(w, r)
	if !ok {
		return
	}
	result, err := s.engine.Track(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Service) handleUntrack(w http.ResponseWriter, r *http.Request) {
	path, ok := decodePath(w, r)
	if !ok {
		return
	}
	removed, err := s.engine.Untrack(path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"path": path, "removed": removed})
}

func (s *Service) handleRefresh(w http.ResponseWriter, r *http.Request) {
	path, ok := decodePath(w, r)
	if !ok {
		return
	}
	result, err := s.engine.Refresh(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Service) handleRename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.From == "" || req.To == "" {
		http.Error(w, "from and to are required", http.StatusBadRequest)
		return
	}
	if err := s.engine.Rename(req.From, req.To); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"path": req.To})
}

func decodeFolder(w http.ResponseWriter, r *http.Request) (string, bool, bool) {
	var req FolderRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false, false
	}
	recursive := true
	if req.Recursive != nil {
		recursive = *req.Recursive
	}
	return req.Path, recursive, true
}

func (s *Service) handleTrackFolder(w http.ResponseWriter, r *http.Request) {
	folder, recursive, ok := decodeFolder(w, r)
	if !ok {
		return
	}
	result, err := s.engine.TrackFolder(r.Context(), folder, recursive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Service) handleUntrackFolder(w http.ResponseWriter, r *http.Request) {
	folder, recursive, ok := decodeFolder(w, r)
	if !ok {
		return
	}
	result, err := s.engine.UntrackFolder(r.Context(), folder, recursive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Service) handleGetDocuments(w http.ResponseWriter, r *http.Request) {
	paths := s.engine.TrackedPaths()
	if paths == nil {
		paths = []string{}
	}
	writeJSON(w, map[string]any{"documents": paths})
}

func (s *Service) handleGetDocumentItems(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	items, err := s.engine.ItemsOf(path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"path": path, "items": items})
}

func (s *Service) handleBuildQueue(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.BuildQueue(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, report)
}

func (s *Service) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	due, retry := s.engine.DueQueue(), s.engine.RetryQueue()
	if due == nil {
		due = []int{}
	}
	if retry == nil {
		retry = []int{}
	}
	writeJSON(w, map[string]any{"due": due, "retry": retry})
}

// handleNext returns the next item with its content, or 204 when both queues are empty.
func (s *Service) handleNext(w http.ResponseWriter, r *http.Request) {
	index, ok := s.engine.Next()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	path, key, err := s.engine.PathOf(index)
	if err != nil {
		writeError(w, err)
		return
	}
	content, err := s.engine.Content(r.Context(), index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, NextResponse{
		Item:     index,
		Path:     path,
		Key:      key,
		Question: content.Question,
		Answer:   content.Answer,
		Retry:    s.engine.IsInRetryQueue(index),
	})
}

func (s *Service) handleGetItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid item index", http.StatusBadRequest)
		return
	}
	item, err := s.engine.Item(index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"item":              item,
		"nextReviewInHours": s.engine.NextReviewIn(index),
	})
}

func (s *Service) handleReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Outcome == "" {
		http.Error(w, "outcome is required", http.StatusBadRequest)
		return
	}
	result, err := s.engine.Review(r.Context(), req.Item, req.Outcome)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Service) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "reset"})
}

func (s *Service) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Save(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "saved"})
}

func (s *Service) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.engine.Stats())
}

func (s *Service) handleGetOutcomes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"algorithm": s.engine.Stats().Algorithm,
		"outcomes":  s.engine.Outcomes(),
	})
}
