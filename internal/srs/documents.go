package srs

import (
	"context"
	"fmt"
	"sort"

	"github.com/thebtf/recall/pkg/models"
)

// Track starts tracking the document at path and creates an item for every
// key its content yields.
func (s *Store) Track(ctx context.Context, path string) (models.TrackResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackLocked(ctx, path)
}

func (s *Store) trackLocked(ctx context.Context, path string) (models.TrackResult, error) {
	if s.data.documentIndex(path) >= 0 {
		return models.TrackResult{}, fmt.Errorf("track %s: %w", path, ErrAlreadyTracked)
	}
	extraction, err := s.extract(ctx, path)
	if err != nil {
		return models.TrackResult{}, fmt.Errorf("track %s: %w", path, err)
	}

	di := s.data.Documents.Alloc(models.NewTrackedDocument(path))
	result := s.applyExtraction(di, extraction.Items)
	result.Path = path

	s.log.Info().Str("path", path).Int("added", result.Added).Msg("Document tracked")
	return result, nil
}

// Untrack stops tracking the document at path, removing every item it owns.
// It returns the number of items removed.
func (s *Store) Untrack(path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.untrackLocked(path)
}

func (s *Store) untrackLocked(path string) (int, error) {
	di := s.data.documentIndex(path)
	if di < 0 {
		return 0, fmt.Errorf("untrack %s: %w", path, ErrNotFound)
	}
	removed := s.data.dropDocument(di)
	s.log.Info().Str("path", path).Int("removed", removed).Msg("Document untracked")
	return removed, nil
}

// Refresh re-extracts the tracked document at path, creating items for new
// keys and removing items whose keys disappeared.
func (s *Store) Refresh(ctx context.Context, path string) (models.TrackResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	di := s.data.documentIndex(path)
	if di < 0 {
		return models.TrackResult{}, fmt.Errorf("refresh %s: %w", path, ErrNotFound)
	}
	extraction, err := s.extract(ctx, path)
	if err != nil {
		return models.TrackResult{}, fmt.Errorf("refresh %s: %w", path, err)
	}
	result := s.applyExtraction(di, extraction.Items)
	result.Path = path

	s.log.Debug().Str("path", path).Int("added", result.Added).Int("removed", result.Removed).Msg("Document refreshed")
	return result, nil
}

// Rename changes the identity of a tracked document. Items and queues are untouched.
func (s *Store) Rename(oldPath, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	di := s.data.documentIndex(oldPath)
	if di < 0 {
		return fmt.Errorf("rename %s: %w", oldPath, ErrNotFound)
	}
	if oldPath == newPath {
		return nil
	}
	if s.data.documentIndex(newPath) >= 0 {
		return fmt.Errorf("rename %s to %s: %w", oldPath, newPath, ErrAlreadyTracked)
	}
	doc, _ := s.data.Documents.Get(di)
	doc.Path = newPath
	s.log.Info().Str("from", oldPath).Str("to", newPath).Msg("Document renamed")
	return nil
}

// IsTracked reports whether path is a tracked document.
func (s *Store) IsTracked(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.documentIndex(path) >= 0
}

// TrackedPaths returns the paths of all tracked documents in arena order.
func (s *Store) TrackedPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, doc := range s.data.Documents.All() {
		out = append(out, doc.Path)
	}
	return out
}

// ItemsOf returns the item indices owned by the document at path, keyed by item key.
func (s *Store) ItemsOf(path string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	di := s.data.documentIndex(path)
	if di < 0 {
		return nil, fmt.Errorf("items of %s: %w", path, ErrNotFound)
	}
	doc, _ := s.data.Documents.Get(di)
	out := make(map[string]int, len(doc.Items))
	for k, v := range doc.Items {
		out[k] = v
	}
	return out, nil
}

// PathOf returns the owning document path and item key of an item.
func (s *Store) PathOf(index int) (path, key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pathOfLocked(index)
}

func (s *Store) pathOfLocked(index int) (string, string, error) {
	item, ok := s.data.Items.Get(index)
	if !ok {
		return "", "", fmt.Errorf("item %d: %w", index, ErrNotFound)
	}
	doc, ok := s.data.Documents.Get(item.DocumentIndex)
	if !ok {
		return "", "", fmt.Errorf("item %d owner %d: %w", index, item.DocumentIndex, ErrNotFound)
	}
	for k, v := range doc.Items {
		if v == index {
			return doc.Path, k, nil
		}
	}
	return "", "", fmt.Errorf("item %d key: %w", index, ErrNotFound)
}

// Content re-extracts the owning document and returns the item's question and answer.
func (s *Store) Content(ctx context.Context, index int) (models.ItemContent, error) {
	s.mu.Lock()
	path, key, err := s.pathOfLocked(index)
	s.mu.Unlock()
	if err != nil {
		return models.ItemContent{}, err
	}

	content, err := s.vault.Read(ctx, path)
	if err != nil {
		return models.ItemContent{}, fmt.Errorf("read %s: %w", path, err)
	}
	extraction, err := s.extractor.Extract(path, content)
	if err != nil {
		return models.ItemContent{}, fmt.Errorf("extract %s: %w", path, err)
	}
	c, ok := extraction.Items[key]
	if !ok {
		s.dropVanished(ctx, path, index)
		return models.ItemContent{}, fmt.Errorf("item %d key %q in %s: %w", index, key, path, ErrNotFound)
	}
	return c, nil
}

// dropVanished refreshes path after one of its items lost its key, so the
// item is tombstoned and leaves the queues.
func (s *Store) dropVanished(ctx context.Context, path string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	di := s.data.documentIndex(path)
	if di < 0 {
		return
	}
	extraction, err := s.extract(ctx, path)
	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Int("item", index).Msg("Failed to refresh document with vanished item")
		return
	}
	result := s.applyExtraction(di, extraction.Items)
	s.log.Info().Str("path", path).Int("item", index).Int("removed", result.Removed).Int("added", result.Added).Msg("Item vanished from document, refreshed")
}

// TrackFolder tracks every supported, not yet tracked document in folder.
// Documents that fail to track are logged and skipped.
func (s *Store) TrackFolder(ctx context.Context, folder string, recursive bool) (models.TrackResult, error) {
	paths, err := s.vault.List(ctx, folder, recursive)
	if err != nil {
		return models.TrackResult{}, fmt.Errorf("list %s: %w", folder, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total := models.TrackResult{Path: folder}
	for _, p := range paths {
		if !s.extractor.Supports(p) || s.data.documentIndex(p) >= 0 {
			continue
		}
		r, err := s.trackLocked(ctx, p)
		if err != nil {
			s.log.Warn().Err(err).Str("path", p).Msg("Skipping document in folder")
			continue
		}
		total.Merge(r)
	}
	return total, nil
}

// UntrackFolder untracks every tracked document in folder and returns the
// result with the number of removed items.
func (s *Store) UntrackFolder(ctx context.Context, folder string, recursive bool) (models.TrackResult, error) {
	paths, err := s.vault.List(ctx, folder, recursive)
	if err != nil {
		return models.TrackResult{}, fmt.Errorf("list %s: %w", folder, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total := models.TrackResult{Path: folder}
	for _, p := range paths {
		if s.data.documentIndex(p) < 0 {
			continue
		}
		removed, err := s.untrackLocked(p)
		if err != nil {
			continue
		}
		total.Removed += removed
	}
	return total, nil
}

// extract reads the document and runs the extractor, writing generated
// block ids back when the extractor inserted any.
func (s *Store) extract(ctx context.Context, path string) (models.Extraction, error) {
	ok, err := s.vault.Exists(ctx, path)
	if err != nil {
		return models.Extraction{}, err
	}
	if !ok {
		return models.Extraction{}, ErrNotFound
	}
	content, err := s.vault.Read(ctx, path)
	if err != nil {
		return models.Extraction{}, fmt.Errorf("read: %w", err)
	}
	extraction, err := s.extractor.Extract(path, content)
	if err != nil {
		return models.Extraction{}, fmt.Errorf("extract: %w", err)
	}
	if extraction.Content != nil {
		if err := s.vault.Write(ctx, path, extraction.Content); err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("Failed to write generated block ids")
		}
	}
	return extraction, nil
}

// applyExtraction reconciles document di's items with the extracted key set.
func (s *Store) applyExtraction(di int, items map[string]models.ItemContent) models.TrackResult {
	doc, _ := s.data.Documents.Get(di)
	var result models.TrackResult

	for _, key := range doc.Keys() {
		if _, ok := items[key]; ok {
			continue
		}
		if s.data.dropItem(doc.Items[key]) {
			result.Removed++
		}
		delete(doc.Items, key)
	}

	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := doc.Items[key]; ok {
			continue
		}
		doc.Items[key] = s.data.Items.Alloc(models.NewReviewItem(di, s.algo.DefaultState()))
		result.Added++
	}
	return result
}
