package srs

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thebtf/recall/pkg/models"
)

type existence int

const (
	existenceUnchecked existence = iota
	existencePresent
	existenceMissing
	existenceUnknown
)

type docCheck struct {
	index  int
	path   string
	status existence
}

// BuildQueue verifies that every document owning live items still exists,
// untracks the missing ones, and admits new and due items to the due queue.
//
// Existence checks run concurrently, once per document. Their results are
// applied in a single pass in arena order after the checks finish. A failed
// or timed-out check leaves the document's items unclassified for this build.
// If ctx is cancelled the results of completed checks are still applied and
// ctx.Err() is returned with the partial report.
func (s *Store) BuildQueue(ctx context.Context) (models.QueueReport, error) {
	start := time.Now()

	s.mu.Lock()
	checks := s.pendingChecks()
	s.mu.Unlock()

	s.runChecks(ctx, checks)

	s.mu.Lock()
	defer s.mu.Unlock()

	report, failures := s.applyChecks(checks)

	recordQueueBuild(ctx, report.NewQueued, report.DueQueued, len(report.Untracked), failures, time.Since(start).Seconds())
	s.log.Info().
		Int("new", report.NewQueued).
		Int("due", report.DueQueued).
		Int("untracked", len(report.Untracked)).
		Int("unverified", report.Unverified).
		Int("queue", report.QueueSize).
		Msg("Queue built")

	return report, ctx.Err()
}

// pendingChecks collects one check per live document that owns at least one live item.
func (s *Store) pendingChecks() []*docCheck {
	seen := make(map[int]bool)
	var checks []*docCheck
	for _, item := range s.data.Items.All() {
		di := item.DocumentIndex
		if seen[di] {
			continue
		}
		seen[di] = true
		doc, ok := s.data.Documents.Get(di)
		if !ok {
			continue
		}
		checks = append(checks, &docCheck{index: di, path: doc.Path})
	}
	return checks
}

// runChecks resolves every check concurrently. Each goroutine writes only its own check.
func (s *Store) runChecks(ctx context.Context, checks []*docCheck) {
	var g errgroup.Group
	g.SetLimit(s.opts.CheckConcurrency)

	for _, c := range checks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			checkCtx := ctx
			if s.opts.ExistenceTimeout > 0 {
				var cancel context.CancelFunc
				checkCtx, cancel = context.WithTimeout(ctx, s.opts.ExistenceTimeout)
				defer cancel()
			}
			ok, err := s.vault.Exists(checkCtx, c.path)
			switch {
			case err != nil && ctx.Err() != nil:
				// The build was abandoned; this check never completed.
			case err != nil:
				c.status = existenceUnknown
				s.log.Warn().Err(err).Str("path", c.path).Msg("Existence check failed, skipping document this round")
			case ok:
				c.status = existencePresent
			default:
				c.status = existenceMissing
			}
			return nil
		})
	}
	_ = g.Wait()
}

// applyChecks classifies items in arena order. It must run with s.mu held.
func (s *Store) applyChecks(checks []*docCheck) (models.QueueReport, int) {
	d := s.data
	now := s.now()
	nowMillis := now.UnixMilli()

	if !s.sameDay(d.LastQueueBuildAt, now) {
		d.NewItemsAddedToday = 0
	}

	status := make(map[int]*docCheck, len(checks))
	failures := 0
	for _, c := range checks {
		status[c.index] = c
		if c.status == existenceUnknown {
			failures++
		}
	}

	var report models.QueueReport
	for ii, item := range d.Items.All() {
		c, ok := status[item.DocumentIndex]
		if !ok {
			continue
		}
		// A track, untrack or rename during the checks invalidates the result.
		doc, live := d.Documents.Get(c.index)
		if !live || doc.Path != c.path {
			continue
		}

		switch c.status {
		case existenceUnchecked:
			continue
		case existenceUnknown:
			report.Unverified++
			continue
		case existenceMissing:
			removed := d.dropDocument(c.index)
			report.Untracked = append(report.Untracked, models.UntrackedDocument{Path: c.path, Items: removed})
			s.log.Info().Str("path", c.path).Int("items", removed).Msg("Document missing, untracked")
			continue
		}

		switch {
		case item.IsNew():
			if s.opts.MaxNewPerDay != -1 && d.NewItemsAddedToday >= s.opts.MaxNewPerDay {
				continue
			}
			item.NextReviewAt = nowMillis
			d.NewItemsAddedToday++
			if d.DueQueue.Push(ii) {
				report.NewQueued++
			}
		case item.NextReviewAt <= nowMillis:
			d.RetryQueue.Remove(ii)
			if d.DueQueue.Push(ii) {
				report.DueQueued++
			}
		}
	}

	d.LastQueueBuildAt = nowMillis

	if s.opts.Shuffle && report.Queued() > 0 {
		s.rng.Shuffle(len(d.DueQueue), func(i, j int) {
			d.DueQueue[i], d.DueQueue[j] = d.DueQueue[j], d.DueQueue[i]
		})
	}

	report.QueueSize = len(d.DueQueue)
	report.RetryQueueLen = len(d.RetryQueue)
	return report, failures
}

// sameDay reports whether the epoch-millis instant falls on the calendar day of now.
func (s *Store) sameDay(millis int64, now time.Time) bool {
	if millis == 0 {
		return false
	}
	y1, m1, d1 := time.UnixMilli(millis).In(s.opts.Location).Date()
	y2, m2, d2 := now.In(s.opts.Location).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
