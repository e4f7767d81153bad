package srs

import (
	"context"
	"fmt"

	"github.com/thebtf/recall/pkg/models"
)

// Review applies one user outcome to the item at index.
//
// An item in the retry queue gets a retry pass: its schedule and statistics
// are untouched, and it goes back to the end of the retry queue unless the
// outcome was correct. Any other item is rescheduled by the algorithm and
// removed from the due queue; when answered incorrectly and RepeatItems is
// set it moves to the retry queue.
func (s *Store) Review(ctx context.Context, index int, outcome string) (models.ReviewResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.data
	item, ok := d.Items.Get(index)
	if !ok {
		return models.ReviewResult{}, fmt.Errorf("review item %d: %w", index, ErrNotFound)
	}

	if d.RetryQueue.Contains(index) {
		res, err := s.algo.OnOutcome(&item.AlgorithmState, outcome, true)
		if err != nil {
			return models.ReviewResult{}, fmt.Errorf("review item %d: %w", index, err)
		}
		d.RetryQueue.Remove(index)
		if !res.Correct {
			d.RetryQueue.Push(index)
		}
		recordReview(ctx, res.Correct, true)
		s.log.Debug().Int("item", index).Str("outcome", outcome).Bool("correct", res.Correct).Msg("Retry pass")
		return models.ReviewResult{
			Item:         index,
			Correct:      res.Correct,
			Retry:        true,
			NextReviewAt: item.NextReviewAt,
		}, nil
	}

	// Work on a copy of the state so a rejected outcome leaves the item untouched.
	state := item.AlgorithmState.Clone()
	res, err := s.algo.OnOutcome(&state, outcome, false)
	if err != nil {
		return models.ReviewResult{}, fmt.Errorf("review item %d: %w", index, err)
	}
	item.AlgorithmState = state

	now := s.now().UnixMilli()
	if res.Reschedules() {
		item.NextReviewAt = now + res.DelayMillis
	}
	item.TimesReviewed++
	d.DueQueue.Remove(index)

	if res.Correct {
		item.TimesCorrect++
		item.ErrorStreak = 0
	} else {
		item.ErrorStreak++
		if s.opts.RepeatItems {
			d.RetryQueue.Push(index)
		}
	}

	recordReview(ctx, res.Correct, false)
	s.log.Debug().
		Int("item", index).
		Str("outcome", outcome).
		Bool("correct", res.Correct).
		Int64("next_review_at", item.NextReviewAt).
		Msg("Item reviewed")

	return models.ReviewResult{
		Item:         index,
		Correct:      res.Correct,
		NextReviewAt: item.NextReviewAt,
	}, nil
}
