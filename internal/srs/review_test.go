package srs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/recall/internal/algorithm"
)

const day = int64(24 * time.Hour / time.Millisecond)

func TestReview_StageLadderSchedule(t *testing.T) {
	f := newFixture(t)
	f.track(t, "a.md", "")
	f.build(t)
	ctx := context.Background()

	res, err := f.store.Review(ctx, 0, algorithm.LeitnerCorrect)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.False(t, res.Retry)
	assert.Equal(t, f.clock.Now().UnixMilli()+day, res.NextReviewAt)
	assert.False(t, f.store.IsQueued(0))

	res, err = f.store.Review(ctx, 0, algorithm.LeitnerCorrect)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().UnixMilli()+2*day, res.NextReviewAt)

	res, err = f.store.Review(ctx, 0, algorithm.LeitnerWrong)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, f.clock.Now().UnixMilli()+day, res.NextReviewAt)

	item, err := f.store.Item(0)
	require.NoError(t, err)
	assert.Equal(t, 3, item.TimesReviewed)
	assert.Equal(t, 2, item.TimesCorrect)
	assert.Equal(t, 1, item.ErrorStreak)
	assert.True(t, f.store.IsInRetryQueue(0))
	require.NoError(t, f.store.Validate())
}

func TestReview_RetryUntilCorrect(t *testing.T) {
	f := newFixture(t)
	f.track(t, "a.md", "")
	f.build(t)
	ctx := context.Background()

	_, err := f.store.Review(ctx, 0, algorithm.LeitnerWrong)
	require.NoError(t, err)
	before, err := f.store.Item(0)
	require.NoError(t, err)

	for range 3 {
		res, err := f.store.Review(ctx, 0, algorithm.LeitnerWrong)
		require.NoError(t, err)
		assert.True(t, res.Retry)
		assert.False(t, res.Correct)
		assert.True(t, f.store.IsInRetryQueue(0))
		assert.False(t, f.store.IsQueued(0))
	}

	res, err := f.store.Review(ctx, 0, algorithm.LeitnerCorrect)
	require.NoError(t, err)
	assert.True(t, res.Retry)
	assert.True(t, res.Correct)
	assert.False(t, f.store.IsInRetryQueue(0))
	assert.False(t, f.store.IsQueued(0))

	after, err := f.store.Item(0)
	require.NoError(t, err)
	assert.Equal(t, before, after, "retry passes leave schedule and statistics untouched")

	f.build(t)
	assert.False(t, f.store.IsInRetryQueue(0), "no reappearance without a new incorrect outcome")
}

func TestReview_RetryGoesToBackOfQueue(t *testing.T) {
	f := newFixture(t)
	f.track(t, "a.md", "q1")
	f.build(t)
	ctx := context.Background()

	for _, i := range []int{0, 1} {
		_, err := f.store.Review(ctx, i, algorithm.LeitnerWrong)
		require.NoError(t, err)
	}
	require.Equal(t, []int{0, 1}, f.store.RetryQueue())

	_, err := f.store.Review(ctx, 0, algorithm.LeitnerWrong)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, f.store.RetryQueue())
}

func TestReview_RepeatDisabled(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.RepeatItems = false })
	f.track(t, "a.md", "")
	f.build(t)

	_, err := f.store.Review(context.Background(), 0, algorithm.LeitnerWrong)
	require.NoError(t, err)
	assert.Empty(t, f.store.RetryQueue())
	assert.Empty(t, f.store.DueQueue())
}

func TestReview_InvalidOutcomeLeavesItem(t *testing.T) {
	f := newFixture(t)
	f.track(t, "a.md", "")
	f.build(t)
	before, err := f.store.Item(0)
	require.NoError(t, err)

	_, err = f.store.Review(context.Background(), 0, "Maybe")
	assert.ErrorIs(t, err, ErrInvalidOutcome)

	after, err := f.store.Item(0)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.True(t, f.store.IsQueued(0))
}

func TestReview_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Review(context.Background(), 7, algorithm.LeitnerCorrect)
	assert.ErrorIs(t, err, ErrNotFound)

	f.track(t, "a.md", "")
	_, err = f.store.Untrack("a.md")
	require.NoError(t, err)
	_, err = f.store.Review(context.Background(), 0, algorithm.LeitnerCorrect)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReview_OtherAlgorithms(t *testing.T) {
	for _, name := range []string{algorithm.SM2Name, algorithm.AnkiName} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			algo, err := algorithm.DefaultRegistry().New(name, nil)
			require.NoError(t, err)
			f.store.algo = algo

			f.track(t, "a.md", "")
			f.build(t)
			outcomes := f.store.Outcomes()

			res, err := f.store.Review(context.Background(), 0, outcomes[len(outcomes)-1])
			require.NoError(t, err)
			assert.True(t, res.Correct)
			assert.Greater(t, res.NextReviewAt, f.clock.Now().UnixMilli())

			res, err = f.store.Review(context.Background(), 0, outcomes[0])
			require.NoError(t, err)
			assert.False(t, res.Correct)
			assert.True(t, f.store.IsInRetryQueue(0))
		})
	}
}
