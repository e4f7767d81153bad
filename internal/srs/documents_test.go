package srs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/recall/internal/algorithm"
	"github.com/thebtf/recall/pkg/models"
)

func TestTrack_CreatesItems(t *testing.T) {
	f := newFixture(t)

	res := f.track(t, "notes/a.md", "q1\nq2")
	assert.Equal(t, models.TrackResult{Path: "notes/a.md", Added: 3}, res)

	items, err := f.store.ItemsOf("notes/a.md")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"file": 0, "q1": 1, "q2": 2}, items)

	item, err := f.store.Item(1)
	require.NoError(t, err)
	assert.True(t, item.IsNew())
	assert.Equal(t, 0, item.DocumentIndex)
	assert.Equal(t, f.store.Algorithm().DefaultState(), item.AlgorithmState)
	assert.True(t, f.store.IsTracked("notes/a.md"))
	require.NoError(t, f.store.Validate())
}

func TestTrack_AlreadyTracked(t *testing.T) {
	f := newFixture(t)
	f.track(t, "a.md", "")

	_, err := f.store.Track(context.Background(), "a.md")
	assert.ErrorIs(t, err, ErrAlreadyTracked)
	assert.Equal(t, 1, f.store.Stats().Documents)
}

func TestTrack_MissingFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.Track(context.Background(), "ghost.md")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, f.store.IsTracked("ghost.md"))
	assert.Equal(t, 0, f.store.Stats().Documents)
}

func TestTrack_WritesGeneratedIDs(t *testing.T) {
	f := newFixture(t)
	f.store.extractor = lineExtractor{rewrite: func(c []byte) []byte { return append(c, " ^abc"...) }}

	f.track(t, "a.md", "q")
	content, err := f.vault.Read(context.Background(), "a.md")
	require.NoError(t, err)
	assert.Equal(t, "q ^abc", string(content))
}

func TestUntrack_CascadesAndClearsQueues(t *testing.T) {
	f := newFixture(t)
	f.track(t, "a.md", "q1")
	f.track(t, "b.md", "")
	f.build(t)

	_, err := f.store.Review(context.Background(), 1, "Wrong")
	require.NoError(t, err)
	require.True(t, f.store.IsInRetryQueue(1))

	removed, err := f.store.Untrack("a.md")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.False(t, f.store.IsTracked("a.md"))
	assert.Empty(t, f.store.RetryQueue())
	assert.Equal(t, []int{2}, f.store.DueQueue())
	_, err = f.store.Item(0)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, f.fileItem(t, "b.md"), "surviving indices are stable")
	require.NoError(t, f.store.Validate())
}

func TestUntrack_NotTracked(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Untrack("a.md")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRefresh_ReconcilesKeys(t *testing.T) {
	f := newFixture(t)
	f.track(t, "a.md", "q1\nq2")
	f.build(t)
	require.True(t, f.store.IsQueued(2))

	f.vault.put("a.md", "q1\nq3")
	res, err := f.store.Refresh(context.Background(), "a.md")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Removed)

	items, err := f.store.ItemsOf("a.md")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"file": 0, "q1": 1, "q3": 3}, items)
	assert.False(t, f.store.IsQueued(2), "removed item leaves the queue")
	_, err = f.store.Item(2)
	assert.ErrorIs(t, err, ErrNotFound)

	doc := f.store.data.Documents
	assert.True(t, doc.Live(0), "the document itself survives re-extraction")
	require.NoError(t, f.store.Validate())
}

func TestRefresh_NotTracked(t *testing.T) {
	f := newFixture(t)
	f.vault.put("a.md", "")
	_, err := f.store.Refresh(context.Background(), "a.md")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRename(t *testing.T) {
	f := newFixture(t)
	f.track(t, "a.md", "q")
	f.track(t, "b.md", "")
	f.build(t)
	queue := f.store.DueQueue()

	require.NoError(t, f.store.Rename("a.md", "c.md"))
	assert.False(t, f.store.IsTracked("a.md"))
	assert.True(t, f.store.IsTracked("c.md"))
	assert.Equal(t, 0, f.fileItem(t, "c.md"))
	assert.Equal(t, queue, f.store.DueQueue())

	assert.ErrorIs(t, f.store.Rename("a.md", "d.md"), ErrNotFound)
	assert.ErrorIs(t, f.store.Rename("c.md", "b.md"), ErrAlreadyTracked)
	assert.NoError(t, f.store.Rename("c.md", "c.md"))
}

func TestPathOfAndContent(t *testing.T) {
	f := newFixture(t)
	f.track(t, "a.md", "q1")

	path, key, err := f.store.PathOf(1)
	require.NoError(t, err)
	assert.Equal(t, "a.md", path)
	assert.Equal(t, "q1", key)

	c, err := f.store.Content(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "q1", c.Question)

	f.vault.put("a.md", "other")
	_, err = f.store.Content(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = f.store.PathOf(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContent_VanishedItemLeavesQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.track(t, "a.md", "q1\nq2")
	f.build(t)
	_, err := f.store.Review(ctx, 0, algorithm.LeitnerCorrect)
	require.NoError(t, err)

	f.vault.put("a.md", "q2")
	next, ok := f.store.Next()
	require.True(t, ok)
	require.Equal(t, 1, next)
	_, err = f.store.Content(ctx, next)
	assert.ErrorIs(t, err, ErrNotFound)

	next, ok = f.store.Next()
	require.True(t, ok)
	assert.Equal(t, 2, next, "the head advances past the vanished item")
	c, err := f.store.Content(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, "q2", c.Question)

	_, err = f.store.Item(1)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, f.store.Validate())
}

func TestTrackFolder(t *testing.T) {
	f := newFixture(t)
	f.vault.put("deck/a.md", "")
	f.vault.put("deck/b.md", "q")
	f.vault.put("deck/image.png", "")
	f.vault.put("deck/sub/c.md", "")
	f.vault.put("other/d.md", "")
	f.track(t, "deck/a.md", "")

	res, err := f.store.TrackFolder(context.Background(), "deck", false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added, "only b.md is new at the top level")
	assert.False(t, f.store.IsTracked("deck/sub/c.md"))
	assert.False(t, f.store.IsTracked("deck/image.png"))

	res, err = f.store.TrackFolder(context.Background(), "deck", true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.True(t, f.store.IsTracked("deck/sub/c.md"))
	assert.False(t, f.store.IsTracked("other/d.md"))
}

func TestUntrackFolder(t *testing.T) {
	f := newFixture(t)
	f.track(t, "deck/a.md", "q")
	f.track(t, "deck/sub/b.md", "")
	f.track(t, "other/c.md", "")

	res, err := f.store.UntrackFolder(context.Background(), "deck", true)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Removed)
	assert.Equal(t, []string{"other/c.md"}, f.store.TrackedPaths())
	require.NoError(t, f.store.Validate())
}
