package srs

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/recall/internal/algorithm"
	"github.com/thebtf/recall/internal/db"
	"github.com/thebtf/recall/pkg/models"
)

// memAdapter is an in-memory db.Adapter.
type memAdapter struct {
	values   map[string][]byte
	writeErr error
	writes   int
	closed   bool
	mu       sync.Mutex
}

func newMemAdapter() *memAdapter {
	return &memAdapter{values: make(map[string][]byte)}
}

func (m *memAdapter) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok, nil
}

func (m *memAdapter) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, db.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memAdapter) Write(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.values[key] = append([]byte(nil), data...)
	m.writes++
	return nil
}

func (m *memAdapter) Close() error {
	m.closed = true
	return nil
}

// fakeVault is an in-memory Vault. existsFn overrides existence checks when set.
type fakeVault struct {
	files    map[string]string
	existsFn func(ctx context.Context, path string) (bool, error)
	mu       sync.Mutex
}

func newFakeVault() *fakeVault {
	return &fakeVault{files: make(map[string]string)}
}

func (v *fakeVault) put(path, content string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.files[path] = content
}

func (v *fakeVault) remove(path string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.files, path)
}

func (v *fakeVault) Exists(ctx context.Context, path string) (bool, error) {
	if v.existsFn != nil {
		return v.existsFn(ctx, path)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.files[path]
	return ok, nil
}

func (v *fakeVault) Read(_ context.Context, path string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return []byte(c), nil
}

func (v *fakeVault) Write(_ context.Context, path string, content []byte) error {
	v.put(path, string(content))
	return nil
}

func (v *fakeVault) List(_ context.Context, folder string, recursive bool) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	prefix := strings.TrimSuffix(folder, "/") + "/"
	var out []string
	for p := range v.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		if !recursive && strings.Contains(strings.TrimPrefix(p, prefix), "/") {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// lineExtractor yields the "file" item plus one item per non-empty line,
// keyed by the line text.
type lineExtractor struct {
	rewrite func(content []byte) []byte
}

func (lineExtractor) Supports(path string) bool {
	return strings.HasSuffix(path, ".md")
}

func (e lineExtractor) Extract(path string, content []byte) (models.Extraction, error) {
	items := map[string]models.ItemContent{
		models.FileItemKey: {Question: path, Answer: string(content)},
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		items[line] = models.ItemContent{Question: line, Answer: line}
	}
	out := models.Extraction{Items: items}
	if e.rewrite != nil {
		out.Content = e.rewrite(content)
	}
	return out, nil
}

// fakeClock is a settable clock.
type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store   *Store
	adapter *memAdapter
	vault   *fakeVault
	clock   *fakeClock
}

func leitnerForTest(t *testing.T) algorithm.Algorithm {
	t.Helper()
	algo, err := algorithm.NewLeitner(algorithm.LeitnerSettings{
		Stages:           3,
		Timings:          []int{1, 2, 5},
		ResetOnIncorrect: true,
	})
	require.NoError(t, err)
	return algo
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	opts := DefaultOptions()
	opts.MaxNewPerDay = -1
	opts.Location = time.UTC
	opts.Now = clock.Now
	opts.Rand = rand.New(rand.NewSource(1))
	for _, m := range mutate {
		m(&opts)
	}
	f := &fixture{
		adapter: newMemAdapter(),
		vault:   newFakeVault(),
		clock:   clock,
	}
	f.store = NewStore(f.adapter, f.vault, lineExtractor{}, leitnerForTest(t), opts, zerolog.Nop())
	return f
}

// track puts a document into the vault and tracks it.
func (f *fixture) track(t *testing.T, path, content string) models.TrackResult {
	t.Helper()
	f.vault.put(path, content)
	res, err := f.store.Track(context.Background(), path)
	require.NoError(t, err)
	return res
}

func (f *fixture) build(t *testing.T) models.QueueReport {
	t.Helper()
	report, err := f.store.BuildQueue(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.store.Validate())
	return report
}

// fileItem returns the index of the "file" item of path.
func (f *fixture) fileItem(t *testing.T, path string) int {
	t.Helper()
	items, err := f.store.ItemsOf(path)
	require.NoError(t, err)
	idx, ok := items[models.FileItemKey]
	require.True(t, ok)
	return idx
}
