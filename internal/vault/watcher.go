package vault

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// EventOp is the kind of a vault event.
type EventOp int

const (
	// EventRename indicates a document moved from OldPath to Path.
	EventRename EventOp = iota
	// EventDelete indicates the document at Path was removed.
	EventDelete
)

// String returns the string representation of the operation.
func (op EventOp) String() string {
	switch op {
	case EventRename:
		return "rename"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is a rename or deletion of a vault document. Paths are vault-relative.
type Event struct {
	Op      EventOp
	Path    string
	OldPath string
}

// EventHandler is called from a single goroutine for every event.
type EventHandler func(Event)

// WatcherOptions configures the Watcher.
type WatcherOptions struct {
	// PairWindow is how long a rename source waits for its create half
	// before it is reported as a deletion. Default: 200ms
	PairWindow time.Duration

	// IgnorePatterns are glob patterns for base names to ignore.
	IgnorePatterns []string
}

// DefaultWatcherOptions returns sensible defaults.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		PairWindow:     200 * time.Millisecond,
		IgnorePatterns: []string{".git", ".obsidian", ".trash", "*.swp", "*.tmp", "*~"},
	}
}

// Watcher turns filesystem notifications under the vault root into rename
// and delete events. An fsnotify Rename followed by a Create within the pair
// window is reported as one rename; an unpaired Rename or a Remove is a deletion.
type Watcher struct {
	vault    *FS
	watcher  *fsnotify.Watcher
	handler  EventHandler
	opts     WatcherOptions
	log      zerolog.Logger
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	watching bool
}

// NewWatcher creates a watcher for the vault. Call Start to begin watching.
func NewWatcher(v *FS, handler EventHandler, opts *WatcherOptions, log zerolog.Logger) (*Watcher, error) {
	if opts == nil {
		defaults := DefaultWatcherOptions()
		opts = &defaults
	}
	if opts.PairWindow <= 0 {
		opts.PairWindow = DefaultWatcherOptions().PairWindow
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		vault:   v,
		watcher: w,
		handler: handler,
		opts:    *opts,
		log:     log.With().Str("component", "vault-watcher").Logger(),
		done:    make(chan struct{}),
	}, nil
}

// Start watches the vault root and all subdirectories.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.addRecursive(w.vault.Root()); err != nil {
		return err
	}
	go w.loop(ctx)
	return nil
}

// Stop stops the watcher. Rename sources still waiting for their create half
// are dropped, not reported as deletions.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.opts.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

type pendingRename struct {
	path string
	at   time.Time
}

// renameQueue holds rename sources until their create half arrives or the
// pair window runs out.
type renameQueue struct {
	window  time.Duration
	pending []pendingRename
}

func (q *renameQueue) add(path string, at time.Time) {
	q.pending = append(q.pending, pendingRename{path: path, at: at})
}

// pair pops the oldest rename source.
func (q *renameQueue) pair() (string, bool) {
	if len(q.pending) == 0 {
		return "", false
	}
	src := q.pending[0]
	q.pending = q.pending[1:]
	return src.path, true
}

// expired removes and returns the sources older than the window.
func (q *renameQueue) expired(now time.Time) []string {
	var out []string
	kept := q.pending[:0]
	for _, p := range q.pending {
		if now.Sub(p.at) >= q.window {
			out = append(out, p.path)
			continue
		}
		kept = append(kept, p)
	}
	q.pending = kept
	return out
}

// drop discards every source and returns how many there were.
func (q *renameQueue) drop() int {
	n := len(q.pending)
	q.pending = nil
	return n
}

func (w *Watcher) loop(ctx context.Context) {
	renames := &renameQueue{window: w.opts.PairWindow}
	ticker := time.NewTicker(w.opts.PairWindow / 2)
	defer ticker.Stop()

	stop := func() {
		if n := renames.drop(); n > 0 {
			w.log.Debug().Int("pending", n).Msg("Dropped unpaired renames on stop")
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-w.done:
			stop()
			return
		case <-ticker.C:
			for _, p := range renames.expired(time.Now()) {
				w.emit(Event{Op: EventDelete, Path: p})
			}
		case event, ok := <-w.watcher.Events:
			if !ok {
				stop()
				return
			}
			if w.shouldIgnore(event.Name) {
				continue
			}
			rel, err := w.vault.Rel(event.Name)
			if err != nil {
				continue
			}

			switch {
			case event.Has(fsnotify.Create):
				if isDir(event.Name) {
					if err := w.addRecursive(event.Name); err != nil {
						w.log.Warn().Err(err).Str("path", rel).Msg("Failed to watch new directory")
					}
					continue
				}
				if src, ok := renames.pair(); ok {
					w.emit(Event{Op: EventRename, OldPath: src, Path: rel})
				}
			case event.Has(fsnotify.Rename):
				renames.add(rel, time.Now())
			case event.Has(fsnotify.Remove):
				w.emit(Event{Op: EventDelete, Path: rel})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) emit(e Event) {
	if e.Op == EventRename && isHidden(e.Path) {
		e = Event{Op: EventDelete, Path: e.OldPath}
	}
	if isHidden(e.Path) {
		return
	}
	w.log.Debug().Str("op", e.Op.String()).Str("path", e.Path).Str("old", e.OldPath).Msg("Vault event")
	if w.handler != nil {
		w.handler(e)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isHidden(path string) bool {
	for _, part := range strings.Split(path, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
