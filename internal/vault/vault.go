// Package vault provides the filesystem-backed document store: existence
// checks with a bounded timeout, reads, atomic writes, folder listing and a
// watcher for renames and deletions.
package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

var (
	// ErrExistenceCheck is returned when an existence check fails or times out.
	// The document's existence is unknown, not negative.
	ErrExistenceCheck = errors.New("vault: existence check failed")
	// ErrOutsideRoot is returned for paths that escape the vault root.
	ErrOutsideRoot = errors.New("vault: path outside root")
)

// DefaultExistenceTimeout bounds a single existence check.
const DefaultExistenceTimeout = 2 * time.Second

// FS is a vault rooted at a directory. Paths are vault-relative and use
// forward slashes.
type FS struct {
	root    string
	timeout time.Duration
}

// New creates a vault rooted at root. A non-positive timeout disables the
// per-check bound; the caller's context still applies.
func New(root string, timeout time.Duration) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve vault root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open vault root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open vault root: %s is not a directory", abs)
	}
	return &FS{root: abs, timeout: timeout}, nil
}

// Root returns the absolute vault root.
func (v *FS) Root() string {
	return v.root
}

// Abs resolves a vault-relative path to an absolute filesystem path.
func (v *FS) Abs(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	full := filepath.Join(v.root, clean)
	if full != v.root && !strings.HasPrefix(full, v.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return full, nil
}

// Rel converts an absolute filesystem path inside the vault to a vault path.
func (v *FS) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(v.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, abs)
	}
	return filepath.ToSlash(rel), nil
}

// Exists reports whether a regular file exists at path. Errors other than
// "does not exist", including timeouts, wrap ErrExistenceCheck.
func (v *FS) Exists(ctx context.Context, path string) (bool, error) {
	full, err := v.Abs(path)
	if err != nil {
		return false, err
	}
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	type statResult struct {
		info fs.FileInfo
		err  error
	}
	done := make(chan statResult, 1)
	go func() {
		info, err := os.Stat(full)
		done <- statResult{info: info, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%w: %s: %w", ErrExistenceCheck, path, ctx.Err())
	case res := <-done:
		switch {
		case res.err == nil:
			return !res.info.IsDir(), nil
		case errors.Is(res.err, fs.ErrNotExist):
			return false, nil
		default:
			return false, fmt.Errorf("%w: %s: %w", ErrExistenceCheck, path, res.err)
		}
	}
}

// Read returns the content of the document at path.
func (v *FS) Read(_ context.Context, path string) ([]byte, error) {
	full, err := v.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically replaces the content of the document at path.
func (v *FS) Write(_ context.Context, path string, content []byte) error {
	full, err := v.Abs(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", path, err)
	}
	if err := atomic.WriteFile(full, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// List returns the vault paths of the regular files in folder, sorted.
// Hidden files and directories are skipped. An empty folder means the vault root.
func (v *FS) List(ctx context.Context, folder string, recursive bool) ([]string, error) {
	start, err := v.Abs(folder)
	if err != nil {
		return nil, err
	}

	var out []string
	err = filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p != start && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != start && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := v.Rel(p)
		if err != nil {
			return err
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folder, err)
	}
	sort.Strings(out)
	return out, nil
}
