// Package filesystem watches a project tree and turns file system events
// into index updates.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// DefaultMaxFileSize is the largest file the watcher reads.
const DefaultMaxFileSize = 1 << 20

// ChangeType classifies a file change.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is a single file change. Content is empty for deletions.
type Change struct {
	Type    ChangeType
	Path    string
	Content string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSkipDir sets the predicate for directory names that are never watched.
// Hidden directories are always skipped.
func WithSkipDir(skip func(name string) bool) Option {
	return func(w *Watcher) {
		if skip != nil {
			w.skipDir = skip
		}
	}
}

// WithFilter sets the predicate for files whose changes are reported.
func WithFilter(accept func(path string) bool) Option {
	return func(w *Watcher) {
		if accept != nil {
			w.accept = accept
		}
	}
}

// WithMaxFileSize sets the largest file whose content is read.
func WithMaxFileSize(n int64) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.maxFileSize = n
		}
	}
}

// Watcher reports changes under a project root.
type Watcher struct {
	rootPath    string
	skipDir     func(string) bool
	accept      func(string) bool
	maxFileSize int64

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates a watcher for rootPath.
func New(rootPath string, opts ...Option) *Watcher {
	w := &Watcher{
		rootPath:    rootPath,
		skipDir:     func(string) bool { return false },
		accept:      func(string) bool { return true },
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.rootPath
}

// Watch starts watching and returns a channel of changes.
// The channel is closed when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, errors.New("watcher is closed")
	}

	info, err := os.Stat(w.rootPath)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", w.rootPath)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w.watcher = fsw

	if err := w.addRecursive(fsw, w.rootPath); err != nil {
		fsw.Close() //nolint:errcheck
		w.watcher = nil
		return nil, err
	}

	changes := make(chan Change)
	go w.loop(ctx, fsw, changes)

	logger.Info("watching %s", w.rootPath)
	return changes, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, changes chan<- Change) {
	defer close(changes)
	defer fsw.Close() //nolint:errcheck

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			change := w.handleFsEvent(event)
			if change == nil {
				continue
			}
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// handleFsEvent converts an fsnotify event to a change, or nil if it is ignored.
// New directories are added to the watch list.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *Change {
	if isHidden(w.relative(event.Name)) {
		return nil
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if !w.accept(event.Name) {
			return nil
		}
		return &Change{Type: ChangeDeleted, Path: event.Name}
	}

	var changeType ChangeType
	switch {
	case event.Has(fsnotify.Create):
		changeType = ChangeCreated
	case event.Has(fsnotify.Write):
		changeType = ChangeUpdated
	default:
		return nil
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return nil
	}
	if info.IsDir() {
		if changeType == ChangeCreated {
			w.watchNewDir(event.Name)
		}
		return nil
	}
	if !info.Mode().IsRegular() || info.Size() > w.maxFileSize || !w.accept(event.Name) {
		return nil
	}

	data, err := os.ReadFile(event.Name)
	if err != nil {
		logger.Debug("reading %s: %v", event.Name, err)
		return nil
	}
	return &Change{Type: changeType, Path: event.Name, Content: string(data)}
}

func (w *Watcher) watchNewDir(path string) {
	w.mu.Lock()
	fsw := w.watcher
	w.mu.Unlock()

	if fsw == nil || w.skipDir(filepath.Base(path)) {
		return
	}
	if err := w.addRecursive(fsw, path); err != nil {
		logger.Warn("watching %s: %v", path, err)
	}
}

// addRecursive adds dir and every non-skipped subdirectory.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.rootPath && (isHidden(d.Name()) || w.skipDir(d.Name())) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) relative(path string) string {
	rel, err := filepath.Rel(w.rootPath, path)
	if err != nil {
		return path
	}
	return rel
}

// Close stops any active watch. Watch fails afterwards.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}

// Feed applies changes to the indexer until the channel closes.
// It returns the number of changes applied.
func Feed(changes <-chan Change, indexer driving.Indexer) int {
	n := 0
	for change := range changes {
		switch change.Type {
		case ChangeDeleted:
			indexer.Remove(change.Path)
		default:
			indexer.Submit(change.Path, change.Content)
		}
		logger.Debug("%s %s", change.Type, change.Path)
		n++
	}
	return n
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}
