package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

const eventTimeout = 2 * time.Second

func waitChange(t *testing.T, changes <-chan Change) Change {
	t.Helper()
	select {
	case change, ok := <-changes:
		require.True(t, ok, "channel closed before a change arrived")
		return change
	case <-time.After(eventTimeout):
		t.Fatal("timeout waiting for file change event")
		return Change{}
	}
}

func TestNew(t *testing.T) {
	w := New("/tmp/project")

	require.NotNil(t, w)
	assert.Equal(t, "/tmp/project", w.Root())
	assert.Equal(t, int64(DefaultMaxFileSize), w.maxFileSize)
	assert.True(t, w.accept("anything.txt"))
	assert.False(t, w.skipDir("vendor"))
}

func TestNew_Options(t *testing.T) {
	w := New("/tmp/project",
		WithSkipDir(func(name string) bool { return name == "vendor" }),
		WithFilter(func(path string) bool { return strings.HasSuffix(path, ".go") }),
		WithMaxFileSize(10),
		WithMaxFileSize(0),
		WithSkipDir(nil),
	)

	assert.True(t, w.skipDir("vendor"))
	assert.True(t, w.accept("main.go"))
	assert.False(t, w.accept("README.md"))
	assert.Equal(t, int64(10), w.maxFileSize)
}

func TestWatcher_Watch(t *testing.T) {
	t.Run("reports created files", func(t *testing.T) {
		dir := t.TempDir()
		w := New(dir)
		defer w.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := w.Watch(ctx)
		require.NoError(t, err)

		path := filepath.Join(dir, "new.go")
		require.NoError(t, os.WriteFile(path, []byte("package main"), 0644))

		change := waitChange(t, changes)
		assert.Equal(t, ChangeCreated, change.Type)
		assert.Equal(t, path, change.Path)
	})

	t.Run("reports modified files with content", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "main.go")
		require.NoError(t, os.WriteFile(path, []byte("package main"), 0644))

		w := New(dir)
		defer w.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := w.Watch(ctx)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(path, []byte("package app"), 0644))

		change := waitChange(t, changes)
		assert.Equal(t, ChangeUpdated, change.Type)
		assert.Equal(t, path, change.Path)
	})

	t.Run("reports deleted files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "old.go")
		require.NoError(t, os.WriteFile(path, []byte("package old"), 0644))

		w := New(dir)
		defer w.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := w.Watch(ctx)
		require.NoError(t, err)

		require.NoError(t, os.Remove(path))

		change := waitChange(t, changes)
		assert.Equal(t, ChangeDeleted, change.Type)
		assert.Equal(t, path, change.Path)
		assert.Empty(t, change.Content)
	})

	t.Run("watches existing subdirectories", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "pkg", "util")
		require.NoError(t, os.MkdirAll(sub, 0755))

		w := New(dir)
		defer w.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := w.Watch(ctx)
		require.NoError(t, err)

		path := filepath.Join(sub, "util.go")
		require.NoError(t, os.WriteFile(path, []byte("package util"), 0644))

		assert.Equal(t, path, waitChange(t, changes).Path)
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		w := New("/non/existent/path")

		changes, err := w.Watch(context.Background())

		assert.Error(t, err)
		assert.Nil(t, changes)
		assert.Contains(t, err.Error(), "root path error")
	})

	t.Run("returns error for a file root", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.go")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

		_, err := New(path).Watch(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("closes channel when context is cancelled", func(t *testing.T) {
		w := New(t.TempDir())
		defer w.Close()

		ctx, cancel := context.WithCancel(context.Background())
		changes, err := w.Watch(ctx)
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-changes:
			assert.False(t, ok)
		case <-time.After(eventTimeout):
			t.Fatal("channel did not close after context cancellation")
		}
	})

	t.Run("returns error when closed", func(t *testing.T) {
		w := New(t.TempDir())
		require.NoError(t, w.Close())

		changes, err := w.Watch(context.Background())

		assert.Error(t, err)
		assert.Nil(t, changes)
		assert.Contains(t, err.Error(), "closed")
	})
}

func TestWatcher_CloseEndsWatch(t *testing.T) {
	w := New(t.TempDir())

	changes, err := w.Watch(context.Background())
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	select {
	case _, ok := <-changes:
		assert.False(t, ok)
	case <-time.After(eventTimeout):
		t.Fatal("channel did not close after Close")
	}
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"/root/.config/file.txt", true},
		{"dir/.git/config", true},
		{".config/.cache/data", true},

		{"file.go", false},
		{"path/to/file.go", false},
		{".", false},
		{"..", false},
		{"path/./file", false},
		{"path/../file", false},
		{"", false},
		{"/", false},
		{"file.hidden", false},
		{"directory.name/file", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}

func TestHandleFsEvent(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(t *testing.T, dir string) string
		op           fsnotify.Op
		opts         []Option
		expectChange bool
		expectedType ChangeType
	}{
		{
			name:         "create file",
			setup:        writeFile("test.go", "package test"),
			op:           fsnotify.Create,
			expectChange: true,
			expectedType: ChangeCreated,
		},
		{
			name:         "write file",
			setup:        writeFile("test.go", "package test"),
			op:           fsnotify.Write,
			expectChange: true,
			expectedType: ChangeUpdated,
		},
		{
			name:         "write with chmod",
			setup:        writeFile("test.go", "package test"),
			op:           fsnotify.Write | fsnotify.Chmod,
			expectChange: true,
			expectedType: ChangeUpdated,
		},
		{
			name:         "remove file",
			setup:        missingFile("removed.go"),
			op:           fsnotify.Remove,
			expectChange: true,
			expectedType: ChangeDeleted,
		},
		{
			name:         "rename file",
			setup:        missingFile("renamed.go"),
			op:           fsnotify.Rename,
			expectChange: true,
			expectedType: ChangeDeleted,
		},
		{
			name:  "chmod only",
			setup: writeFile("test.go", "package test"),
			op:    fsnotify.Chmod,
		},
		{
			name: "create directory",
			setup: func(t *testing.T, dir string) string {
				path := filepath.Join(dir, "sub")
				require.NoError(t, os.Mkdir(path, 0755))
				return path
			},
			op: fsnotify.Create,
		},
		{
			name:  "hidden file",
			setup: writeFile(".env", "SECRET=1"),
			op:    fsnotify.Create,
		},
		{
			name:  "file in hidden directory removed",
			setup: missingFile(".git/index"),
			op:    fsnotify.Remove,
		},
		{
			name:  "create vanished file",
			setup: missingFile("gone.go"),
			op:    fsnotify.Create,
		},
		{
			name:  "filtered file",
			setup: writeFile("README.md", "# readme"),
			op:    fsnotify.Write,
			opts:  []Option{WithFilter(func(p string) bool { return strings.HasSuffix(p, ".go") })},
		},
		{
			name:  "file too large",
			setup: writeFile("big.go", strings.Repeat("x", 64)),
			op:    fsnotify.Write,
			opts:  []Option{WithMaxFileSize(16)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := tt.setup(t, dir)

			w := New(dir, tt.opts...)
			change := w.handleFsEvent(fsnotify.Event{Name: path, Op: tt.op})

			if !tt.expectChange {
				assert.Nil(t, change)
				return
			}
			require.NotNil(t, change)
			assert.Equal(t, tt.expectedType, change.Type)
			assert.Equal(t, path, change.Path)
			if tt.expectedType != ChangeDeleted {
				assert.Equal(t, "package test", change.Content)
			}
		})
	}
}

func writeFile(name, content string) func(t *testing.T, dir string) string {
	return func(t *testing.T, dir string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}
}

func missingFile(name string) func(t *testing.T, dir string) string {
	return func(_ *testing.T, dir string) string {
		return filepath.Join(dir, name)
	}
}

// recordingIndexer is a driving.Indexer that records calls.
type recordingIndexer struct {
	mu        sync.Mutex
	submitted map[string]string
	removed   []string
}

func (r *recordingIndexer) Submit(path, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.submitted == nil {
		r.submitted = make(map[string]string)
	}
	r.submitted[path] = content
}

func (r *recordingIndexer) Remove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, path)
}

func (r *recordingIndexer) IndexNow(_ context.Context, _, _ string) (bool, error) { return false, nil }

func (r *recordingIndexer) IndexDirectory(_ context.Context, _ string) (domain.IndexReport, error) {
	return domain.IndexReport{}, nil
}

func TestFeed(t *testing.T) {
	changes := make(chan Change, 3)
	changes <- Change{Type: ChangeCreated, Path: "a.go", Content: "package a"}
	changes <- Change{Type: ChangeUpdated, Path: "a.go", Content: "package a2"}
	changes <- Change{Type: ChangeDeleted, Path: "b.go"}
	close(changes)

	idx := &recordingIndexer{}
	n := Feed(changes, idx)

	assert.Equal(t, 3, n)
	assert.Equal(t, map[string]string{"a.go": "package a2"}, idx.submitted)
	assert.Equal(t, []string{"b.go"}, idx.removed)
}

func TestFeed_FromWatcher(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	changes, err := w.Watch(ctx)
	require.NoError(t, err)

	idx := &recordingIndexer{}
	done := make(chan int)
	go func() { done <- Feed(changes, idx) }()

	path := filepath.Join(dir, "lib.go")
	require.NoError(t, os.WriteFile(path, []byte("package lib"), 0644))

	assert.Eventually(t, func() bool {
		idx.mu.Lock()
		defer idx.mu.Unlock()
		_, ok := idx.submitted[path]
		return ok
	}, eventTimeout, 20*time.Millisecond)

	cancel()
	select {
	case n := <-done:
		assert.GreaterOrEqual(t, n, 1)
	case <-time.After(eventTimeout):
		t.Fatal("Feed did not return after cancellation")
	}
}
