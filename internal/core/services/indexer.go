package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// Ensure IndexerService implements the interface.
var _ driving.Indexer = (*IndexerService)(nil)

// DefaultMaxFileSize is the largest file IndexDirectory will read.
const DefaultMaxFileSize = 1 << 20

// IndexerOption configures an IndexerService.
type IndexerOption func(*IndexerService)

// WithIgnoredDirs replaces the directory names skipped by IndexDirectory.
func WithIgnoredDirs(dirs []string) IndexerOption {
	return func(s *IndexerService) {
		s.ignored = make(map[string]bool, len(dirs))
		for _, d := range dirs {
			s.ignored[d] = true
		}
	}
}

// WithMaxFileSize sets the largest file IndexDirectory will read.
func WithMaxFileSize(n int64) IndexerOption {
	return func(s *IndexerService) {
		if n > 0 {
			s.maxFileSize = n
		}
	}
}

type indexJob struct {
	content string
	remove  bool
}

// IndexerService feeds file contents into the symbol and embedding indexes.
// Background submissions are coalesced per path: only the latest content
// for a path is indexed, in first-submitted order.
type IndexerService struct {
	symbols     driving.SymbolIndex
	embeddings  driving.EmbeddingIndex
	chunker     driven.Chunker
	ignored     map[string]bool
	maxFileSize int64

	mu      sync.Mutex
	pending map[string]indexJob
	order   []string
	wake    chan struct{}
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewIndexer creates an indexer. embeddings and chunker may be nil,
// in which case only symbols are indexed.
func NewIndexer(
	symbols driving.SymbolIndex,
	embeddings driving.EmbeddingIndex,
	chunker driven.Chunker,
	opts ...IndexerOption,
) *IndexerService {
	s := &IndexerService{
		symbols:     symbols,
		embeddings:  embeddings,
		chunker:     chunker,
		maxFileSize: DefaultMaxFileSize,
		pending:     make(map[string]indexJob),
		wake:        make(chan struct{}, 1),
	}
	WithIgnoredDirs(domain.DefaultIgnoredDirs)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the background worker. It returns immediately.
func (s *IndexerService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.run(ctx, s.stopCh)
}

// Stop drains queued work and waits for the worker to exit.
func (s *IndexerService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

// Submit queues a file for background indexing.
func (s *IndexerService) Submit(path, content string) {
	s.enqueue(path, indexJob{content: content})
}

// Remove queues removal of a file from both indexes.
func (s *IndexerService) Remove(path string) {
	s.enqueue(path, indexJob{remove: true})
}

func (s *IndexerService) enqueue(path string, job indexJob) {
	s.mu.Lock()
	if _, queued := s.pending[path]; !queued {
		s.order = append(s.order, path)
	}
	s.pending[path] = job
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued paths.
func (s *IndexerService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *IndexerService) run(ctx context.Context, stopCh chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			s.drain(ctx)
			return
		case <-s.wake:
			s.drain(ctx)
		}
	}
}

// drain processes queued jobs until the queue is empty.
func (s *IndexerService) drain(ctx context.Context) {
	for {
		path, job, ok := s.next()
		if !ok {
			return
		}
		if job.remove {
			if err := s.removeNow(ctx, path); err != nil {
				logger.Warn("indexer: %v", err)
			}
			continue
		}
		if _, err := s.IndexNow(ctx, path, job.content); err != nil {
			logger.Warn("indexer: %v", err)
		}
	}
}

func (s *IndexerService) next() (string, indexJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return "", indexJob{}, false
	}
	path := s.order[0]
	s.order = s.order[1:]
	job := s.pending[path]
	delete(s.pending, path)
	return path, job, true
}

// IndexNow indexes a file synchronously and reports whether its content
// changed. When embeddings are enabled, the file's chunks are re-embedded if
// the content changed or the stored vectors are incomplete or were produced
// by another model. Embedding failures are logged and do not fail the call;
// the next pass over the file retries them.
func (s *IndexerService) IndexNow(ctx context.Context, path, content string) (bool, error) {
	changed, err := s.symbols.IndexFile(ctx, path, content)
	if err != nil {
		return changed, err
	}

	if s.embeddings == nil || s.chunker == nil || !s.embeddings.Enabled() {
		return changed, nil
	}

	chunks := s.chunker.Chunk(content)
	if !changed {
		current, err := s.embeddings.EmbeddingsCurrent(ctx, path, len(chunks))
		if err != nil {
			logger.Warn("indexer: %v", err)
			return false, nil
		}
		if current {
			return false, nil
		}
		logger.Debug("indexer: %s unchanged but its embeddings are missing or stale", path)
	}

	if err := s.embeddings.RemoveEmbeddingsForFile(ctx, path); err != nil {
		logger.Warn("indexer: %v", err)
	}

	entry, err := s.symbols.Entry(ctx, path)
	if err != nil {
		logger.Warn("indexer: reading entry for %s: %v", path, err)
		return changed, nil
	}

	embedded := 0
	for _, c := range chunks {
		_, err := s.embeddings.EmbedChunk(ctx, domain.ChunkInput{
			FilePath:   path,
			Content:    c.Content,
			Language:   entry.Language,
			SymbolKind: firstSymbolKind(entry.Symbols, c.StartLine, c.EndLine),
			StartLine:  c.StartLine,
			EndLine:    c.EndLine,
		})
		if err != nil {
			logger.Warn("indexer: embedding %s:%d-%d: %v", path, c.StartLine, c.EndLine, err)
			continue
		}
		embedded++
	}
	logger.Debug("indexer: %s embedded %d/%d chunks", path, embedded, len(chunks))
	return changed, nil
}

func (s *IndexerService) removeNow(ctx context.Context, path string) error {
	if err := s.symbols.RemoveFile(ctx, path); err != nil {
		return err
	}
	if s.embeddings != nil {
		return s.embeddings.RemoveEmbeddingsForFile(ctx, path)
	}
	return nil
}

// firstSymbolKind returns the kind of the first symbol declared within the lines.
func firstSymbolKind(symbols []domain.Symbol, start, end int) domain.SymbolKind {
	for _, sym := range symbols {
		if sym.StartLine >= start && sym.StartLine <= end {
			return sym.Kind
		}
	}
	return ""
}

// IndexDirectory walks root and indexes every file with a recognised language.
// Per-file failures are collected in the report; only walk errors are returned.
func (s *IndexerService) IndexDirectory(ctx context.Context, root string) (domain.IndexReport, error) {
	var report domain.IndexReport

	info, err := os.Stat(root)
	if err != nil {
		return report, fmt.Errorf("reading %s: %w", root, err)
	}
	if !info.IsDir() {
		return report, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	logger.Section("Index " + root)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrPermission) {
				return nil
			}
			return walkErr
		}

		if d.IsDir() {
			if path != root && s.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !SupportsLanguage(LanguageForPath(path)) {
			return nil
		}

		fi, err := d.Info()
		if err != nil || fi.Size() > s.maxFileSize {
			return nil
		}

		report.Files++
		data, err := os.ReadFile(path)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, err.Error())
			return nil
		}

		changed, err := s.IndexNow(ctx, path, string(data))
		switch {
		case err != nil:
			report.Failed++
			report.Errors = append(report.Errors, err.Error())
		case changed:
			report.Changed++
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walking %s: %w", root, err)
	}

	logger.Info("indexed %d files (%d changed, %d failed)", report.Files, report.Changed, report.Failed)
	return report, nil
}

// SkipsDir reports whether the directory name is excluded from walks.
func (s *IndexerService) SkipsDir(name string) bool {
	return s.skipDir(name)
}

func (s *IndexerService) skipDir(name string) bool {
	return s.ignored[name] || (strings.HasPrefix(name, ".") && name != ".")
}
