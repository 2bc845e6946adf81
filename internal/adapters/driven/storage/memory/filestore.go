package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// Ensure FileIndexStore implements the interface.
var _ driven.FileIndexStore = (*FileIndexStore)(nil)

// FileIndexStore is an in-memory implementation of driven.FileIndexStore.
type FileIndexStore struct {
	mu    sync.RWMutex
	files map[string]domain.FileIndexEntry
}

// NewFileIndexStore creates a new in-memory file index store.
func NewFileIndexStore() *FileIndexStore {
	return &FileIndexStore{files: make(map[string]domain.FileIndexEntry)}
}

// GetFile returns the entry for a path.
func (s *FileIndexStore) GetFile(_ context.Context, path string) (*domain.FileIndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.files[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	entry.Symbols = append([]domain.Symbol(nil), entry.Symbols...)
	return &entry, nil
}

// ReplaceFile stores the entry together with its symbols.
func (s *FileIndexStore) ReplaceFile(_ context.Context, entry domain.FileIndexEntry) error {
	entry.Symbols = append([]domain.Symbol(nil), entry.Symbols...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[entry.Path] = entry
	return nil
}

// DeleteFile removes the entry and its symbols.
func (s *FileIndexStore) DeleteFile(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	return nil
}

// ListFiles returns all indexed paths in lexical order.
func (s *FileIndexStore) ListFiles(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// FindSymbols scans every symbol for a case-insensitive name or signature match.
func (s *FileIndexStore) FindSymbols(_ context.Context, query string) ([]domain.Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []domain.Symbol
	for _, entry := range s.files {
		for _, sym := range entry.Symbols {
			if sym.Matches(query) {
				found = append(found, sym)
			}
		}
	}
	return found, nil
}
