package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// Ensure EmbeddingStore implements the interface.
var _ driven.EmbeddingRepository = (*EmbeddingStore)(nil)

// EmbeddingStore is an in-memory implementation of driven.EmbeddingRepository.
type EmbeddingStore struct {
	mu      sync.RWMutex
	records map[string]domain.EmbeddingRecord
}

// NewEmbeddingStore creates a new in-memory embedding store.
func NewEmbeddingStore() *EmbeddingStore {
	return &EmbeddingStore{records: make(map[string]domain.EmbeddingRecord)}
}

// Save inserts or replaces a record by ID.
func (s *EmbeddingStore) Save(_ context.Context, record domain.EmbeddingRecord) error {
	record.Vector = append([]float32(nil), record.Vector...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

// FindByLocation returns the record spanning exactly the given lines.
func (s *EmbeddingStore) FindByLocation(
	_ context.Context, path string, startLine, endLine int,
) (*domain.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.Covers(path, startLine, endLine) {
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

// FindByFile returns the records for a path ordered by start line.
func (s *EmbeddingStore) FindByFile(_ context.Context, path string) ([]domain.EmbeddingRecord, error) {
	return s.collect(func(r domain.EmbeddingRecord) bool { return r.FilePath == path }), nil
}

// All returns every record ordered by path and start line.
func (s *EmbeddingStore) All(_ context.Context) ([]domain.EmbeddingRecord, error) {
	return s.collect(func(domain.EmbeddingRecord) bool { return true }), nil
}

func (s *EmbeddingStore) collect(keep func(domain.EmbeddingRecord) bool) []domain.EmbeddingRecord {
	s.mu.RLock()
	out := make([]domain.EmbeddingRecord, 0, len(s.records))
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FilePath != out[j].FilePath {
			return out[i].FilePath < out[j].FilePath
		}
		if out[i].StartLine != out[j].StartLine {
			return out[i].StartLine < out[j].StartLine
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DeleteByFile removes all records for a path.
func (s *EmbeddingStore) DeleteByFile(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if r.FilePath == path {
			delete(s.records, id)
		}
	}
	return nil
}

// Count returns the number of stored records.
func (s *EmbeddingStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}
