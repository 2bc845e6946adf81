package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// Ensure SymbolIndexService implements the interface.
var _ driving.SymbolIndex = (*SymbolIndexService)(nil)

// MaxSymbolResults caps symbol search results.
const MaxSymbolResults = 50

// SymbolIndexService maintains the per-file symbol index.
// Indexing of one path is serialised; different paths proceed in parallel.
type SymbolIndexService struct {
	store    driven.FileIndexStore
	detector driven.LanguageDetector
	locks    *keyedMutex
	now      func() time.Time
}

// NewSymbolIndexService creates a symbol index over a store.
// detector may be nil, in which case file extensions decide the language.
func NewSymbolIndexService(store driven.FileIndexStore, detector driven.LanguageDetector) *SymbolIndexService {
	return &SymbolIndexService{
		store:    store,
		detector: detector,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// IndexFile re-extracts symbols when the content hash changed.
// An unchanged hash is a no-op: neither the hash nor the timestamp is touched.
func (s *SymbolIndexService) IndexFile(ctx context.Context, path, content string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("%w: empty path", domain.ErrInvalidInput)
	}

	unlock := s.locks.Lock(path)
	defer unlock()

	hash := ContentHash(content)
	existing, err := s.store.GetFile(ctx, path)
	switch {
	case err == nil && existing.Hash == hash:
		return false, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return false, fmt.Errorf("%w: %s: %w", domain.ErrIndexingFailure, path, err)
	}

	language := s.detectLanguage(path, content)
	entry := domain.FileIndexEntry{
		Path:      path,
		Content:   content,
		Hash:      hash,
		Language:  language,
		IndexedAt: s.now(),
		Symbols:   ExtractSymbols(path, language, content),
	}

	if err := s.store.ReplaceFile(ctx, entry); err != nil {
		return false, fmt.Errorf("%w: %s: %w", domain.ErrIndexingFailure, path, err)
	}

	logger.Debug("index: %s (%s) %d symbols", path, language, len(entry.Symbols))
	return true, nil
}

// RemoveFile drops the file and all of its symbols.
func (s *SymbolIndexService) RemoveFile(ctx context.Context, path string) error {
	unlock := s.locks.Lock(path)
	defer unlock()

	if err := s.store.DeleteFile(ctx, path); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Search finds symbols whose name or signature contains the query, case-insensitively.
// Exact name matches rank first, then name prefixes, then other name matches,
// then signature-only matches; ties sort by name, path and line.
func (s *SymbolIndexService) Search(ctx context.Context, query string) ([]domain.Symbol, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Symbol{}, nil
	}

	found, err := s.store.FindSymbols(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("searching symbols: %w", err)
	}

	q := strings.ToLower(query)
	ranked := make([]domain.Symbol, 0, len(found))
	for _, sym := range found {
		if matchRank(sym, q) < 4 {
			ranked = append(ranked, sym)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if ra, rb := matchRank(a, q), matchRank(b, q); ra != rb {
			return ra < rb
		}
		if la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name); la != lb {
			return la < lb
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.StartLine < b.StartLine
	})

	if len(ranked) > MaxSymbolResults {
		ranked = ranked[:MaxSymbolResults]
	}
	return ranked, nil
}

// matchRank orders matches; 4 means no match.
func matchRank(sym domain.Symbol, lowerQuery string) int {
	name := strings.ToLower(sym.Name)
	switch {
	case name == lowerQuery:
		return 0
	case strings.HasPrefix(name, lowerQuery):
		return 1
	case strings.Contains(name, lowerQuery):
		return 2
	case strings.Contains(strings.ToLower(sym.Signature), lowerQuery):
		return 3
	default:
		return 4
	}
}

// Entry returns the indexed state of a file.
func (s *SymbolIndexService) Entry(ctx context.Context, path string) (*domain.FileIndexEntry, error) {
	return s.store.GetFile(ctx, path)
}

// Files lists every indexed path.
func (s *SymbolIndexService) Files(ctx context.Context) ([]string, error) {
	return s.store.ListFiles(ctx)
}

func (s *SymbolIndexService) detectLanguage(path, content string) string {
	if s.detector != nil {
		if lang := s.detector.Detect(path, content); lang != "" {
			return lang
		}
	}
	return LanguageForPath(path)
}

// ContentHash returns the hex SHA-256 of content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// keyedMutex serialises work per key and frees idle keys.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires the lock for key and returns its release function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
