package driven

import (
	"context"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// EmbeddingRepository persists embedding records.
// Similarity is computed by the core over All(); repositories only store.
type EmbeddingRepository interface {
	// Save inserts or replaces a record by ID.
	Save(ctx context.Context, record domain.EmbeddingRecord) error

	// FindByLocation returns the record spanning exactly the given lines.
	// Returns domain.ErrNotFound if absent.
	FindByLocation(ctx context.Context, path string, startLine, endLine int) (*domain.EmbeddingRecord, error)

	// FindByFile returns the records for a path ordered by start line.
	FindByFile(ctx context.Context, path string) ([]domain.EmbeddingRecord, error)

	// All returns every record.
	All(ctx context.Context) ([]domain.EmbeddingRecord, error)

	// DeleteByFile removes all records for a path.
	DeleteByFile(ctx context.Context, path string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}

// FileIndexStore persists per-file index entries and their symbols.
type FileIndexStore interface {
	// GetFile returns the entry for a path, or domain.ErrNotFound.
	GetFile(ctx context.Context, path string) (*domain.FileIndexEntry, error)

	// ReplaceFile atomically stores the entry and replaces all of its symbols.
	ReplaceFile(ctx context.Context, entry domain.FileIndexEntry) error

	// DeleteFile removes the entry and all of its symbols.
	DeleteFile(ctx context.Context, path string) error

	// ListFiles returns all indexed paths in lexical order.
	ListFiles(ctx context.Context) ([]string, error)

	// FindSymbols returns symbols whose name or signature contains the
	// query, case-insensitively. Ordering is left to the caller.
	FindSymbols(ctx context.Context, query string) ([]domain.Symbol, error)
}

// LanguageDetector names the language of a source file.
type LanguageDetector interface {
	// Detect returns a lowercase language id such as "go" or "typescript",
	// or an empty string when the language is unknown.
	Detect(path, content string) string
}
