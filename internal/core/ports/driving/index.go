package driving

import (
	"context"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// SymbolIndex maintains the per-file symbol index.
type SymbolIndex interface {
	// IndexFile re-extracts symbols when the content hash changed.
	// Returns false when the file was already indexed with the same content.
	IndexFile(ctx context.Context, path, content string) (bool, error)

	// RemoveFile drops the file and all of its symbols.
	RemoveFile(ctx context.Context, path string) error

	// Search finds symbols by name or signature, best matches first.
	Search(ctx context.Context, query string) ([]domain.Symbol, error)

	// Entry returns the indexed state of a file, or domain.ErrNotFound.
	Entry(ctx context.Context, path string) (*domain.FileIndexEntry, error)

	// Files lists every indexed path.
	Files(ctx context.Context) ([]string, error)
}

// EmbeddingIndex stores code embeddings and answers similarity queries.
type EmbeddingIndex interface {
	// EmbedChunk vectorises and stores a span of code.
	EmbedChunk(ctx context.Context, in domain.ChunkInput) (*domain.EmbeddingRecord, error)

	// SemanticSearch returns the records most similar to the query text.
	SemanticSearch(ctx context.Context, query string, limit int) ([]domain.SimilarityResult, error)

	// FindSimilarCode returns records similar to the record at the location.
	// An unknown location yields an empty result, not an error.
	FindSimilarCode(ctx context.Context, path string, startLine, endLine, limit int) ([]domain.SimilarityResult, error)

	// RemoveEmbeddingsForFile drops every record for the path.
	RemoveEmbeddingsForFile(ctx context.Context, path string) error

	// EmbeddingsCurrent reports whether the path holds exactly chunks
	// records, all produced by the configured embedding model.
	EmbeddingsCurrent(ctx context.Context, path string, chunks int) (bool, error)

	// Enabled reports whether an embedding service is configured.
	Enabled() bool
}

// Indexer feeds file contents into the symbol and embedding indexes.
type Indexer interface {
	// Submit queues a file for background indexing. It never blocks;
	// a newer submission for the same path replaces a pending one.
	Submit(path, content string)

	// Remove queues removal of a file from both indexes.
	Remove(path string)

	// IndexNow indexes a file synchronously.
	IndexNow(ctx context.Context, path, content string) (bool, error)

	// IndexDirectory walks a project and indexes every recognised source file.
	IndexDirectory(ctx context.Context, root string) (domain.IndexReport, error)
}
