package driven

import "github.com/custodia-labs/codeassist/internal/core/domain"

// Chunker splits file content into overlapping line windows for embedding.
type Chunker interface {
	// Chunk returns windows in file order. Empty content yields no chunks.
	Chunk(content string) []domain.CodeChunk
}
