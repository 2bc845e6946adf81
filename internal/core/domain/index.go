package domain

import (
	"strings"
	"time"
)

// SymbolKind classifies an extracted declaration.
type SymbolKind string

// Symbol kinds.
const (
	SymbolClass     SymbolKind = "class"
	SymbolMethod    SymbolKind = "method"
	SymbolFunction  SymbolKind = "function"
	SymbolVariable  SymbolKind = "variable"
	SymbolInterface SymbolKind = "interface"
	SymbolEnum      SymbolKind = "enum"
)

// IsValid returns true if the symbol kind is recognised.
func (k SymbolKind) IsValid() bool {
	switch k {
	case SymbolClass, SymbolMethod, SymbolFunction, SymbolVariable, SymbolInterface, SymbolEnum:
		return true
	default:
		return false
	}
}

// Symbol is a named declaration found in a source file.
// Extraction is line oriented, so EndLine always equals StartLine.
type Symbol struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	FilePath  string     `json:"file_path"`
	StartLine int        `json:"start_line"`
	EndLine   int        `json:"end_line"`
	Signature string     `json:"signature"`
	Language  string     `json:"language"`
}

// Matches reports whether the name or signature contains the query,
// ignoring Unicode case.
func (s Symbol) Matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(s.Name), q) ||
		strings.Contains(strings.ToLower(s.Signature), q)
}

// FileIndexEntry is the indexed state of one file.
type FileIndexEntry struct {
	Path      string    `json:"path"`
	Content   string    `json:"-"`
	Hash      string    `json:"hash"`
	Language  string    `json:"language"`
	IndexedAt time.Time `json:"indexed_at"`

	// Symbols are ordered by line and regenerated wholesale on change.
	Symbols []Symbol `json:"symbols"`
}

// EmbeddingRecord is a vectorised span of source code.
type EmbeddingRecord struct {
	ID         string     `json:"id"`
	FilePath   string     `json:"file_path"`
	Content    string     `json:"content"`
	Vector     []float32  `json:"-"`
	Model      string     `json:"model,omitempty"`
	Language   string     `json:"language"`
	SymbolKind SymbolKind `json:"symbol_kind,omitempty"`
	StartLine  int        `json:"start_line"`
	EndLine    int        `json:"end_line"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Covers reports whether the record spans exactly the given lines.
func (r EmbeddingRecord) Covers(path string, startLine, endLine int) bool {
	return r.FilePath == path && r.StartLine == startLine && r.EndLine == endLine
}

// SimilarityResult pairs a record with its cosine similarity to a query.
type SimilarityResult struct {
	Record     EmbeddingRecord `json:"record"`
	Similarity float64         `json:"similarity"`
}

// ChunkInput is a span of code to embed.
type ChunkInput struct {
	// ID is optional; when empty it is derived from the location.
	ID         string
	FilePath   string
	Content    string
	Language   string
	SymbolKind SymbolKind
	StartLine  int
	EndLine    int
}

// CodeChunk is a line window cut from a file.
type CodeChunk struct {
	StartLine int
	EndLine   int
	Content   string
}

// IndexReport summarises a directory walk.
type IndexReport struct {
	Files   int      `json:"files"`
	Changed int      `json:"changed"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
