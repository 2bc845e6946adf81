// Package chunker splits source files into overlapping line windows.
package chunker

import (
	"strings"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// DefaultChunkLines is the default number of lines per chunk.
const DefaultChunkLines = 40

// DefaultChunkOverlap is the default number of lines shared by neighbouring chunks.
const DefaultChunkOverlap = 10

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker splits content into fixed-size line windows.
type Chunker struct {
	lines   int
	overlap int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkLines sets the window size in lines.
func WithChunkLines(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.lines = n
		}
	}
}

// WithOverlap sets the number of overlapping lines.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		lines:   DefaultChunkLines,
		overlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room to advance.
	if c.overlap >= c.lines {
		c.overlap = c.lines / 4
	}
	return c
}

// Chunk returns windows in file order with 1-based inclusive line ranges.
// Windows containing only whitespace are skipped.
func (c *Chunker) Chunk(content string) []domain.CodeChunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	step := c.lines - c.overlap
	chunks := make([]domain.CodeChunk, 0, len(lines)/step+1)

	for start := 0; start < len(lines); start += step {
		end := min(start+c.lines, len(lines))
		text := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, domain.CodeChunk{
				StartLine: start + 1,
				EndLine:   end,
				Content:   text,
			})
		}
		if end == len(lines) {
			break
		}
	}
	return chunks
}
