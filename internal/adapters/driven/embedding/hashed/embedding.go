// Package hashed provides an offline embedding generator based on feature
// hashing of code tokens.
//
// Vectors are deterministic and need no model, but they only capture shared
// identifiers and words. They carry no semantic meaning: "sum" and "total"
// are unrelated. It exists so similarity search keeps working when no
// embedding backend is reachable.
package hashed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultDimensions = 256
	ModelName         = "hashed"
)

// EmbeddingService hashes tokens into a fixed-size, L2-normalised vector.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hashed generator. Non-positive dims use the default.
func NewEmbeddingService(dims int) *EmbeddingService {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dims}
}

// Embed hashes the tokens of text into a vector.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float64, s.dimensions)
	for _, tok := range Tokens(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(s.dimensions))
		// The top bit picks the sign so collisions tend to cancel out.
		if sum>>63 == 1 {
			v[idx]--
		} else {
			v[idx]++
		}
	}

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)

	out := make([]float32, s.dimensions)
	if norm == 0 {
		return out, nil
	}
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out, nil
}

// EmbedBatch embeds each text in turn.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns "hashed".
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// Tokens lowercases text and splits it into words, breaking identifiers at
// underscores and camelCase boundaries. The whole identifier is kept as well.
func Tokens(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	var out []string
	for _, w := range words {
		parts := splitIdentifier(w)
		if len(parts) > 1 {
			out = append(out, strings.ToLower(w))
		}
		out = append(out, parts...)
	}
	return out
}

func splitIdentifier(word string) []string {
	var parts []string
	var cur []rune
	runes := []rune(word)
	flush := func() {
		if len(cur) > 0 {
			parts = append(parts, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	for i, r := range runes {
		switch {
		case r == '_':
			flush()
			continue
		case unicode.IsUpper(r) && i > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return parts
}
