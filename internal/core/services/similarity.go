package services

import (
	"fmt"
	"math"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// CosineSimilarity returns the cosine of the angle between two vectors.
// A zero vector has similarity 0 with everything.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push identical vectors just past 1.
	return math.Max(-1, math.Min(1, sim)), nil
}
