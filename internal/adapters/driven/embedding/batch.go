// Package embedding holds helpers shared by the embedding service adapters.
package embedding

import (
	"context"
	"fmt"
)

// Float32 narrows a vector decoded from JSON.
func Float32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// Chunked calls embed on consecutive slices of at most size texts and
// concatenates the results. A size of zero or less sends everything at once.
// embed must return one vector per input text.
func Chunked(
	ctx context.Context,
	texts []string,
	size int,
	embed func(context.Context, []string) ([][]float32, error),
) ([][]float32, error) {
	if size <= 0 {
		size = len(texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		vecs, err := embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("got %d embeddings for %d inputs", len(vecs), end-start)
		}
		for i, v := range vecs {
			if len(v) == 0 {
				return nil, fmt.Errorf("no embedding returned for input %d", start+i)
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}
