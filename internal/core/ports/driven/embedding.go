package driven

import "context"

// EmbeddingService turns text into vectors. The index works without one;
// semantic search is then unavailable. Vectors from one service share
// Dimensions and are only comparable with each other.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int
	ModelName() string

	// Ping is a cheap reachability check used once at startup to choose
	// between the configured service and the offline fallback.
	Ping(ctx context.Context) error

	Close() error
}
