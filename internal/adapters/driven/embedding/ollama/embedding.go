// Package ollama embeds code with a local Ollama daemon.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/embedding"
	"github.com/custodia-labs/codeassist/internal/adapters/driven/llm"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768

	// batchSize bounds the inputs sent in one /api/embed call.
	batchSize = 32
)

// Config configures the service. Zero fields take the defaults above.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int
}

// EmbeddingService calls Ollama's /api/embed endpoint, which accepts a list
// of inputs per request.
type EmbeddingService struct {
	client     *llm.Client
	model      string
	dimensions int
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

func NewEmbeddingService(cfg Config) *EmbeddingService {
	s := &EmbeddingService{
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if s.dimensions == 0 {
		s.dimensions = DefaultDimensions
	}

	baseURL, timeout := cfg.BaseURL, cfg.Timeout
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	s.client = llm.NewClient(baseURL, &http.Client{Timeout: timeout}, nil)
	return s
}

// Embed returns the vector for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per text, in input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := embedding.Chunked(ctx, texts, batchSize, s.embed)
	if err != nil {
		return nil, fmt.Errorf("ollama %s: %w", s.model, err)
	}
	return vecs, nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	var resp embedResponse
	if err := s.client.PostJSON(ctx, "/api/embed", embedRequest{Model: s.model, Input: texts}, &resp); err != nil {
		return nil, err
	}
	vecs := make([][]float32, len(resp.Embeddings))
	for i, v := range resp.Embeddings {
		vecs[i] = embedding.Float32(v)
	}
	return vecs, nil
}

func (s *EmbeddingService) Dimensions() int   { return s.dimensions }
func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists local models; it does not load the embedding model.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if err := s.client.GetJSON(ctx, "/api/tags", nil); err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	return nil
}

func (s *EmbeddingService) Close() error { return nil }
