// Package openai embeds code with the OpenAI embeddings API or any server
// that implements it.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/embedding"
	"github.com/custodia-labs/codeassist/internal/adapters/driven/llm"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	fallbackDimensions = 1536
	batchSize          = 256
)

var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the service. APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions overrides the model's native size. The API only honours
	// it for text-embedding-3 models.
	Dimensions int
}

// EmbeddingService posts to /embeddings.
type EmbeddingService struct {
	client     *llm.Client
	model      string
	dimensions int
	shorten    bool
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = knownDimensions[model]
	}
	if dims == 0 {
		dims = fallbackDimensions
	}

	baseURL, timeout := cfg.BaseURL, cfg.Timeout
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	headers := map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	return &EmbeddingService{
		client:     llm.NewClient(baseURL, &http.Client{Timeout: timeout}, headers),
		model:      model,
		dimensions: dims,
		shorten:    strings.HasPrefix(model, "text-embedding-3-"),
	}, nil
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
		return nil, fmt.Errorf("openai: %w", err)
	}
	return vecs, nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := embeddingRequest{Model: s.model, Input: texts}
	if s.shorten {
		req.Dimensions = s.dimensions
	}

	var resp embeddingResponse
	if err := s.client.PostJSON(ctx, "/embeddings", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%s: %s", resp.Error.Type, resp.Error.Message)
	}

	// The API may answer out of order; Index ties each vector to its input.
	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vecs[d.Index] = embedding.Float32(d.Embedding)
	}
	return vecs, nil
}

func (s *EmbeddingService) Dimensions() int   { return s.dimensions }
func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists models, which fails fast on a bad key.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if err := s.client.GetJSON(ctx, "/models", nil); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

func (s *EmbeddingService) Close() error { return nil }
