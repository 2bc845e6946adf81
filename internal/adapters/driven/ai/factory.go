// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	hashedembed "github.com/custodia-labs/codeassist/internal/adapters/driven/embedding/hashed"
	ollamaembed "github.com/custodia-labs/codeassist/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/codeassist/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/codeassist/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/codeassist/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/codeassist/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// Ensure Factory implements the interface.
var _ driven.ModelAdapterFactory = (*Factory)(nil)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// SettingsSource supplies current provider settings.
type SettingsSource interface {
	Get() (*domain.AppSettings, error)
}

// Factory builds model adapters. Endpoints, credentials and throttles
// missing from a descriptor are filled from the provider settings current
// at creation time.
type Factory struct {
	settings   SettingsSource
	httpClient *http.Client
}

// NewFactory creates an adapter factory. settings may be nil.
func NewFactory(settings SettingsSource) *Factory {
	return &Factory{settings: settings}
}

// WithHTTPClient sets the client shared by every adapter the factory creates.
func (f *Factory) WithHTTPClient(c *http.Client) *Factory {
	f.httpClient = c
	return f
}

// Create returns an uninitialised adapter for the descriptor.
func (f *Factory) Create(desc domain.ModelDescriptor) (driven.ModelAdapter, error) {
	provider := f.provider(desc.Provider)
	if desc.Endpoint == "" {
		desc.Endpoint = provider.BaseURL
	}
	if desc.Credential == "" && desc.Provider.RequiresAPIKey() {
		desc = desc.WithCredential(provider.APIKey)
	}

	switch desc.Provider {
	case domain.AIProviderOllama:
		return ollamallm.New(ollamallm.Config{
			Descriptor:        desc,
			HTTPClient:        f.httpClient,
			RequestsPerSecond: provider.RequestsPerSecond,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.New(openaillm.Config{
			Descriptor:        desc,
			HTTPClient:        f.httpClient,
			RequestsPerSecond: provider.RequestsPerSecond,
		}), nil

	case domain.AIProviderAnthropic:
		return anthropicllm.New(anthropicllm.Config{
			Descriptor:        desc,
			HTTPClient:        f.httpClient,
			RequestsPerSecond: provider.RequestsPerSecond,
		}), nil

	default:
		return nil, fmt.Errorf("%w: unsupported model provider: %s", domain.ErrInvalidInput, desc.Provider)
	}
}

func (f *Factory) provider(p domain.AIProvider) domain.ProviderSettings {
	if f.settings == nil {
		return domain.ProviderSettings{}
	}
	s, err := f.settings.Get()
	if err != nil || s == nil {
		return domain.ProviderSettings{}
	}
	return s.Provider(p)
}

// EmbeddingResult describes the embedding generator chosen for a session.
type EmbeddingResult struct {
	Service  driven.EmbeddingService
	Warnings []string // Non-fatal issues that caused fallback.
	FellBack bool     // True if the hashed generator replaced the configured one.
}

// Close releases the chosen service.
func (r *EmbeddingResult) Close() {
	if r.Service != nil {
		r.Service.Close()
	}
}

// SelectEmbeddingService creates the configured embedding service and pings it.
// When it cannot be created or reached, the hashed generator is used for the
// whole session instead so one store never mixes vector spaces.
func SelectEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) *EmbeddingResult {
	svc, err := CreateAndValidateEmbeddingService(ctx, settings)
	if err == nil && svc != nil {
		return &EmbeddingResult{Service: svc}
	}

	result := &EmbeddingResult{FellBack: true}
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		logger.Warn("embeddings: %v; using offline hashed vectors", err)
	}
	dims := hashedembed.DefaultDimensions
	if settings != nil && settings.Provider == domain.AIProviderHashed && settings.Dimensions > 0 {
		dims = settings.Dimensions
	}
	result.Service = hashedembed.NewEmbeddingService(dims)
	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(
	ctx context.Context, settings *domain.EmbeddingSettings,
) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'codeassist settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'codeassist settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig creates a service from the settings and pings it.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the embedding service named by the settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderHashed:
		return hashedembed.NewEmbeddingService(settings.Dimensions), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}
