package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyPreferLocal      = "routing.prefer_local"
	keyPinnedModel      = "routing.pinned_model"
	keyPinMode          = "routing.pin_mode"
	keyContextThreshold = "routing.context_threshold"
	keyChatTimeout      = "dispatch.chat_timeout_ms"
	keyCompleteTimeout  = "dispatch.completion_timeout_ms"
	keyInlineTimeout    = "dispatch.inline_timeout_ms"
	keyTxCapacity       = "transactions.capacity"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedDimensions  = "embedding.dimensions"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyIndexBackend     = "index.backend"
	keyChunkLines       = "index.chunk_lines"
	keyChunkOverlap     = "index.chunk_overlap"
	keyIndexIgnore      = "index.ignore"
	keyVerbose          = "logging.verbose"
)

func providerKey(p domain.AIProvider, field string) string {
	return "providers." + string(p) + "." + field
}

// defaultEmbeddingModels maps embedding providers to their default model and size.
var defaultEmbeddingModels = map[domain.AIProvider]struct {
	model string
	dims  int
}{
	domain.AIProviderOllama: {domain.DefaultEmbeddingModel, domain.DefaultEmbeddingDimensions},
	domain.AIProviderOpenAI: {"text-embedding-3-small", 1536},
	domain.AIProviderHashed: {"hashed", 256},
}

// SettingsService manages application settings on top of a ConfigStore.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
// Missing or invalid values fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Providers: make(map[domain.AIProvider]domain.ProviderSettings),
		Routing: domain.RoutingSettings{
			PreferLocal:      s.getOptionalBool(keyPreferLocal),
			PinnedModel:      s.configStore.GetString(keyPinnedModel),
			PinMode:          s.getPinMode(defaults.Routing.PinMode),
			ContextThreshold: s.getInt(keyContextThreshold, defaults.Routing.ContextThreshold),
		},
		Dispatch: domain.DispatchSettings{
			ChatTimeout:       s.getMillis(keyChatTimeout, defaults.Dispatch.ChatTimeout),
			CompletionTimeout: s.getMillis(keyCompleteTimeout, defaults.Dispatch.CompletionTimeout),
			InlineTimeout:     s.getMillis(keyInlineTimeout, defaults.Dispatch.InlineTimeout),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getEmbeddingProvider(defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			Dimensions: s.getInt(keyEmbedDimensions, defaults.Embedding.Dimensions),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL),
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
		},
		Index: domain.IndexSettings{
			Backend:      s.getIndexBackend(defaults.Index.Backend),
			ChunkLines:   s.getInt(keyChunkLines, defaults.Index.ChunkLines),
			ChunkOverlap: s.getInt(keyChunkOverlap, defaults.Index.ChunkOverlap),
			Ignore:       defaults.Index.Ignore,
		},
		TransactionCapacity: s.getInt(keyTxCapacity, defaults.TransactionCapacity),
		Verbose:             s.configStore.GetBool(keyVerbose),
	}

	for _, p := range domain.AllModelProviders() {
		settings.Providers[p] = domain.ProviderSettings{
			BaseURL:           s.configStore.GetString(providerKey(p, "base_url")),
			APIKey:            s.configStore.GetString(providerKey(p, "api_key")),
			RequestsPerSecond: s.configStore.GetFloat(providerKey(p, "rps")),
		}
	}

	if ignore := s.configStore.GetStringSlice(keyIndexIgnore); len(ignore) > 0 {
		settings.Index.Ignore = ignore
	}

	// Embedding providers that share a model provider reuse its credential.
	if settings.Embedding.APIKey == "" && settings.Embedding.Provider.RequiresAPIKey() {
		settings.Embedding.APIKey = settings.Provider(settings.Embedding.Provider).APIKey
	}
	if settings.Embedding.BaseURL == "" && settings.Embedding.Provider == domain.AIProviderOllama {
		settings.Embedding.BaseURL = settings.Provider(domain.AIProviderOllama).BaseURL
	}

	return settings, nil
}

// SetAPIKey stores the credential for a cloud provider.
func (s *SettingsService) SetAPIKey(provider domain.AIProvider, key string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, provider)
	}
	if !provider.RequiresAPIKey() {
		return fmt.Errorf("%w: %s does not use an API key", domain.ErrInvalidInput, provider)
	}
	if key == "" {
		return fmt.Errorf("%w: empty API key", domain.ErrInvalidInput)
	}
	if err := s.configStore.Set(providerKey(provider, "api_key"), key); err != nil {
		return fmt.Errorf("save %s api_key: %w", provider, err)
	}
	return nil
}

// SetProviderBaseURL overrides a provider's endpoint. An empty URL restores the default.
func (s *SettingsService) SetProviderBaseURL(provider domain.AIProvider, baseURL string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, provider)
	}
	key := providerKey(provider, "base_url")
	if baseURL == "" {
		return s.configStore.Delete(key)
	}
	if err := s.configStore.Set(key, baseURL); err != nil {
		return fmt.Errorf("save %s base_url: %w", provider, err)
	}
	return nil
}

// SetPreferLocal sets the local preference. Nil restores the default.
func (s *SettingsService) SetPreferLocal(prefer *bool) error {
	if prefer == nil {
		return s.configStore.Delete(keyPreferLocal)
	}
	if err := s.configStore.Set(keyPreferLocal, *prefer); err != nil {
		return fmt.Errorf("save prefer_local: %w", err)
	}
	return nil
}

// SetPinnedModel pins a model id. An empty id clears the pin and its mode.
func (s *SettingsService) SetPinnedModel(id string, mode domain.PinMode) error {
	if id == "" {
		return errors.Join(s.configStore.Delete(keyPinnedModel), s.configStore.Delete(keyPinMode))
	}
	if mode == "" {
		mode = domain.PinModeTiebreak
	}
	if !mode.IsValid() {
		return fmt.Errorf("%w: pin mode %q", domain.ErrInvalidInput, mode)
	}
	if err := s.configStore.Set(keyPinnedModel, id); err != nil {
		return fmt.Errorf("save pinned model: %w", err)
	}
	if err := s.configStore.Set(keyPinMode, string(mode)); err != nil {
		return fmt.Errorf("save pin mode: %w", err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
// An empty model selects the provider's default and its dimensions.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model string) error {
	if !provider.IsValidForEmbedding() {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}

	def := defaultEmbeddingModels[provider]
	if model == "" {
		model = def.model
	}

	if err := s.configStore.Set(keyEmbedProvider, string(provider)); err != nil {
		return fmt.Errorf("save embedding provider: %w", err)
	}
	if err := s.configStore.Set(keyEmbedModel, model); err != nil {
		return fmt.Errorf("save embedding model: %w", err)
	}
	if model == def.model {
		if err := s.configStore.Set(keyEmbedDimensions, def.dims); err != nil {
			return fmt.Errorf("save embedding dimensions: %w", err)
		}
	}
	return nil
}

// SetIndexBackend selects where indexes are stored.
func (s *SettingsService) SetIndexBackend(backend domain.IndexBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: index backend %q", domain.ErrInvalidInput, backend)
	}
	if err := s.configStore.Set(keyIndexBackend, string(backend)); err != nil {
		return fmt.Errorf("save index backend: %w", err)
	}
	return nil
}

// Validate checks that current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if settings.Routing.ContextThreshold <= 0 {
		errs = append(errs, fmt.Errorf("%w: context threshold must be positive", domain.ErrInvalidInput))
	}
	if settings.TransactionCapacity <= 0 {
		errs = append(errs, fmt.Errorf("%w: transaction capacity must be positive", domain.ErrInvalidInput))
	}
	if settings.Index.ChunkOverlap >= settings.Index.ChunkLines {
		errs = append(errs, fmt.Errorf("%w: chunk overlap must be smaller than chunk size", domain.ErrInvalidInput))
	}
	if !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("%w: embedding provider %s is not configured",
			domain.ErrMissingCredential, settings.Embedding.Provider))
	}
	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	ms := s.configStore.GetInt(key)
	if ms <= 0 {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *SettingsService) getOptionalBool(key string) *bool {
	if _, exists := s.configStore.Get(key); !exists {
		return nil
	}
	v := s.configStore.GetBool(key)
	return &v
}

func (s *SettingsService) getPinMode(defaultVal domain.PinMode) domain.PinMode {
	mode := domain.PinMode(s.configStore.GetString(keyPinMode))
	if !mode.IsValid() {
		return defaultVal
	}
	return mode
}

func (s *SettingsService) getEmbeddingProvider(defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(keyEmbedProvider))
	if !provider.IsValidForEmbedding() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getIndexBackend(defaultVal domain.IndexBackend) domain.IndexBackend {
	backend := domain.IndexBackend(s.configStore.GetString(keyIndexBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
