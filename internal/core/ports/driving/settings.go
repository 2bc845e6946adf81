package driving

import "github.com/custodia-labs/codeassist/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// SetAPIKey stores the credential for a cloud provider.
	SetAPIKey(provider domain.AIProvider, key string) error

	// SetProviderBaseURL overrides a provider's endpoint.
	SetProviderBaseURL(provider domain.AIProvider, baseURL string) error

	// SetPreferLocal sets the local preference. Nil restores the default.
	SetPreferLocal(prefer *bool) error

	// SetPinnedModel pins a model id. An empty id clears the pin.
	SetPinnedModel(id string, mode domain.PinMode) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model string) error

	// SetIndexBackend selects where indexes are stored.
	SetIndexBackend(backend domain.IndexBackend) error

	// Validate checks that current settings are usable.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
