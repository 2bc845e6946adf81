package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for models or embeddings.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderHashed is the offline, non-semantic embedding generator.
	// It is only valid for embeddings.
	AIProviderHashed AIProvider = "hashed"
)

// AllModelProviders returns every provider that can back a chat or completion model.
func AllModelProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}
}

// IsValid returns true if the AI provider can back a model.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// IsValidForEmbedding returns true if the provider can generate embeddings.
func (p AIProvider) IsValidForEmbedding() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderHashed:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashed
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderHashed:
		return "Hashed (offline, non-semantic)"
	default:
		return unknownDescription
	}
}

// ProviderSettings holds connection settings for one model provider.
type ProviderSettings struct {
	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// APIKey is the credential for cloud providers.
	APIKey string

	// RequestsPerSecond throttles outgoing calls. Zero disables throttling.
	RequestsPerSecond float64
}

// RoutingSettings holds model selection preferences.
type RoutingSettings struct {
	// PreferLocal nil means prefer local models.
	PreferLocal *bool

	// PinnedModel is an optional user-chosen model id.
	PinnedModel string

	// PinMode controls how the pinned model is applied.
	PinMode PinMode

	// ContextThreshold is the token estimate above which large context windows are required.
	ContextThreshold int
}

// Preferences converts routing settings into selection preferences.
func (r RoutingSettings) Preferences() Preferences {
	return Preferences{
		PreferLocal:      r.PreferLocal,
		PinnedModelID:    r.PinnedModel,
		PinMode:          r.PinMode,
		ContextThreshold: r.ContextThreshold,
	}
}

// DispatchSettings holds per-task deadlines.
type DispatchSettings struct {
	ChatTimeout       time.Duration
	CompletionTimeout time.Duration
	InlineTimeout     time.Duration
}

// TimeoutFor returns the deadline for a task type.
func (d DispatchSettings) TimeoutFor(task TaskType) time.Duration {
	switch task {
	case TaskInlineCompletion:
		return d.InlineTimeout
	case TaskChat:
		return d.ChatTimeout
	default:
		return d.CompletionTimeout
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the embedding vector size.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValidForEmbedding() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// IndexBackend selects where the symbol and embedding indexes live.
type IndexBackend string

// Available index backends.
const (
	IndexBackendMemory IndexBackend = "memory"
	IndexBackendSQLite IndexBackend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b IndexBackend) IsValid() bool {
	return b == IndexBackendMemory || b == IndexBackendSQLite
}

// IndexSettings holds indexing configuration.
type IndexSettings struct {
	// Backend is the storage backend for indexes.
	Backend IndexBackend

	// ChunkLines is the number of lines per embedded chunk.
	ChunkLines int

	// ChunkOverlap is the number of lines shared by consecutive chunks.
	ChunkOverlap int

	// Ignore lists directory names skipped when walking a project.
	Ignore []string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Providers maps each model provider to its connection settings.
	Providers map[AIProvider]ProviderSettings

	// Routing holds model selection preferences.
	Routing RoutingSettings

	// Dispatch holds per-task deadlines.
	Dispatch DispatchSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// Index holds indexing settings.
	Index IndexSettings

	// TransactionCapacity bounds the transaction log.
	TransactionCapacity int

	// Verbose enables debug logging.
	Verbose bool
}

// Provider returns the settings for a provider, or zero settings.
func (s AppSettings) Provider(p AIProvider) ProviderSettings {
	if s.Providers == nil {
		return ProviderSettings{}
	}
	return s.Providers[p]
}

// Default setting values.
const (
	DefaultContextThreshold    = 4000
	DefaultTransactionCapacity = 1000
	DefaultChatTimeout         = 120 * time.Second
	DefaultCompletionTimeout   = 30 * time.Second
	DefaultInlineTimeout       = 5 * time.Second
	DefaultChunkLines          = 40
	DefaultChunkOverlap        = 10
	DefaultEmbeddingModel      = "nomic-embed-text"
	DefaultEmbeddingDimensions = 768
)

// DefaultIgnoredDirs are skipped when walking or watching a project.
var DefaultIgnoredDirs = []string{
	".git", "node_modules", "vendor", "dist", "build", "target", "__pycache__", ".venv", ".idea", ".vscode",
}

// DefaultAppSettings returns settings with sensible defaults.
// Cloud providers are left without credentials; users add keys explicitly.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Providers: map[AIProvider]ProviderSettings{
			AIProviderOllama:    {},
			AIProviderOpenAI:    {},
			AIProviderAnthropic: {},
		},
		Routing: RoutingSettings{
			PinMode:          PinModeTiebreak,
			ContextThreshold: DefaultContextThreshold,
		},
		Dispatch: DispatchSettings{
			ChatTimeout:       DefaultChatTimeout,
			CompletionTimeout: DefaultCompletionTimeout,
			InlineTimeout:     DefaultInlineTimeout,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOllama,
			Model:      DefaultEmbeddingModel,
			Dimensions: DefaultEmbeddingDimensions,
		},
		Index: IndexSettings{
			Backend:      IndexBackendMemory,
			ChunkLines:   DefaultChunkLines,
			ChunkOverlap: DefaultChunkOverlap,
			Ignore:       append([]string(nil), DefaultIgnoredDirs...),
		},
		TransactionCapacity: DefaultTransactionCapacity,
	}
}
