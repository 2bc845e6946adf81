package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// CatalogFile is the catalog filename inside the config directory.
const CatalogFile = "models.yaml"

// Ensure CatalogStore implements the interface.
var _ driven.ModelCatalog = (*CatalogStore)(nil)

// catalogDocument is the on-disk shape of models.yaml.
type catalogDocument struct {
	Models []domain.ModelDescriptor `yaml:"models"`
}

// CatalogStore reads model descriptors from a YAML file.
// When the file does not exist the built-in catalog is returned.
// Credentials never come from the catalog; the adapter factory fills them from settings.
type CatalogStore struct {
	mu   sync.Mutex
	path string
}

// NewCatalogStore creates a catalog store.
// If path is empty, defaults to ~/.codeassist/models.yaml.
func NewCatalogStore(path string) (*CatalogStore, error) {
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		path = filepath.Join(dir, CatalogFile)
	}
	return &CatalogStore{path: path}, nil
}

// Path returns the catalog file location.
func (c *CatalogStore) Path() string {
	return c.path
}

// Load returns the catalog descriptors in file order.
func (c *CatalogStore) Load() ([]domain.ModelDescriptor, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %q: %w", c.path, err)
	}

	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog %q: %w", c.path, err)
	}
	if err := ValidateCatalog(doc.Models); err != nil {
		return nil, fmt.Errorf("catalog %q: %w", c.path, err)
	}
	return doc.Models, nil
}

// WriteDefault writes the built-in catalog to disk so it can be edited.
// An existing file is left untouched and ErrAlreadyExists is returned.
func (c *CatalogStore) WriteDefault() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.path); err == nil {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, c.path)
	}
	return c.write(DefaultCatalog())
}

// Add appends a descriptor and persists the catalog.
// A missing file is first seeded with the built-in catalog.
func (c *CatalogStore) Add(desc domain.ModelDescriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	descs, err := c.Load()
	if err != nil {
		return err
	}
	for _, d := range descs {
		if d.ID == desc.ID {
			return fmt.Errorf("model %s: %w", desc.ID, domain.ErrAlreadyExists)
		}
	}

	desc.Credential = ""
	descs = append(descs, desc)
	if err := ValidateCatalog(descs); err != nil {
		return err
	}
	return c.write(descs)
}

// Remove deletes a descriptor and persists the catalog.
// The last model cannot be removed.
func (c *CatalogStore) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	descs, err := c.Load()
	if err != nil {
		return err
	}

	kept := make([]domain.ModelDescriptor, 0, len(descs))
	for _, d := range descs {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(descs) {
		return fmt.Errorf("model %s: %w", id, domain.ErrNotFound)
	}
	if err := ValidateCatalog(kept); err != nil {
		return err
	}
	return c.write(kept)
}

func (c *CatalogStore) write(descs []domain.ModelDescriptor) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}

	data, err := yaml.Marshal(catalogDocument{Models: descs})
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return os.WriteFile(c.path, data, 0600)
}

// ValidateCatalog checks every descriptor and rejects duplicate ids.
func ValidateCatalog(descs []domain.ModelDescriptor) error {
	if len(descs) == 0 {
		return fmt.Errorf("%w: at least one model must be configured", domain.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(descs))
	for _, d := range descs {
		if err := d.Validate(); err != nil {
			return err
		}
		if d.Kind == domain.ModelKindEmbedding {
			return fmt.Errorf("%w: model %s: embedding models are configured under [embedding]",
				domain.ErrInvalidInput, d.ID)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("%w: duplicate model id %q", domain.ErrInvalidInput, d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}

// DefaultCatalog returns the built-in descriptors: two local Ollama models
// and one model per cloud provider.
func DefaultCatalog() []domain.ModelDescriptor {
	return []domain.ModelDescriptor{
		{
			ID:            "ollama-qwen-coder",
			DisplayName:   "Qwen2.5 Coder 7B (local)",
			Provider:      domain.AIProviderOllama,
			Model:         "qwen2.5-coder:7b",
			Kind:          domain.ModelKindCompletion,
			MaxTokens:     512,
			ContextWindow: 32768,
			Specialties:   []string{string(domain.TaskInlineCompletion), string(domain.TaskCompletion)},
			Latency:       domain.LatencyLow,
			Locality:      domain.LocalityLocal,
		},
		{
			ID:            "ollama-llama",
			DisplayName:   "Llama 3.1 8B (local)",
			Provider:      domain.AIProviderOllama,
			Model:         "llama3.1:8b",
			Kind:          domain.ModelKindChat,
			MaxTokens:     2048,
			ContextWindow: 131072,
			Specialties:   []string{domain.SpecialtyChat, domain.SpecialtyGeneralCoding},
			Latency:       domain.LatencyMedium,
			Locality:      domain.LocalityLocal,
		},
		{
			ID:            "openai-gpt-4o-mini",
			DisplayName:   "GPT-4o mini",
			Provider:      domain.AIProviderOpenAI,
			Model:         "gpt-4o-mini",
			Kind:          domain.ModelKindChat,
			MaxTokens:     4096,
			ContextWindow: 128000,
			Specialties:   []string{domain.SpecialtyChat, domain.SpecialtyGeneralCoding, string(domain.TaskCompletion)},
			Latency:       domain.LatencyMedium,
			Locality:      domain.LocalityCloud,
		},
		{
			ID:            "anthropic-claude-sonnet",
			DisplayName:   "Claude Sonnet",
			Provider:      domain.AIProviderAnthropic,
			Model:         "claude-sonnet-4-5",
			Kind:          domain.ModelKindChat,
			MaxTokens:     4096,
			ContextWindow: 200000,
			Specialties:   []string{domain.SpecialtyChat, domain.SpecialtyGeneralCoding},
			Latency:       domain.LatencyHigh,
			Locality:      domain.LocalityCloud,
		},
	}
}
