package driven

import "github.com/custodia-labs/codeassist/internal/core/domain"

// ModelAdapterFactory builds adapters from descriptors.
// It does not initialise the adapter; the registry does that on registration.
type ModelAdapterFactory interface {
	// Create returns an uninitialised adapter for the descriptor.
	// Returns ErrInvalidInput if the provider is unknown.
	Create(desc domain.ModelDescriptor) (ModelAdapter, error)
}

// ModelCatalog supplies the descriptors registered at startup.
type ModelCatalog interface {
	// Load returns the configured descriptors in registration order.
	Load() ([]domain.ModelDescriptor, error)

	// Path returns the catalog file location, empty for built-in catalogs.
	Path() string
}
