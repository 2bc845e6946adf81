package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// Registry holds model adapters in registration order.
// Registration order is the deterministic tie-break for selection.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	adapters map[string]driven.ModelAdapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]driven.ModelAdapter),
	}
}

// Register initialises and adds an adapter.
// Initialisation failure is not an error: the adapter is kept as unavailable
// so the rest of the system stays usable.
func (r *Registry) Register(ctx context.Context, adapter driven.ModelAdapter) error {
	desc, err := r.checkNew(adapter)
	if err != nil {
		return err
	}

	initialise(ctx, adapter)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[desc.ID]; exists {
		adapter.Cleanup() //nolint:errcheck
		return fmt.Errorf("register %s: %w", desc.ID, domain.ErrAlreadyExists)
	}
	r.order = append(r.order, desc.ID)
	r.adapters[desc.ID] = adapter
	return nil
}

// RegisterAll initialises adapters concurrently and registers them in input order.
// A slow or failing backend never delays the others.
func (r *Registry) RegisterAll(ctx context.Context, adapters []driven.ModelAdapter) error {
	var errs []error
	valid := make([]driven.ModelAdapter, 0, len(adapters))
	for _, a := range adapters {
		if _, err := r.checkNew(a); err != nil {
			errs = append(errs, err)
			continue
		}
		valid = append(valid, a)
	}

	var wg sync.WaitGroup
	for _, a := range valid {
		wg.Add(1)
		go func(a driven.ModelAdapter) {
			defer wg.Done()
			initialise(ctx, a)
		}(a)
	}
	wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range valid {
		id := a.Descriptor().ID
		if _, exists := r.adapters[id]; exists {
			a.Cleanup() //nolint:errcheck
			errs = append(errs, fmt.Errorf("register %s: %w", id, domain.ErrAlreadyExists))
			continue
		}
		r.order = append(r.order, id)
		r.adapters[id] = a
	}
	return errors.Join(errs...)
}

// Replace swaps the adapter registered under the same id, keeping its position.
// The new adapter is initialised before the swap and the old one cleaned up after.
func (r *Registry) Replace(ctx context.Context, adapter driven.ModelAdapter) error {
	if adapter == nil {
		return fmt.Errorf("%w: nil adapter", domain.ErrInvalidInput)
	}
	desc := adapter.Descriptor()
	if err := desc.Validate(); err != nil {
		return err
	}

	r.mu.RLock()
	_, exists := r.adapters[desc.ID]
	r.mu.RUnlock()
	if !exists {
		return fmt.Errorf("replace %s: %w", desc.ID, domain.ErrUnknownModel)
	}

	initialise(ctx, adapter)

	r.mu.Lock()
	old, exists := r.adapters[desc.ID]
	if !exists {
		r.mu.Unlock()
		adapter.Cleanup() //nolint:errcheck
		return fmt.Errorf("replace %s: %w", desc.ID, domain.ErrUnknownModel)
	}
	r.adapters[desc.ID] = adapter
	r.mu.Unlock()

	if err := old.Cleanup(); err != nil {
		logger.Warn("registry: cleanup of replaced adapter %s failed: %v", desc.ID, err)
	}
	return nil
}

// Unregister removes an adapter and disposes it.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	adapter, exists := r.adapters[id]
	if !exists {
		r.mu.Unlock()
		return fmt.Errorf("unregister %s: %w", id, domain.ErrUnknownModel)
	}
	delete(r.adapters, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	if err := adapter.Cleanup(); err != nil {
		return fmt.Errorf("cleanup %s: %w", id, err)
	}
	return nil
}

// Get returns the adapter for an id.
func (r *Registry) Get(id string) (driven.ModelAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	return a, ok
}

// List returns all adapters in registration order.
func (r *Registry) List() []driven.ModelAdapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]driven.ModelAdapter, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.adapters[id])
	}
	return out
}

// ListReady returns descriptors of selectable adapters in registration order.
// The result is a snapshot; selection runs over it without holding the lock.
func (r *Registry) ListReady() []domain.ModelDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ModelDescriptor, 0, len(r.order))
	for _, id := range r.order {
		a := r.adapters[id]
		if a.State().IsSelectable() {
			out = append(out, a.Descriptor())
		}
	}
	return out
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Close disposes every adapter and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	adapters := make([]driven.ModelAdapter, 0, len(r.order))
	for _, id := range r.order {
		adapters = append(adapters, r.adapters[id])
	}
	r.order = nil
	r.adapters = make(map[string]driven.ModelAdapter)
	r.mu.Unlock()

	var errs []error
	for _, a := range adapters {
		if err := a.Cleanup(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// checkNew validates an adapter before registration.
func (r *Registry) checkNew(adapter driven.ModelAdapter) (domain.ModelDescriptor, error) {
	if adapter == nil {
		return domain.ModelDescriptor{}, fmt.Errorf("%w: nil adapter", domain.ErrInvalidInput)
	}
	desc := adapter.Descriptor()
	if err := desc.Validate(); err != nil {
		return desc, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, exists := r.adapters[desc.ID]; exists {
		return desc, fmt.Errorf("register %s: %w", desc.ID, domain.ErrAlreadyExists)
	}
	return desc, nil
}

// initialise runs adapter initialisation and logs failures.
func initialise(ctx context.Context, adapter driven.ModelAdapter) {
	if err := adapter.Initialize(ctx); err != nil {
		logger.Warn("registry: model %s unavailable: %v", adapter.Descriptor().ID, err)
		return
	}
	logger.Debug("registry: model %s ready", adapter.Descriptor().ID)
}
