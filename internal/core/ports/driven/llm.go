package driven

import (
	"context"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// ModelAdapter is the uniform capability contract for one registered model.
//
// Implementations include:
//   - Ollama (local daemon, reference implementation)
//   - OpenAI-compatible endpoints
//   - Anthropic messages API
//
// Adapters report failures as *domain.BackendError. They never swallow errors;
// degrading inline completions to empty text is the dispatcher's job.
type ModelAdapter interface {
	// Descriptor returns the immutable description of the model.
	Descriptor() domain.ModelDescriptor

	// Initialize probes the backend. On failure the adapter becomes unavailable
	// and the error is returned; it never panics.
	Initialize(ctx context.Context) error

	// Complete continues the payload as code.
	Complete(ctx context.Context, req domain.DispatchRequest) (string, error)

	// Chat answers the payload as the latest user turn.
	Chat(ctx context.Context, req domain.DispatchRequest) (string, error)

	// InlineComplete produces a short continuation at the cursor.
	InlineComplete(ctx context.Context, req domain.DispatchRequest) (string, error)

	// IsAvailable reports the last known state without touching the network.
	IsAvailable() bool

	// State returns the current lifecycle state.
	State() domain.AdapterState

	// Cleanup releases resources. It is idempotent.
	Cleanup() error
}

// Prober is implemented by adapters that can verify a credential with a
// minimal real request. Initialize only checks that a credential is present.
type Prober interface {
	Probe(ctx context.Context) error
}
