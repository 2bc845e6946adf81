package driving

import (
	"context"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// Dispatcher is the editor-facing entry point for AI requests.
// Chat and completion always return displayable text, falling back to a
// user-safe message on failure. Inline completion returns empty text on any
// failure. Each reply names the model that served that request.
type Dispatcher interface {
	// Chat answers a message in the editor's context.
	Chat(ctx context.Context, message string, rc domain.RequestContext) domain.Reply

	// Complete continues a prompt as code.
	Complete(ctx context.Context, prompt string, rc domain.RequestContext) domain.Reply

	// InlineComplete returns a short continuation at the cursor.
	InlineComplete(ctx context.Context, code string, cursor domain.CursorPosition, language string) domain.Reply

	// ListModels returns every registered model in registration order.
	ListModels() []domain.ModelStatus

	// CurrentModel returns the model most recently selected or switched to.
	CurrentModel() (string, bool)

	// SwitchModel points the current model at a ready model.
	// Returns domain.ErrUnknownModel if the id is not registered or not ready.
	SwitchModel(id string) error

	// AddModel registers a model at runtime. Initialisation failures are logged, not returned.
	AddModel(ctx context.Context, desc domain.ModelDescriptor) error

	// RemoveModel unregisters a model. Returns domain.ErrUnknownModel if absent.
	RemoveModel(id string) error

	// Transactions returns the log in chronological order.
	Transactions() []domain.Transaction

	// ClearTransactions empties the log.
	ClearTransactions()

	// UpdateAPIKey stores a provider credential and rebuilds that provider's adapters.
	UpdateAPIKey(ctx context.Context, provider domain.AIProvider, key string) error

	// TestAPIKey verifies a credential with a transient adapter.
	// The registry is never modified.
	TestAPIKey(ctx context.Context, provider domain.AIProvider, key string) bool

	// Close disposes every adapter.
	Close() error
}
