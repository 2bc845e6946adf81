package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
)

// Ports groups the services the API serves.
// Only Dispatcher is required; index routes answer 503 when their service is nil.
// MCP, when set, is mounted at /mcp.
type Ports struct {
	Dispatcher driving.Dispatcher
	Symbols    driving.SymbolIndex
	Embeddings driving.EmbeddingIndex
	Indexer    driving.Indexer
	MCP        http.Handler
}

// Validate checks that the required ports are set.
func (p Ports) Validate() error {
	if p.Dispatcher == nil {
		return ErrMissingDispatcher
	}
	return nil
}

// NewRouter builds the chi router with every route registered.
func NewRouter(p Ports) (http.Handler, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	dispatch := NewDispatchHandler(p.Dispatcher)
	models := NewModelHandler(p.Dispatcher)
	index := NewIndexHandler(p.Symbols, p.Embeddings, p.Indexer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", dispatch.Chat)
		r.Post("/complete", dispatch.Complete)
		r.Post("/inline", dispatch.Inline)

		r.Route("/models", func(r chi.Router) {
			r.Get("/", models.List)
			r.Post("/", models.Add)
			r.Put("/current", models.Switch)
			r.Delete("/{id}", models.Remove)
		})

		r.Get("/transactions", models.Transactions)
		r.Delete("/transactions", models.ClearTransactions)

		r.Put("/credentials/{provider}", models.UpdateCredential)
		r.Post("/credentials/{provider}/test", models.TestCredential)

		r.Post("/index", index.Index)
		r.Get("/symbols", index.Symbols)
		r.Get("/files", index.File)
		r.Get("/semantic", index.Semantic)
		r.Get("/similar", index.Similar)
	})

	if p.MCP != nil {
		r.Handle("/mcp", p.MCP)
	}

	return r, nil
}
