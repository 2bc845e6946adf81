package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
)

// ModelHandler serves model management, transaction and credential routes.
type ModelHandler struct {
	dispatcher driving.Dispatcher
}

// NewModelHandler creates a handler backed by the dispatcher.
func NewModelHandler(d driving.Dispatcher) *ModelHandler {
	return &ModelHandler{dispatcher: d}
}

// ModelsResponse is the body of GET /api/v1/models.
type ModelsResponse struct {
	Models  []domain.ModelStatus `json:"models"`
	Current string               `json:"current,omitempty"`
}

// SwitchRequest is the body of PUT /api/v1/models/current.
type SwitchRequest struct {
	ID string `json:"id"`
}

// CredentialRequest is the body of the credential routes.
type CredentialRequest struct {
	APIKey string `json:"api_key"`
}

func (h *ModelHandler) List(w http.ResponseWriter, _ *http.Request) {
	models := h.dispatcher.ListModels()
	if models == nil {
		models = []domain.ModelStatus{}
	}
	current, _ := h.dispatcher.CurrentModel()
	writeJSON(w, http.StatusOK, ModelsResponse{Models: models, Current: current})
}

func (h *ModelHandler) Add(w http.ResponseWriter, r *http.Request) {
	var desc domain.ModelDescriptor
	if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.dispatcher.AddModel(r.Context(), desc); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": desc.ID})
}

func (h *ModelHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.dispatcher.RemoveModel(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ModelHandler) Switch(w http.ResponseWriter, r *http.Request) {
	var req SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.dispatcher.SwitchModel(req.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"current": req.ID})
}

func (h *ModelHandler) Transactions(w http.ResponseWriter, _ *http.Request) {
	txs := h.dispatcher.Transactions()
	if txs == nil {
		txs = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *ModelHandler) ClearTransactions(w http.ResponseWriter, _ *http.Request) {
	h.dispatcher.ClearTransactions()
	w.WriteHeader(http.StatusNoContent)
}

func (h *ModelHandler) UpdateCredential(w http.ResponseWriter, r *http.Request) {
	provider, req, ok := decodeCredential(w, r)
	if !ok {
		return
	}

	if err := h.dispatcher.UpdateAPIKey(r.Context(), provider, req.APIKey); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ModelHandler) TestCredential(w http.ResponseWriter, r *http.Request) {
	provider, req, ok := decodeCredential(w, r)
	if !ok {
		return
	}

	valid := h.dispatcher.TestAPIKey(r.Context(), provider, req.APIKey)
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func decodeCredential(w http.ResponseWriter, r *http.Request) (domain.AIProvider, CredentialRequest, bool) {
	provider := domain.AIProvider(chi.URLParam(r, "provider"))
	if !provider.RequiresAPIKey() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("provider %q does not take an API key", provider))
		return "", CredentialRequest{}, false
	}

	var req CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", CredentialRequest{}, false
	}
	if req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "api_key is required")
		return "", CredentialRequest{}, false
	}
	return provider, req, true
}
