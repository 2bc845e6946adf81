package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
)

const defaultLimit = 10

var errIndexUnavailable = errors.New("index is not configured")

// IndexHandler serves symbol and embedding index routes.
type IndexHandler struct {
	symbols    driving.SymbolIndex
	embeddings driving.EmbeddingIndex
	indexer    driving.Indexer
}

// NewIndexHandler creates a handler. Any service may be nil.
func NewIndexHandler(symbols driving.SymbolIndex, embeddings driving.EmbeddingIndex, indexer driving.Indexer) *IndexHandler {
	return &IndexHandler{symbols: symbols, embeddings: embeddings, indexer: indexer}
}

// IndexRequest is the body of POST /api/v1/index.
// Root walks a directory; otherwise Path and Content index one file.
type IndexRequest struct {
	Root    string `json:"root,omitempty"`
	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`
}

// IndexFileResponse reports whether a single file was re-indexed.
type IndexFileResponse struct {
	Path    string `json:"path"`
	Changed bool   `json:"changed"`
}

// SymbolsResponse is the body of GET /api/v1/symbols.
type SymbolsResponse struct {
	Symbols []domain.Symbol `json:"symbols"`
	Count   int             `json:"count"`
}

// MatchesResponse is the body of the similarity routes.
type MatchesResponse struct {
	Results []domain.SimilarityResult `json:"results"`
	Count   int                       `json:"count"`
}

func (h *IndexHandler) Index(w http.ResponseWriter, r *http.Request) {
	if h.indexer == nil {
		writeError(w, http.StatusServiceUnavailable, errIndexUnavailable.Error())
		return
	}

	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.Root != "":
		report, err := h.indexer.IndexDirectory(r.Context(), req.Root)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	case req.Path != "":
		changed, err := h.indexer.IndexNow(r.Context(), req.Path, req.Content)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, IndexFileResponse{Path: req.Path, Changed: changed})
	default:
		writeError(w, http.StatusBadRequest, "root or path is required")
	}
}

func (h *IndexHandler) Symbols(w http.ResponseWriter, r *http.Request) {
	if h.symbols == nil {
		writeError(w, http.StatusServiceUnavailable, errIndexUnavailable.Error())
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	symbols, err := h.symbols.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if len(symbols) > limit {
		symbols = symbols[:limit]
	}
	if symbols == nil {
		symbols = []domain.Symbol{}
	}
	writeJSON(w, http.StatusOK, SymbolsResponse{Symbols: symbols, Count: len(symbols)})
}

func (h *IndexHandler) File(w http.ResponseWriter, r *http.Request) {
	if h.symbols == nil {
		writeError(w, http.StatusServiceUnavailable, errIndexUnavailable.Error())
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	entry, err := h.symbols.Entry(r.Context(), path)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *IndexHandler) Semantic(w http.ResponseWriter, r *http.Request) {
	if h.embeddings == nil {
		writeError(w, http.StatusServiceUnavailable, errIndexUnavailable.Error())
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	results, err := h.embeddings.SemanticSearch(r.Context(), query, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeMatches(w, results)
}

func (h *IndexHandler) Similar(w http.ResponseWriter, r *http.Request) {
	if h.embeddings == nil {
		writeError(w, http.StatusServiceUnavailable, errIndexUnavailable.Error())
		return
	}

	q := r.URL.Query()
	path := q.Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	start, err1 := strconv.Atoi(q.Get("start"))
	end, err2 := strconv.Atoi(q.Get("end"))
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "start and end must be integers")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	results, err := h.embeddings.FindSimilarCode(r.Context(), path, start, end, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeMatches(w, results)
}

func writeMatches(w http.ResponseWriter, results []domain.SimilarityResult) {
	if results == nil {
		results = []domain.SimilarityResult{}
	}
	writeJSON(w, http.StatusOK, MatchesResponse{Results: results, Count: len(results)})
}

// parseLimit reads ?limit=, defaulting when absent.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return limit, true
}
