package httpapi

import (
	"context"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// mockDispatcher is a mock implementation of driving.Dispatcher.
type mockDispatcher struct {
	response     string
	served       string
	lastMessage  string
	lastContext  domain.RequestContext
	lastCursor   domain.CursorPosition
	models       []domain.ModelStatus
	current      string
	transactions []domain.Transaction
	added        []domain.ModelDescriptor
	removed      []string
	keys         map[domain.AIProvider]string
	keyValid     bool
	err          error
}

func (m *mockDispatcher) Chat(_ context.Context, message string, rc domain.RequestContext) domain.Reply {
	m.lastMessage = message
	m.lastContext = rc
	return domain.Reply{Text: m.response, Model: m.served}
}

func (m *mockDispatcher) Complete(_ context.Context, prompt string, rc domain.RequestContext) domain.Reply {
	m.lastMessage = prompt
	m.lastContext = rc
	return domain.Reply{Text: m.response, Model: m.served}
}

func (m *mockDispatcher) InlineComplete(_ context.Context, code string, cursor domain.CursorPosition, language string) domain.Reply {
	m.lastMessage = code
	m.lastCursor = cursor
	m.lastContext = domain.RequestContext{Language: language}
	return domain.Reply{Text: m.response, Model: m.served}
}

func (m *mockDispatcher) ListModels() []domain.ModelStatus { return m.models }

func (m *mockDispatcher) CurrentModel() (string, bool) { return m.current, m.current != "" }

func (m *mockDispatcher) SwitchModel(id string) error {
	if m.err != nil {
		return m.err
	}
	m.current = id
	return nil
}

func (m *mockDispatcher) AddModel(_ context.Context, desc domain.ModelDescriptor) error {
	if m.err != nil {
		return m.err
	}
	m.added = append(m.added, desc)
	return nil
}

func (m *mockDispatcher) RemoveModel(id string) error {
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, id)
	return nil
}

func (m *mockDispatcher) Transactions() []domain.Transaction { return m.transactions }

func (m *mockDispatcher) ClearTransactions() { m.transactions = nil }

func (m *mockDispatcher) UpdateAPIKey(_ context.Context, provider domain.AIProvider, key string) error {
	if m.err != nil {
		return m.err
	}
	if m.keys == nil {
		m.keys = make(map[domain.AIProvider]string)
	}
	m.keys[provider] = key
	return nil
}

func (m *mockDispatcher) TestAPIKey(_ context.Context, _ domain.AIProvider, _ string) bool {
	return m.keyValid
}

func (m *mockDispatcher) Close() error { return nil }

// mockSymbolIndex is a mock implementation of driving.SymbolIndex.
type mockSymbolIndex struct {
	symbols   []domain.Symbol
	entry     *domain.FileIndexEntry
	lastQuery string
	err       error
}

func (m *mockSymbolIndex) IndexFile(_ context.Context, _, _ string) (bool, error) { return true, m.err }

func (m *mockSymbolIndex) RemoveFile(_ context.Context, _ string) error { return m.err }

func (m *mockSymbolIndex) Search(_ context.Context, query string) ([]domain.Symbol, error) {
	m.lastQuery = query
	return m.symbols, m.err
}

func (m *mockSymbolIndex) Entry(_ context.Context, _ string) (*domain.FileIndexEntry, error) {
	if m.entry == nil && m.err == nil {
		return nil, domain.ErrNotFound
	}
	return m.entry, m.err
}

func (m *mockSymbolIndex) Files(_ context.Context) ([]string, error) { return nil, m.err }

// mockEmbeddingIndex is a mock implementation of driving.EmbeddingIndex.
type mockEmbeddingIndex struct {
	results   []domain.SimilarityResult
	err       error
	lastQuery string
	lastPath  string
	lastStart int
	lastEnd   int
	lastLimit int
}

func (m *mockEmbeddingIndex) EmbedChunk(_ context.Context, _ domain.ChunkInput) (*domain.EmbeddingRecord, error) {
	return nil, m.err
}

func (m *mockEmbeddingIndex) SemanticSearch(_ context.Context, query string, limit int) ([]domain.SimilarityResult, error) {
	m.lastQuery = query
	m.lastLimit = limit
	return m.results, m.err
}

func (m *mockEmbeddingIndex) FindSimilarCode(
	_ context.Context, path string, start, end, limit int,
) ([]domain.SimilarityResult, error) {
	m.lastPath, m.lastStart, m.lastEnd, m.lastLimit = path, start, end, limit
	return m.results, m.err
}

func (m *mockEmbeddingIndex) RemoveEmbeddingsForFile(_ context.Context, _ string) error { return m.err }

func (m *mockEmbeddingIndex) EmbeddingsCurrent(_ context.Context, _ string, _ int) (bool, error) {
	return false, m.err
}

func (m *mockEmbeddingIndex) Enabled() bool { return true }

// mockIndexer is a mock implementation of driving.Indexer.
type mockIndexer struct {
	report   domain.IndexReport
	changed  bool
	lastRoot string
	lastPath string
	err      error
}

func (m *mockIndexer) Submit(_, _ string) {}

func (m *mockIndexer) Remove(_ string) {}

func (m *mockIndexer) IndexNow(_ context.Context, path, _ string) (bool, error) {
	m.lastPath = path
	return m.changed, m.err
}

func (m *mockIndexer) IndexDirectory(_ context.Context, root string) (domain.IndexReport, error) {
	m.lastRoot = root
	return m.report, m.err
}
