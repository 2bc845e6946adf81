package mcp

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
	models       []domain.ModelStatus
	current      string
	transactions []domain.Transaction
	switchErr    error
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

func (m *mockDispatcher) InlineComplete(_ context.Context, code string, _ domain.CursorPosition, _ string) domain.Reply {
	m.lastMessage = code
	return domain.Reply{Text: m.response, Model: m.served}
}

func (m *mockDispatcher) ListModels() []domain.ModelStatus { return m.models }

func (m *mockDispatcher) CurrentModel() (string, bool) { return m.current, m.current != "" }

func (m *mockDispatcher) SwitchModel(id string) error {
	if m.switchErr != nil {
		return m.switchErr
	}
	m.current = id
	return nil
}

func (m *mockDispatcher) AddModel(_ context.Context, _ domain.ModelDescriptor) error { return nil }

func (m *mockDispatcher) RemoveModel(_ string) error { return nil }

func (m *mockDispatcher) Transactions() []domain.Transaction { return m.transactions }

func (m *mockDispatcher) ClearTransactions() { m.transactions = nil }

func (m *mockDispatcher) UpdateAPIKey(_ context.Context, _ domain.AIProvider, _ string) error {
	return nil
}

func (m *mockDispatcher) TestAPIKey(_ context.Context, _ domain.AIProvider, _ string) bool { return true }

func (m *mockDispatcher) Close() error { return nil }

// mockSymbolIndex is a mock implementation of driving.SymbolIndex.
type mockSymbolIndex struct {
	symbols []domain.Symbol
	entry   *domain.FileIndexEntry
	err     error
}

func (m *mockSymbolIndex) IndexFile(_ context.Context, _, _ string) (bool, error) { return true, m.err }

func (m *mockSymbolIndex) RemoveFile(_ context.Context, _ string) error { return m.err }

func (m *mockSymbolIndex) Search(_ context.Context, _ string) ([]domain.Symbol, error) {
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
	lastLimit int
}

func (m *mockEmbeddingIndex) EmbedChunk(_ context.Context, _ domain.ChunkInput) (*domain.EmbeddingRecord, error) {
	return nil, m.err
}

func (m *mockEmbeddingIndex) SemanticSearch(_ context.Context, _ string, limit int) ([]domain.SimilarityResult, error) {
	m.lastLimit = limit
	return m.results, m.err
}

func (m *mockEmbeddingIndex) FindSimilarCode(
	_ context.Context, _ string, _, _, limit int,
) ([]domain.SimilarityResult, error) {
	m.lastLimit = limit
	return m.results, m.err
}

func (m *mockEmbeddingIndex) RemoveEmbeddingsForFile(_ context.Context, _ string) error { return m.err }

func (m *mockEmbeddingIndex) EmbeddingsCurrent(_ context.Context, _ string, _ int) (bool, error) {
	return false, m.err
}

func (m *mockEmbeddingIndex) Enabled() bool { return true }
