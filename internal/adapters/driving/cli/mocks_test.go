package cli

import (
	"context"
	"testing"
	"time"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/codeassist/internal/connectors/filesystem"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/services"
)

// setupTestServices installs s for the duration of a test and resets flag state.
func setupTestServices(t *testing.T, s Services) {
	t.Helper()
	resetFlags()
	SetLoader(nil)
	SetServices(s)
	t.Cleanup(func() {
		SetServices(Services{})
		resetFlags()
		rootCmd.SetIn(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
}

func resetFlags() {
	requestLanguage, requestFile, requestTrace = "", "", false
	inlineLine, inlineColumn = 0, 0
	searchLimit, searchJSON = 10, false
	pinMode, pinClear = string(domain.PinModeTiebreak), false
	serveAddr, serveWatch, serveNoMCP = defaultAddr, "", false
	mcpPort = 0
	watchSkipInitial = false

	modelAdd.id, modelAdd.name, modelAdd.provider, modelAdd.model = "", "", "", ""
	modelAdd.kind = string(domain.ModelKindChat)
	modelAdd.specialties, modelAdd.languages = nil, nil
	modelAdd.latency = string(domain.LatencyMedium)
	modelAdd.locality, modelAdd.endpoint = "", ""
	modelAdd.maxTokens, modelAdd.contextWindow = 0, 0
}

func newTestSettings() *services.SettingsService {
	return services.NewSettingsService(memory.NewConfigStore())
}

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
	testedKey    string
	keyValid     bool
	err          error
}

func (m *mockDispatcher) record(op, message string) {
	m.transactions = append(m.transactions,
		domain.Transaction{Timestamp: time.Now(), Kind: domain.TransactionRequest, ModelID: "m", Operation: op, Message: message},
		domain.Transaction{Timestamp: time.Now(), Kind: domain.TransactionResponse, ModelID: "m", Operation: op,
			Metadata: domain.TransactionMetadata{LatencyMs: 12}},
	)
}

func (m *mockDispatcher) Chat(_ context.Context, message string, rc domain.RequestContext) domain.Reply {
	m.lastMessage = message
	m.lastContext = rc
	m.record("chat", message)
	return domain.Reply{Text: m.response, Model: m.served}
}

func (m *mockDispatcher) Complete(_ context.Context, prompt string, rc domain.RequestContext) domain.Reply {
	m.lastMessage = prompt
	m.lastContext = rc
	m.record("complete", "")
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

func (m *mockDispatcher) TestAPIKey(_ context.Context, _ domain.AIProvider, key string) bool {
	m.testedKey = key
	return m.keyValid
}

func (m *mockDispatcher) Close() error { return nil }

// mockSymbolIndex is a mock implementation of driving.SymbolIndex.
type mockSymbolIndex struct {
	symbols   []domain.Symbol
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
	return nil, domain.ErrNotFound
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
	report      domain.IndexReport
	changed     bool
	lastRoot    string
	lastPath    string
	lastContent string
	submitted   []string
	removed     []string
	err         error
}

func (m *mockIndexer) Submit(path, _ string) { m.submitted = append(m.submitted, path) }

func (m *mockIndexer) Remove(path string) { m.removed = append(m.removed, path) }

func (m *mockIndexer) IndexNow(_ context.Context, path, content string) (bool, error) {
	m.lastPath = path
	m.lastContent = content
	return m.changed, m.err
}

func (m *mockIndexer) IndexDirectory(_ context.Context, root string) (domain.IndexReport, error) {
	m.lastRoot = root
	return m.report, m.err
}

// mockCatalog is a mock implementation of CatalogEditor.
type mockCatalog struct {
	path    string
	written bool
	added   []domain.ModelDescriptor
	removed []string
	err     error
}

func (m *mockCatalog) Path() string { return m.path }

func (m *mockCatalog) WriteDefault() error {
	if m.err != nil {
		return m.err
	}
	m.written = true
	return nil
}

func (m *mockCatalog) Add(desc domain.ModelDescriptor) error {
	if m.err != nil {
		return m.err
	}
	m.added = append(m.added, desc)
	return nil
}

func (m *mockCatalog) Remove(id string) error {
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, id)
	return nil
}

// mockWatcher replays a fixed list of changes and closes the channel.
type mockWatcher struct {
	root    string
	changes []filesystem.Change
	err     error
	closed  bool
}

func (m *mockWatcher) Watch(_ context.Context) (<-chan filesystem.Change, error) {
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan filesystem.Change, len(m.changes))
	for _, c := range m.changes {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (m *mockWatcher) Close() error {
	m.closed = true
	return nil
}
