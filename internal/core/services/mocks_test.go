package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// --- Model adapter mocks ---

// mockAdapter implements driven.ModelAdapter with scripted responses.
type mockAdapter struct {
	desc domain.ModelDescriptor

	mu         sync.Mutex
	state      domain.AdapterState
	initErr    error
	probeErr   error
	response   string
	callErr    error
	block      bool
	calls      []domain.DispatchRequest
	cleanups   int
	initCalls  int
	probeCalls int
}

func newMockAdapter(desc domain.ModelDescriptor) *mockAdapter {
	return &mockAdapter{desc: desc, state: domain.AdapterUninitialized, response: "ok from " + desc.ID}
}

func (m *mockAdapter) Descriptor() domain.ModelDescriptor { return m.desc }

func (m *mockAdapter) Initialize(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalls++
	if m.initErr != nil {
		m.state = domain.AdapterUnavailable
		return m.initErr
	}
	m.state = domain.AdapterReady
	return nil
}

func (m *mockAdapter) Probe(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeCalls++
	return m.probeErr
}

func (m *mockAdapter) call(ctx context.Context, req domain.DispatchRequest) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	block, resp, err := m.block, m.response, m.callErr
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return resp, err
}

func (m *mockAdapter) Complete(ctx context.Context, req domain.DispatchRequest) (string, error) {
	return m.call(ctx, req)
}

func (m *mockAdapter) Chat(ctx context.Context, req domain.DispatchRequest) (string, error) {
	return m.call(ctx, req)
}

func (m *mockAdapter) InlineComplete(ctx context.Context, req domain.DispatchRequest) (string, error) {
	return m.call(ctx, req)
}

func (m *mockAdapter) IsAvailable() bool { return m.State().IsSelectable() }

func (m *mockAdapter) State() domain.AdapterState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockAdapter) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups++
	m.state = domain.AdapterDisposed
	return nil
}

func (m *mockAdapter) requests() []domain.DispatchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.DispatchRequest(nil), m.calls...)
}

// mockFactory builds mockAdapters and remembers them.
type mockFactory struct {
	mu        sync.Mutex
	created   []*mockAdapter
	createErr error
	initErr   error
	probeErr  error
}

func (f *mockFactory) Create(desc domain.ModelDescriptor) (driven.ModelAdapter, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	a := newMockAdapter(desc)
	a.initErr = f.initErr
	a.probeErr = f.probeErr

	f.mu.Lock()
	f.created = append(f.created, a)
	f.mu.Unlock()
	return a, nil
}

func (f *mockFactory) last() *mockAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		return nil
	}
	return f.created[len(f.created)-1]
}

// mockCatalog implements driven.ModelCatalog.
type mockCatalog struct {
	descs []domain.ModelDescriptor
	err   error
}

func (c *mockCatalog) Load() ([]domain.ModelDescriptor, error) { return c.descs, c.err }
func (c *mockCatalog) Path() string                            { return "" }

// mockPromptStore implements driven.PromptStore.
type mockPromptStore struct {
	prompts map[string]string
}

func (p *mockPromptStore) Load(name string) (string, error) {
	if s, ok := p.prompts[name]; ok {
		return s, nil
	}
	return "", errors.New("prompt not found")
}

func (p *mockPromptStore) Reload() {}

// --- Embedding mocks ---

// mockEmbedder produces deterministic bag-of-words vectors so that texts
// sharing words score as similar.
type mockEmbedder struct {
	dims     int
	model    string
	err      error
	override map[string][]float32
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims, model: "mock", override: make(map[string][]float32)}
}

func (e *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.override[text]; ok {
		return v, nil
	}
	v := make([]float32, e.dims)
	for _, word := range strings.Fields(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		v[int(h.Sum32())%e.dims]++
	}
	return v, nil
}

func (e *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *mockEmbedder) Dimensions() int              { return e.dims }
func (e *mockEmbedder) ModelName() string            { return e.model }
func (e *mockEmbedder) Ping(_ context.Context) error { return e.err }
func (e *mockEmbedder) Close() error                 { return nil }

// lineChunker cuts content into fixed windows without overlap.
type lineChunker struct {
	size int
}

func (c lineChunker) Chunk(content string) []domain.CodeChunk {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	var chunks []domain.CodeChunk
	for start := 0; start < len(lines); start += c.size {
		end := min(start+c.size, len(lines))
		chunks = append(chunks, domain.CodeChunk{
			StartLine: start + 1,
			EndLine:   end,
			Content:   strings.Join(lines[start:end], "\n"),
		})
	}
	return chunks
}

// --- Descriptor helpers ---

func descriptor(id string, locality domain.Locality, latency domain.Latency, specialties ...string) domain.ModelDescriptor {
	provider := domain.AIProviderOllama
	if locality == domain.LocalityCloud {
		provider = domain.AIProviderOpenAI
	}
	return domain.ModelDescriptor{
		ID:            id,
		DisplayName:   strings.ToUpper(id),
		Provider:      provider,
		Model:         id,
		Kind:          domain.ModelKindChat,
		MaxTokens:     4096,
		ContextWindow: 8192,
		Specialties:   specialties,
		Latency:       latency,
		Locality:      locality,
	}
}

func boolPtr(b bool) *bool { return &b }
