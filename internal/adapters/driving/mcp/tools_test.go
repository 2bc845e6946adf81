package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	server, err := NewServer(ports)
	require.NoError(t, err)
	return server
}

func TestServer_handleChat(t *testing.T) {
	ctx := context.Background()

	t.Run("passes editor context", func(t *testing.T) {
		dispatcher := &mockDispatcher{response: "answer", served: "m1", current: "m2"}
		server := newTestServer(t, &Ports{Dispatcher: dispatcher})

		input := ChatInput{
			Message:   "explain",
			Language:  "go",
			FilePath:  "main.go",
			Selection: "func main() {}",
			History:   []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
		}
		_, output, err := server.handleChat(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "answer", output.Response)
		assert.Equal(t, "m1", output.Model)
		assert.Equal(t, "main.go", dispatcher.lastContext.FilePath)
		assert.Equal(t, "func main() {}", dispatcher.lastContext.Selection)
		assert.Len(t, dispatcher.lastContext.History, 1)
	})

	t.Run("requires a message", func(t *testing.T) {
		server := newTestServer(t, &Ports{Dispatcher: &mockDispatcher{}})

		_, _, err := server.handleChat(ctx, nil, ChatInput{})
		assert.Error(t, err)
	})
}

func TestServer_handleComplete(t *testing.T) {
	dispatcher := &mockDispatcher{response: "return x", served: "coder", current: "chatty"}
	server := newTestServer(t, &Ports{Dispatcher: dispatcher})

	_, output, err := server.handleComplete(context.Background(), nil, CompleteInput{Prompt: "func f() int {", Language: "go"})

	require.NoError(t, err)
	assert.Equal(t, "return x", output.Completion)
	assert.Equal(t, "coder", output.Model)
	assert.Equal(t, "func f() int {", dispatcher.lastMessage)
	assert.Equal(t, "go", dispatcher.lastContext.Language)

	_, _, err = server.handleComplete(context.Background(), nil, CompleteInput{})
	assert.Error(t, err)
}

func TestServer_handleModels(t *testing.T) {
	ctx := context.Background()
	dispatcher := &mockDispatcher{
		models: []domain.ModelStatus{
			{Descriptor: domain.ModelDescriptor{ID: "m1"}, State: domain.AdapterReady},
		},
	}
	server := newTestServer(t, &Ports{Dispatcher: dispatcher})

	_, list, err := server.handleListModels(ctx, nil, ListModelsInput{})
	require.NoError(t, err)
	require.Len(t, list.Models, 1)
	assert.Empty(t, list.Current)

	_, switched, err := server.handleSwitchModel(ctx, nil, SwitchModelInput{ModelID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "m1", switched.Current)

	dispatcher.switchErr = domain.ErrUnknownModel
	_, _, err = server.handleSwitchModel(ctx, nil, SwitchModelInput{ModelID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrUnknownModel)

	dispatcher.models = nil
	_, list, err = server.handleListModels(ctx, nil, ListModelsInput{})
	require.NoError(t, err)
	assert.NotNil(t, list.Models)
}

func TestServer_handleSearchSymbols(t *testing.T) {
	ctx := context.Background()

	t.Run("applies limit", func(t *testing.T) {
		symbols := make([]domain.Symbol, 15)
		for i := range symbols {
			symbols[i] = domain.Symbol{Name: "Parse", StartLine: i + 1}
		}
		server := newTestServer(t, &Ports{Dispatcher: &mockDispatcher{}, Symbols: &mockSymbolIndex{symbols: symbols}})

		_, output, err := server.handleSearchSymbols(ctx, nil, SearchSymbolsInput{Query: "parse"})
		require.NoError(t, err)
		assert.Equal(t, defaultLimit, output.Count)

		_, output, err = server.handleSearchSymbols(ctx, nil, SearchSymbolsInput{Query: "parse", Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, 3, output.Count)
	})

	t.Run("empty result is an empty list", func(t *testing.T) {
		server := newTestServer(t, &Ports{Dispatcher: &mockDispatcher{}, Symbols: &mockSymbolIndex{}})

		_, output, err := server.handleSearchSymbols(ctx, nil, SearchSymbolsInput{Query: "x"})
		require.NoError(t, err)
		assert.NotNil(t, output.Symbols)
		assert.Zero(t, output.Count)
	})

	t.Run("no index configured", func(t *testing.T) {
		server := newTestServer(t, &Ports{Dispatcher: &mockDispatcher{}})

		_, _, err := server.handleSearchSymbols(ctx, nil, SearchSymbolsInput{Query: "x"})
		assert.ErrorIs(t, err, errIndexUnavailable)
	})
}

func TestServer_handleSemanticSearch(t *testing.T) {
	ctx := context.Background()
	embeddings := &mockEmbeddingIndex{
		results: []domain.SimilarityResult{{
			Record: domain.EmbeddingRecord{
				FilePath: "auth.go", StartLine: 3, EndLine: 9, Language: "go",
				SymbolKind: domain.SymbolFunction, Content: "func login() {}",
			},
			Similarity: 0.91,
		}},
	}
	server := newTestServer(t, &Ports{Dispatcher: &mockDispatcher{}, Embeddings: embeddings})

	_, output, err := server.handleSemanticSearch(ctx, nil, SemanticSearchInput{Query: "login"})
	require.NoError(t, err)
	assert.Equal(t, defaultLimit, embeddings.lastLimit)
	require.Equal(t, 1, output.Count)
	assert.Equal(t, "auth.go", output.Results[0].FilePath)
	assert.Equal(t, "function", output.Results[0].SymbolKind)
	assert.InDelta(t, 0.91, output.Results[0].Similarity, 1e-9)

	embeddings.err = domain.ErrEmbeddingUnavailable
	_, _, err = server.handleSemanticSearch(ctx, nil, SemanticSearchInput{Query: "login"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestServer_handleFindSimilar(t *testing.T) {
	ctx := context.Background()
	embeddings := &mockEmbeddingIndex{}
	server := newTestServer(t, &Ports{Dispatcher: &mockDispatcher{}, Embeddings: embeddings})

	_, output, err := server.handleFindSimilar(ctx, nil, FindSimilarInput{FilePath: "a.go", StartLine: 1, EndLine: 5, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, embeddings.lastLimit)
	assert.NotNil(t, output.Results)
	assert.Zero(t, output.Count)

	embeddings.err = errors.New("boom")
	_, _, err = server.handleFindSimilar(ctx, nil, FindSimilarInput{FilePath: "a.go"})
	assert.Error(t, err)
}
