package mcp

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil dispatcher returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingDispatcher)
	})

	t.Run("dispatcher only is valid", func(t *testing.T) {
		server, err := NewServer(&Ports{Dispatcher: &mockDispatcher{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func connect(t *testing.T, ports *Ports) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server, err := NewServer(ports)
	require.NoError(t, err)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func toolNames(t *testing.T, session *mcp.ClientSession) []string {
	t.Helper()
	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func TestServer_ToolsDependOnPorts(t *testing.T) {
	session := connect(t, &Ports{Dispatcher: &mockDispatcher{}})
	assert.ElementsMatch(t, []string{"chat", "complete", "list_models", "switch_model"}, toolNames(t, session))

	session = connect(t, &Ports{
		Dispatcher: &mockDispatcher{},
		Symbols:    &mockSymbolIndex{},
		Embeddings: &mockEmbeddingIndex{},
	})
	assert.ElementsMatch(t, []string{
		"chat", "complete", "list_models", "switch_model",
		"search_symbols", "semantic_search", "find_similar_code",
	}, toolNames(t, session))
}

func TestServer_CallChatOverSession(t *testing.T) {
	dispatcher := &mockDispatcher{response: "use a map", current: "local-chat"}
	session := connect(t, &Ports{Dispatcher: dispatcher})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "chat",
		Arguments: map[string]any{"message": "how do I dedupe?", "language": "go"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	assert.Equal(t, "how do I dedupe?", dispatcher.lastMessage)
	assert.Equal(t, "go", dispatcher.lastContext.Language)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "use a map")
}

func TestServer_Handler(t *testing.T) {
	server, err := NewServer(&Ports{Dispatcher: &mockDispatcher{current: "local-chat"}})
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(context.Background(), &mcp.StreamableClientTransport{Endpoint: ts.URL}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	assert.Contains(t, toolNames(t, session), "list_models")
}

func TestServer_RunHTTPStopsOnCancel(t *testing.T) {
	server, err := NewServer(&Ports{Dispatcher: &mockDispatcher{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, server.RunHTTP(ctx, "127.0.0.1:0"))
}
