package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingService(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorContains(t, err, "API key is required")

	s, err := NewEmbeddingService(Config{APIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, 1536, s.Dimensions())

	s, err = NewEmbeddingService(Config{APIKey: "sk", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, s.Dimensions())

	s, err = NewEmbeddingService(Config{APIKey: "sk", Model: "custom", Dimensions: 99})
	require.NoError(t, err)
	assert.Equal(t, 99, s.Dimensions())
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	var got embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[
			{"embedding":[0,1],"index":1},
			{"embedding":[1,0],"index":0}
		]}`))
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "sk", BaseURL: server.URL, Dimensions: 2})
	require.NoError(t, err)

	out, err := s.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, out)
	assert.Equal(t, []string{"first", "second"}, got.Input)
	assert.Equal(t, 2, got.Dimensions)
}

func TestEmbed_Errors(t *testing.T) {
	t.Run("in-band error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
		}))
		defer server.Close()

		s, _ := NewEmbeddingService(Config{APIKey: "sk", BaseURL: server.URL})
		_, err := s.Embed(context.Background(), "x")
		assert.ErrorContains(t, err, "quota exceeded")
	})

	t.Run("unauthorised", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		s, _ := NewEmbeddingService(Config{APIKey: "sk", BaseURL: server.URL})
		assert.ErrorContains(t, s.Ping(context.Background()), "status 401")
	})

	t.Run("empty batch", func(t *testing.T) {
		s, _ := NewEmbeddingService(Config{APIKey: "sk", BaseURL: "http://unused"})
		out, err := s.EmbedBatch(context.Background(), nil)
		assert.NoError(t, err)
		assert.Nil(t, out)
	})
}

func TestEmbedBatch_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"index out of range", `{"data":[{"embedding":[1],"index":4}]}`, "index 4 out of range"},
		{"missing vector", `{"data":[]}`, "no embedding returned for input 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s, err := NewEmbeddingService(Config{APIKey: "sk", BaseURL: server.URL})
			require.NoError(t, err)
			_, err = s.Embed(context.Background(), "x")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestEmbedBatch_CustomModelOmitsDimensions(t *testing.T) {
	var got embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1,2],"index":0}]}`))
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "sk", BaseURL: server.URL, Model: "bge-small", Dimensions: 2})
	require.NoError(t, err)
	_, err = s.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Zero(t, got.Dimensions)
	assert.Equal(t, "bge-small", got.Model)
}
