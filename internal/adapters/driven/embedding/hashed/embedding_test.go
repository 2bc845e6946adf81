package hashed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestEmbed_Deterministic(t *testing.T) {
	s := NewEmbeddingService(0)
	assert.Equal(t, DefaultDimensions, s.Dimensions())
	assert.Equal(t, "hashed", s.ModelName())

	a, err := s.Embed(context.Background(), "func parseConfig(path string) error")
	require.NoError(t, err)
	b, err := s.Embed(context.Background(), "func parseConfig(path string) error")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultDimensions)
}

func TestEmbed_Normalised(t *testing.T) {
	s := NewEmbeddingService(64)
	v, err := s.Embed(context.Background(), "load the user record from the store")
	require.NoError(t, err)

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestEmbed_Empty(t *testing.T) {
	s := NewEmbeddingService(16)
	v, err := s.Embed(context.Background(), "  ;; {} ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), v)
}

func TestEmbed_SharedTokensScoreHigher(t *testing.T) {
	s := NewEmbeddingService(512)
	ctx := context.Background()

	base, _ := s.Embed(ctx, "func loadUserProfile(id string) (*UserProfile, error)")
	near, _ := s.Embed(ctx, "func saveUserProfile(p *UserProfile) error")
	far, _ := s.Embed(ctx, "SELECT count(*) FROM invoices WHERE paid = 0")

	assert.Greater(t, cosine(base, near), cosine(base, far))
}

func TestEmbedBatch(t *testing.T) {
	s := NewEmbeddingService(32)
	out, err := s.EmbedBatch(context.Background(), []string{"a b", "c"})
	require.NoError(t, err)
	require.Len(t, out, 2)

	single, _ := s.Embed(context.Background(), "c")
	assert.Equal(t, single, out[1])
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}

func TestTokens(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"parseHTTPRequest", []string{"parsehttprequest", "parse", "http", "request"}},
		{"user_id = 5", []string{"user_id", "user", "id", "5"}},
		{"__init__", []string{"init"}},
		{"Hello, World", []string{"hello", "world"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokens(tt.in))
		})
	}
}
