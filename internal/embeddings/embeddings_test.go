package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mfreitag/docvec/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelDimensions(t *testing.T) {
	tests := []struct {
		model    string
		expected int
	}{
		{"nomic-embed-text", 768},
		{"mxbai-embed-large", 1024},
		{"all-minilm", 384},
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"unknown-model", 0},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetModelDimensions(tt.model))
		})
	}
}

func TestNewOllamaService(t *testing.T) {
	t.Run("with default URL", func(t *testing.T) {
		svc, err := NewOllamaService("", "nomic-embed-text")
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:11434", svc.baseURL)
		assert.Equal(t, 768, svc.Dimensions())
		assert.Equal(t, ProviderOllama, svc.Provider())
		assert.Equal(t, "nomic-embed-text", svc.ModelName())
	})

	t.Run("trailing slash is trimmed", func(t *testing.T) {
		svc, err := NewOllamaService("http://custom:8080/", "all-minilm")
		require.NoError(t, err)

		assert.Equal(t, "http://custom:8080", svc.baseURL)
		assert.Equal(t, 384, svc.Dimensions())
	})

	t.Run("unknown model defaults to 768", func(t *testing.T) {
		svc, err := NewOllamaService("", "mystery-model")
		require.NoError(t, err)
		assert.Equal(t, 768, svc.Dimensions())
	})
}

func TestNewOpenAIService(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		_, err := NewOpenAIService("", "text-embedding-3-small", "", 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key is required")
	})

	t.Run("known model dimensions", func(t *testing.T) {
		svc, err := NewOpenAIService("sk-test", "text-embedding-3-small", "", 0)
		require.NoError(t, err)
		assert.Equal(t, 1536, svc.Dimensions())
		assert.Equal(t, ProviderOpenAI, svc.Provider())
	})

	t.Run("explicit dimensions win", func(t *testing.T) {
		svc, err := NewOpenAIService("sk-test", "text-embedding-3-large", "", 512)
		require.NoError(t, err)
		assert.Equal(t, 512, svc.Dimensions())
	})
}

func TestOllamaTaskPrefixes(t *testing.T) {
	t.Run("nomic-embed-text", func(t *testing.T) {
		svc, _ := NewOllamaService("", "nomic-embed-text")
		assert.Equal(t, "search_document: doc", svc.applyPrefix("doc", false))
		assert.Equal(t, "search_query: q", svc.applyPrefix("q", true))
	})

	t.Run("model without prefixes", func(t *testing.T) {
		svc, _ := NewOllamaService("", "all-minilm")
		assert.Equal(t, "doc", svc.applyPrefix("doc", false))
		assert.Equal(t, "q", svc.applyPrefix("q", true))
	})
}

func TestOllamaEmbedBatch(t *testing.T) {
	var gotRequest ollamaEmbedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		resp := ollamaEmbedResponse{
			Embeddings: make([][]float32, len(gotRequest.Input)),
		}
		for i := range resp.Embeddings {
			resp.Embeddings[i] = []float32{float32(i), 1, 2}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc, err := NewOllamaService(server.URL, "nomic-embed-text")
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0, 1, 2}, vectors[0])
	assert.Equal(t, []float32{1, 1, 2}, vectors[1])

	// Document prefix was applied and dimensions corrected from response.
	assert.Equal(t, "search_document: first", gotRequest.Input[0])
	assert.Equal(t, 3, svc.Dimensions())
}

func TestOllamaEmbedBatchEmpty(t *testing.T) {
	svc, err := NewOllamaService("", "nomic-embed-text")
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestOllamaEmbedQueryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	svc, err := NewOllamaService(server.URL, "nomic-embed-text")
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestNewServiceFromConfig(t *testing.T) {
	t.Run("ollama", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Embeddings.Provider = "ollama"

		svc, err := NewService(cfg)
		require.NoError(t, err)
		assert.Equal(t, ProviderOllama, svc.Provider())
	})

	t.Run("unsupported provider", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Embeddings.Provider = "tarot"

		_, err := NewService(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported embedding provider")
	})
}
