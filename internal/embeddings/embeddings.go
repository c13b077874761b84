// Package embeddings maps chunk and query text to fixed-length vectors.
//
// The vector store only depends on the Service contract: one vector per
// input string, order preserved, constant dimension for the lifetime of a
// service instance. Which model produces the vectors is a configuration
// concern.
package embeddings

import (
	"context"
	"fmt"

	"github.com/mfreitag/docvec/internal/config"
)

// Provider identifies an embedding backend.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
)

// Service produces embeddings for documents and queries.
type Service interface {
	// EmbedBatch returns exactly one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a search query. Some models use a different task
	// prefix for queries than for documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector dimension this service produces.
	Dimensions() int

	// Provider returns the backend identifier.
	Provider() Provider

	// ModelName returns the model name.
	ModelName() string
}

// modelDimensions maps known model names to their vector dimensions.
var modelDimensions = map[string]int{
	// Ollama models
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,

	// OpenAI models
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// GetModelDimensions returns the known dimensions for a model, or 0.
func GetModelDimensions(model string) int {
	return modelDimensions[model]
}

// NewService creates an embedding service from the configuration.
func NewService(cfg *config.Config) (Service, error) {
	switch cfg.Embeddings.Provider {
	case "ollama":
		return NewOllamaService(cfg.Embeddings.Ollama.URL, cfg.Embeddings.Ollama.Model)
	case "openai":
		return NewOpenAIService(
			cfg.Embeddings.OpenAI.APIKey,
			cfg.Embeddings.OpenAI.Model,
			cfg.Embeddings.OpenAI.BaseURL,
			cfg.Embeddings.OpenAI.Dimensions,
		)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embeddings.Provider)
	}
}
