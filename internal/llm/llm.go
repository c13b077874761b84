// Package llm provides chat completion backends for answer generation and
// evaluation judging.
package llm

import (
	"context"
	"fmt"

	"github.com/mfreitag/docvec/internal/config"
)

// Provider identifies a chat completion backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Message is one turn of a chat prompt. Role is "system", "user" or
// "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionOptions bounds a single completion request.
type CompletionOptions struct {
	// Temperature controls sampling randomness (0-1).
	Temperature float64

	// MaxTokens limits the response length.
	MaxTokens int
}

// DefaultCompletionOptions returns the defaults used when a caller does not
// configure the request.
func DefaultCompletionOptions() CompletionOptions {
	return CompletionOptions{
		Temperature: 0.7,
		MaxTokens:   2048,
	}
}

// Service is a chat completion backend. Answer generation consumes
// CompleteStream; the evaluation judge uses Complete.
type Service interface {
	// Complete generates the full completion in one call.
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)

	// CompleteStream generates the completion as a token stream. Both
	// channels are closed when the stream ends; at most one error is sent.
	CompleteStream(ctx context.Context, messages []Message, opts CompletionOptions) (<-chan string, <-chan error)

	// Provider returns the backend identifier.
	Provider() Provider

	// ModelName returns the configured model.
	ModelName() string
}

// NewService selects the backend named by the configuration.
func NewService(cfg *config.Config) (Service, error) {
	switch cfg.LLM.Provider {
	case "ollama":
		return NewOllamaService(
			cfg.LLM.Ollama.URL,
			cfg.LLM.Ollama.Model,
		)
	case "openai":
		return NewOpenAIService(
			cfg.LLM.OpenAI.APIKey,
			cfg.LLM.OpenAI.Model,
			cfg.LLM.OpenAI.BaseURL,
		)
	case "anthropic":
		return NewAnthropicService(
			cfg.LLM.Anthropic.APIKey,
			cfg.LLM.Anthropic.Model,
		)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}
}
