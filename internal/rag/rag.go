// Package rag generates answers to questions grounded in retrieved chunks.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mfreitag/docvec/internal/config"
	"github.com/mfreitag/docvec/internal/llm"
	"github.com/mfreitag/docvec/internal/store"
)

// noContextAnswer is returned without calling the model when retrieval
// produces nothing above the similarity floor.
const noContextAnswer = "I couldn't find any relevant content in the store to answer your question. Try rephrasing the question or adding more documents."

// systemPrompt instructs the model to stay inside the retrieved context.
const systemPrompt = "You are a helpful assistant. Answer the question based on the provided context."

// Options configures answer generation.
type Options struct {
	// MinSimilarity is the floor below which retrieved chunks are dropped
	// from the context.
	MinSimilarity float64

	// MaxContextChunks caps how many chunks go into the prompt.
	MaxContextChunks int

	// Temperature controls randomness (0-1).
	Temperature float64

	// MaxTokens limits the response length.
	MaxTokens int
}

// DefaultOptions returns generation defaults matching the configuration
// defaults.
func DefaultOptions() Options {
	return Options{
		MinSimilarity:    config.DefaultRAGMinSimilarity,
		MaxContextChunks: config.DefaultRAGMaxContextChunks,
		Temperature:      config.DefaultRAGTemperature,
		MaxTokens:        config.DefaultRAGMaxTokens,
	}
}

// OptionsFromConfig builds Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MinSimilarity:    cfg.RAG.MinSimilarity,
		MaxContextChunks: cfg.RAG.MaxContextChunks,
		Temperature:      cfg.RAG.Temperature,
		MaxTokens:        cfg.RAG.MaxTokens,
	}
}

// Result contains the generated answer, the chunks it was grounded in and
// the exact context string sent to the model.
type Result struct {
	Answer  string               `json:"answer"`
	Sources []store.SearchResult `json:"sources"`
	Context string               `json:"context"`
}

// Generator answers questions using store retrieval plus an LLM.
type Generator struct {
	store store.Store
	llm   llm.Service
}

// New creates a Generator.
func New(st store.Store, svc llm.Service) *Generator {
	return &Generator{store: st, llm: svc}
}

// Generate retrieves context for question and asks the model to answer from
// it. Chunks at or below MinSimilarity are dropped; if nothing survives the
// filter the model is not called at all.
func (g *Generator) Generate(ctx context.Context, question string, opts Options) (*Result, error) {
	sources, err := g.retrieve(ctx, question, opts)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return &Result{Answer: noContextAnswer}, nil
	}

	contextText := buildContext(sources)

	answer, err := g.llm.Complete(ctx, promptMessages(question, contextText), llm.CompletionOptions{
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &Result{
		Answer:  answer,
		Sources: sources,
		Context: contextText,
	}, nil
}

// GenerateStream is Generate with a streaming answer. The sources are
// returned up front so callers can render them while tokens arrive.
func (g *Generator) GenerateStream(ctx context.Context, question string, opts Options) (<-chan string, <-chan error, []store.SearchResult, error) {
	sources, err := g.retrieve(ctx, question, opts)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(sources) == 0 {
		contentCh := make(chan string, 1)
		errCh := make(chan error, 1)
		contentCh <- noContextAnswer
		close(contentCh)
		close(errCh)
		return contentCh, errCh, nil, nil
	}

	contentCh, errCh := g.llm.CompleteStream(ctx, promptMessages(question, buildContext(sources)), llm.CompletionOptions{
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})

	return contentCh, errCh, sources, nil
}

// retrieve runs the full ranked search and applies the similarity floor and
// context cap.
func (g *Generator) retrieve(ctx context.Context, question string, opts Options) ([]store.SearchResult, error) {
	results, err := g.store.Search(ctx, question, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	var sources []store.SearchResult
	for _, r := range results {
		if r.Score <= opts.MinSimilarity {
			break
		}
		sources = append(sources, r)
		if opts.MaxContextChunks > 0 && len(sources) >= opts.MaxContextChunks {
			break
		}
	}

	log.Debug("Retrieved context", "candidates", len(results), "kept", len(sources))
	return sources, nil
}

// buildContext formats the retrieved chunks for the prompt.
func buildContext(sources []store.SearchResult) string {
	var sb strings.Builder
	for i, r := range sources {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Chunk %d with similarity %.4f:\n%s", i+1, r.Score, r.Content)
	}
	return sb.String()
}

// promptMessages assembles the chat messages sent to the model.
func promptMessages(question, contextText string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", contextText, question)},
	}
}
