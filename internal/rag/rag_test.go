package rag

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreitag/docvec/internal/llm"
	"github.com/mfreitag/docvec/internal/store"
)

// fakeStore returns canned search results regardless of the query.
type fakeStore struct {
	store.Store
	results []store.SearchResult
	err     error
}

func (f *fakeStore) Search(ctx context.Context, query string, k int) ([]store.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

// fakeLLM records the messages it was called with and returns a fixed
// answer.
type fakeLLM struct {
	answer   string
	err      error
	called   bool
	messages []llm.Message
}

func (f *fakeLLM) Complete(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (string, error) {
	f.called = true
	f.messages = messages
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeLLM) CompleteStream(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (<-chan string, <-chan error) {
	f.called = true
	f.messages = messages
	contentCh := make(chan string, 1)
	errCh := make(chan error, 1)
	contentCh <- f.answer
	close(contentCh)
	close(errCh)
	return contentCh, errCh
}

func (f *fakeLLM) Provider() llm.Provider { return "fake" }
func (f *fakeLLM) ModelName() string      { return "fake-model" }

func result(doc string, score float64, content string) store.SearchResult {
	return store.SearchResult{Document: doc, ChunkID: doc + "-chunk", Score: score, Content: content}
}

func TestGenerateAnswersFromContext(t *testing.T) {
	st := &fakeStore{results: []store.SearchResult{
		result("a.txt", 0.9, "Paris is the capital of France."),
		result("b.txt", 0.7, "France is in Europe."),
	}}
	model := &fakeLLM{answer: "The capital of France is Paris."}
	gen := New(st, model)

	res, err := gen.Generate(context.Background(), "What is the capital of France?", DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "The capital of France is Paris.", res.Answer)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, "a.txt", res.Sources[0].Document)

	require.Len(t, model.messages, 2)
	assert.Equal(t, "system", model.messages[0].Role)
	assert.Contains(t, model.messages[1].Content, "Chunk 1 with similarity 0.9000:")
	assert.Contains(t, model.messages[1].Content, "Paris is the capital of France.")
	assert.Contains(t, model.messages[1].Content, "Question:\nWhat is the capital of France?")
}

func TestGenerateFiltersBySimilarity(t *testing.T) {
	st := &fakeStore{results: []store.SearchResult{
		result("good.txt", 0.8, "relevant"),
		result("weak.txt", 0.5, "at the floor, dropped"),
		result("noise.txt", 0.1, "irrelevant"),
	}}
	model := &fakeLLM{answer: "ok"}
	gen := New(st, model)

	res, err := gen.Generate(context.Background(), "question", DefaultOptions())
	require.NoError(t, err)

	require.Len(t, res.Sources, 1)
	assert.Equal(t, "good.txt", res.Sources[0].Document)
	assert.NotContains(t, res.Context, "irrelevant")
}

func TestGenerateCapsContextChunks(t *testing.T) {
	var results []store.SearchResult
	for i := 0; i < 10; i++ {
		results = append(results, result(fmt.Sprintf("doc%d.txt", i), 0.9, "content"))
	}
	st := &fakeStore{results: results}
	model := &fakeLLM{answer: "ok"}
	gen := New(st, model)

	opts := DefaultOptions()
	opts.MaxContextChunks = 3

	res, err := gen.Generate(context.Background(), "question", opts)
	require.NoError(t, err)
	assert.Len(t, res.Sources, 3)
}

func TestGenerateNoContextSkipsModel(t *testing.T) {
	st := &fakeStore{results: []store.SearchResult{
		result("noise.txt", 0.2, "irrelevant"),
	}}
	model := &fakeLLM{answer: "should never be used"}
	gen := New(st, model)

	res, err := gen.Generate(context.Background(), "question", DefaultOptions())
	require.NoError(t, err)

	assert.False(t, model.called)
	assert.Equal(t, noContextAnswer, res.Answer)
	assert.Empty(t, res.Sources)
}

func TestGenerateSearchError(t *testing.T) {
	st := &fakeStore{err: fmt.Errorf("store offline")}
	gen := New(st, &fakeLLM{})

	_, err := gen.Generate(context.Background(), "question", DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to retrieve context")
}

func TestGenerateModelError(t *testing.T) {
	st := &fakeStore{results: []store.SearchResult{result("a.txt", 0.9, "content")}}
	gen := New(st, &fakeLLM{err: fmt.Errorf("rate limited")})

	_, err := gen.Generate(context.Background(), "question", DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate answer")
}

func TestGenerateStream(t *testing.T) {
	st := &fakeStore{results: []store.SearchResult{result("a.txt", 0.9, "content")}}
	model := &fakeLLM{answer: "streamed answer"}
	gen := New(st, model)

	contentCh, errCh, sources, err := gen.GenerateStream(context.Background(), "question", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, sources, 1)

	var answer string
	for part := range contentCh {
		answer += part
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "streamed answer", answer)
}

func TestBuildContextFormat(t *testing.T) {
	text := buildContext([]store.SearchResult{
		result("a.txt", 0.9251, "first chunk"),
		result("b.txt", 0.6, "second chunk"),
	})

	assert.Equal(t, "Chunk 1 with similarity 0.9251:\nfirst chunk\nChunk 2 with similarity 0.6000:\nsecond chunk", text)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 0.5, opts.MinSimilarity)
	assert.Equal(t, 50, opts.MaxContextChunks)
	assert.Equal(t, 0.3, opts.Temperature)
	assert.Equal(t, 2048, opts.MaxTokens)
}
