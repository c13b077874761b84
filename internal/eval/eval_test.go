package eval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreitag/docvec/internal/llm"
	"github.com/mfreitag/docvec/internal/rag"
	"github.com/mfreitag/docvec/internal/store"
)

type fakeStore struct {
	store.Store
	results []store.SearchResult
}

func (f *fakeStore) Search(ctx context.Context, query string, k int) ([]store.SearchResult, error) {
	return f.results, nil
}

type fakeLLM struct {
	answer string
	err    error
	calls  int
}

func (f *fakeLLM) Complete(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (string, error) {
	f.calls++
	return f.answer, f.err
}

func (f *fakeLLM) CompleteStream(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (<-chan string, <-chan error) {
	contentCh := make(chan string, 1)
	errCh := make(chan error, 1)
	contentCh <- f.answer
	close(contentCh)
	close(errCh)
	return contentCh, errCh
}

func (f *fakeLLM) Provider() llm.Provider { return "fake" }
func (f *fakeLLM) ModelName() string      { return "fake-model" }

func writeGroundTruth(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "groundtruth.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadGroundTruth(t *testing.T) {
	path := writeGroundTruth(t, `Question,Answer
Who is the protagonist?,The Time Traveller
"Where does he travel, roughly?",The year 802701
`)

	cases, err := LoadGroundTruth(path)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "Who is the protagonist?", cases[0].Question)
	assert.Equal(t, "The Time Traveller", cases[0].Answer)
	assert.Equal(t, "Where does he travel, roughly?", cases[1].Question)
}

func TestLoadGroundTruthColumnOrder(t *testing.T) {
	path := writeGroundTruth(t, `answer,question
A1,Q1
`)

	cases, err := LoadGroundTruth(path)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "Q1", cases[0].Question)
	assert.Equal(t, "A1", cases[0].Answer)
}

func TestLoadGroundTruthMissingColumns(t *testing.T) {
	path := writeGroundTruth(t, `Prompt,Expected
Q1,A1
`)

	_, err := LoadGroundTruth(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Question and Answer columns")
}

func TestLoadGroundTruthEmpty(t *testing.T) {
	path := writeGroundTruth(t, "Question,Answer\n")

	_, err := LoadGroundTruth(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cases")
}

func TestLoadGroundTruthMissingFile(t *testing.T) {
	_, err := LoadGroundTruth(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestParseScores(t *testing.T) {
	tests := []struct {
		name     string
		response string
		context  float64
		answer   float64
		wantErr  bool
	}{
		{
			name:     "plain format",
			response: "Context Score: 8.5\nAnswer Score: 7",
			context:  8.5,
			answer:   7,
		},
		{
			name:     "bracketed scores",
			response: "Context Score: [9.0]\nAnswer Score: [6.5]",
			context:  9.0,
			answer:   6.5,
		},
		{
			name:     "surrounding prose",
			response: "Here is my evaluation.\n\nContext Score: 10\nAnswer Score: 9.25\n\nThe context was excellent.",
			context:  10,
			answer:   9.25,
		},
		{
			name:     "missing answer score",
			response: "Context Score: 8",
			wantErr:  true,
		},
		{
			name:     "non-numeric score",
			response: "Context Score: great\nAnswer Score: 5",
			wantErr:  true,
		},
		{
			name:     "out of range",
			response: "Context Score: 15\nAnswer Score: 5",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contextScore, answerScore, err := parseScores(tt.response)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.context, contextScore)
			assert.Equal(t, tt.answer, answerScore)
		})
	}
}

func TestHarnessRun(t *testing.T) {
	st := &fakeStore{results: []store.SearchResult{
		{Document: "novel.txt", ChunkID: "c1", Score: 0.9, Content: "The Time Traveller lands in 802701."},
	}}
	generator := rag.New(st, &fakeLLM{answer: "He travels to the year 802701."})
	judge := &fakeLLM{answer: "Context Score: 9\nAnswer Score: 8.5"}

	harness := NewHarness(generator, judge, rag.DefaultOptions())

	report, err := harness.Run(context.Background(), []Case{
		{Question: "Where does he travel?", Answer: "802701"},
		{Question: "Who travels?", Answer: "The Time Traveller"},
	})
	require.NoError(t, err)

	require.Len(t, report.Cases, 2)
	assert.Equal(t, 9.0, report.Cases[0].ContextScore)
	assert.Equal(t, 8.5, report.Cases[0].AnswerScore)
	assert.Equal(t, "He travels to the year 802701.", report.Cases[0].Response)
	assert.Equal(t, 9.0, report.AvgContextScore)
	assert.Equal(t, 8.5, report.AvgAnswerScore)
	assert.Equal(t, 2, judge.calls)
}

func TestHarnessRunNoCases(t *testing.T) {
	harness := NewHarness(rag.New(&fakeStore{}, &fakeLLM{}), &fakeLLM{}, rag.DefaultOptions())

	_, err := harness.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestHarnessRunJudgeFailure(t *testing.T) {
	st := &fakeStore{results: []store.SearchResult{
		{Document: "a.txt", ChunkID: "c1", Score: 0.9, Content: "content"},
	}}
	generator := rag.New(st, &fakeLLM{answer: "generated"})
	judge := &fakeLLM{err: fmt.Errorf("judge offline")}

	harness := NewHarness(generator, judge, rag.DefaultOptions())

	_, err := harness.Run(context.Background(), []Case{{Question: "Q", Answer: "A"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to judge case 1")
}
