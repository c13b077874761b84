// Package eval scores retrieval and answer quality against a ground truth
// question set, using a second model as the judge.
package eval

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mfreitag/docvec/internal/llm"
	"github.com/mfreitag/docvec/internal/rag"
)

// Case is one ground truth question with its expected answer.
type Case struct {
	Question string
	Answer   string
}

// CaseResult is the judged outcome for one case. Scores run 0-10.
type CaseResult struct {
	Case
	Response     string
	ContextScore float64
	AnswerScore  float64
}

// Report aggregates the judged cases.
type Report struct {
	Cases           []CaseResult
	AvgContextScore float64
	AvgAnswerScore  float64
}

// judgePromptTemplate asks the judge for two scores in a fixed format so
// they can be parsed back out.
const judgePromptTemplate = `You are an objective evaluator. Score the following aspects of a RAG system's response:

Ground Truth Question & Answer:
%s

Generated Response:
%s

Retrieved Context:
%s

Please provide two scores (0-10, decimals allowed):
1. Context Relevance Score: How relevant is the retrieved context to answering the question?
2. Answer Accuracy Score: How accurate is the generated answer compared to the ground truth?

Format your response exactly as follows:
Context Score: [score]
Answer Score: [score]`

// Harness runs ground truth cases through a generator and judges each one.
type Harness struct {
	gen   *rag.Generator
	judge llm.Service
	opts  rag.Options
}

// NewHarness creates an evaluation harness. The judge may use the same
// provider as the generator but should be a capable model.
func NewHarness(gen *rag.Generator, judge llm.Service, opts rag.Options) *Harness {
	return &Harness{gen: gen, judge: judge, opts: opts}
}

// Run generates and judges an answer for every case. A failure on one case
// aborts the run; partial reports would skew the averages.
func (h *Harness) Run(ctx context.Context, cases []Case) (*Report, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("no ground truth cases to evaluate")
	}

	report := &Report{}
	var contextSum, answerSum float64

	for i, c := range cases {
		log.Debug("Evaluating case", "index", i+1, "total", len(cases), "question", c.Question)

		result, err := h.gen.Generate(ctx, c.Question, h.opts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate answer for case %d: %w", i+1, err)
		}

		contextScore, answerScore, err := h.judgeCase(ctx, c, result)
		if err != nil {
			return nil, fmt.Errorf("failed to judge case %d: %w", i+1, err)
		}

		report.Cases = append(report.Cases, CaseResult{
			Case:         c,
			Response:     result.Answer,
			ContextScore: contextScore,
			AnswerScore:  answerScore,
		})
		contextSum += contextScore
		answerSum += answerScore
	}

	report.AvgContextScore = contextSum / float64(len(cases))
	report.AvgAnswerScore = answerSum / float64(len(cases))
	return report, nil
}

// judgeCase asks the judge model to score one generated answer.
func (h *Harness) judgeCase(ctx context.Context, c Case, result *rag.Result) (float64, float64, error) {
	groundTruth := fmt.Sprintf("Question: %s\nAnswer: %s", c.Question, c.Answer)
	prompt := fmt.Sprintf(judgePromptTemplate, groundTruth, result.Answer, result.Context)

	response, err := h.judge.Complete(ctx, []llm.Message{
		{Role: "user", Content: prompt},
	}, llm.DefaultCompletionOptions())
	if err != nil {
		return 0, 0, err
	}

	return parseScores(response)
}

// parseScores extracts the two scores from the judge's response. Judges do
// not always follow the format exactly, so brackets and trailing text after
// the number are tolerated.
func parseScores(response string) (float64, float64, error) {
	contextScore, err := parseScore(response, "Context Score:")
	if err != nil {
		return 0, 0, err
	}
	answerScore, err := parseScore(response, "Answer Score:")
	if err != nil {
		return 0, 0, err
	}
	return contextScore, answerScore, nil
}

func parseScore(response, label string) (float64, error) {
	_, rest, found := strings.Cut(response, label)
	if !found {
		return 0, fmt.Errorf("judge response missing %q", label)
	}

	line := rest
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "[]"))

	score, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable score for %q: %q", label, line)
	}
	if score < 0 || score > 10 {
		return 0, fmt.Errorf("score for %q out of range: %v", label, score)
	}
	return score, nil
}

// LoadGroundTruth reads cases from a CSV file with Question and Answer
// columns. Column order does not matter; headers are matched
// case-insensitively.
func LoadGroundTruth(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ground truth file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read ground truth header: %w", err)
	}

	questionCol, answerCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "question":
			questionCol = i
		case "answer":
			answerCol = i
		}
	}
	if questionCol < 0 || answerCol < 0 {
		return nil, fmt.Errorf("ground truth file needs Question and Answer columns, got %v", header)
	}

	var cases []Case
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ground truth record: %w", err)
		}
		question := strings.TrimSpace(record[questionCol])
		answer := strings.TrimSpace(record[answerCol])
		if question == "" {
			continue
		}
		cases = append(cases, Case{Question: question, Answer: answer})
	}

	if len(cases) == 0 {
		return nil, fmt.Errorf("ground truth file %s contains no cases", path)
	}
	return cases, nil
}
