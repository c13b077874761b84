package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mfreitag/docvec/internal/config"
	"github.com/mfreitag/docvec/internal/eval"
	"github.com/mfreitag/docvec/internal/llm"
	"github.com/mfreitag/docvec/internal/rag"
	"github.com/mfreitag/docvec/internal/ui"
)

// evalCmd represents the eval command
var evalCmd = &cobra.Command{
	Use:   "eval <groundtruth.csv>",
	Short: "Evaluate answer quality against a ground truth question set",
	Long: `Run every question from a ground truth CSV through retrieval and answer
generation, then have the configured LLM judge each answer.

The CSV needs Question and Answer columns. Each case gets a context
relevance score and an answer accuracy score from 0 to 10.

Examples:
  # Evaluate against a question set
  docvec eval groundtruth.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func runEval(cmd *cobra.Command, args []string) error {
	groundTruthPath := args[0]

	cfg := config.Get()

	cases, err := eval.LoadGroundTruth(groundTruthPath)
	if err != nil {
		return err
	}

	log.Debug("Loaded ground truth", "cases", len(cases))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted")
		cancel()
	}()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	llmService, err := llm.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to create LLM service: %w", err)
	}

	generator := rag.New(st, llmService)
	harness := eval.NewHarness(generator, llmService, rag.OptionsFromConfig(cfg))

	fmt.Printf("Evaluating %d cases...\n\n", len(cases))

	report, err := harness.Run(ctx, cases)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("evaluation failed: %w", err)
	}

	for _, c := range report.Cases {
		fmt.Printf("%s %s\n", ui.Bold.Render("Question:"), c.Question)
		fmt.Printf("  Context Score: %s\n", formatEvalScore(c.ContextScore))
		fmt.Printf("  Answer Score:  %s\n", formatEvalScore(c.AnswerScore))
		fmt.Println()
	}

	fmt.Println(ui.Header.Render("Summary"))
	fmt.Println()
	fmt.Printf("  Average Context Score: %s\n", formatEvalScore(report.AvgContextScore))
	fmt.Printf("  Average Answer Score:  %s\n", formatEvalScore(report.AvgAnswerScore))

	return nil
}

// formatEvalScore colors a 0-10 score by rough quality bands.
func formatEvalScore(score float64) string {
	text := fmt.Sprintf("%.2f", score)
	switch {
	case score >= 7:
		return ui.Success.Render(text)
	case score >= 4:
		return ui.Warning.Render(text)
	default:
		return ui.Error.Render(text)
	}
}
