package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mfreitag/docvec/internal/config"
	"github.com/mfreitag/docvec/internal/llm"
	"github.com/mfreitag/docvec/internal/rag"
	"github.com/mfreitag/docvec/internal/ui"
)

var (
	askMinSimilarity float64
	askMaxChunks     int
	askShowContext   bool
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from stored documents",
	Long: `Answer a question using retrieval-augmented generation.

Relevant chunks are retrieved from the store and handed to the configured
LLM as context. The model only sees chunks above the similarity floor.

Examples:
  # Ask a question
  docvec ask "how do I configure the proxy"

  # Raise the similarity floor for stricter grounding
  docvec ask "how do I configure the proxy" --min-similarity 0.7

  # Show the retrieved context alongside the answer
  docvec ask "how do I configure the proxy" --show-context`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Float64Var(&askMinSimilarity, "min-similarity", 0, "similarity floor for context chunks (default from config)")
	askCmd.Flags().IntVar(&askMaxChunks, "max-chunks", 0, "maximum context chunks (default from config)")
	askCmd.Flags().BoolVar(&askShowContext, "show-context", false, "print the retrieved context before the answer")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	log.Debug("Answering question", "question", question)

	cfg := config.Get()

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

	opts := rag.OptionsFromConfig(cfg)
	if cmd.Flags().Changed("min-similarity") {
		opts.MinSimilarity = askMinSimilarity
	}
	if cmd.Flags().Changed("max-chunks") {
		opts.MaxContextChunks = askMaxChunks
	}

	generator := rag.New(st, llmService)

	stopSpinner := make(chan struct{})
	spinnerDone := make(chan struct{})
	go showSpinner("Generating answer", stopSpinner, spinnerDone)

	contentCh, errCh, sources, err := generator.GenerateStream(ctx, question, opts)
	if err != nil {
		close(stopSpinner)
		<-spinnerDone
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	// Collect the full answer before rendering; glamour needs the whole
	// document.
	var answer strings.Builder
	for content := range contentCh {
		answer.WriteString(content)
	}

	close(stopSpinner)
	<-spinnerDone

	if err := <-errCh; err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("answer generation failed: %w", err)
	}

	if askShowContext && len(sources) > 0 {
		fmt.Println(ui.Header.Render("Context"))
		fmt.Println()
		for i, s := range sources {
			fmt.Printf("%s %s %s\n",
				ui.Highlight.Render(fmt.Sprintf("[%d]", i+1)),
				ui.DocName.Render(s.Document),
				ui.FormatScore(s.Score),
			)
			fmt.Println(ui.Content.Render(previewContent(s.Content)))
			fmt.Println()
		}
	}

	fmt.Println(ui.Header.Render("Answer"))
	fmt.Println()

	rendered, err := renderMarkdown(answer.String())
	if err != nil {
		fmt.Println(answer.String())
	} else {
		fmt.Print(rendered)
	}

	if len(sources) > 0 {
		fmt.Println(ui.Dim.Render("Sources:"))
		for i, s := range sources {
			fmt.Printf("  [%d] %s %s\n", i+1, s.Document, ui.FormatScore(s.Score))
		}
	}

	return nil
}
