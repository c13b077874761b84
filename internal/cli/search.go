package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mfreitag/docvec/internal/config"
	"github.com/mfreitag/docvec/internal/store"
	"github.com/mfreitag/docvec/internal/ui"
)

var (
	searchLimit   int
	searchContent bool
	searchJSON    bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stored documents by semantic similarity",
	Long: `Search stored documents using a natural language query.

The query is embedded and scored against every stored chunk by cosine
similarity. Results come back ranked best first.

Examples:
  # Basic search
  docvec search "how do I configure the proxy"

  # Show chunk content with results
  docvec search "proxy configuration" -c

  # Limit results
  docvec search "error handling" -k 5

  # Machine-readable output
  docvec search "error handling" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearchCmd,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "k", 10, "maximum number of results")
	searchCmd.Flags().BoolVarP(&searchContent, "content", "c", false, "show chunk content in results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
}

func runSearchCmd(cmd *cobra.Command, args []string) error {
	query := args[0]

	log.Debug("Starting search", "query", query, "limit", searchLimit)

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

	results, err := st.Search(ctx, query, searchLimit)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if searchJSON {
		return outputJSON(results)
	}

	displayResults(results, searchContent)
	return nil
}

// displayResults formats and displays search results.
func displayResults(results []store.SearchResult, showContent bool) {
	fmt.Printf("Found %d results:\n\n", len(results))

	for i, r := range results {
		fmt.Printf("%s %s %s\n",
			ui.Highlight.Render(fmt.Sprintf("[%d]", i+1)),
			ui.DocName.Render(r.Document),
			ui.FormatScore(r.Score),
		)

		if showContent && r.Content != "" {
			fmt.Println(ui.Content.Render(previewContent(r.Content)))
		}

		fmt.Println()
	}
}

// previewContent trims a chunk for terminal display.
func previewContent(content string) string {
	const maxLines = 8

	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > maxLines {
		lines = append(lines[:maxLines], fmt.Sprintf("... (%d more lines)", len(lines)-maxLines))
	}
	return strings.Join(lines, "\n")
}

// outputJSON outputs results as JSON.
func outputJSON(results []store.SearchResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}
