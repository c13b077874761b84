package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mfreitag/docvec/internal/config"
	"github.com/mfreitag/docvec/internal/ui"
)

var statusList bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store status and statistics",
	Long: `Display information about the vector store:
- Number of stored documents and chunks
- Total document size
- Embedding provider, model and dimensions

Examples:
  # Show store status
  docvec status

  # Also list every stored document
  docvec status --list`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusList, "list", false, "list stored documents")
}

func runStatus(cmd *cobra.Command, args []string) error {
	log.Debug("Showing status", "list", statusList)

	cfg := config.Get()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	stats, err := st.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get store stats: %w", err)
	}

	fmt.Println(ui.Header.Render("Store Status"))
	fmt.Println()

	fmt.Printf("  %s %s\n", ui.Dim.Render("Path:"), cfg.Store.Path)
	fmt.Printf("  %s %d documents, %d chunks\n",
		ui.Dim.Render("Stored:"), stats.DocumentCount, stats.ChunkCount)
	fmt.Printf("  %s %s\n", ui.Dim.Render("Size:"), formatBytes(stats.TotalSize))

	fmt.Printf("  %s %s (%s)\n",
		ui.Dim.Render("Embeddings:"),
		embeddingModelName(cfg),
		cfg.Embeddings.Provider,
	)
	if stats.Dimensions > 0 {
		fmt.Printf("  %s %d\n", ui.Dim.Render("Dimensions:"), stats.Dimensions)
	} else {
		fmt.Printf("  %s %s\n", ui.Dim.Render("Dimensions:"), ui.Dim.Render("not set (store is empty)"))
	}

	if stats.DocumentCount == 0 {
		fmt.Println()
		fmt.Println("The store is empty. Run 'docvec add <path>' to add documents.")
		return nil
	}

	if statusList {
		docs, err := st.Documents(ctx)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}

		fmt.Println()
		fmt.Println(ui.Header.Render("Documents"))
		fmt.Println()
		for _, d := range docs {
			detail := fmt.Sprintf("(%d chunks, %s, added %s)", d.ChunkCount, formatBytes(d.Size), d.AddedAt)
			fmt.Printf("  %s %s\n", ui.DocName.Render(d.Name), ui.Dim.Render(detail))
		}
	}

	return nil
}

// embeddingModelName returns the configured model for the active provider.
func embeddingModelName(cfg *config.Config) string {
	switch cfg.Embeddings.Provider {
	case "openai":
		return cfg.Embeddings.OpenAI.Model
	default:
		return cfg.Embeddings.Ollama.Model
	}
}
