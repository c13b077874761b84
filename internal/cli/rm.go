package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfreitag/docvec/internal/config"
	"github.com/mfreitag/docvec/internal/ui"
)

// rmCmd represents the rm command
var rmCmd = &cobra.Command{
	Use:     "rm <name>...",
	Aliases: []string{"remove", "delete"},
	Short:   "Remove documents from the store",
	Long: `Remove stored documents by name, including every chunk and embedding.

Removing a name that is not in the store is not an error.

Examples:
  # Remove one document
  docvec rm notes.txt

  # Remove several
  docvec rm notes.txt report.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

func runRm(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	for _, name := range args {
		record, err := st.GetDocument(ctx, name)
		if err != nil {
			return err
		}
		if record == nil {
			fmt.Printf("%s %s (not in store)\n", ui.Dim.Render("Skipped"), name)
			continue
		}

		if err := st.Delete(ctx, name); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
		fmt.Printf("%s %s (%d chunks)\n", ui.Success.Render("Removed"), name, record.ChunkCount)
	}

	return nil
}
