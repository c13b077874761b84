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
	"github.com/mfreitag/docvec/internal/ingest"
	"github.com/mfreitag/docvec/internal/store"
	"github.com/mfreitag/docvec/internal/ui"
)

var addName string

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Add documents to the store",
	Long: `Add text files or directories of text files to the vector store.

Each document is chunked, embedded and persisted. Documents already in the
store are skipped; remove them first to re-add with new content.

Examples:
  # Add a single file
  docvec add notes.txt

  # Add a file under a different name
  docvec add notes.txt --name meeting-notes

  # Add every text file under a directory
  docvec add ./docs`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "store the document under this name (single file only)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	if addName != "" && len(args) > 1 {
		return fmt.Errorf("--name only applies to a single file")
	}

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

	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot add %s: %w", path, err)
		}

		if info.IsDir() {
			if err := addDirectory(ctx, cfg, st, path); err != nil {
				return err
			}
			continue
		}

		if err := addFile(ctx, cfg, st, path); err != nil {
			return err
		}
	}

	return nil
}

func addFile(ctx context.Context, cfg *config.Config, st store.Store, path string) error {
	if addName != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := st.Put(ctx, addName, string(content)); err != nil {
			return fmt.Errorf("failed to store %s: %w", addName, err)
		}
		fmt.Printf("%s %s\n", ui.Success.Render("Added"), addName)
		return nil
	}

	ing := ingest.New(st, ingest.WalkOptionsFromConfig(cfg, "."))
	added, err := ing.IngestFile(ctx, path)
	if err != nil {
		return err
	}
	if added {
		fmt.Printf("%s %s\n", ui.Success.Render("Added"), path)
	} else {
		fmt.Printf("%s %s (already stored)\n", ui.Dim.Render("Skipped"), path)
	}
	return nil
}

func addDirectory(ctx context.Context, cfg *config.Config, st store.Store, dir string) error {
	log.Debug("Ingesting directory", "dir", dir)

	stopSpinner := make(chan struct{})
	spinnerDone := make(chan struct{})
	go showSpinner("Adding documents", stopSpinner, spinnerDone)

	ing := ingest.New(st, ingest.WalkOptionsFromConfig(cfg, dir))
	summary, err := ing.IngestDirectory(ctx, dir, nil)

	close(stopSpinner)
	<-spinnerDone

	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to ingest %s: %w", dir, err)
	}

	fmt.Printf("%s %d added, %d skipped, %d failed (%s)\n",
		ui.Success.Render("Done:"),
		summary.Added, summary.Skipped, summary.Failed,
		formatBytes(summary.TotalBytes),
	)
	return nil
}
