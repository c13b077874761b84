package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/mfreitag/docvec/internal/chunker"
	"github.com/mfreitag/docvec/internal/config"
	"github.com/mfreitag/docvec/internal/embeddings"
	"github.com/mfreitag/docvec/internal/store"
	"github.com/mfreitag/docvec/internal/ui"
)

// openStore wires the configured chunker and embedding service into a store
// opened at the configured path.
func openStore(cfg *config.Config) (store.Store, error) {
	embedder, err := embeddings.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}

	splitter, err := chunker.New(chunker.Options{
		Strategy:          chunker.Strategy(cfg.Chunking.Strategy),
		ChunkSize:         cfg.Chunking.ChunkSize,
		ChunkOverlap:      cfg.Chunking.ChunkOverlap,
		MinParagraphWords: cfg.Chunking.MinParagraphWords,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid chunking configuration: %w", err)
	}

	st, err := store.Open(cfg.Store.Path, embedder, splitter)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

// showSpinner displays an animated spinner until stopCh is closed.
func showSpinner(message string, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	defer close(doneCh)

	i := 0
	for {
		select {
		case <-stopCh:
			// Clear spinner line
			fmt.Print("\r\033[2K")
			return
		case <-ticker.C:
			fmt.Printf("\r%s %s", ui.Highlight.Render(frames[i]), message)
			i = (i + 1) % len(frames)
		}
	}
}

// renderMarkdown renders markdown content using glamour.
func renderMarkdown(content string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(content)
}

// formatBytes renders a byte count in a human unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
