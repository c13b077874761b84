package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfreitag/docvec/internal/config"
	"github.com/mfreitag/docvec/internal/ui"
)

var configShowPath bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long: `Display current configuration settings and config file locations.

Examples:
  # Show current configuration
  docvec config

  # Show config file paths
  docvec config --path`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configShowPath, "path", false, "show config file paths")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configShowPath {
		fmt.Println(ui.Header.Render("Configuration Paths"))
		fmt.Println()
		fmt.Printf("Global config: %s\n", config.GlobalConfigPath())
		fmt.Printf("Active config: %s\n", config.ConfigFilePath())
		fmt.Printf("Store:         %s\n", config.Get().Store.Path)
		return nil
	}

	cfg := config.Get()

	fmt.Println(ui.Header.Render("Current Configuration"))
	fmt.Println()

	fmt.Println(ui.Bold.Render("Store:"))
	fmt.Printf("  Path: %s\n", cfg.Store.Path)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Chunking:"))
	fmt.Printf("  Strategy: %s\n", cfg.Chunking.Strategy)
	fmt.Printf("  Chunk Size: %d words\n", cfg.Chunking.ChunkSize)
	fmt.Printf("  Chunk Overlap: %d words\n", cfg.Chunking.ChunkOverlap)
	fmt.Printf("  Min Paragraph Words: %d\n", cfg.Chunking.MinParagraphWords)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Embeddings:"))
	fmt.Printf("  Provider: %s\n", cfg.Embeddings.Provider)
	fmt.Printf("  Ollama URL: %s\n", cfg.Embeddings.Ollama.URL)
	fmt.Printf("  Ollama Model: %s\n", cfg.Embeddings.Ollama.Model)
	fmt.Printf("  OpenAI Model: %s\n", cfg.Embeddings.OpenAI.Model)
	if cfg.Embeddings.OpenAI.BaseURL != "" {
		fmt.Printf("  OpenAI Base URL: %s\n", cfg.Embeddings.OpenAI.BaseURL)
	}
	fmt.Println()

	fmt.Println(ui.Bold.Render("LLM:"))
	fmt.Printf("  Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Ollama URL: %s\n", cfg.LLM.Ollama.URL)
	fmt.Printf("  Ollama Model: %s\n", cfg.LLM.Ollama.Model)
	fmt.Printf("  OpenAI Model: %s\n", cfg.LLM.OpenAI.Model)
	fmt.Printf("  Anthropic Model: %s\n", cfg.LLM.Anthropic.Model)
	fmt.Println()

	fmt.Println(ui.Bold.Render("RAG:"))
	fmt.Printf("  Min Similarity: %.2f\n", cfg.RAG.MinSimilarity)
	fmt.Printf("  Max Context Chunks: %d\n", cfg.RAG.MaxContextChunks)
	fmt.Printf("  Temperature: %.2f\n", cfg.RAG.Temperature)
	fmt.Printf("  Max Tokens: %d\n", cfg.RAG.MaxTokens)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Ingest:"))
	fmt.Printf("  Max File Size: %s\n", formatBytes(int64(cfg.Ingest.MaxFileSize)))
	fmt.Printf("  Max File Count: %d\n", cfg.Ingest.MaxFileCount)
	fmt.Printf("  Extensions: %v\n", cfg.Ingest.Extensions)
	fmt.Printf("  Ignore Patterns: %d configured\n", len(cfg.Ingest.Ignore))

	return nil
}
