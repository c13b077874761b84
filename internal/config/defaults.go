package config

import (
	"os"
	"path/filepath"
)

// Default configuration values
const (
	// Chunking defaults. Sizes are word counts, not characters.
	DefaultChunkStrategy     = "paragraph"
	DefaultChunkSize         = 1000
	DefaultChunkOverlap      = 200
	DefaultMinParagraphWords = 100

	// Embedding defaults
	DefaultEmbeddingProvider = "ollama"
	DefaultOllamaURL         = "http://localhost:11434"
	DefaultOllamaEmbedModel  = "nomic-embed-text"
	DefaultOpenAIEmbedModel  = "text-embedding-3-small"

	// LLM defaults
	DefaultLLMProvider    = "ollama"
	DefaultOllamaLLMModel = "llama3"
	DefaultOpenAILLMModel = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-haiku-20240307"

	// RAG defaults
	DefaultRAGMinSimilarity    = 0.5
	DefaultRAGMaxContextChunks = 50
	DefaultRAGTemperature      = 0.3
	DefaultRAGMaxTokens        = 2048

	// Ingest defaults
	DefaultMaxFileSize  = 4 << 20 // 4MB
	DefaultMaxFileCount = 10000
)

// DefaultExtensions returns the file extensions ingested from directories.
func DefaultExtensions() []string {
	return []string{".txt", ".md", ".rst", ".text"}
}

// DefaultIgnorePatterns returns the default ingestion ignore patterns.
func DefaultIgnorePatterns() []string {
	return []string{
		".git/",
		".svn/",
		"node_modules/",
		"vendor/",
		"dist/",
		"build/",
		".idea/",
		".vscode/",
		".DS_Store",
		"Thumbs.db",
		"*.swp",
		"*~",
		"*.log",
	}
}

// DefaultConfigDir returns the default configuration directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/docvec"
	}
	return filepath.Join(home, ".config", "docvec")
}

// DefaultDataDir returns the default data directory path.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".local/share/docvec"
	}
	return filepath.Join(home, ".local", "share", "docvec")
}

// DefaultStorePath returns the default vector store directory.
func DefaultStorePath() string {
	return filepath.Join(DefaultDataDir(), "store")
}
