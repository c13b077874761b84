// Package config handles configuration loading and validation for docvec.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Config represents the complete docvec configuration.
type Config struct {
	Store      StoreConfig      `mapstructure:"store"`
	Chunking   ChunkingConfig   `mapstructure:"chunking"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	LLM        LLMConfig        `mapstructure:"llm"`
	RAG        RAGConfig        `mapstructure:"rag"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
}

// StoreConfig configures the persistent vector store.
type StoreConfig struct {
	// Path is the store directory (index database plus blob directories).
	Path string `mapstructure:"path"`
}

// ChunkingConfig configures how documents are split before embedding.
type ChunkingConfig struct {
	Strategy          string `mapstructure:"strategy"` // "paragraph" or "window"
	ChunkSize         int    `mapstructure:"chunk_size"`
	ChunkOverlap      int    `mapstructure:"chunk_overlap"`
	MinParagraphWords int    `mapstructure:"min_paragraph_words"`
}

// EmbeddingsConfig configures the embedding service.
type EmbeddingsConfig struct {
	Provider string            `mapstructure:"provider"`
	Ollama   OllamaEmbedConfig `mapstructure:"ollama"`
	OpenAI   OpenAIEmbedConfig `mapstructure:"openai"`
}

// OllamaEmbedConfig configures Ollama embeddings.
type OllamaEmbedConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// OpenAIEmbedConfig configures OpenAI embeddings.
type OpenAIEmbedConfig struct {
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig configures the LLM used for answer generation and evaluation.
type LLMConfig struct {
	Provider  string          `mapstructure:"provider"`
	Ollama    OllamaLLMConfig `mapstructure:"ollama"`
	OpenAI    OpenAILLMConfig `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

// OllamaLLMConfig configures an Ollama chat model.
type OllamaLLMConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// OpenAILLMConfig configures an OpenAI chat model.
type OpenAILLMConfig struct {
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// AnthropicConfig configures an Anthropic chat model.
type AnthropicConfig struct {
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

// RAGConfig configures retrieval-augmented answer generation.
type RAGConfig struct {
	MinSimilarity    float64 `mapstructure:"min_similarity"`
	MaxContextChunks int     `mapstructure:"max_context_chunks"`
	Temperature      float64 `mapstructure:"temperature"`
	MaxTokens        int     `mapstructure:"max_tokens"`
}

// IngestConfig configures directory ingestion.
type IngestConfig struct {
	MaxFileSize  int      `mapstructure:"max_file_size"`
	MaxFileCount int      `mapstructure:"max_file_count"`
	Extensions   []string `mapstructure:"extensions"`
	Ignore       []string `mapstructure:"ignore"`
}

// Global configuration instance
var cfg *Config

// Get returns the current configuration.
func Get() *Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: DefaultStorePath(),
		},
		Chunking: ChunkingConfig{
			Strategy:          DefaultChunkStrategy,
			ChunkSize:         DefaultChunkSize,
			ChunkOverlap:      DefaultChunkOverlap,
			MinParagraphWords: DefaultMinParagraphWords,
		},
		Embeddings: EmbeddingsConfig{
			Provider: DefaultEmbeddingProvider,
			Ollama: OllamaEmbedConfig{
				URL:   DefaultOllamaURL,
				Model: DefaultOllamaEmbedModel,
			},
			OpenAI: OpenAIEmbedConfig{
				Model: DefaultOpenAIEmbedModel,
			},
		},
		LLM: LLMConfig{
			Provider: DefaultLLMProvider,
			Ollama: OllamaLLMConfig{
				URL:   DefaultOllamaURL,
				Model: DefaultOllamaLLMModel,
			},
			OpenAI: OpenAILLMConfig{
				Model: DefaultOpenAILLMModel,
			},
			Anthropic: AnthropicConfig{
				Model: DefaultAnthropicModel,
			},
		},
		RAG: RAGConfig{
			MinSimilarity:    DefaultRAGMinSimilarity,
			MaxContextChunks: DefaultRAGMaxContextChunks,
			Temperature:      DefaultRAGTemperature,
			MaxTokens:        DefaultRAGMaxTokens,
		},
		Ingest: IngestConfig{
			MaxFileSize:  DefaultMaxFileSize,
			MaxFileCount: DefaultMaxFileCount,
			Extensions:   DefaultExtensions(),
			Ignore:       DefaultIgnorePatterns(),
		},
	}
}

// Load reads configuration from file and environment variables.
func Load(configFile string) error {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(DefaultConfigDir())
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("DOCVEC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug("No config file found, using defaults")
	} else {
		log.Debug("Loaded config from", "file", viper.ConfigFileUsed())
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	loadAPIKeysFromEnv()

	return nil
}

// setDefaults sets default values in viper.
func setDefaults() {
	viper.SetDefault("store.path", DefaultStorePath())

	viper.SetDefault("chunking.strategy", DefaultChunkStrategy)
	viper.SetDefault("chunking.chunk_size", DefaultChunkSize)
	viper.SetDefault("chunking.chunk_overlap", DefaultChunkOverlap)
	viper.SetDefault("chunking.min_paragraph_words", DefaultMinParagraphWords)

	viper.SetDefault("embeddings.provider", DefaultEmbeddingProvider)
	viper.SetDefault("embeddings.ollama.url", DefaultOllamaURL)
	viper.SetDefault("embeddings.ollama.model", DefaultOllamaEmbedModel)
	viper.SetDefault("embeddings.openai.model", DefaultOpenAIEmbedModel)

	viper.SetDefault("llm.provider", DefaultLLMProvider)
	viper.SetDefault("llm.ollama.url", DefaultOllamaURL)
	viper.SetDefault("llm.ollama.model", DefaultOllamaLLMModel)
	viper.SetDefault("llm.openai.model", DefaultOpenAILLMModel)
	viper.SetDefault("llm.anthropic.model", DefaultAnthropicModel)

	viper.SetDefault("rag.min_similarity", DefaultRAGMinSimilarity)
	viper.SetDefault("rag.max_context_chunks", DefaultRAGMaxContextChunks)
	viper.SetDefault("rag.temperature", DefaultRAGTemperature)
	viper.SetDefault("rag.max_tokens", DefaultRAGMaxTokens)

	viper.SetDefault("ingest.max_file_size", DefaultMaxFileSize)
	viper.SetDefault("ingest.max_file_count", DefaultMaxFileCount)
	viper.SetDefault("ingest.extensions", DefaultExtensions())
	viper.SetDefault("ingest.ignore", DefaultIgnorePatterns())
}

// loadAPIKeysFromEnv loads API keys from environment variables if not set.
func loadAPIKeysFromEnv() {
	if cfg.Embeddings.OpenAI.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Embeddings.OpenAI.APIKey = key
		}
	}
	if cfg.LLM.OpenAI.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.LLM.OpenAI.APIKey = key
		}
	}
	if cfg.LLM.Anthropic.APIKey == "" {
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			cfg.LLM.Anthropic.APIKey = key
		}
	}
}

// ConfigFilePath returns the path of the loaded config file, or "".
func ConfigFilePath() string {
	return viper.ConfigFileUsed()
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}
