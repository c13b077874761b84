// Package cli implements the command-line interface for docvec.
package cli

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mfreitag/docvec/internal/config"
	"github.com/mfreitag/docvec/internal/ui"
)

var (
	// Version information set at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile string
	debug   bool
)

// SetVersionInfo sets the version information from build flags.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docvec [query]",
	Short: "Local document vector store and semantic search",
	Long: `docvec stores text documents as embedded chunks in a local vector store
and searches them by semantic similarity.

Embeddings come from local models (Ollama) or cloud providers (OpenAI).
The store is a plain directory: a SQLite index plus the original documents
and chunk texts as files.

Examples:
  # Add a document or a directory of documents
  docvec add notes.txt
  docvec add ./docs

  # Search stored documents
  docvec "how do I configure the proxy"

  # Ask a question answered from stored documents
  docvec ask "how do I configure the proxy"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no args, show help
		if len(args) == 0 {
			return cmd.Help()
		}

		// Otherwise, run search command
		return runSearchCmd(cmd, args)
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debug {
			log.SetLevel(log.DebugLevel)
			log.Debug("Debug logging enabled")
		}

		if err := config.Load(cfgFile); err != nil {
			log.Warn("Failed to load config", "error", err)
		}

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	ui.InitLogger()

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/docvec/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	// Add subcommands
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(versionCmd)

	// Search flags on the root command for the default action
	rootCmd.Flags().IntVarP(&searchLimit, "limit", "k", 10, "maximum number of results")
	rootCmd.Flags().BoolVarP(&searchContent, "content", "c", false, "show chunk content in results")
	rootCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("docvec %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}
