// Package main provides the docent-eval binary: batch retrieval-quality
// evaluation, corpus index building and chunk maintenance for the Korean
// history Q&A corpus.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docentsearch/docent-eval/internal/config"
	"github.com/docentsearch/docent-eval/internal/dataset"
	"github.com/docentsearch/docent-eval/internal/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docent-eval",
		Short: "Docent Eval - retrieval quality evaluation pipeline",
		Long: `Docent Eval measures retrieval and reranking quality over the Korean
history Q&A dataset: Hit@k, MRR and nDCG before and after reranking.

Run 'docent-eval evaluate' to execute a batch evaluation run.
Run 'docent-eval index build' to build the chunk collection.
Run 'docent-eval chunks --help' for corpus maintenance commands.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(
		evaluateCmd(),
		indexCmd(),
		chunksCmd(),
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("docent-eval %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}

// loadSetup loads configuration and builds the logger shared by every
// subcommand. The verbose flag forces debug level regardless of config.
func loadSetup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := cfg.Log.Level
	if verbose {
		logLevel = "debug"
	}
	log := logger.New(logLevel, cfg.Log.Format)

	return cfg, log, nil
}

// loadQuestions picks the question-set format by extension.
func loadQuestions(path string) ([]dataset.Question, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return dataset.LoadQuestionsYAML(path)
	default:
		return dataset.LoadQuestionsJSON(path)
	}
}
