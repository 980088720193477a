// Package main implements the eventscout CLI for running discovery and
// extraction by hand against the configured language model.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lnup/eventscout/internal/config"
	"github.com/lnup/eventscout/internal/enrichment"
	"github.com/lnup/eventscout/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// verbose switches logging to debug text output on stderr
	verbose bool
	version = "dev"

	// newGenerator is replaced in tests.
	newGenerator = func(cfg config.LLMConfig, logger *slog.Logger) enrichment.Generator {
		return enrichment.NewGenerator(cfg, logger, nil, nil)
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "eventscout",
	Short: "Run event discovery and extraction from the command line",
	Long: `eventscout runs the AI event pipeline outside the server.
It reads the same environment (or .env file) as the API server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline activity to stderr")
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(tokenCmd)
}

// loadEnv returns the config and a logger that writes to stderr, so command
// output on stdout stays clean.
func loadEnv(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	if !verbose {
		return cfg, logging.Discard(), nil
	}
	logger, err := logging.NewWithWriter(config.LoggingConfig{Level: slog.LevelDebug, Format: "text"}, cmd.ErrOrStderr())
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
