// Package cli wires the ragchat commands: serve runs the HTTP API, search and
// chat run a single request against the configured providers.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/config"
	logpkg "github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/version"
)

var (
	envName string
	cfgFile string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ragchat",
	Short: "Retrieval-augmented chat over a vector index",
	Long: `ragchat embeds a query, fetches nearest neighbors from a vector index,
reranks them and answers chat messages grounded on the retrieved passages.

Example usage:
  ragchat serve                          # Run the HTTP API
  ragchat search -q "what is MONAI"      # Run the retrieval pipeline once
  ragchat chat -m "what is MONAI" -k 5   # Ask a question`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.Date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.LoadFrom(cfgFile)
		} else {
			cfg, err = config.Load(envName)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = logpkg.NewLogger(envName, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(), "environment: local, dev, docker, prod (selects config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "explicit config file, overrides --env lookup")
}
