package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/caseclicker-orchestrator/internal/factory"
	"github.com/mcoot/caseclicker-orchestrator/internal/logging"
)

var cfg *Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "orchestrator",
		Short: "Drives case-clicker accounts through their progression phases",
		Long: `orchestrator runs the resumable progression engine for one account at a time.

An account moves through a timed click window, case cycling until trading
unlocks, and case cycling until the target rank. Progress is persisted after
every phase change, so a restarted run resumes where the last one stopped.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.StorageType, "storage", cfg.StorageType, "State backend: file, memory, redis (env: STORAGE_TYPE)")
	rootCmd.PersistentFlags().StringVar(&cfg.StateFile, "state-file", cfg.StateFile, "State document path for the file backend (env: STATE_FILE)")
	rootCmd.PersistentFlags().StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL for the redis backend (env: REDIS_URL)")
	rootCmd.PersistentFlags().StringVar(&cfg.AccountsFile, "accounts-file", cfg.AccountsFile, "Account credentials file (env: ACCOUNTS_FILE)")
	rootCmd.PersistentFlags().StringVar(&cfg.BaseURL, "api-url", cfg.BaseURL, "Game API base URL (env: GAME_API_URL)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json, text (env: LOG_FORMAT)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().IntVar(&cfg.RetryAttempts, "retry-attempts", cfg.RetryAttempts, "Retries after a rate-limited call (env: RETRY_ATTEMPTS)")
	rootCmd.PersistentFlags().DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "Base retry delay, doubled per retry (env: RETRY_DELAY)")
	rootCmd.PersistentFlags().IntVar(&cfg.RateLimitStatus, "rate-limit-status", cfg.RateLimitStatus, "HTTP status treated as rate limiting (env: RATE_LIMIT_STATUS)")

	// Add subcommands
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newSellCmd())
	rootCmd.AddCommand(newAccountsCmd())
	rootCmd.AddCommand(newHashTokenCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp wires the application from the CLI settings
func newApp(ring *logging.Ring) (*factory.App, error) {
	factoryCfg, err := cfg.FactoryConfig(ring)
	if err != nil {
		return nil, err
	}
	return factory.New(factoryCfg)
}

func newLogger(c *Config, ring *logging.Ring) *slog.Logger {
	logger := logging.New(os.Stdout, logging.Options{
		Level:  logging.ParseLevel(c.LogLevel),
		Format: c.LogFormat,
		Ring:   ring,
	})
	slog.SetDefault(logger)
	return logger
}
