package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/session/filerepo"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "sessiond",
	Short: "Local session agent for the wellness web client",
	Long: `sessiond holds the signed in session for the wellness web client. It serves the
client routes, keeps the access token fresh in the background and forwards API
calls with a valid bearer token.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// ExecuteContext runs the root command
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logoutCmd)
}

// newLogger writes human readable output in DEV and JSON everywhere else
func newLogger(cfg config.EnvConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}

	logger := zerolog.New(os.Stderr)
	if cfg.GetEnv() == "DEV" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger.Level(level).With().Timestamp().Str("app", cfg.GetAppName()).Logger(), nil
}

func openRepo(cfg config.Config) (*filerepo.FileSessionRepo, error) {
	repo, err := filerepo.New(cfg.GetDataFolder(), filerepo.WithPassphrase(cfg.GetStorageKey()))
	if err != nil {
		return nil, fmt.Errorf("open session storage: %w", err)
	}
	return repo, nil
}
