package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hms/hms/internal/config"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:           "hms-server",
		Short:         "Hospital management API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		logger := newLogger(os.Stderr, os.Getenv("ENV"))
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// newLogger writes JSON lines, or console output in development.
func newLogger(w io.Writer, env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// loadConfig reads and validates configuration, then builds the logger
// for the configured environment.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, newLogger(os.Stderr, os.Getenv("ENV")), err
	}
	logger := newLogger(os.Stderr, cfg.Env)
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	return cfg, logger, nil
}
