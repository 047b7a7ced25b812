// Package cli wires configuration, logging and the services into the
// speedydraft commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.io/infrasutra/speedydraft/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "speedydraft",
	Short: "Local server for statement mailing drafts",
	Long: `speedydraft manages email templates and sender accounts, harvests email
addresses from PDF statements and builds unsent .eml drafts with the PDF attached.

Examples:
  speedydraft serve                     # run the HTTP API
  speedydraft extract ~/Statements      # print addresses found in a folder
  speedydraft sweep                     # purge expired uploads and drafts`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML configuration file (optional)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(sweepCmd)
}

// loadConfig reads .env, then the YAML file when one was given, then the environment.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, newLogger(cfg.Logging, os.Stderr), nil
}
