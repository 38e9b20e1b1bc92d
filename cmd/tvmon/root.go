package main

import (
	"fmt"
	"os"
	"time"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/config"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/storage"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/storage/bolt"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/storage/jsonfile"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/storage/redis"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tvmon",
	Short: "tvmon - YouTube watch-time monitor for Samsung TVs",
	Long: `tvmon watches the YouTube app on a Samsung Smart TV over the local
network, accounts watch time per theme or category against daily and weekly
limits, and announces an alert the moment a limit is exceeded.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to monitor command when no subcommand is provided
		return runMonitor(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to configuration file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// openStore opens the configured storage backend.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "bolt":
		return bolt.Open(cfg.Storage.Path)
	case "redis":
		return redis.Open(cfg.Redis)
	default:
		return jsonfile.Open(cfg.Storage.Path)
	}
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
