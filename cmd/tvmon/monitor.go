package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/alert"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/config"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/ledger"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/metrics"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/monitor"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/systemd"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/themes"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/tv"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/youtube"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Start the TV monitor",
	Long:  `Start the polling loop that tracks YouTube watch time on the TV and fires limit alerts.`,
	RunE:  runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting tvmon")

	// Initialize storage
	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().Str("type", cfg.Storage.Type).Msg("Storage initialized")

	// Load watch-time limits
	limits, err := config.LoadLimits(cfg.Limits.File)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load watch-time limits")
	}

	logger.Info().Str("file", cfg.Limits.File).Msg("Watch-time limits loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize ledger
	clock := ledger.RealClock{}
	ldg, err := ledger.New(ctx, store.Watch(), limits, clock, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize ledger")
	}

	logger.Info().Msg("Ledger initialized")

	// Initialize TV client
	tvClient, err := tv.NewClient(tv.Config{
		Host:      cfg.TV.Host,
		RestPort:  cfg.TV.RestPort,
		WSPort:    cfg.TV.WSPort,
		Name:      cfg.TV.Name,
		TokenFile: cfg.TV.TokenFile,
		Timeout:   parseDuration(cfg.TV.Timeout, 5*time.Second),
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize TV client")
	}

	// Initialize YouTube client
	ytClient, err := youtube.NewClient(youtube.Config{
		APIKey:    cfg.YouTube.APIKey,
		BaseURL:   cfg.YouTube.BaseURL,
		Timeout:   parseDuration(cfg.YouTube.Timeout, 10*time.Second),
		CacheSize: cfg.YouTube.CacheSize,
	}, store.Videos(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize YouTube client")
	}

	// Initialize theme classifier when enabled; otherwise watch time is
	// tracked per YouTube category ID.
	var classifier monitor.ThemeSource
	if cfg.Classifier.Enabled {
		c, err := themes.NewClassifier(themes.Config{
			APIKey:    cfg.Classifier.APIKey,
			BaseURL:   cfg.Classifier.BaseURL,
			Model:     cfg.Classifier.Model,
			Timeout:   parseDuration(cfg.Classifier.Timeout, 30*time.Second),
			Retries:   cfg.Classifier.Retries,
			CacheSize: cfg.Classifier.CacheSize,
		}, store.Themes(), logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize theme classifier")
		}
		classifier = c
		logger.Info().Str("model", cfg.Classifier.Model).Msg("Theme classifier enabled")
	} else {
		logger.Info().Msg("Theme classifier disabled, tracking by category ID")
	}

	// Build alert sinks. The log sink is always on.
	sinks := []alert.Dispatcher{alert.NewLogDispatcher(logger)}
	if cfg.Alerts.Speech {
		speech, err := alert.NewSpeechDispatcher(cfg.Alerts.SpeechCommand, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize speech alerts")
		}
		sinks = append(sinks, speech)
	}
	if cfg.Alerts.Desktop {
		sinks = append(sinks, alert.NewDesktopDispatcher(logger))
	}
	dispatcher := alert.NewMultiDispatcher(logger, sinks...)

	// Start metrics server
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Metrics.BindAddress, cfg.Metrics.Port)
		metricsServer = metrics.NewServer(metricsAddr, logger)

		ln, err := systemd.MetricsListener()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to get systemd listeners")
		}
		if ln != nil {
			err = metricsServer.StartListener(ln)
		} else {
			err = metricsServer.Start()
		}
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to start metrics server")
		}
	}

	mon := monitor.New(monitor.Config{
		PollInterval:       parseDuration(cfg.Monitor.PollInterval, 5*time.Second),
		MinSessionDuration: parseDuration(cfg.Monitor.MinSessionDuration, 10*time.Second),
	}, tvClient, ytClient, classifier, ldg, store.Videos(), dispatcher, clock, logger)

	// Notify systemd that we're ready
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	}

	logger.Info().Str("tv", cfg.TV.Host).Msg("tvmon startup complete")

	err = mon.Run(ctx)
	stop()

	logger.Info().Msg("Shutdown signal received, gracefully stopping...")

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	logger.Info().Msg("tvmon stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
