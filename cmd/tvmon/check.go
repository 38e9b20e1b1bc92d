package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/config"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/storage"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/themes"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/tv"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/youtube"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	checkVideoID   string
	checkRemoteKey string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check connectivity to the TV and external APIs",
	Long:  `Check each dependency tvmon needs at runtime: the TV, the YouTube API, the theme classifier and storage.`,
	RunE:  runCheckAll,
}

var checkTVCmd = &cobra.Command{
	Use:   "tv",
	Short: "Check the TV connection",
	RunE:  runCheckTV,
}

var checkYouTubeCmd = &cobra.Command{
	Use:   "youtube",
	Short: "Check the YouTube API",
	RunE:  runCheckYouTube,
}

var checkClassifierCmd = &cobra.Command{
	Use:   "classifier",
	Short: "Check the theme classifier API",
	RunE:  runCheckClassifier,
}

var checkStorageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Check the storage backend",
	RunE:  runCheckStorage,
}

var checkRemoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Check the remote-control channel",
	Long: `Open the TV's remote-control websocket channel. The first run triggers an
on-screen pairing prompt; accept it on the TV and the token is stored for
future connections.`,
	RunE: runCheckRemote,
}

func init() {
	checkYouTubeCmd.Flags().StringVar(&checkVideoID, "video-id", "dQw4w9WgXcQ", "Video ID to look up")
	checkRemoteCmd.Flags().StringVar(&checkRemoteKey, "key", "", "Optional remote key to send, e.g. KEY_INFO")
	checkCmd.AddCommand(checkTVCmd)
	checkCmd.AddCommand(checkYouTubeCmd)
	checkCmd.AddCommand(checkClassifierCmd)
	checkCmd.AddCommand(checkStorageCmd)
	checkCmd.AddCommand(checkRemoteCmd)
	rootCmd.AddCommand(checkCmd)
}

var (
	checkOK   = color.New(color.FgGreen, color.Bold)
	checkFail = color.New(color.FgRed, color.Bold)
)

func runCheckAll(cmd *cobra.Command, args []string) error {
	var firstErr error
	for _, step := range []func(*cobra.Command, []string) error{
		runCheckStorage, runCheckTV, runCheckYouTube, runCheckClassifier,
	} {
		if err := step(cmd, args); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func runCheckTV(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	client, err := tv.NewClient(tv.Config{
		Host:      cfg.TV.Host,
		RestPort:  cfg.TV.RestPort,
		WSPort:    cfg.TV.WSPort,
		Name:      cfg.TV.Name,
		TokenFile: cfg.TV.TokenFile,
		Timeout:   parseDuration(cfg.TV.Timeout, 5*time.Second),
	}, zerolog.Nop())
	if err != nil {
		checkFail.Printf("✗ TV: %v\n", err)
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	info, err := client.DeviceInfo(ctx)
	if err != nil {
		checkFail.Printf("✗ TV: %v\n", err)
		return err
	}
	checkOK.Printf("✓ TV: %s (%s)\n", info.Name, info.Device.ModelName)

	app, err := client.RunningApp(ctx)
	if err != nil {
		fmt.Printf("  foreground app unavailable: %v\n", err)
		return nil
	}
	fmt.Printf("  foreground app: %s\n", app.Title)
	if id := tv.ExtractVideoID(app.URL); id != "" {
		fmt.Printf("  playing video: %s\n", id)
	}
	return nil
}

func runCheckYouTube(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		checkFail.Printf("✗ YouTube: storage: %v\n", err)
		return err
	}
	defer func() { _ = store.Close() }()

	client, err := youtube.NewClient(youtube.Config{
		APIKey:    cfg.YouTube.APIKey,
		BaseURL:   cfg.YouTube.BaseURL,
		Timeout:   parseDuration(cfg.YouTube.Timeout, 10*time.Second),
		CacheSize: cfg.YouTube.CacheSize,
	}, store.Videos(), zerolog.Nop())
	if err != nil {
		checkFail.Printf("✗ YouTube: %v\n", err)
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	video, err := client.Video(ctx, checkVideoID)
	if err != nil {
		checkFail.Printf("✗ YouTube: %v\n", err)
		return err
	}
	checkOK.Printf("✓ YouTube: %q (%s)\n", video.Title, themes.CategoryName(video.CategoryID))
	return nil
}

func runCheckClassifier(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !cfg.Classifier.Enabled {
		fmt.Println("- Classifier: disabled")
		return nil
	}

	store, err := openStore(cfg)
	if err != nil {
		checkFail.Printf("✗ Classifier: storage: %v\n", err)
		return err
	}
	defer func() { _ = store.Close() }()

	classifier, err := themes.NewClassifier(themes.Config{
		APIKey:    cfg.Classifier.APIKey,
		BaseURL:   cfg.Classifier.BaseURL,
		Model:     cfg.Classifier.Model,
		Timeout:   parseDuration(cfg.Classifier.Timeout, 30*time.Second),
		Retries:   1,
		CacheSize: cfg.Classifier.CacheSize,
	}, store.Themes(), zerolog.Nop())
	if err != nil {
		checkFail.Printf("✗ Classifier: %v\n", err)
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	theme, err := classifier.Classify(ctx, "MLB Highlights: Yankees vs Red Sox", "Full game highlights")
	if err != nil {
		checkFail.Printf("✗ Classifier: %v\n", err)
		return err
	}
	checkOK.Printf("✓ Classifier: test video classified as %q\n", theme)
	return nil
}

func runCheckRemote(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	client, err := tv.NewClient(tv.Config{
		Host:      cfg.TV.Host,
		RestPort:  cfg.TV.RestPort,
		WSPort:    cfg.TV.WSPort,
		Name:      cfg.TV.Name,
		TokenFile: cfg.TV.TokenFile,
		Timeout:   parseDuration(cfg.TV.Timeout, 5*time.Second),
	}, zerolog.Nop())
	if err != nil {
		checkFail.Printf("✗ Remote: %v\n", err)
		return err
	}

	fmt.Println("Opening remote channel (accept the pairing prompt on the TV if shown)...")
	ctx, cancel := context.WithTimeout(cmd.Context(), 45*time.Second)
	defer cancel()

	remote, err := client.OpenRemote(ctx)
	if err != nil {
		checkFail.Printf("✗ Remote: %v\n", err)
		return err
	}
	defer func() { _ = remote.Close() }()

	if checkRemoteKey != "" {
		if err := remote.SendKey(checkRemoteKey); err != nil {
			checkFail.Printf("✗ Remote: %v\n", err)
			return err
		}
		fmt.Printf("  sent %s\n", checkRemoteKey)
	}
	checkOK.Println("✓ Remote: channel connected, token stored")
	return nil
}

func runCheckStorage(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		checkFail.Printf("✗ Storage (%s): %v\n", cfg.Storage.Type, err)
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	if _, err := store.Watch().LoadResetTimestamps(ctx); err != nil && !errors.Is(err, storage.ErrNotFound) {
		checkFail.Printf("✗ Storage (%s): %v\n", cfg.Storage.Type, err)
		return err
	}
	checkOK.Printf("✓ Storage: %s\n", cfg.Storage.Type)
	return nil
}
