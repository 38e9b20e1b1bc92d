package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/config"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/ledger"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/themes"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show watch-time statistics",
	Long:  `Show all-time, daily and weekly watch time per tracking key against the configured limits.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	limits, err := config.LoadLimits(cfg.Limits.File)
	if err != nil {
		return fmt.Errorf("load limits: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	ldg, err := ledger.New(ctx, store.Watch(), limits, ledger.RealClock{}, zerolog.Nop())
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	snapshot := ldg.Report(time.Now())
	printSnapshot(snapshot)
	return nil
}

func printSnapshot(s *ledger.Snapshot) {
	header := color.New(color.FgCyan, color.Bold)
	over := color.New(color.FgRed, color.Bold)

	header.Println("Watch time")
	fmt.Printf("  all time: %s across %d videos\n", s.AllTimeFormatted, s.VideoCount)
	for _, period := range ledger.Periods() {
		printPeriodValue("  "+string(period), s.Totals[period], over)
	}

	if len(s.Keys) == 0 {
		return
	}

	header.Println("\nBy key")
	for _, key := range s.Keys {
		fmt.Printf("  %s: %s (%d videos)\n",
			themes.KeyDisplayName(key.Key), key.AllTimeFormatted, key.VideoCount)
		for _, period := range ledger.Periods() {
			printPeriodValue("    "+string(period), key.Periods[period], over)
		}
	}
}

func printPeriodValue(label string, pv ledger.PeriodValue, overColor *color.Color) {
	if pv.Limit == 0 {
		fmt.Printf("%s: %s\n", label, pv.Formatted)
		return
	}
	line := fmt.Sprintf("%s: %s of %s (%.0f%%)", label, pv.Formatted, ledger.FormatSeconds(pv.Limit), pv.Percent)
	if pv.Over {
		overColor.Println(line + "  OVER LIMIT")
		return
	}
	fmt.Println(line)
}
