package main

import (
	"fmt"
	"os"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/config"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/ledger"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/themes"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and limits files",
	Long:  `Validate the tvmon configuration file and the watch-time limits document for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}
	fmt.Printf("✅ Configuration is valid: %s\n", configPath)

	limits, err := config.LoadLimits(cfg.Limits.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Limits validation failed: %v\n", err)
		return err
	}
	fmt.Printf("✅ Limits are valid: %s\n", cfg.Limits.File)

	warnUnknownCategories(limits)
	return nil
}

// warnUnknownCategories flags limit keys that look like category IDs but are
// not in the taxonomy. Theme keys are free-form, so this is only a warning.
func warnUnknownCategories(limits ledger.Limits) {
	yellow := color.New(color.FgYellow)
	for _, period := range ledger.Periods() {
		for key := range limits.ForPeriod(period).Categories {
			if isNumeric(key) && themes.CategoryName(key) == "Unknown" {
				yellow.Printf("⚠️  %s limit key %q is not a known YouTube category ID\n", period, key)
			}
		}
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
