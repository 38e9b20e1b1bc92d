package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/ledger"
)

// defaultLimits is written on first run when no limits document exists:
// two hours of total daily watching, eight weekly, with per-category caps
// keyed by YouTube category ID.
func defaultLimits() ledger.Limits {
	return ledger.Limits{
		Daily: ledger.PeriodLimits{
			Total: 7200,
			Categories: map[string]float64{
				"10": 1800, // Music
				"17": 1800, // Sports
				"20": 1800, // Gaming
				"24": 1800, // Entertainment
				"25": 1800, // News & Politics
				"28": 3600, // Science & Technology
			},
		},
		Weekly: ledger.PeriodLimits{
			Total: 28800,
			Categories: map[string]float64{
				"20": 7200, // Gaming
			},
		},
	}
}

// LoadLimits reads the watch-time limits document. A missing file is
// initialized with defaults; a malformed file is a fatal configuration
// error. The document is immutable for the process lifetime.
func LoadLimits(path string) (ledger.Limits, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		limits := defaultLimits()
		if err := writeLimits(path, limits); err != nil {
			return ledger.Limits{}, fmt.Errorf("write default limits: %w", err)
		}
		return limits, nil
	}
	if err != nil {
		return ledger.Limits{}, fmt.Errorf("read limits file: %w", err)
	}

	var limits ledger.Limits
	if err := json.Unmarshal(data, &limits); err != nil {
		return ledger.Limits{}, fmt.Errorf("malformed limits file %s: %w", path, err)
	}

	if err := validateLimits(limits); err != nil {
		return ledger.Limits{}, fmt.Errorf("invalid limits file %s: %w", path, err)
	}
	return limits, nil
}

func validateLimits(limits ledger.Limits) error {
	for _, period := range ledger.Periods() {
		pl := limits.ForPeriod(period)
		if pl.Total < 0 {
			return fmt.Errorf("%s total limit is negative", period)
		}
		for key, limit := range pl.Categories {
			if limit < 0 {
				return fmt.Errorf("%s limit for %q is negative", period, key)
			}
		}
	}
	return nil
}

func writeLimits(path string, limits ledger.Limits) error {
	data, err := json.MarshalIndent(limits, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
