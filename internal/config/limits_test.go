package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadLimitsWritesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme_limits.json")

	limits, err := LoadLimits(path)
	if err != nil {
		t.Fatalf("LoadLimits() error: %v", err)
	}
	if limits.Daily.Total != 7200 {
		t.Errorf("daily total = %v, want 7200", limits.Daily.Total)
	}
	if limits.Weekly.Total != 28800 {
		t.Errorf("weekly total = %v, want 28800", limits.Weekly.Total)
	}
	if limits.Daily.Categories["20"] != 1800 {
		t.Errorf("daily gaming limit = %v, want 1800", limits.Daily.Categories["20"])
	}

	// The defaults were persisted and load back identically.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("defaults file not written: %v", err)
	}
	reloaded, err := LoadLimits(path)
	if err != nil {
		t.Fatalf("LoadLimits() reload error: %v", err)
	}
	if reloaded.Daily.Total != limits.Daily.Total {
		t.Errorf("reloaded daily total = %v, want %v", reloaded.Daily.Total, limits.Daily.Total)
	}
}

func TestLoadLimitsReadsCustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme_limits.json")
	content := `{
		"daily": {"total": 3600, "categories": {"baseball": 1200}},
		"weekly": {"total": 14400, "categories": {}}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	limits, err := LoadLimits(path)
	if err != nil {
		t.Fatalf("LoadLimits() error: %v", err)
	}
	if limits.Daily.Total != 3600 {
		t.Errorf("daily total = %v, want 3600", limits.Daily.Total)
	}
	if limits.Daily.Categories["baseball"] != 1200 {
		t.Errorf("baseball limit = %v, want 1200", limits.Daily.Categories["baseball"])
	}
}

func TestLoadLimitsRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme_limits.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	// A malformed limits document is a configuration error, never silently
	// replaced with defaults.
	if _, err := LoadLimits(path); err == nil {
		t.Error("LoadLimits() with malformed file did not error")
	}
}

func TestLoadLimitsRejectsNegativeValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme_limits.json")
	content := `{"daily": {"total": -1, "categories": {}}, "weekly": {"total": 0, "categories": {}}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadLimits(path); err == nil {
		t.Error("LoadLimits() with negative limit did not error")
	}
}
