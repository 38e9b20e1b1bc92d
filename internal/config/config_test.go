package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "tv:\n  host: 192.168.1.50\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.TV.Host != "192.168.1.50" {
		t.Errorf("tv.host = %q", cfg.TV.Host)
	}
	if cfg.TV.RestPort != 8001 || cfg.TV.WSPort != 8002 {
		t.Errorf("tv ports = %d/%d, want 8001/8002", cfg.TV.RestPort, cfg.TV.WSPort)
	}
	if cfg.Storage.Type != "jsonfile" || cfg.Storage.Path != "logs" {
		t.Errorf("storage defaults = %s/%s", cfg.Storage.Type, cfg.Storage.Path)
	}
	if cfg.Monitor.PollInterval != "5s" {
		t.Errorf("poll_interval = %q, want 5s", cfg.Monitor.PollInterval)
	}
	if cfg.Limits.File != "theme_limits.json" {
		t.Errorf("limits.file = %q", cfg.Limits.File)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Port != 9090 {
		t.Errorf("metrics defaults = %+v", cfg.Metrics)
	}
	if cfg.Classifier.Enabled {
		t.Error("classifier enabled by default, want disabled")
	}
	if !cfg.Alerts.Speech || len(cfg.Alerts.SpeechCommand) == 0 {
		t.Errorf("alert defaults = %+v", cfg.Alerts)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
tv:
  host: 10.0.0.5
  rest_port: 9001
storage:
  type: bolt
  path: /var/lib/tvmon/tvmon.db
classifier:
  enabled: true
  api_key: sk-test
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.TV.RestPort != 9001 {
		t.Errorf("rest_port = %d, want 9001", cfg.TV.RestPort)
	}
	if cfg.Storage.Type != "bolt" {
		t.Errorf("storage.type = %q, want bolt", cfg.Storage.Type)
	}
	if !cfg.Classifier.Enabled || cfg.Classifier.APIKey != "sk-test" {
		t.Errorf("classifier = %+v", cfg.Classifier)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown storage type", "storage:\n  type: cassandra\n"},
		{"missing storage path", "storage:\n  type: bolt\n  path: \"\"\n"},
		{"bad metrics port", "metrics:\n  port: 99999\n"},
		{"speech without command", "alerts:\n  speech: true\n  speech_command: []\n"},
		{"malformed tv timeout", "tv:\n  timeout: 5 sec\n"},
		{"malformed poll interval", "monitor:\n  poll_interval: soon\n"},
		{"malformed redis timeout", "redis:\n  dial_timeout: never\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("Load() with invalid config did not error")
			}
		})
	}
}
