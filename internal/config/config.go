package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	TV         TVConfig         `mapstructure:"tv"`
	YouTube    YouTubeConfig    `mapstructure:"youtube"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Limits     LimitsConfig     `mapstructure:"limits"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Alerts     AlertConfig      `mapstructure:"alerts"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// TVConfig defines how to reach the TV.
type TVConfig struct {
	Host      string `mapstructure:"host"`
	RestPort  int    `mapstructure:"rest_port"`
	WSPort    int    `mapstructure:"ws_port"`
	Name      string `mapstructure:"name"`       // name announced on the remote channel
	TokenFile string `mapstructure:"token_file"` // pairing token persisted here
	Timeout   string `mapstructure:"timeout"`
}

// YouTubeConfig defines the video metadata API client.
type YouTubeConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Timeout   string `mapstructure:"timeout"`
	CacheSize int    `mapstructure:"cache_size"`
}

// ClassifierConfig defines the theme classification client. When disabled,
// watch time is tracked per YouTube category ID instead of per theme.
type ClassifierConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	Timeout   string `mapstructure:"timeout"`
	Retries   int    `mapstructure:"retries"`
	CacheSize int    `mapstructure:"cache_size"`
}

// StorageConfig defines the storage backend.
type StorageConfig struct {
	Type string `mapstructure:"type"` // jsonfile, bolt, redis
	Path string `mapstructure:"path"` // directory (jsonfile) or db file (bolt)
}

// RedisConfig defines Redis connection settings for the redis backend.
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LimitsConfig points at the watch-time limits document.
type LimitsConfig struct {
	File string `mapstructure:"file"`
}

// MonitorConfig defines the polling loop.
type MonitorConfig struct {
	PollInterval       string `mapstructure:"poll_interval"`
	MinSessionDuration string `mapstructure:"min_session_duration"`
}

// AlertConfig defines alert sinks.
type AlertConfig struct {
	Speech        bool     `mapstructure:"speech"`
	SpeechCommand []string `mapstructure:"speech_command"` // TTS binary + args, message appended
	Desktop       bool     `mapstructure:"desktop"`
}

// MetricsConfig defines the Prometheus endpoint.
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	Port        int    `mapstructure:"port"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix("TVMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// TV defaults
	v.SetDefault("tv.rest_port", 8001)
	v.SetDefault("tv.ws_port", 8002)
	v.SetDefault("tv.name", "tvmon")
	v.SetDefault("tv.token_file", "logs/tv_token.txt")
	v.SetDefault("tv.timeout", "5s")

	// YouTube defaults
	v.SetDefault("youtube.base_url", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("youtube.timeout", "10s")
	v.SetDefault("youtube.cache_size", 256)

	// Classifier defaults
	v.SetDefault("classifier.enabled", false)
	v.SetDefault("classifier.base_url", "https://api.openai.com/v1")
	v.SetDefault("classifier.model", "gpt-4-turbo")
	v.SetDefault("classifier.timeout", "30s")
	v.SetDefault("classifier.retries", 3)
	v.SetDefault("classifier.cache_size", 512)

	// Storage defaults
	v.SetDefault("storage.type", "jsonfile")
	v.SetDefault("storage.path", "logs")

	// Redis defaults
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// Limits defaults
	v.SetDefault("limits.file", "theme_limits.json")

	// Monitor defaults
	v.SetDefault("monitor.poll_interval", "5s")
	v.SetDefault("monitor.min_session_duration", "10s")

	// Alert defaults
	v.SetDefault("alerts.speech", true)
	v.SetDefault("alerts.speech_command", []string{"espeak"})
	v.SetDefault("alerts.desktop", false)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.bind_address", "0.0.0.0")
	v.SetDefault("metrics.port", 9090)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validate validates the configuration.
func validate(cfg *Config) error {
	switch cfg.Storage.Type {
	case "jsonfile", "bolt", "redis":
	case "":
		cfg.Storage.Type = "jsonfile"
	default:
		return fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}

	if cfg.Storage.Type != "redis" && cfg.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}

	if cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Metrics.Port)
	}

	if cfg.Limits.File == "" {
		return fmt.Errorf("limits file path is required")
	}

	if cfg.Alerts.Speech && len(cfg.Alerts.SpeechCommand) == 0 {
		return fmt.Errorf("speech alerts enabled but no speech command configured")
	}

	// Malformed durations fail at startup; only genuinely absent values fall
	// back to defaults.
	durations := []struct {
		key   string
		value string
	}{
		{"tv.timeout", cfg.TV.Timeout},
		{"youtube.timeout", cfg.YouTube.Timeout},
		{"classifier.timeout", cfg.Classifier.Timeout},
		{"redis.dial_timeout", cfg.Redis.DialTimeout},
		{"redis.read_timeout", cfg.Redis.ReadTimeout},
		{"redis.write_timeout", cfg.Redis.WriteTimeout},
		{"monitor.poll_interval", cfg.Monitor.PollInterval},
		{"monitor.min_session_duration", cfg.Monitor.MinSessionDuration},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", d.key, d.value)
		}
	}

	return nil
}
