// Package redis stores monitor state in Redis. Useful when several tools
// (the monitor plus reporting scripts) share one household state server.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/config"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/storage"
	"github.com/redis/go-redis/v9"
)

const (
	keyLedger          = "tvmon:ledger"
	keyResetTimestamps = "tvmon:reset_timestamps"
	keyVideoPrefix     = "tvmon:video:"
	keyVideoIndex      = "tvmon:videos"
	keyThemeHash       = "tvmon:themes"
)

// Store implements the storage.Store interface using Redis.
type Store struct {
	client *redis.Client
}

// Open creates a new Redis-backed storage instance.
func Open(cfg config.RedisConfig) (*Store, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}
	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}
	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Watch returns the watch-time store.
func (s *Store) Watch() storage.WatchStore { return &watchStore{client: s.client} }

// Videos returns the video record store.
func (s *Store) Videos() storage.VideoStore { return &videoStore{client: s.client} }

// Themes returns the theme cache store.
func (s *Store) Themes() storage.ThemeCacheStore { return &themeCacheStore{client: s.client} }

func getJSON(ctx context.Context, client *redis.Client, key string, out any) error {
	data, err := client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("redis decode %s: %w", key, err)
	}
	return nil
}

func setJSON(ctx context.Context, client *redis.Client, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", key, err)
	}
	if err := client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
