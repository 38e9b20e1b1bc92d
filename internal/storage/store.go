package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store is the root storage interface. Backends: JSON files (default, keeps
// the historical on-disk layout), bbolt, and Redis.
type Store interface {
	Close() error
	Watch() WatchStore
	Videos() VideoStore
	Themes() ThemeCacheStore
}

// WatchStore persists the watch-time ledger and the reset timestamps.
// Both documents are written whole; backends must replace them atomically so
// a crash mid-write never leaves a truncated document.
type WatchStore interface {
	LoadLedger(ctx context.Context) (*LedgerDocument, error)
	SaveLedger(ctx context.Context, doc *LedgerDocument) error
	LoadResetTimestamps(ctx context.Context) (*ResetTimestamps, error)
	SaveResetTimestamps(ctx context.Context, ts *ResetTimestamps) error
}

// VideoStore persists video metadata and per-video watch sessions.
type VideoStore interface {
	Get(ctx context.Context, videoID string) (*VideoRecord, error)
	Put(ctx context.Context, record VideoRecord) error
	AddWatch(ctx context.Context, videoID string, watch WatchRecord) error
	List(ctx context.Context) ([]VideoRecord, error)
}

// ThemeCacheStore persists theme classification results so a video title is
// never classified twice across restarts.
type ThemeCacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, theme string) error
}
