package redis

import (
	"context"
	"fmt"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/storage"
	"github.com/redis/go-redis/v9"
)

type watchStore struct {
	client *redis.Client
}

func (s *watchStore) LoadLedger(ctx context.Context) (*storage.LedgerDocument, error) {
	doc := storage.NewLedgerDocument()
	if err := getJSON(ctx, s.client, keyLedger, doc); err != nil {
		return nil, err
	}
	doc.Normalize()
	return doc, nil
}

func (s *watchStore) SaveLedger(ctx context.Context, doc *storage.LedgerDocument) error {
	return setJSON(ctx, s.client, keyLedger, doc)
}

func (s *watchStore) LoadResetTimestamps(ctx context.Context) (*storage.ResetTimestamps, error) {
	var ts storage.ResetTimestamps
	if err := getJSON(ctx, s.client, keyResetTimestamps, &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

func (s *watchStore) SaveResetTimestamps(ctx context.Context, ts *storage.ResetTimestamps) error {
	return setJSON(ctx, s.client, keyResetTimestamps, ts)
}

type videoStore struct {
	client *redis.Client
}

func (s *videoStore) Get(ctx context.Context, videoID string) (*storage.VideoRecord, error) {
	var record storage.VideoRecord
	if err := getJSON(ctx, s.client, keyVideoPrefix+videoID, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *videoStore) Put(ctx context.Context, record storage.VideoRecord) error {
	if record.VideoID == "" {
		return fmt.Errorf("video record requires a video_id")
	}
	if err := setJSON(ctx, s.client, keyVideoPrefix+record.VideoID, record); err != nil {
		return err
	}
	if err := s.client.SAdd(ctx, keyVideoIndex, record.VideoID).Err(); err != nil {
		return fmt.Errorf("redis index video %s: %w", record.VideoID, err)
	}
	return nil
}

func (s *videoStore) AddWatch(ctx context.Context, videoID string, watch storage.WatchRecord) error {
	record, err := s.Get(ctx, videoID)
	if err != nil {
		return err
	}
	record.Watches = append(record.Watches, watch)
	return setJSON(ctx, s.client, keyVideoPrefix+videoID, record)
}

func (s *videoStore) List(ctx context.Context) ([]storage.VideoRecord, error) {
	ids, err := s.client.SMembers(ctx, keyVideoIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list videos: %w", err)
	}
	records := make([]storage.VideoRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.Get(ctx, id)
		if err == storage.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

type themeCacheStore struct {
	client *redis.Client
}

func (s *themeCacheStore) Get(ctx context.Context, key string) (string, error) {
	theme, err := s.client.HGet(ctx, keyThemeHash, key).Result()
	if err == redis.Nil {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get theme: %w", err)
	}
	return theme, nil
}

func (s *themeCacheStore) Put(ctx context.Context, key, theme string) error {
	if err := s.client.HSet(ctx, keyThemeHash, key, theme).Err(); err != nil {
		return fmt.Errorf("redis put theme: %w", err)
	}
	return nil
}
