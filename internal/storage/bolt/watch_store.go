package bolt

import (
	"context"
	"fmt"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/storage"
	"go.etcd.io/bbolt"
)

type watchStore struct {
	db *bbolt.DB
}

func (s *watchStore) LoadLedger(ctx context.Context) (*storage.LedgerDocument, error) {
	doc, err := getBucketValue[storage.LedgerDocument](ctx, s.db, bucketWatch, keyLedger)
	if err != nil {
		return nil, err
	}
	doc.Normalize()
	return doc, nil
}

func (s *watchStore) SaveLedger(ctx context.Context, doc *storage.LedgerDocument) error {
	return putBucketValue(ctx, s.db, bucketWatch, keyLedger, doc)
}

func (s *watchStore) LoadResetTimestamps(ctx context.Context) (*storage.ResetTimestamps, error) {
	return getBucketValue[storage.ResetTimestamps](ctx, s.db, bucketWatch, keyResetTimestamps)
}

func (s *watchStore) SaveResetTimestamps(ctx context.Context, ts *storage.ResetTimestamps) error {
	return putBucketValue(ctx, s.db, bucketWatch, keyResetTimestamps, ts)
}

type videoStore struct {
	db *bbolt.DB
}

func (s *videoStore) Get(ctx context.Context, videoID string) (*storage.VideoRecord, error) {
	return getBucketValue[storage.VideoRecord](ctx, s.db, bucketVideos, videoID)
}

func (s *videoStore) Put(ctx context.Context, record storage.VideoRecord) error {
	if record.VideoID == "" {
		return fmt.Errorf("video record requires a video_id")
	}
	return putBucketValue(ctx, s.db, bucketVideos, record.VideoID, record)
}

func (s *videoStore) AddWatch(ctx context.Context, videoID string, watch storage.WatchRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketVideos))
		if b == nil {
			return storage.ErrNotFound
		}
		value := b.Get([]byte(videoID))
		if value == nil {
			return storage.ErrNotFound
		}
		var record storage.VideoRecord
		if err := unmarshal(value, &record); err != nil {
			return err
		}
		record.Watches = append(record.Watches, watch)
		data, err := marshal(record)
		if err != nil {
			return err
		}
		return b.Put([]byte(videoID), data)
	})
}

func (s *videoStore) List(ctx context.Context) ([]storage.VideoRecord, error) {
	return listBucket[storage.VideoRecord](ctx, s.db, bucketVideos)
}

type themeCacheStore struct {
	db *bbolt.DB
}

func (s *themeCacheStore) Get(ctx context.Context, key string) (string, error) {
	theme, err := getBucketValue[string](ctx, s.db, bucketThemes, key)
	if err != nil {
		return "", err
	}
	return *theme, nil
}

func (s *themeCacheStore) Put(ctx context.Context, key, theme string) error {
	return putBucketValue(ctx, s.db, bucketThemes, key, theme)
}
