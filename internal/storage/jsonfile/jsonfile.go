// Package jsonfile stores monitor state as JSON documents in a log
// directory, matching the layout earlier versions of the monitor wrote:
// watch_time.json, last_reset.json, youtube_videos.json, theme_cache.json.
// Every write goes to a temporary file in the same directory and is renamed
// into place, so a crash mid-write cannot truncate a document.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/storage"
)

const (
	watchTimeFile  = "watch_time.json"
	lastResetFile  = "last_reset.json"
	videosFile     = "youtube_videos.json"
	themeCacheFile = "theme_cache.json"
)

// Store implements storage.Store on top of a directory of JSON files.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open opens (creating if needed) a JSON file store rooted at dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("jsonfile: directory is required")
	}
	if err := storage.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("jsonfile: create directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op; files are written through on every mutation.
func (s *Store) Close() error { return nil }

// Watch returns the watch-time store.
func (s *Store) Watch() storage.WatchStore { return &watchStore{s} }

// Videos returns the video record store.
func (s *Store) Videos() storage.VideoStore { return &videoStore{s} }

// Themes returns the theme cache store.
func (s *Store) Themes() storage.ThemeCacheStore { return &themeCacheStore{s} }

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readDocument unmarshals a JSON file into out, returning
// storage.ErrNotFound when the file does not exist yet.
func (s *Store) readDocument(name string, out any) error {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("jsonfile: read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("jsonfile: decode %s: %w", name, err)
	}
	return nil
}

// writeDocument marshals value and atomically replaces the named file.
func (s *Store) writeDocument(name string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("jsonfile: create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("jsonfile: write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("jsonfile: sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("jsonfile: close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("jsonfile: replace %s: %w", name, err)
	}
	return nil
}

type watchStore struct {
	s *Store
}

func (w *watchStore) LoadLedger(ctx context.Context) (*storage.LedgerDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	doc := storage.NewLedgerDocument()
	if err := w.s.readDocument(watchTimeFile, doc); err != nil {
		return nil, err
	}
	doc.Normalize()
	return doc, nil
}

func (w *watchStore) SaveLedger(ctx context.Context, doc *storage.LedgerDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return w.s.writeDocument(watchTimeFile, doc)
}

func (w *watchStore) LoadResetTimestamps(ctx context.Context) (*storage.ResetTimestamps, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	var ts storage.ResetTimestamps
	if err := w.s.readDocument(lastResetFile, &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

func (w *watchStore) SaveResetTimestamps(ctx context.Context, ts *storage.ResetTimestamps) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return w.s.writeDocument(lastResetFile, ts)
}

type videoStore struct {
	s *Store
}

func (v *videoStore) load() (map[string]*storage.VideoRecord, error) {
	videos := make(map[string]*storage.VideoRecord)
	err := v.s.readDocument(videosFile, &videos)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	return videos, nil
}

func (v *videoStore) Get(ctx context.Context, videoID string) (*storage.VideoRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	videos, err := v.load()
	if err != nil {
		return nil, err
	}
	record, ok := videos[videoID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return record, nil
}

func (v *videoStore) Put(ctx context.Context, record storage.VideoRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.VideoID == "" {
		return fmt.Errorf("jsonfile: video record requires a video_id")
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	videos, err := v.load()
	if err != nil {
		return err
	}
	videos[record.VideoID] = &record
	return v.s.writeDocument(videosFile, videos)
}

func (v *videoStore) AddWatch(ctx context.Context, videoID string, watch storage.WatchRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	videos, err := v.load()
	if err != nil {
		return err
	}
	record, ok := videos[videoID]
	if !ok {
		return storage.ErrNotFound
	}
	record.Watches = append(record.Watches, watch)
	return v.s.writeDocument(videosFile, videos)
}

func (v *videoStore) List(ctx context.Context) ([]storage.VideoRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	videos, err := v.load()
	if err != nil {
		return nil, err
	}
	records := make([]storage.VideoRecord, 0, len(videos))
	for _, record := range videos {
		records = append(records, *record)
	}
	return records, nil
}

type themeCacheStore struct {
	s *Store
}

func (t *themeCacheStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	cache := make(map[string]string)
	err := t.s.readDocument(themeCacheFile, &cache)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}
	theme, ok := cache[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return theme, nil
}

func (t *themeCacheStore) Put(ctx context.Context, key, theme string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	cache := make(map[string]string)
	err := t.s.readDocument(themeCacheFile, &cache)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	cache[key] = theme
	return t.s.writeDocument(themeCacheFile, cache)
}
