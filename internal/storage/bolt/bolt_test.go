package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "tvmon.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLedgerRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Watch().LoadLedger(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("LoadLedger() on fresh db error = %v, want ErrNotFound", err)
	}

	doc := storage.NewLedgerDocument()
	doc.TotalWatchTime = 900
	doc.Categories["baseball"] = &storage.CategoryEntry{TotalTime: 900, VideoCount: 1}
	doc.ResetPoints["weekly"] = &storage.ResetPoint{
		TotalTime:  300,
		Categories: map[string]float64{"baseball": 300},
	}

	if err := store.Watch().SaveLedger(ctx, doc); err != nil {
		t.Fatalf("SaveLedger() error: %v", err)
	}

	loaded, err := store.Watch().LoadLedger(ctx)
	if err != nil {
		t.Fatalf("LoadLedger() error: %v", err)
	}
	if loaded.TotalWatchTime != 900 {
		t.Errorf("total = %v, want 900", loaded.TotalWatchTime)
	}
	if entry := loaded.Categories["baseball"]; entry == nil || entry.TotalTime != 900 {
		t.Errorf("baseball entry = %+v", entry)
	}
	if point := loaded.ResetPoints["weekly"]; point == nil || point.Categories["baseball"] != 300 {
		t.Errorf("weekly reset point = %+v", point)
	}
	// Maps are always usable after a load.
	if loaded.Videos == nil {
		t.Error("loaded document has nil videos map")
	}
}

func TestResetTimestampsRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ts := &storage.ResetTimestamps{
		Daily:  time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		Weekly: time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC),
	}
	if err := store.Watch().SaveResetTimestamps(ctx, ts); err != nil {
		t.Fatalf("SaveResetTimestamps() error: %v", err)
	}

	loaded, err := store.Watch().LoadResetTimestamps(ctx)
	if err != nil {
		t.Fatalf("LoadResetTimestamps() error: %v", err)
	}
	if !loaded.Daily.Equal(ts.Daily) || !loaded.Weekly.Equal(ts.Weekly) {
		t.Errorf("loaded = %+v, want %+v", loaded, ts)
	}
}

func TestVideoStore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record := storage.VideoRecord{
		VideoID:    "abc",
		Title:      "Test video",
		CategoryID: "17",
	}
	if err := store.Videos().Put(ctx, record); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := store.Videos().Put(ctx, storage.VideoRecord{}); err == nil {
		t.Error("Put() with empty video_id did not error")
	}

	watch := storage.WatchRecord{DurationSeconds: 120}
	if err := store.Videos().AddWatch(ctx, "abc", watch); err != nil {
		t.Fatalf("AddWatch() error: %v", err)
	}
	if err := store.Videos().AddWatch(ctx, "missing", watch); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("AddWatch() on unknown video error = %v, want ErrNotFound", err)
	}

	loaded, err := store.Videos().Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(loaded.Watches) != 1 || loaded.Watches[0].DurationSeconds != 120 {
		t.Errorf("watches = %+v, want one 120-second watch", loaded.Watches)
	}

	records, err := store.Videos().List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(records) != 1 || records[0].VideoID != "abc" {
		t.Errorf("List() = %+v, want the one stored record", records)
	}
}

func TestThemeCacheStore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Themes().Get(ctx, "k"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get() missing key error = %v, want ErrNotFound", err)
	}
	if err := store.Themes().Put(ctx, "k", "cooking"); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	theme, err := store.Themes().Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if theme != "cooking" {
		t.Errorf("theme = %q, want %q", theme, "cooking")
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tvmon.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	doc := storage.NewLedgerDocument()
	doc.TotalWatchTime = 42
	if err := store.Watch().SaveLedger(ctx, doc); err != nil {
		t.Fatalf("SaveLedger() error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.Watch().LoadLedger(ctx)
	if err != nil {
		t.Fatalf("LoadLedger() after reopen error: %v", err)
	}
	if loaded.TotalWatchTime != 42 {
		t.Errorf("total after reopen = %v, want 42", loaded.TotalWatchTime)
	}
}
