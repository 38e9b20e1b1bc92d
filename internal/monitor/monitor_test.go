package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/ledger"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/storage"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/youtube"
	"github.com/rs/zerolog"
)

// fakeSource returns a scriptable current video ID.
type fakeSource struct {
	videoID string
	err     error
}

func (f *fakeSource) CurrentVideoID(ctx context.Context) (string, error) {
	return f.videoID, f.err
}

// fakeMetadata serves fixed metadata for any video ID.
type fakeMetadata struct {
	categoryID string
	err        error
}

func (f *fakeMetadata) Video(ctx context.Context, videoID string) (*youtube.Video, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &youtube.Video{
		ID:          videoID,
		Title:       "Video " + videoID,
		Description: "Description",
		CategoryID:  f.categoryID,
	}, nil
}

// fakeClassifier returns a fixed theme or an error.
type fakeClassifier struct {
	theme string
	err   error
}

func (f *fakeClassifier) Classify(ctx context.Context, title, description string) (string, error) {
	return f.theme, f.err
}

// fakeDispatcher records dispatched alert messages.
type fakeDispatcher struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

// memWatchStore and memVideoStore are minimal in-memory backends.
type memWatchStore struct {
	doc    *storage.LedgerDocument
	resets *storage.ResetTimestamps
}

func (m *memWatchStore) LoadLedger(ctx context.Context) (*storage.LedgerDocument, error) {
	if m.doc == nil {
		return nil, storage.ErrNotFound
	}
	return m.doc.Clone(), nil
}

func (m *memWatchStore) SaveLedger(ctx context.Context, doc *storage.LedgerDocument) error {
	m.doc = doc.Clone()
	return nil
}

func (m *memWatchStore) LoadResetTimestamps(ctx context.Context) (*storage.ResetTimestamps, error) {
	if m.resets == nil {
		return nil, storage.ErrNotFound
	}
	copied := *m.resets
	return &copied, nil
}

func (m *memWatchStore) SaveResetTimestamps(ctx context.Context, ts *storage.ResetTimestamps) error {
	copied := *ts
	m.resets = &copied
	return nil
}

type memVideoStore struct {
	records map[string]storage.VideoRecord
}

func newMemVideoStore() *memVideoStore {
	return &memVideoStore{records: make(map[string]storage.VideoRecord)}
}

func (m *memVideoStore) Get(ctx context.Context, videoID string) (*storage.VideoRecord, error) {
	record, ok := m.records[videoID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &record, nil
}

func (m *memVideoStore) Put(ctx context.Context, record storage.VideoRecord) error {
	m.records[record.VideoID] = record
	return nil
}

func (m *memVideoStore) AddWatch(ctx context.Context, videoID string, watch storage.WatchRecord) error {
	record, ok := m.records[videoID]
	if !ok {
		record = storage.VideoRecord{VideoID: videoID}
	}
	record.Watches = append(record.Watches, watch)
	m.records[videoID] = record
	return nil
}

func (m *memVideoStore) List(ctx context.Context) ([]storage.VideoRecord, error) {
	records := make([]storage.VideoRecord, 0, len(m.records))
	for _, record := range m.records {
		records = append(records, record)
	}
	return records, nil
}

type testHarness struct {
	monitor    *Monitor
	source     *fakeSource
	clock      *ledger.TestClock
	dispatcher *fakeDispatcher
	videos     *memVideoStore
	ledger     *ledger.Ledger
}

func newHarness(t *testing.T, classifier ThemeSource, limits ledger.Limits) *testHarness {
	t.Helper()

	clock := &ledger.TestClock{CurrentTime: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)}
	ldg, err := ledger.New(context.Background(), &memWatchStore{}, limits, clock, zerolog.Nop())
	if err != nil {
		t.Fatalf("ledger.New() error: %v", err)
	}

	source := &fakeSource{}
	dispatcher := &fakeDispatcher{}
	videos := newMemVideoStore()

	m := New(Config{
		PollInterval:       time.Second,
		MinSessionDuration: 10 * time.Second,
	}, source, &fakeMetadata{categoryID: "20"}, classifier, ldg, videos, dispatcher, clock, zerolog.Nop())

	return &testHarness{
		monitor:    m,
		source:     source,
		clock:      clock,
		dispatcher: dispatcher,
		videos:     videos,
		ledger:     ldg,
	}
}

func noLimits() ledger.Limits { return ledger.Limits{} }

func TestSessionRecordedByCategory(t *testing.T) {
	h := newHarness(t, nil, noLimits())
	ctx := context.Background()

	// Video starts playing.
	h.source.videoID = "vid1"
	h.monitor.Poll(ctx)

	// Five minutes later the TV goes back to the home screen.
	h.clock.CurrentTime = h.clock.CurrentTime.Add(5 * time.Minute)
	h.source.videoID = ""
	h.monitor.Poll(ctx)

	snapshot := h.ledger.Report(h.clock.Now())
	if snapshot.AllTimeSeconds != 300 {
		t.Errorf("all-time seconds = %v, want 300", snapshot.AllTimeSeconds)
	}
	if len(snapshot.Keys) != 1 || snapshot.Keys[0].Key != "20" {
		t.Errorf("keys = %+v, want one entry for category 20", snapshot.Keys)
	}

	// The watch session was attributed to the video.
	record, err := h.videos.Get(ctx, "vid1")
	if err != nil {
		t.Fatalf("videos.Get() error: %v", err)
	}
	if len(record.Watches) != 1 || record.Watches[0].DurationSeconds != 300 {
		t.Errorf("watches = %+v, want one 300-second watch", record.Watches)
	}
}

func TestSessionRecordedByTheme(t *testing.T) {
	h := newHarness(t, &fakeClassifier{theme: "baseball"}, noLimits())
	ctx := context.Background()

	h.source.videoID = "vid1"
	h.monitor.Poll(ctx)
	h.clock.CurrentTime = h.clock.CurrentTime.Add(time.Minute)
	h.source.videoID = ""
	h.monitor.Poll(ctx)

	snapshot := h.ledger.Report(h.clock.Now())
	if len(snapshot.Keys) != 1 || snapshot.Keys[0].Key != "baseball" {
		t.Errorf("keys = %+v, want one entry for baseball", snapshot.Keys)
	}
}

func TestShortSessionSkipped(t *testing.T) {
	h := newHarness(t, nil, noLimits())
	ctx := context.Background()

	h.source.videoID = "vid1"
	h.monitor.Poll(ctx)

	// Channel surfing: five seconds is under the minimum.
	h.clock.CurrentTime = h.clock.CurrentTime.Add(5 * time.Second)
	h.source.videoID = ""
	h.monitor.Poll(ctx)

	if got := h.ledger.Report(h.clock.Now()).AllTimeSeconds; got != 0 {
		t.Errorf("all-time seconds = %v, want 0 for a skipped session", got)
	}
}

func TestVideoChangeEndsPreviousSession(t *testing.T) {
	h := newHarness(t, nil, noLimits())
	ctx := context.Background()

	h.source.videoID = "vid1"
	h.monitor.Poll(ctx)

	// Jumping straight to another video ends vid1's session.
	h.clock.CurrentTime = h.clock.CurrentTime.Add(2 * time.Minute)
	h.source.videoID = "vid2"
	h.monitor.Poll(ctx)

	h.clock.CurrentTime = h.clock.CurrentTime.Add(3 * time.Minute)
	h.source.videoID = ""
	h.monitor.Poll(ctx)

	snapshot := h.ledger.Report(h.clock.Now())
	if snapshot.AllTimeSeconds != 300 {
		t.Errorf("all-time seconds = %v, want 300 across two sessions", snapshot.AllTimeSeconds)
	}

	vid1, err := h.videos.Get(ctx, "vid1")
	if err != nil || len(vid1.Watches) != 1 || vid1.Watches[0].DurationSeconds != 120 {
		t.Errorf("vid1 watches = %+v (err %v), want one 120-second watch", vid1, err)
	}
	vid2, err := h.videos.Get(ctx, "vid2")
	if err != nil || len(vid2.Watches) != 1 || vid2.Watches[0].DurationSeconds != 180 {
		t.Errorf("vid2 watches = %+v (err %v), want one 180-second watch", vid2, err)
	}
}

func TestClassifierFailureSkipsAccounting(t *testing.T) {
	h := newHarness(t, &fakeClassifier{err: errors.New("api down")}, noLimits())
	ctx := context.Background()

	h.source.videoID = "vid1"
	h.monitor.Poll(ctx)
	h.clock.CurrentTime = h.clock.CurrentTime.Add(time.Minute)
	h.source.videoID = ""
	h.monitor.Poll(ctx)

	// Better to drop the session than to misfile it under a guessed theme.
	if got := h.ledger.Report(h.clock.Now()).AllTimeSeconds; got != 0 {
		t.Errorf("all-time seconds = %v, want 0 when classification fails", got)
	}
}

func TestAlertDispatchedOnCrossing(t *testing.T) {
	limits := ledger.Limits{
		Daily: ledger.PeriodLimits{Categories: map[string]float64{"20": 60}},
	}
	h := newHarness(t, nil, limits)
	ctx := context.Background()

	h.source.videoID = "vid1"
	h.monitor.Poll(ctx)
	h.clock.CurrentTime = h.clock.CurrentTime.Add(2 * time.Minute)
	h.source.videoID = ""
	h.monitor.Poll(ctx)

	if len(h.dispatcher.messages) != 1 {
		t.Fatalf("dispatched %d messages, want 1", len(h.dispatcher.messages))
	}
	want := "You have exceeded your daily limit of 1 minutes for Gaming videos"
	if h.dispatcher.messages[0] != want {
		t.Errorf("message = %q, want %q", h.dispatcher.messages[0], want)
	}
}

func TestPollErrorKeepsSessionOpen(t *testing.T) {
	h := newHarness(t, nil, noLimits())
	ctx := context.Background()

	h.source.videoID = "vid1"
	h.monitor.Poll(ctx)

	// A transient TV error must not end the session.
	h.source.err = errors.New("tv unreachable")
	h.clock.CurrentTime = h.clock.CurrentTime.Add(time.Minute)
	h.monitor.Poll(ctx)

	h.source.err = nil
	h.clock.CurrentTime = h.clock.CurrentTime.Add(time.Minute)
	h.source.videoID = ""
	h.monitor.Poll(ctx)

	// The full two minutes count toward the session.
	if got := h.ledger.Report(h.clock.Now()).AllTimeSeconds; got != 120 {
		t.Errorf("all-time seconds = %v, want 120", got)
	}
}
