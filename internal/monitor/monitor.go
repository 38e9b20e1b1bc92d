// Package monitor runs the polling loop: detect the video playing on the TV,
// measure watch sessions, account them in the ledger and fire alerts.
package monitor

import (
	"context"
	"time"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/alert"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/ledger"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/metrics"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/storage"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/themes"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/youtube"
	"github.com/rs/zerolog"
)

// VideoSource reports the YouTube video ID playing on the TV, "" when none.
type VideoSource interface {
	CurrentVideoID(ctx context.Context) (string, error)
}

// MetadataSource resolves video IDs to metadata.
type MetadataSource interface {
	Video(ctx context.Context, videoID string) (*youtube.Video, error)
}

// ThemeSource classifies a video into a theme key.
type ThemeSource interface {
	Classify(ctx context.Context, title, description string) (string, error)
}

// Config holds monitor loop settings.
type Config struct {
	PollInterval       time.Duration
	MinSessionDuration time.Duration
}

// Monitor polls the TV and turns video changes into ledger sessions. Keys
// are themes when a classifier is installed, YouTube category IDs otherwise.
type Monitor struct {
	cfg        Config
	source     VideoSource
	metadata   MetadataSource
	classifier ThemeSource // nil when classification is disabled
	ledger     *ledger.Ledger
	videos     storage.VideoStore
	alerts     alert.Dispatcher
	clock      ledger.Clock
	logger     zerolog.Logger

	currentVideoID string
	sessionStart   time.Time
}

// New creates a monitor. classifier may be nil to track by category ID.
func New(cfg Config, source VideoSource, metadata MetadataSource, classifier ThemeSource,
	ldg *ledger.Ledger, videos storage.VideoStore, alerts alert.Dispatcher,
	clock ledger.Clock, logger zerolog.Logger) *Monitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Monitor{
		cfg:        cfg,
		source:     source,
		metadata:   metadata,
		classifier: classifier,
		ledger:     ldg,
		videos:     videos,
		alerts:     alerts,
		clock:      clock,
		logger:     logger.With().Str("component", "monitor").Logger(),
	}
}

// Run polls until the context is cancelled. The session in flight at
// shutdown is closed out and recorded.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info().Dur("poll_interval", m.cfg.PollInterval).Msg("Monitor started")

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Monitor stopping")
			// Use a fresh context so the final session still persists.
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			m.endSession(flushCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}

// Poll performs one detection cycle.
func (m *Monitor) Poll(ctx context.Context) {
	metrics.PollsTotal.Inc()

	videoID, err := m.source.CurrentVideoID(ctx)
	if err != nil {
		metrics.PollErrors.Inc()
		m.logger.Warn().Err(err).Msg("TV poll failed")
		return
	}

	if videoID == m.currentVideoID {
		return
	}

	m.endSession(ctx)

	if videoID != "" {
		m.startSession(ctx, videoID)
	}
}

func (m *Monitor) startSession(ctx context.Context, videoID string) {
	m.currentVideoID = videoID
	m.sessionStart = m.clock.Now()
	metrics.VideosDetected.Inc()

	log := m.logger.Info().Str("video_id", videoID)
	if video, err := m.metadata.Video(ctx, videoID); err == nil {
		log = log.Str("title", video.Title).Str("channel", video.Channel).
			Str("category", themes.CategoryName(video.CategoryID))
	}
	log.Msg("New video detected")
}

// endSession closes the session in flight, if any, and records it.
func (m *Monitor) endSession(ctx context.Context) {
	if m.currentVideoID == "" {
		return
	}

	videoID := m.currentVideoID
	start := m.sessionStart
	end := m.clock.Now()
	m.currentVideoID = ""

	duration := end.Sub(start)
	if duration < m.cfg.MinSessionDuration {
		m.logger.Debug().
			Str("video_id", videoID).
			Dur("duration", duration).
			Msg("Session below minimum duration, skipped")
		return
	}

	key, err := m.trackingKey(ctx, videoID)
	if err != nil {
		metrics.ClassificationErrors.Inc()
		m.logger.Error().Err(err).Str("video_id", videoID).
			Msg("Could not resolve tracking key, session not accounted")
		return
	}

	seconds := duration.Seconds()
	crossings, err := m.ledger.RecordSession(ctx, key, videoID, seconds, end)
	if err != nil {
		metrics.PersistErrors.Inc()
		m.logger.Error().Err(err).Msg("Session recorded in memory only")
	}
	metrics.SessionsRecorded.Inc()
	metrics.WatchSecondsConsumed.WithLabelValues(key).Add(seconds)

	if err := m.videos.AddWatch(ctx, videoID, storage.WatchRecord{
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: seconds,
	}); err != nil {
		m.logger.Warn().Err(err).Str("video_id", videoID).Msg("Failed to append watch record")
	}

	m.logger.Info().
		Str("video_id", videoID).
		Str("key", key).
		Str("watched", ledger.FormatSeconds(seconds)).
		Int("alerts", len(crossings)).
		Msg("Session recorded")

	alert.Notify(ctx, m.alerts, crossings)
}

// trackingKey decides which bucket a video's watch time lands in. With a
// classifier the key is the normalized theme; classification failures are
// surfaced so the session is skipped rather than misfiled. Without one the
// key is the video's YouTube category ID.
func (m *Monitor) trackingKey(ctx context.Context, videoID string) (string, error) {
	video, err := m.metadata.Video(ctx, videoID)
	if err != nil {
		return "", err
	}

	if m.classifier != nil {
		theme, err := m.classifier.Classify(ctx, video.Title, video.Description)
		if err != nil {
			return "", err
		}
		return theme, nil
	}

	categoryID := video.CategoryID
	if categoryID == "" {
		categoryID = "unknown"
	}
	return categoryID, nil
}
