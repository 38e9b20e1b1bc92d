package storage

import (
	"time"
)

// LedgerDocument is the persisted watch-time ledger. The JSON layout matches
// the watch_time.json document the monitor has always written, so existing
// log directories keep working.
type LedgerDocument struct {
	TotalWatchTime float64                   `json:"total_watch_time"`
	Categories     map[string]*CategoryEntry `json:"categories"`
	Videos         map[string]*VideoUsage    `json:"videos"`
	ResetPoints    map[string]*ResetPoint    `json:"reset_points"`
}

// CategoryEntry accumulates watch time under one tracking key (a YouTube
// category ID or a classified theme).
type CategoryEntry struct {
	TotalTime  float64 `json:"total_time"`
	VideoCount int     `json:"video_count"`
}

// VideoUsage accumulates per-video watch time.
type VideoUsage struct {
	TotalTime    float64 `json:"total_time"`
	SessionCount int     `json:"session_count"`
}

// ResetPoint snapshots totals at the moment a period reset fired. The
// current-period value of a key is its running total minus the snapshot.
type ResetPoint struct {
	TotalTime  float64            `json:"total_time"`
	Categories map[string]float64 `json:"categories"`
}

// NewLedgerDocument returns an empty, fully initialized ledger document.
func NewLedgerDocument() *LedgerDocument {
	return &LedgerDocument{
		Categories:  make(map[string]*CategoryEntry),
		Videos:      make(map[string]*VideoUsage),
		ResetPoints: make(map[string]*ResetPoint),
	}
}

// Normalize fills in nil maps after unmarshaling a hand-edited or older
// document.
func (d *LedgerDocument) Normalize() {
	if d.Categories == nil {
		d.Categories = make(map[string]*CategoryEntry)
	}
	if d.Videos == nil {
		d.Videos = make(map[string]*VideoUsage)
	}
	if d.ResetPoints == nil {
		d.ResetPoints = make(map[string]*ResetPoint)
	}
}

// Clone returns a deep copy of the document.
func (d *LedgerDocument) Clone() *LedgerDocument {
	out := &LedgerDocument{
		TotalWatchTime: d.TotalWatchTime,
		Categories:     make(map[string]*CategoryEntry, len(d.Categories)),
		Videos:         make(map[string]*VideoUsage, len(d.Videos)),
		ResetPoints:    make(map[string]*ResetPoint, len(d.ResetPoints)),
	}
	for key, entry := range d.Categories {
		copied := *entry
		out.Categories[key] = &copied
	}
	for id, usage := range d.Videos {
		copied := *usage
		out.Videos[id] = &copied
	}
	for period, point := range d.ResetPoints {
		copied := ResetPoint{
			TotalTime:  point.TotalTime,
			Categories: make(map[string]float64, len(point.Categories)),
		}
		for key, value := range point.Categories {
			copied.Categories[key] = value
		}
		out.ResetPoints[period] = &copied
	}
	return out
}

// ResetTimestamps is the persisted last-reset instant per period
// (last_reset.json).
type ResetTimestamps struct {
	Daily  time.Time `json:"daily"`
	Weekly time.Time `json:"weekly"`
}

// VideoRecord is the persisted metadata for a video the TV has played,
// together with every watch session attributed to it (youtube_videos.json).
type VideoRecord struct {
	VideoID       string        `json:"video_id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Channel       string        `json:"channel"`
	PublishedAt   string        `json:"published_at"`
	CategoryID    string        `json:"category_id"`
	Tags          []string      `json:"tags,omitempty"`
	Duration      string        `json:"duration"`
	FirstDetected time.Time     `json:"first_detected"`
	Watches       []WatchRecord `json:"watches"`
}

// WatchRecord is one completed watch session of a video.
type WatchRecord struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
}
