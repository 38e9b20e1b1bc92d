// Package ledger implements the watch-time accounting core: per-key watch
// counters, daily/weekly reset baselines, and edge-triggered limit alerts.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/storage"
	"github.com/rs/zerolog"
)

// ErrInvalidDuration is returned when a recorded duration is negative or
// not finite. The ledger state is not touched.
var ErrInvalidDuration = errors.New("ledger: invalid duration")

// Ledger accumulates watch time per tracking key against configured limits.
//
// The in-memory document is authoritative; every mutation is written through
// to storage, and a failed write is reported but does not roll back memory —
// the next successful write carries all pending changes. All mutating
// operations are serialized by an internal mutex.
type Ledger struct {
	store  storage.WatchStore
	limits Limits
	clock  Clock
	logger zerolog.Logger

	mu     sync.Mutex
	doc    *storage.LedgerDocument
	resets *storage.ResetTimestamps

	// resetsDirty marks reset timestamps that advanced in memory but have
	// not been written yet. It stays set across failed persists so the next
	// successful one flushes the pending timestamps.
	resetsDirty bool
}

// New loads ledger state from storage, initializing empty documents on first
// run. The first run records the current instant as the reset baseline for
// every period without snapshotting (baselines are implicitly zero).
func New(ctx context.Context, store storage.WatchStore, limits Limits, clock Clock, logger zerolog.Logger) (*Ledger, error) {
	l := &Ledger{
		store:  store,
		limits: limits,
		clock:  clock,
		logger: logger.With().Str("component", "ledger").Logger(),
	}

	doc, err := store.LoadLedger(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		doc = storage.NewLedgerDocument()
	} else if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	l.doc = doc

	resets, err := store.LoadResetTimestamps(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		now := clock.Now()
		resets = &storage.ResetTimestamps{Daily: now, Weekly: now}
		if err := store.SaveResetTimestamps(ctx, resets); err != nil {
			return nil, fmt.Errorf("initialize reset timestamps: %w", err)
		}
		l.logger.Info().Time("at", now).Msg("Initialized reset timestamps")
	} else if err != nil {
		return nil, fmt.Errorf("load reset timestamps: %w", err)
	}
	l.resets = resets

	return l, nil
}

// Record adds a completed watch session under a tracking key and returns the
// limit crossings this call caused. See RecordSession.
func (l *Ledger) Record(ctx context.Context, key string, seconds float64, now time.Time) ([]Crossing, error) {
	return l.RecordSession(ctx, key, "", seconds, now)
}

// RecordSession adds a completed watch session under a tracking key,
// optionally attributing it to a video ID for per-video accounting.
//
// Effect order: reset boundaries are applied first, then the session is
// added to the key's total and the grand total, state is persisted, and the
// set of (period, key) limit crossings caused by this call is returned.
// A persistence failure is returned alongside the crossings; the in-memory
// update stands and the next successful persist flushes it.
func (l *Ledger) RecordSession(ctx context.Context, key, videoID string, seconds float64, now time.Time) ([]Crossing, error) {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, seconds)
	}
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidDuration)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.applyResets(now)

	before := l.periodValues(key)

	entry, ok := l.doc.Categories[key]
	if !ok {
		entry = &storage.CategoryEntry{}
		l.doc.Categories[key] = entry
	}
	entry.TotalTime += seconds
	entry.VideoCount++
	l.doc.TotalWatchTime += seconds

	if videoID != "" {
		usage, ok := l.doc.Videos[videoID]
		if !ok {
			usage = &storage.VideoUsage{}
			l.doc.Videos[videoID] = usage
		}
		usage.TotalTime += seconds
		usage.SessionCount++
	}

	after := l.periodValues(key)
	crossings := l.crossings(key, before, after)

	l.logger.Debug().
		Str("key", key).
		Float64("seconds", seconds).
		Float64("key_total", entry.TotalTime).
		Float64("grand_total", l.doc.TotalWatchTime).
		Int("crossings", len(crossings)).
		Msg("Recorded watch session")

	if err := l.persist(ctx); err != nil {
		l.logger.Error().Err(err).Msg("Failed to persist ledger, keeping in-memory state")
		return crossings, err
	}
	return crossings, nil
}

// pairValues holds the current-period values for a key and the grand total.
type pairValues struct {
	key   map[Period]float64
	total map[Period]float64
}

func (l *Ledger) periodValues(key string) pairValues {
	values := pairValues{
		key:   make(map[Period]float64, 2),
		total: make(map[Period]float64, 2),
	}
	for _, period := range Periods() {
		values.key[period] = l.currentValue(period, key)
		values.total[period] = l.currentValue(period, TotalKey)
	}
	return values
}

// currentValue is the within-period value: running total minus the period's
// reset baseline. This is the quantity compared against limits, never the
// all-time total.
func (l *Ledger) currentValue(period Period, key string) float64 {
	var total, baseline float64
	if key == TotalKey {
		total = l.doc.TotalWatchTime
	} else if entry, ok := l.doc.Categories[key]; ok {
		total = entry.TotalTime
	}
	if point, ok := l.doc.ResetPoints[string(period)]; ok {
		if key == TotalKey {
			baseline = point.TotalTime
		} else {
			baseline = point.Categories[key]
		}
	}
	return total - baseline
}

func (l *Ledger) crossings(key string, before, after pairValues) []Crossing {
	var out []Crossing
	for _, period := range Periods() {
		if limit, ok := l.limits.KeyLimit(period, TotalKey); ok {
			if Crossed(before.total[period], after.total[period], limit) {
				out = append(out, Crossing{
					Period:  period,
					Key:     TotalKey,
					Limit:   limit,
					Current: after.total[period],
				})
			}
		}
		if limit, ok := l.limits.KeyLimit(period, key); ok {
			if Crossed(before.key[period], after.key[period], limit) {
				out = append(out, Crossing{
					Period:  period,
					Key:     key,
					Limit:   limit,
					Current: after.key[period],
				})
			}
		}
	}
	return out
}

// applyResets fires any overdue period resets: current totals are
// snapshotted as the period's new baseline and the reset instant advances.
func (l *Ledger) applyResets(now time.Time) {
	for _, period := range Periods() {
		last := l.lastReset(period)
		if !resetDue(period, now, last) {
			continue
		}

		point := &storage.ResetPoint{
			TotalTime:  l.doc.TotalWatchTime,
			Categories: make(map[string]float64, len(l.doc.Categories)),
		}
		for key, entry := range l.doc.Categories {
			point.Categories[key] = entry.TotalTime
		}
		l.doc.ResetPoints[string(period)] = point
		l.setLastReset(period, now)
		l.resetsDirty = true

		l.logger.Info().
			Str("period", string(period)).
			Time("last_reset", last).
			Time("reset_at", now).
			Msg("Watch time period reset")
	}
}

// persist writes the ledger document and, while reset timestamps are dirty,
// the timestamps document. The ledger (carrying the new baselines) is
// written before the timestamps: a crash in between re-fires the reset on
// restart, which only re-snapshots baselines — a reset is never silently
// lost. The dirty flag clears only after the timestamp write succeeds, so a
// failed write is retried on every following persist.
func (l *Ledger) persist(ctx context.Context) error {
	if err := l.store.SaveLedger(ctx, l.doc); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	if l.resetsDirty {
		if err := l.store.SaveResetTimestamps(ctx, l.resets); err != nil {
			return fmt.Errorf("save reset timestamps: %w", err)
		}
		l.resetsDirty = false
	}
	return nil
}

func (l *Ledger) lastReset(period Period) time.Time {
	switch period {
	case PeriodDaily:
		return l.resets.Daily
	case PeriodWeekly:
		return l.resets.Weekly
	}
	return time.Time{}
}

func (l *Ledger) setLastReset(period Period, at time.Time) {
	switch period {
	case PeriodDaily:
		l.resets.Daily = at
	case PeriodWeekly:
		l.resets.Weekly = at
	}
}

// Report builds a read-only snapshot of the ledger. Reset boundaries are
// evaluated against the current instant without persisting anything, so a
// report taken during an idle period still shows period-correct values.
func (l *Ledger) Report(now time.Time) *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := &Snapshot{
		GeneratedAt:      now,
		AllTimeSeconds:   l.doc.TotalWatchTime,
		AllTimeFormatted: FormatSeconds(l.doc.TotalWatchTime),
		Totals:           make(map[Period]PeriodValue, 2),
		VideoCount:       len(l.doc.Videos),
	}

	for _, period := range Periods() {
		snapshot.Totals[period] = l.reportValue(period, TotalKey, now)
	}

	keys := make([]string, 0, len(l.doc.Categories))
	for key := range l.doc.Categories {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := l.doc.Categories[keys[i]], l.doc.Categories[keys[j]]
		if a.TotalTime != b.TotalTime {
			return a.TotalTime > b.TotalTime
		}
		return keys[i] < keys[j]
	})

	for _, key := range keys {
		entry := l.doc.Categories[key]
		ks := KeySnapshot{
			Key:              key,
			AllTimeSeconds:   entry.TotalTime,
			AllTimeFormatted: FormatSeconds(entry.TotalTime),
			VideoCount:       entry.VideoCount,
			Periods:          make(map[Period]PeriodValue, 2),
		}
		for _, period := range Periods() {
			ks.Periods[period] = l.reportValue(period, key, now)
		}
		snapshot.Keys = append(snapshot.Keys, ks)
	}

	return snapshot
}

// reportValue computes the within-period view of a key for reporting. When a
// reset is overdue but not yet applied, the value reads as zero — exactly
// what applying the reset would produce.
func (l *Ledger) reportValue(period Period, key string, now time.Time) PeriodValue {
	var value float64
	if !resetDue(period, now, l.lastReset(period)) {
		value = l.currentValue(period, key)
	}

	pv := PeriodValue{
		Seconds:   value,
		Formatted: FormatSeconds(value),
	}
	if limit, ok := l.limits.KeyLimit(period, key); ok {
		pv.Limit = limit
		pv.Percent = value / limit * 100
		pv.Over = value > limit
	}
	return pv
}

// Limits returns the immutable limits the ledger was built with.
func (l *Ledger) Limits() Limits {
	return l.limits
}
