// Package alert turns limit crossings into spoken, desktop and log
// notifications.
package alert

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/ledger"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/metrics"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/themes"
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
)

// Dispatcher delivers an alert message to one sink.
type Dispatcher interface {
	Dispatch(ctx context.Context, message string) error
}

// Message builds the spoken alert text for a single crossing.
func Message(c ledger.Crossing) string {
	limit := ledger.FormatSeconds(c.Limit)
	if c.Key == ledger.TotalKey {
		return fmt.Sprintf("You have exceeded your %s total watch time limit of %s", c.Period, limit)
	}
	return fmt.Sprintf("You have exceeded your %s limit of %s for %s videos",
		c.Period, limit, themes.KeyDisplayName(c.Key))
}

// JoinMessages combines crossing messages into one announcement so a single
// session that trips several limits produces one spoken alert.
func JoinMessages(crossings []ledger.Crossing) string {
	switch len(crossings) {
	case 0:
		return ""
	case 1:
		return Message(crossings[0])
	}
	parts := make([]string, len(crossings))
	for i, c := range crossings {
		parts[i] = Message(c)
	}
	return "Multiple watch time limits exceeded: " + strings.Join(parts, ". Also, ")
}

// SpeechDispatcher speaks alerts through an external TTS command. The
// message is appended to the configured argument list.
type SpeechDispatcher struct {
	command []string
	logger  zerolog.Logger
}

// NewSpeechDispatcher creates a speech dispatcher. The command slice is the
// TTS binary followed by its fixed arguments.
func NewSpeechDispatcher(command []string, logger zerolog.Logger) (*SpeechDispatcher, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("speech command is required")
	}
	return &SpeechDispatcher{
		command: command,
		logger:  logger.With().Str("component", "alert-speech").Logger(),
	}, nil
}

func (d *SpeechDispatcher) Dispatch(ctx context.Context, message string) error {
	args := append(append([]string{}, d.command[1:]...), message)
	cmd := exec.CommandContext(ctx, d.command[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("run %s: %w: %s", d.command[0], err, strings.TrimSpace(string(out)))
	}
	d.logger.Debug().Str("message", message).Msg("Spoke alert")
	return nil
}

// DesktopDispatcher raises a desktop notification.
type DesktopDispatcher struct {
	logger zerolog.Logger
}

func NewDesktopDispatcher(logger zerolog.Logger) *DesktopDispatcher {
	return &DesktopDispatcher{logger: logger.With().Str("component", "alert-desktop").Logger()}
}

func (d *DesktopDispatcher) Dispatch(_ context.Context, message string) error {
	if err := beeep.Alert("Watch time limit", message, ""); err != nil {
		return fmt.Errorf("desktop notification: %w", err)
	}
	d.logger.Debug().Str("message", message).Msg("Raised desktop notification")
	return nil
}

// LogDispatcher writes alerts to the log. Always installed so every alert
// leaves a trace even when the audible sinks are off or failing.
type LogDispatcher struct {
	logger zerolog.Logger
}

func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.With().Str("component", "alert").Logger()}
}

func (d *LogDispatcher) Dispatch(_ context.Context, message string) error {
	d.logger.Warn().Str("message", message).Msg("Watch time limit exceeded")
	return nil
}

// MultiDispatcher fans an alert out to every sink. A failing sink is logged
// and skipped; the others still fire.
type MultiDispatcher struct {
	sinks  []Dispatcher
	logger zerolog.Logger
}

func NewMultiDispatcher(logger zerolog.Logger, sinks ...Dispatcher) *MultiDispatcher {
	return &MultiDispatcher{
		sinks:  sinks,
		logger: logger.With().Str("component", "alert").Logger(),
	}
}

func (d *MultiDispatcher) Dispatch(ctx context.Context, message string) error {
	for _, sink := range d.sinks {
		if err := sink.Dispatch(ctx, message); err != nil {
			d.logger.Error().Err(err).Msg("Alert sink failed")
		}
	}
	return nil
}

// Notify dispatches crossings as a single combined message and counts them.
func Notify(ctx context.Context, d Dispatcher, crossings []ledger.Crossing) {
	if len(crossings) == 0 {
		return
	}
	for _, c := range crossings {
		metrics.AlertsTriggered.WithLabelValues(string(c.Period)).Inc()
	}
	_ = d.Dispatch(ctx, JoinMessages(crossings))
}
