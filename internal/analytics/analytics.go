// Package analytics provides privacy-gated usage logging for searches.
//
// The collector reads its settings through the injected provider on every
// call, so toggling privacy mode takes effect immediately. Logging is a
// best-effort side channel: write failures are counted and logged, never
// returned to the caller.
package analytics

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/flashdeck/internal/storage"
	"github.com/dshills/flashdeck/pkg/types"
)

// ActionSearch is the default action type for logged events
const ActionSearch = "search"

// maskRune replaces hidden characters when anonymization is on
const maskRune = '*'

// SettingsProvider supplies the current analytics settings. Read fresh on
// each call, never cached at construction.
type SettingsProvider interface {
	GetAnalyticsSettings(ctx context.Context) (types.AnalyticsSettings, error)
}

// Sink is the storage subset analytics events are written to
type Sink interface {
	InsertAnalyticsEvent(ctx context.Context, event *storage.AnalyticsEvent) error
	CountAnalyticsEvents(ctx context.Context) (int, error)
	AnalyticsTermCounts(ctx context.Context, limit int) ([]storage.TermCount, error)
	AnalyticsActionCounts(ctx context.Context) (map[string]int, error)
	DeleteAnalyticsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Summary aggregates the persisted analytics events
type Summary struct {
	TotalEvents  int
	TopTerms     []storage.TermCount
	ActionCounts map[string]int
}

// Collector logs search usage subject to the privacy settings
type Collector struct {
	settings SettingsProvider
	sink     Sink
	logger   *slog.Logger
	dropped  atomic.Int64
}

// Option configures a Collector
type Option func(*Collector)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// NewCollector creates an analytics collector
func NewCollector(settings SettingsProvider, sink Sink, opts ...Option) *Collector {
	c := &Collector{
		settings: settings,
		sink:     sink,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LogSearch records one usage event. It never returns an error: when
// analytics is disabled it does nothing, and when the write fails the
// failure is counted and logged.
func (c *Collector) LogSearch(ctx context.Context, term string, cardID *int64, actionType string) {
	settings, err := c.settings.GetAnalyticsSettings(ctx)
	if err != nil {
		c.dropped.Add(1)
		c.logger.Warn("failed to read analytics settings", "err", err)
		return
	}

	if !settings.Enabled {
		return
	}

	if settings.AnonymizeData {
		term = MaskTerm(term)
	}

	if actionType == "" {
		actionType = ActionSearch
	}

	event := &storage.AnalyticsEvent{
		ID:         uuid.NewString(),
		SearchTerm: term,
		CardID:     cardID,
		Timestamp:  time.Now(),
		ActionType: actionType,
	}

	if err := c.sink.InsertAnalyticsEvent(ctx, event); err != nil {
		c.dropped.Add(1)
		c.logger.Warn("failed to write analytics event", "action", actionType, "err", err)
	}
}

// Dropped returns how many events were lost to settings or write failures
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Analytics summarizes the persisted events
func (c *Collector) Analytics(ctx context.Context) (*Summary, error) {
	total, err := c.sink.CountAnalyticsEvents(ctx)
	if err != nil {
		return nil, err
	}

	topTerms, err := c.sink.AnalyticsTermCounts(ctx, 10)
	if err != nil {
		return nil, err
	}

	actions, err := c.sink.AnalyticsActionCounts(ctx)
	if err != nil {
		return nil, err
	}

	return &Summary{
		TotalEvents:  total,
		TopTerms:     topTerms,
		ActionCounts: actions,
	}, nil
}

// Cleanup deletes events older than olderThanDays. When olderThanDays <= 0
// the configured retention period applies.
func (c *Collector) Cleanup(ctx context.Context, olderThanDays int) (int, error) {
	if olderThanDays <= 0 {
		settings, err := c.settings.GetAnalyticsSettings(ctx)
		if err != nil {
			return 0, err
		}
		olderThanDays = settings.RetentionDays
	}
	if olderThanDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	return c.sink.DeleteAnalyticsBefore(ctx, cutoff)
}

// MaskTerm anonymizes a search term. Terms of up to two runes become a
// fixed two-character mask; longer terms keep their first and last rune
// with the interior fully masked.
func MaskTerm(term string) string {
	runes := []rune(term)
	if len(runes) <= 2 {
		return string([]rune{maskRune, maskRune})
	}

	var b strings.Builder
	b.WriteRune(runes[0])
	for i := 1; i < len(runes)-1; i++ {
		b.WriteRune(maskRune)
	}
	b.WriteRune(runes[len(runes)-1])
	return b.String()
}
