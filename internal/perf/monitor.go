// Package perf tracks search latency in a bounded ring buffer and flags
// slow queries.
package perf

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultCapacity is the number of retained metric samples
	DefaultCapacity = 1000

	// DefaultSlowThreshold flags queries slower than this. Crossing it
	// logs a warning; it is never an error.
	DefaultSlowThreshold = 1000 * time.Millisecond
)

// Metrics records one executed search
type Metrics struct {
	Query       string
	Duration    time.Duration
	ResultCount int
	CacheHit    bool
	Timestamp   time.Time
}

// Stats aggregates the retained metric window
type Stats struct {
	TotalSearches   int
	AverageDuration time.Duration
	CacheHitRate    float64
	SlowQueries     int
}

// Monitor retains recent search metrics in a fixed-size ring buffer
type Monitor struct {
	mu            sync.Mutex
	buf           []Metrics
	next          int
	filled        bool
	slowThreshold time.Duration
	logger        *slog.Logger
}

// Option configures a Monitor
type Option func(*Monitor)

// WithCapacity overrides the ring buffer size
func WithCapacity(capacity int) Option {
	return func(m *Monitor) {
		if capacity > 0 {
			m.buf = make([]Metrics, capacity)
		}
	}
}

// WithSlowThreshold overrides the slow-query threshold
func WithSlowThreshold(threshold time.Duration) Option {
	return func(m *Monitor) {
		if threshold > 0 {
			m.slowThreshold = threshold
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
	}
}

// NewMonitor creates a performance monitor
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		buf:           make([]Metrics, DefaultCapacity),
		slowThreshold: DefaultSlowThreshold,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Record stores one metric sample, overwriting the oldest when full
func (m *Monitor) Record(metrics Metrics) {
	if metrics.Timestamp.IsZero() {
		metrics.Timestamp = time.Now()
	}

	if metrics.Duration > m.slowThreshold {
		m.logger.Warn("slow search query",
			"query", metrics.Query,
			"duration", metrics.Duration,
			"threshold", m.slowThreshold)
	}

	m.mu.Lock()
	m.buf[m.next] = metrics
	m.next++
	if m.next >= len(m.buf) {
		m.next = 0
		m.filled = true
	}
	m.mu.Unlock()
}

// Stats computes aggregates over the retained window
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := m.next
	if m.filled {
		count = len(m.buf)
	}

	stats := Stats{TotalSearches: count}
	if count == 0 {
		return stats
	}

	var totalDuration time.Duration
	hits := 0
	for i := 0; i < count; i++ {
		sample := m.buf[i]
		totalDuration += sample.Duration
		if sample.CacheHit {
			hits++
		}
		if sample.Duration > m.slowThreshold {
			stats.SlowQueries++
		}
	}

	stats.AverageDuration = totalDuration / time.Duration(count)
	stats.CacheHitRate = float64(hits) / float64(count)
	return stats
}
