package perf

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsEmpty(t *testing.T) {
	m := NewMonitor()
	stats := m.Stats()

	assert.Zero(t, stats.TotalSearches)
	assert.Zero(t, stats.AverageDuration)
	assert.Zero(t, stats.CacheHitRate)
	assert.Zero(t, stats.SlowQueries)
}

func TestStatsAggregates(t *testing.T) {
	m := NewMonitor(WithSlowThreshold(100 * time.Millisecond))

	m.Record(Metrics{Query: "a", Duration: 20 * time.Millisecond, CacheHit: true})
	m.Record(Metrics{Query: "b", Duration: 40 * time.Millisecond})
	m.Record(Metrics{Query: "c", Duration: 150 * time.Millisecond})
	m.Record(Metrics{Query: "d", Duration: 30 * time.Millisecond, CacheHit: true})

	stats := m.Stats()
	assert.Equal(t, 4, stats.TotalSearches)
	assert.Equal(t, 60*time.Millisecond, stats.AverageDuration)
	assert.Equal(t, 0.5, stats.CacheHitRate)
	assert.Equal(t, 1, stats.SlowQueries)
}

func TestRingBufferOverwritesOldest(t *testing.T) {
	m := NewMonitor(WithCapacity(3))

	for i := 0; i < 5; i++ {
		m.Record(Metrics{
			Query:    fmt.Sprintf("q%d", i),
			Duration: time.Duration(i) * time.Millisecond,
		})
	}

	stats := m.Stats()
	assert.Equal(t, 3, stats.TotalSearches, "window is capped at capacity")

	// Retained samples are q2, q3, q4: average of 2, 3, 4 ms
	assert.Equal(t, 3*time.Millisecond, stats.AverageDuration)
}

func TestRecordFillsTimestamp(t *testing.T) {
	m := NewMonitor()
	before := time.Now()
	m.Record(Metrics{Query: "a", Duration: time.Millisecond})

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.False(t, m.buf[0].Timestamp.Before(before))
}
