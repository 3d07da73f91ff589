// Package history maintains the capped, deduplicated log of recent searches.
//
// The in-memory list is authoritative; when persistence is wired, every
// mutation is written through best-effort. A persistence failure logs a
// warning and leaves the in-memory state intact, so history keeps working
// for the rest of the session even when the disk write path is broken.
package history

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/flashdeck/pkg/types"
)

// DefaultCapacity is the maximum number of retained history entries
const DefaultCapacity = 50

// Persistence is the subset of storage the history store writes through to
type Persistence interface {
	InsertHistory(ctx context.Context, entry *types.HistoryEntry) error
	DeleteHistoryByDedupKey(ctx context.Context, dedupKey string) error
	ListHistory(ctx context.Context, limit int) ([]*types.HistoryEntry, error)
	DeleteHistory(ctx context.Context, entryID string) error
	ClearHistory(ctx context.Context) error
}

// FrequentQuery aggregates history entries that share a query text
type FrequentQuery struct {
	Query    string
	Count    int
	LastUsed time.Time
}

// Store holds recent search history, newest first, capped at capacity
type Store struct {
	mu       sync.RWMutex
	entries  []*types.HistoryEntry
	capacity int
	persist  Persistence
	logger   *slog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithCapacity overrides the retained entry limit
func WithCapacity(capacity int) Option {
	return func(s *Store) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

// WithPersistence wires write-through persistence
func WithPersistence(p Persistence) Option {
	return func(s *Store) {
		s.persist = p
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewStore creates a history store
func NewStore(opts ...Option) *Store {
	s := &Store{
		capacity: DefaultCapacity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load populates the in-memory list from persistence. Call once at startup;
// without persistence it is a no-op.
func (s *Store) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}

	entries, err := s.persist.ListHistory(ctx, s.capacity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// Add records a search, replacing any existing entry with the same
// (query, filters) pair and evicting the oldest entry past capacity.
// Missing ID and Timestamp fields are filled in.
func (s *Store) Add(ctx context.Context, entry types.HistoryEntry) types.HistoryEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	dedupKey := entry.DedupKey()

	s.mu.Lock()
	kept := make([]*types.HistoryEntry, 0, len(s.entries)+1)
	kept = append(kept, &entry)
	var evicted []*types.HistoryEntry
	for _, e := range s.entries {
		if e.DedupKey() == dedupKey {
			continue
		}
		if len(kept) >= s.capacity {
			evicted = append(evicted, e)
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.DeleteHistoryByDedupKey(ctx, dedupKey); err != nil {
			s.logger.Warn("failed to remove stale history entry", "query", entry.Query, "err", err)
		}
		if err := s.persist.InsertHistory(ctx, &entry); err != nil {
			s.logger.Warn("failed to persist history entry", "query", entry.Query, "err", err)
		}
		for _, e := range evicted {
			if err := s.persist.DeleteHistory(ctx, e.ID); err != nil {
				s.logger.Warn("failed to remove evicted history entry", "id", e.ID, "err", err)
			}
		}
	}

	return entry
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) []*types.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}

	out := make([]*types.HistoryEntry, limit)
	for i := 0; i < limit; i++ {
		cp := *s.entries[i]
		out[i] = &cp
	}
	return out
}

// Remove deletes one entry by ID
func (s *Store) Remove(ctx context.Context, entryID string) {
	s.mu.Lock()
	for i, e := range s.entries {
		if e.ID == entryID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.DeleteHistory(ctx, entryID); err != nil {
			s.logger.Warn("failed to remove persisted history entry", "id", entryID, "err", err)
		}
	}
}

// Clear removes all history
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.ClearHistory(ctx); err != nil {
			s.logger.Warn("failed to clear persisted history", "err", err)
		}
	}
}

// Len returns the number of retained entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Frequent groups entries by query text and returns the top-N by occurrence
// count; ties go to the query used most recently
func (s *Store) Frequent(limit int) []FrequentQuery {
	s.mu.RLock()
	groups := make(map[string]*FrequentQuery)
	for _, e := range s.entries {
		g, ok := groups[e.Query]
		if !ok {
			g = &FrequentQuery{Query: e.Query}
			groups[e.Query] = g
		}
		g.Count++
		if e.Timestamp.After(g.LastUsed) {
			g.LastUsed = e.Timestamp
		}
	}
	s.mu.RUnlock()

	out := make([]FrequentQuery, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].LastUsed.After(out[j].LastUsed)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SuggestFrom returns entries whose query text contains partial
// (case-insensitive), newest first
func (s *Store) SuggestFrom(partial string, limit int) []*types.HistoryEntry {
	lower := strings.ToLower(partial)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.HistoryEntry, 0, limit)
	for _, e := range s.entries {
		if !strings.Contains(strings.ToLower(e.Query), lower) {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
