package searcher

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dshills/flashdeck/internal/analytics"
	"github.com/dshills/flashdeck/internal/cache"
	"github.com/dshills/flashdeck/internal/filter"
	"github.com/dshills/flashdeck/internal/history"
	"github.com/dshills/flashdeck/internal/perf"
	"github.com/dshills/flashdeck/internal/ranking"
	"github.com/dshills/flashdeck/pkg/types"
)

// ContentSource is the storage collaborator the searcher queries. The
// full-text index behind it is kept in sync with card mutations by the
// storage layer; the searcher never writes card content.
type ContentSource interface {
	SearchFullText(ctx context.Context, query string, filters types.SearchFilters) ([]*types.Card, error)
	PrefixMatches(ctx context.Context, field types.FieldTag, prefix string, limit int) ([]string, error)
	SubstringMatches(ctx context.Context, field types.FieldTag, substr string, limit int) ([]string, error)
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results      []*types.SearchResult
	TotalResults int
	Duration     time.Duration
	CacheHit     bool
}

// Searcher composes ranking, filtering, caching, history, analytics, and
// performance tracking into one search/suggest API
type Searcher struct {
	content ContentSource
	ranker  *ranking.Engine
	filters *filter.Engine
	cache   *cache.Cache
	history *history.Store
	usage   *analytics.Collector
	monitor *perf.Monitor
	logger  *slog.Logger

	suggestLimit int
	generation   atomic.Uint64
}

// Option configures a Searcher
type Option func(*Searcher)

// WithFilterEngine replaces the default filter engine (e.g. to wire a study
// tracker or a collation locale)
func WithFilterEngine(engine *filter.Engine) Option {
	return func(s *Searcher) {
		if engine != nil {
			s.filters = engine
		}
	}
}

// WithCacheCapacity bounds the query cache
func WithCacheCapacity(capacity int) Option {
	return func(s *Searcher) {
		s.cache = cache.New(capacity)
	}
}

// WithAnalytics wires the usage collector. Without it no analytics are
// recorded.
func WithAnalytics(collector *analytics.Collector) Option {
	return func(s *Searcher) {
		s.usage = collector
	}
}

// WithMonitor replaces the default performance monitor
func WithMonitor(monitor *perf.Monitor) Option {
	return func(s *Searcher) {
		if monitor != nil {
			s.monitor = monitor
		}
	}
}

// WithSuggestionLimit caps suggestion responses.
// Default is DefaultSuggestionLimit.
func WithSuggestionLimit(limit int) Option {
	return func(s *Searcher) {
		if limit > 0 {
			s.suggestLimit = limit
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewSearcher creates a Searcher over the given content source and history
// store
func NewSearcher(content ContentSource, historyStore *history.Store, opts ...Option) *Searcher {
	s := &Searcher{
		content:      content,
		ranker:       ranking.NewEngine(),
		filters:      filter.NewEngine(),
		cache:        cache.New(cache.DefaultCapacity),
		history:      historyStore,
		monitor:      perf.NewMonitor(),
		logger:       slog.Default(),
		suggestLimit: DefaultSuggestionLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search executes a full search: validate, cache lookup, full-text query,
// score, filter, sort, then cache/history/analytics writes.
//
// Validation failures and query-phase storage failures return an error and
// produce no side effects. Once results are computed, each side-effect step
// is independently recovered so a failure in one never hides the results or
// blocks the others. A cache hit short-circuits before any history or
// analytics write.
func (s *Searcher) Search(ctx context.Context, query string, filters types.SearchFilters) (*SearchResponse, error) {
	startTime := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.ErrQueryTooShort
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	key := cache.Key(query, filters)
	if cached, ok := s.cache.Get(key); ok {
		response := &SearchResponse{
			Results:      cached,
			TotalResults: len(cached),
			Duration:     time.Since(startTime),
			CacheHit:     true,
		}
		s.monitor.Record(perf.Metrics{
			Query:       query,
			Duration:    response.Duration,
			ResultCount: response.TotalResults,
			CacheHit:    true,
		})
		return response, nil
	}

	cards, err := s.content.SearchFullText(ctx, query, filters)
	if err != nil {
		dbErr := &types.DatabaseError{Op: "search", Err: err}
		s.logger.Error("full-text query failed", "query", query, "err", err)
		return nil, dbErr
	}

	scored := make([]*types.SearchResult, 0, len(cards))
	for _, card := range cards {
		if result := s.ranker.Score(card, query); result != nil {
			scored = append(scored, result)
		}
	}

	results := s.filters.Apply(scored, filters)

	// Side effects are isolated from one another and from the response
	s.cache.Put(key, results)
	s.history.Add(ctx, types.HistoryEntry{
		Query:       query,
		Filters:     filters,
		ResultCount: len(results),
	})
	if s.usage != nil {
		s.usage.LogSearch(ctx, query, nil, analytics.ActionSearch)
	}

	response := &SearchResponse{
		Results:      results,
		TotalResults: len(results),
		Duration:     time.Since(startTime),
	}
	s.monitor.Record(perf.Metrics{
		Query:       query,
		Duration:    response.Duration,
		ResultCount: response.TotalResults,
	})
	return response, nil
}

// InvalidateCache drops all cached query results. Call after card mutations
// so stale result sets aren't served.
func (s *Searcher) InvalidateCache() {
	s.cache.Clear()
}

// Stats returns the performance counters over the retained metric window
func (s *Searcher) Stats() perf.Stats {
	return s.monitor.Stats()
}

// History exposes the underlying history store
func (s *Searcher) History() *history.Store {
	return s.history
}
