// Package filter applies post-query filtering and sorting to scored search
// results.
package filter

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dshills/flashdeck/pkg/types"
)

// StudyTracker is the optional study-session collaborator. Status derivation
// and progress ordering live outside the search core; when no tracker is
// wired, every card counts as new and progress sorts are no-ops.
type StudyTracker interface {
	Status(cardID int64) types.StudyStatus
	Progress(cardID int64) float64
	LastStudied(cardID int64) time.Time
}

// Engine filters and sorts search results. Safe for concurrent use: the
// collator reuses internal buffers across comparisons, so alphabetical
// comparisons are serialized behind collMu.
type Engine struct {
	tracker  StudyTracker
	collMu   sync.Mutex
	collator *collate.Collator
}

// Option configures an Engine
type Option func(*Engine)

// WithTracker wires the study-session collaborator
func WithTracker(tracker StudyTracker) Option {
	return func(e *Engine) {
		e.tracker = tracker
	}
}

// WithLocale sets the collation locale for alphabetical sorting.
// Default is language-neutral collation.
func WithLocale(tag language.Tag) Option {
	return func(e *Engine) {
		e.collator = collate.New(tag)
	}
}

// NewEngine creates a filter engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		collator: collate.New(language.Und),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply filters results according to the filter predicates, then sorts them
// by the requested field and order. The input slice is not modified.
func (e *Engine) Apply(results []*types.SearchResult, filters types.SearchFilters) []*types.SearchResult {
	filtered := make([]*types.SearchResult, 0, len(results))
	for _, r := range results {
		if e.keep(r, filters) {
			filtered = append(filtered, r)
		}
	}

	e.sortResults(filtered, filters)
	return filtered
}

func (e *Engine) keep(r *types.SearchResult, filters types.SearchFilters) bool {
	card := r.Card

	if filters.FilterFolder {
		if filters.FolderID == nil {
			if card.FolderID != nil {
				return false
			}
		} else if card.FolderID == nil || *card.FolderID != *filters.FolderID {
			return false
		}
	}

	if dr := filters.DateRange; dr != nil {
		if card.CreatedAt.Before(dr.Start) || card.CreatedAt.After(dr.End) {
			return false
		}
	}

	if len(filters.StudyStatuses) > 0 {
		status := e.status(card.ID)
		found := false
		for _, want := range filters.StudyStatuses {
			if status == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func (e *Engine) status(cardID int64) types.StudyStatus {
	if e.tracker == nil {
		return types.StatusNew
	}
	return e.tracker.Status(cardID)
}

func (e *Engine) sortResults(results []*types.SearchResult, filters types.SearchFilters) {
	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = types.SortRelevance
	}

	order := filters.SortOrder
	if order == "" {
		// Relevance reads best-first by default; the rest read oldest or
		// A-first by default
		if sortBy == types.SortRelevance {
			order = types.SortDesc
		} else {
			order = types.SortAsc
		}
	}

	sign := 1
	if order == types.SortDesc {
		sign = -1
	}

	var cmp func(a, b *types.SearchResult) int
	switch sortBy {
	case types.SortRelevance:
		cmp = cmpRelevance
	case types.SortDateCreated:
		cmp = cmpCreatedAt
	case types.SortAlphabetical:
		cmp = func(a, b *types.SearchResult) int {
			e.collMu.Lock()
			defer e.collMu.Unlock()
			return e.collator.CompareString(a.Card.Word, b.Card.Word)
		}
	case types.SortStudyProgress:
		if e.tracker == nil {
			return
		}
		cmp = func(a, b *types.SearchResult) int {
			return cmpFloat(e.tracker.Progress(a.Card.ID), e.tracker.Progress(b.Card.ID))
		}
	case types.SortLastStudied:
		if e.tracker == nil {
			return
		}
		cmp = func(a, b *types.SearchResult) int {
			return cmpTime(e.tracker.LastStudied(a.Card.ID), e.tracker.LastStudied(b.Card.ID))
		}
	default:
		return
	}

	sort.SliceStable(results, func(i, j int) bool {
		return sign*cmp(results[i], results[j]) < 0
	})
}

// cmpRelevance orders ascending by score with ascending createdAt ties, so
// a descending sort yields best-score-first with newest-first ties
func cmpRelevance(a, b *types.SearchResult) int {
	if a.RelevanceScore != b.RelevanceScore {
		return a.RelevanceScore - b.RelevanceScore
	}
	return cmpTime(a.Card.CreatedAt, b.Card.CreatedAt)
}

func cmpCreatedAt(a, b *types.SearchResult) int {
	return cmpTime(a.Card.CreatedAt, b.Card.CreatedAt)
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
