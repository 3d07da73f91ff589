package storage

import (
	"context"
	"time"

	"github.com/dshills/flashdeck/pkg/types"
)

// Storage defines the interface for persisting and querying flashcard data.
// The search core consumes it as the content collaborator (full-text and
// suggestion candidate queries) and as the owner of the history, analytics,
// and settings tables.
type Storage interface {
	// Folder operations
	CreateFolder(ctx context.Context, folder *types.Folder) error
	GetFolder(ctx context.Context, folderID int64) (*types.Folder, error)
	ListFolders(ctx context.Context) ([]*types.Folder, error)
	DeleteFolder(ctx context.Context, folderID int64) error

	// Card operations
	CreateCard(ctx context.Context, card *types.Card) error
	GetCard(ctx context.Context, cardID int64) (*types.Card, error)
	UpdateCard(ctx context.Context, card *types.Card) error
	DeleteCard(ctx context.Context, cardID int64) error
	ListCards(ctx context.Context) ([]*types.Card, error)

	// Full-text search. Returns candidate cards whose text fields match the
	// query under FTS5 token or substring semantics; the search core
	// re-scores and re-filters the returned set. The FTS index is kept in
	// sync with card mutations by triggers, so results never lag writes.
	SearchFullText(ctx context.Context, query string, filters types.SearchFilters) ([]*types.Card, error)

	// Suggestion candidate queries over a single field family
	PrefixMatches(ctx context.Context, field types.FieldTag, prefix string, limit int) ([]string, error)
	SubstringMatches(ctx context.Context, field types.FieldTag, substr string, limit int) ([]string, error)

	// Search history persistence
	InsertHistory(ctx context.Context, entry *types.HistoryEntry) error
	DeleteHistoryByDedupKey(ctx context.Context, dedupKey string) error
	ListHistory(ctx context.Context, limit int) ([]*types.HistoryEntry, error)
	DeleteHistory(ctx context.Context, entryID string) error
	ClearHistory(ctx context.Context) error

	// Analytics persistence
	InsertAnalyticsEvent(ctx context.Context, event *AnalyticsEvent) error
	CountAnalyticsEvents(ctx context.Context) (int, error)
	AnalyticsTermCounts(ctx context.Context, limit int) ([]TermCount, error)
	AnalyticsActionCounts(ctx context.Context) (map[string]int, error)
	DeleteAnalyticsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Analytics settings - single persisted record
	GetAnalyticsSettings(ctx context.Context) (types.AnalyticsSettings, error)
	PutAnalyticsSettings(ctx context.Context, settings types.AnalyticsSettings) error

	// Database operations
	Close() error
}

// AnalyticsEvent is one persisted usage-log row
type AnalyticsEvent struct {
	ID         string
	SearchTerm string
	CardID     *int64 // Nullable - set when the event concerns one card
	Timestamp  time.Time
	ActionType string
}

// TermCount aggregates analytics events by search term
type TermCount struct {
	Term  string
	Count int
}
