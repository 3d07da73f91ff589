package types

import "time"

// SearchResult represents a single scored search result
type SearchResult struct {
	Card *Card

	// Scoring
	RelevanceScore int // Additive tiered score; always > 0 for returned results
	MatchedFields  []FieldTag

	// Presentation metadata - matched field text with every query
	// occurrence wrapped in highlight markers. Not used for scoring.
	Highlighted map[FieldTag]string
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Card == nil {
		return ErrMissingCard
	}

	if sr.RelevanceScore <= 0 {
		return ErrInvalidRelevanceScore
	}

	if len(sr.MatchedFields) == 0 {
		return ErrEmptyMatchedFields
	}

	return nil
}

// SuggestionType identifies where an autocomplete candidate came from
type SuggestionType string

const (
	SuggestionWord          SuggestionType = "word"
	SuggestionTranslation   SuggestionType = "translation"
	SuggestionMemo          SuggestionType = "memo"
	SuggestionHistory       SuggestionType = "history"
	SuggestionPronunciation SuggestionType = "pronunciation"
)

// Suggestion represents one autocomplete candidate
type Suggestion struct {
	ID   string
	Text string
	Type SuggestionType

	// Ranking signals - zero values when the source doesn't provide them
	Frequency   int
	LastUsed    time.Time
	ResultCount int
}

// HistoryEntry records a past executed search
type HistoryEntry struct {
	ID          string
	Query       string
	Filters     SearchFilters
	Timestamp   time.Time
	ResultCount int
}

// DedupKey returns the key under which history entries are deduplicated:
// the exact query text plus the serialized filters.
func (h HistoryEntry) DedupKey() string {
	return h.Query + "\x00" + h.Filters.Key()
}

// AnalyticsSettings controls usage logging, loaded from storage at startup
// and mutable at runtime
type AnalyticsSettings struct {
	Enabled       bool
	RetentionDays int
	AnonymizeData bool
}

// DefaultAnalyticsSettings returns the settings used before any are persisted
func DefaultAnalyticsSettings() AnalyticsSettings {
	return AnalyticsSettings{
		Enabled:       true,
		RetentionDays: 90,
		AnonymizeData: false,
	}
}
