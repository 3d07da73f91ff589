package searcher

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/flashdeck/pkg/types"
)

const (
	// DefaultSuggestionLimit caps suggestion responses
	DefaultSuggestionLimit = 8

	// MinPartialLength is the shortest input that triggers candidate
	// lookups; anything shorter returns empty without touching storage
	MinPartialLength = 2

	// Per-family candidate budgets
	prefixPerFamily    = 5
	substringPerFamily = 3
)

// Token identifies one suggestion request generation. Callers that issue
// overlapping requests can take a fresh token per keystroke and discard
// responses marked stale; the zero token disables the check.
type Token uint64

// SuggestResponse contains ranked suggestions and staleness metadata
type SuggestResponse struct {
	Suggestions []types.Suggestion

	// Stale reports that a newer token was issued before this response
	// was assembled. The results are still valid for the input they were
	// computed from; the caller decides whether to display them.
	Stale bool
}

// suggestFamilies lists the content field families in priority order
var suggestFamilies = []types.FieldTag{
	types.FieldWord,
	types.FieldTranslation,
	types.FieldMemo,
	types.FieldPronunciation,
}

// NextToken issues a new request generation, marking all earlier tokens
// stale
func (s *Searcher) NextToken() Token {
	return Token(s.generation.Add(1))
}

// Suggest returns ranked autocomplete candidates for a partial input,
// merging content-derived and history-derived candidates. The cache is
// never consulted and no history entry is written.
func (s *Searcher) Suggest(ctx context.Context, partial string, token Token) (*SuggestResponse, error) {
	partial = strings.TrimSpace(partial)

	// Empty input surfaces recent searches only
	if partial == "" {
		return s.finishSuggest(s.recentSearches(), token), nil
	}

	if utf8.RuneCountInString(partial) < MinPartialLength {
		return s.finishSuggest(nil, token), nil
	}

	prefixMatches, substrMatches, err := s.fetchContentCandidates(ctx, partial)
	if err != nil {
		s.logger.Error("suggestion candidate query failed", "partial", partial, "err", err)
		return nil, &types.DatabaseError{Op: "suggest", Err: err}
	}

	merged := s.mergeCandidates(partial, prefixMatches, substrMatches)
	rankSuggestions(merged, partial)

	if len(merged) > s.suggestLimit {
		merged = merged[:s.suggestLimit]
	}
	return s.finishSuggest(merged, token), nil
}

// fetchContentCandidates queries every field family concurrently: one
// prefix fetch and one substring fetch per family
func (s *Searcher) fetchContentCandidates(ctx context.Context, partial string) (prefix, substr [][]string, err error) {
	prefix = make([][]string, len(suggestFamilies))
	substr = make([][]string, len(suggestFamilies))

	g, gctx := errgroup.WithContext(ctx)
	for i, family := range suggestFamilies {
		i, family := i, family
		g.Go(func() error {
			matches, err := s.content.PrefixMatches(gctx, family, partial, prefixPerFamily)
			if err != nil {
				return err
			}
			prefix[i] = matches
			return nil
		})
		g.Go(func() error {
			matches, err := s.content.SubstringMatches(gctx, family, partial, prefixPerFamily+substringPerFamily)
			if err != nil {
				return err
			}
			substr[i] = matches
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return prefix, substr, nil
}

// mergeCandidates assembles content candidates in family-priority order
// (prefix hits first, then substring-only hits), appends history
// candidates, and deduplicates case-insensitively with first occurrence
// winning
func (s *Searcher) mergeCandidates(partial string, prefixMatches, substrMatches [][]string) []types.Suggestion {
	seen := make(map[string]int) // lowered text -> index into out
	out := make([]types.Suggestion, 0, s.suggestLimit*2)

	add := func(text string, kind types.SuggestionType) {
		lower := strings.ToLower(text)
		if _, ok := seen[lower]; ok {
			return
		}
		seen[lower] = len(out)
		out = append(out, types.Suggestion{
			ID:   uuid.NewString(),
			Text: text,
			Type: kind,
		})
	}

	for i, family := range suggestFamilies {
		for _, text := range prefixMatches[i] {
			add(text, suggestionTypeFor(family))
		}
	}

	lowerPartial := strings.ToLower(partial)
	for i, family := range suggestFamilies {
		taken := 0
		for _, text := range substrMatches[i] {
			if taken >= substringPerFamily {
				break
			}
			// Prefix hits were already captured above
			if strings.HasPrefix(strings.ToLower(text), lowerPartial) {
				continue
			}
			before := len(out)
			add(text, suggestionTypeFor(family))
			if len(out) > before {
				taken++
			}
		}
	}

	for _, entry := range s.history.SuggestFrom(partial, s.suggestLimit) {
		lower := strings.ToLower(entry.Query)
		if idx, ok := seen[lower]; ok {
			// Same text already present: fold this occurrence into its
			// ranking signals instead of duplicating it
			existing := &out[idx]
			if existing.Type == types.SuggestionHistory {
				existing.Frequency++
				if entry.Timestamp.After(existing.LastUsed) {
					existing.LastUsed = entry.Timestamp
					existing.ResultCount = entry.ResultCount
				}
			}
			continue
		}
		seen[lower] = len(out)
		out = append(out, types.Suggestion{
			ID:          entry.ID,
			Text:        entry.Query,
			Type:        types.SuggestionHistory,
			Frequency:   1,
			LastUsed:    entry.Timestamp,
			ResultCount: entry.ResultCount,
		})
	}

	return out
}

// recentSearches maps the newest history entries to suggestions
func (s *Searcher) recentSearches() []types.Suggestion {
	entries := s.history.List(s.suggestLimit)
	out := make([]types.Suggestion, 0, len(entries))
	for _, e := range entries {
		out = append(out, types.Suggestion{
			ID:          e.ID,
			Text:        e.Query,
			Type:        types.SuggestionHistory,
			Frequency:   1,
			LastUsed:    e.Timestamp,
			ResultCount: e.ResultCount,
		})
	}
	return out
}

func (s *Searcher) finishSuggest(suggestions []types.Suggestion, token Token) *SuggestResponse {
	if suggestions == nil {
		suggestions = []types.Suggestion{}
	}
	return &SuggestResponse{
		Suggestions: suggestions,
		Stale:       token != 0 && uint64(token) != s.generation.Load(),
	}
}

// rankSuggestions orders candidates: exact match, then starts-with, then
// field-type priority, then frequency, then recency, then shorter text
func rankSuggestions(suggestions []types.Suggestion, partial string) {
	lowerPartial := strings.ToLower(partial)

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]

		aExact := strings.ToLower(a.Text) == lowerPartial
		bExact := strings.ToLower(b.Text) == lowerPartial
		if aExact != bExact {
			return aExact
		}

		aPrefix := strings.HasPrefix(strings.ToLower(a.Text), lowerPartial)
		bPrefix := strings.HasPrefix(strings.ToLower(b.Text), lowerPartial)
		if aPrefix != bPrefix {
			return aPrefix
		}

		if ar, br := typePriority(a.Type), typePriority(b.Type); ar != br {
			return ar > br
		}

		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}

		if !a.LastUsed.Equal(b.LastUsed) {
			return a.LastUsed.After(b.LastUsed)
		}

		return len(a.Text) < len(b.Text)
	})
}

func typePriority(kind types.SuggestionType) int {
	switch kind {
	case types.SuggestionWord:
		return 5
	case types.SuggestionTranslation:
		return 4
	case types.SuggestionHistory:
		return 3
	case types.SuggestionMemo:
		return 2
	case types.SuggestionPronunciation:
		return 1
	default:
		return 0
	}
}

func suggestionTypeFor(field types.FieldTag) types.SuggestionType {
	switch field {
	case types.FieldWord:
		return types.SuggestionWord
	case types.FieldTranslation:
		return types.SuggestionTranslation
	case types.FieldMemo:
		return types.SuggestionMemo
	case types.FieldPronunciation:
		return types.SuggestionPronunciation
	default:
		return types.SuggestionWord
	}
}
