// Package ranking scores search candidates with tiered, additive relevance
// weighting and produces highlighted presentation text.
package ranking

import (
	"strings"
	"unicode/utf8"

	"github.com/dshills/flashdeck/pkg/types"
)

// Tier weights by field priority and match specificity. Within one field
// family only the first (most specific) matching tier contributes; weights
// accumulate across distinct families.
const (
	WordExact     = 100000
	WordPrefix    = 80000
	WordSubstring = 60000

	TranslationExact     = 50000
	TranslationPrefix    = 40000
	TranslationSubstring = 30000

	MemoExact     = 20000
	MemoPrefix    = 15000
	MemoSubstring = 10000

	PronunciationPrefix    = 5000
	PronunciationSubstring = 2500
)

// Highlight markers wrapped around each query occurrence in matched fields
const (
	MarkOpen  = "<mark>"
	MarkClose = "</mark>"
)

// Engine scores cards against a query
type Engine struct{}

// NewEngine creates a ranking engine
func NewEngine() *Engine {
	return &Engine{}
}

// Score evaluates a card against a query and returns a scored result, or
// nil when nothing matches. A returned result always has a positive score
// and a non-empty matched-field set.
func (e *Engine) Score(card *types.Card, query string) *types.SearchResult {
	if card == nil || query == "" {
		return nil
	}

	score := 0
	matched := make([]types.FieldTag, 0, 4)
	highlighted := make(map[types.FieldTag]string)

	if w := fieldWeight(card.Word, query, WordExact, WordPrefix, WordSubstring); w > 0 {
		score += w
		matched = append(matched, types.FieldWord)
		highlighted[types.FieldWord] = highlight(card.Word, query)
	}

	if w := fieldWeight(card.Translation, query, TranslationExact, TranslationPrefix, TranslationSubstring); w > 0 {
		score += w
		matched = append(matched, types.FieldTranslation)
		highlighted[types.FieldTranslation] = highlight(card.Translation, query)
	}

	if w := fieldWeight(card.Memo, query, MemoExact, MemoPrefix, MemoSubstring); w > 0 {
		score += w
		matched = append(matched, types.FieldMemo)
		highlighted[types.FieldMemo] = highlight(card.Memo, query)
	}

	if w := pronunciationWeight(card.Pronunciations, query); w > 0 {
		score += w
		matched = append(matched, types.FieldPronunciation)
		highlighted[types.FieldPronunciation] = highlightAll(card.Pronunciations, query)
	}

	if score == 0 {
		return nil
	}

	return &types.SearchResult{
		Card:           card,
		RelevanceScore: score,
		MatchedFields:  matched,
		Highlighted:    highlighted,
	}
}

// fieldWeight returns the weight of the most specific match in one field,
// or 0 when the field doesn't match at all
func fieldWeight(text, query string, exact, prefix, substring int) int {
	if text == "" {
		return 0
	}

	lowerText := strings.ToLower(text)
	lowerQuery := strings.ToLower(query)

	switch {
	case lowerText == lowerQuery:
		return exact
	case strings.HasPrefix(lowerText, lowerQuery):
		return prefix
	case strings.Contains(lowerText, lowerQuery):
		return substring
	default:
		return 0
	}
}

// pronunciationWeight returns the best weight across all pronunciation
// variants; the family contributes at most once
func pronunciationWeight(pronunciations []string, query string) int {
	best := 0
	lowerQuery := strings.ToLower(query)
	for _, p := range pronunciations {
		lower := strings.ToLower(p)
		switch {
		case strings.HasPrefix(lower, lowerQuery):
			if PronunciationPrefix > best {
				best = PronunciationPrefix
			}
		case strings.Contains(lower, lowerQuery):
			if PronunciationSubstring > best {
				best = PronunciationSubstring
			}
		}
	}
	return best
}

// highlight wraps every case-insensitive occurrence of query in text with
// the highlight markers. Matching walks the original text rune by rune, so
// marks always land on rune boundaries even when lowercasing changes a
// rune's byte length.
func highlight(text, query string) string {
	if text == "" || query == "" {
		return text
	}
	queryRunes := []rune(strings.ToLower(query))

	var b strings.Builder
	pos := 0
	for pos < len(text) {
		if end, ok := matchAt(text, pos, queryRunes); ok {
			b.WriteString(MarkOpen)
			b.WriteString(text[pos:end])
			b.WriteString(MarkClose)
			pos = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[pos:])
		b.WriteString(text[pos : pos+size])
		pos += size
	}
	return b.String()
}

// matchAt reports whether the lowered query occurs at byte offset pos of
// text, returning the offset just past the match. A text rune whose
// lowercase form extends beyond the query is not a match: the original rune
// cannot be split.
func matchAt(text string, pos int, query []rune) (int, bool) {
	qi := 0
	for pos < len(text) && qi < len(query) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		for _, lr := range strings.ToLower(string(r)) {
			if qi >= len(query) || lr != query[qi] {
				return 0, false
			}
			qi++
		}
		pos += size
	}
	if qi < len(query) {
		return 0, false
	}
	return pos, true
}

// highlightAll highlights each pronunciation variant and joins them
func highlightAll(texts []string, query string) string {
	parts := make([]string, len(texts))
	for i, t := range texts {
		parts[i] = highlight(t, query)
	}
	return strings.Join(parts, ", ")
}
