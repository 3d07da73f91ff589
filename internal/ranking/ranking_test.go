package ranking

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flashdeck/pkg/types"
)

func TestScoreFieldTiers(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name    string
		card    types.Card
		query   string
		want    int
		matched []types.FieldTag
	}{
		{
			name:    "word exact match",
			card:    types.Card{Word: "hello", Translation: "こんにちは"},
			query:   "hello",
			want:    WordExact,
			matched: []types.FieldTag{types.FieldWord},
		},
		{
			name:    "word prefix match",
			card:    types.Card{Word: "hello", Translation: "こんにちは"},
			query:   "hel",
			want:    WordPrefix,
			matched: []types.FieldTag{types.FieldWord},
		},
		{
			name:    "word substring match",
			card:    types.Card{Word: "hello", Translation: "こんにちは"},
			query:   "ell",
			want:    WordSubstring,
			matched: []types.FieldTag{types.FieldWord},
		},
		{
			name:    "translation exact match",
			card:    types.Card{Word: "hello", Translation: "こんにちは"},
			query:   "こんにちは",
			want:    TranslationExact,
			matched: []types.FieldTag{types.FieldTranslation},
		},
		{
			name:    "memo substring match",
			card:    types.Card{Word: "bye", Translation: "さようなら", Memo: "say hello to everyone"},
			query:   "hello",
			want:    MemoSubstring,
			matched: []types.FieldTag{types.FieldMemo},
		},
		{
			name:    "pronunciation prefix match",
			card:    types.Card{Word: "hello", Translation: "こんにちは", Pronunciations: []string{"həˈloʊ"}},
			query:   "hə",
			want:    PronunciationPrefix,
			matched: []types.FieldTag{types.FieldPronunciation},
		},
		{
			name:    "weights accumulate across families",
			card:    types.Card{Word: "green", Translation: "green color", Memo: "green things"},
			query:   "green",
			want:    WordExact + TranslationPrefix + MemoPrefix,
			matched: []types.FieldTag{types.FieldWord, types.FieldTranslation, types.FieldMemo},
		},
		{
			name:  "case insensitive",
			card:  types.Card{Word: "Hello", Translation: "こんにちは"},
			query: "HELLO",
			want:  WordExact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.Score(&tt.card, tt.query)
			require.NotNil(t, result)
			assert.Equal(t, tt.want, result.RelevanceScore)
			if tt.matched != nil {
				assert.Equal(t, tt.matched, result.MatchedFields)
			}
			require.NoError(t, result.Validate())
		})
	}
}

func TestScoreNoMatchReturnsNil(t *testing.T) {
	engine := NewEngine()
	card := &types.Card{Word: "hello", Translation: "こんにちは", Memo: "greeting"}

	assert.Nil(t, engine.Score(card, "xyz"))
	assert.Nil(t, engine.Score(card, ""))
	assert.Nil(t, engine.Score(nil, "hello"))
}

func TestScoreOnlyMostSpecificTierPerFamily(t *testing.T) {
	engine := NewEngine()

	// An exact word match is also a prefix and substring match; only the
	// exact tier may count
	card := &types.Card{Word: "cat", Translation: "猫"}
	result := engine.Score(card, "cat")
	require.NotNil(t, result)
	assert.Equal(t, WordExact, result.RelevanceScore)
}

func TestExactWordOutranksMemoSubstring(t *testing.T) {
	engine := NewEngine()

	exact := engine.Score(&types.Card{Word: "hello", Translation: "こんにちは"}, "hello")
	memo := engine.Score(&types.Card{Word: "bye", Translation: "さようなら", Memo: "say hello to everyone"}, "hello")

	require.NotNil(t, exact)
	require.NotNil(t, memo)
	assert.Greater(t, exact.RelevanceScore, memo.RelevanceScore)
}

func TestHighlight(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		query string
		want  string
	}{
		{
			name:  "single occurrence",
			text:  "hello world",
			query: "hello",
			want:  "<mark>hello</mark> world",
		},
		{
			name:  "multiple occurrences",
			text:  "go go go",
			query: "go",
			want:  "<mark>go</mark> <mark>go</mark> <mark>go</mark>",
		},
		{
			name:  "case preserved",
			text:  "Hello HELLO hello",
			query: "hello",
			want:  "<mark>Hello</mark> <mark>HELLO</mark> <mark>hello</mark>",
		},
		{
			name:  "no occurrence",
			text:  "goodbye",
			query: "hello",
			want:  "goodbye",
		},
		{
			name:  "multibyte text",
			text:  "こんにちは世界",
			query: "にち",
			want:  "こん<mark>にち</mark>は世界",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := highlight(tt.text, tt.query)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestHighlightLowercaseChangesByteLength(t *testing.T) {
	// Lowercasing U+0130 "İ" yields the two-rune "i̇"; marks must still wrap
	// whole runes of the original text
	got := highlight("İstanbul", "İ")
	assert.Equal(t, "<mark>İ</mark>stanbul", got)
	assert.True(t, utf8.ValidString(got))

	got = highlight("AİB", "İb")
	assert.Equal(t, "A<mark>İB</mark>", got)
	assert.True(t, utf8.ValidString(got))

	// A match may not end inside a rune's lowered expansion
	got = highlight("İ", "i")
	assert.Equal(t, "İ", got)
	assert.True(t, utf8.ValidString(got))
}

func TestScoreHighlightsMatchedFieldsOnly(t *testing.T) {
	engine := NewEngine()
	card := &types.Card{Word: "hello", Translation: "こんにちは", Memo: "greeting"}

	result := engine.Score(card, "hello")
	require.NotNil(t, result)
	assert.Equal(t, "<mark>hello</mark>", result.Highlighted[types.FieldWord])
	assert.NotContains(t, result.Highlighted, types.FieldTranslation)
	assert.NotContains(t, result.Highlighted, types.FieldMemo)
}
