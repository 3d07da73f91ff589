// Package searcher composes the flashcard search pipeline: validation,
// query-result caching, full-text candidate retrieval, relevance ranking,
// filtering and sorting, and the best-effort history/analytics side channel.
// It also generates autocomplete suggestions from content and history.
//
// # Search
//
//	s := searcher.NewSearcher(store, historyStore,
//	    searcher.WithAnalytics(collector),
//	    searcher.WithCacheCapacity(100),
//	)
//
//	resp, err := s.Search(ctx, "hello", types.DefaultFilters())
//	for _, r := range resp.Results {
//	    fmt.Printf("%s (score %d)\n", r.Card.Word, r.RelevanceScore)
//	}
//
// A search flows through: validate -> cache lookup -> full-text query ->
// score -> filter -> sort -> cache write -> history write -> analytics
// write. A cache hit returns before any history or analytics side effect. A
// storage failure during the query phase aborts the call with a
// types.DatabaseError and produces no writes at all. Failures in the
// post-query side effects are recovered per step and never reach the
// caller.
//
// # Suggestions
//
//	resp, err := s.Suggest(ctx, "he", 0)
//
// Suggestions merge per-field prefix matches, substring-only matches, and
// matching history queries, deduplicated case-insensitively and ranked by
// match quality, field priority, frequency, recency, and length. Input
// shorter than two runes returns empty without querying storage; empty
// input returns recent searches.
//
// Callers typing keystroke-by-keystroke can guard against out-of-order
// responses with generation tokens:
//
//	token := s.NextToken()
//	resp, err := s.Suggest(ctx, input, token)
//	if err == nil && !resp.Stale {
//	    render(resp.Suggestions)
//	}
//
// Passing the zero token skips the staleness check.
package searcher
