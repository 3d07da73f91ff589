// Package types provides shared type definitions for the flashdeck search
// subsystem.
//
// This package defines the domain types used across the search components:
// cards and folders, search filters, scored results, autocomplete
// suggestions, and history entries.
//
// # Core Types
//
// Card is the searchable record, owned by the storage layer; the search
// core only reads it:
//
//	card := &types.Card{
//	    Word:        "hello",
//	    Translation: "こんにちは",
//	    Memo:        "common greeting",
//	}
//
// SearchFilters narrows and orders results and serializes deterministically:
//
//	filters := types.DefaultFilters()
//	filters.SortBy = types.SortAlphabetical
//	key := filters.Key() // stable across semantically identical values
//
// SearchResult carries the relevance score, the set of matched fields, and
// highlighted presentation text. Every returned result has a positive score
// and a non-empty matched-field set; Validate enforces both.
//
// # Errors
//
// Validation failures use the sentinel errors ErrQueryTooShort and
// ErrInvalidFilters. Storage failures during the query phase are wrapped in
// DatabaseError so callers can detect them with errors.As.
package types
