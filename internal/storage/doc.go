// Package storage provides SQLite-backed persistence for flashcards and the
// search subsystem's owned tables.
//
// The Storage interface covers three concerns:
//
//   - Content: folders, cards, and pronunciations, plus the FTS5 index over
//     card text. Triggers keep cards_fts synchronized with card mutations,
//     so full-text results never lag writes.
//   - Suggestion candidates: distinct prefix and substring matches over a
//     single field family (word, translation, memo, pronunciation).
//   - Search-owned state: the search_history, search_analytics, and
//     analytics_settings tables.
//
// # Full-Text Search
//
// SearchFullText returns a candidate superset: FTS5 token matches unioned
// with case-insensitive LIKE substring matches across all text fields. The
// search core re-scores and re-filters, so looser matching here only costs
// work, never correctness.
//
// # Drivers
//
// Two SQLite drivers are supported via build tags:
//
//	CGO_ENABLED=0 go build ./...                          # modernc.org/sqlite (default)
//	CGO_ENABLED=1 go build -tags "cgo_sqlite,fts5" ./...  # mattn/go-sqlite3
//
// # Migrations
//
// Schema changes are applied through semver-ordered migrations recorded in
// the schema_version table. ApplyMigrations runs automatically when the
// storage is opened.
package storage
