package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.0.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Folders table
CREATE TABLE IF NOT EXISTS folders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    parent_id INTEGER,
    name TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (parent_id) REFERENCES folders(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_folders_parent ON folders(parent_id);

-- Cards table
CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    folder_id INTEGER,
    word TEXT NOT NULL,
    translation TEXT NOT NULL,
    memo TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (folder_id) REFERENCES folders(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_cards_folder ON cards(folder_id);
CREATE INDEX IF NOT EXISTS idx_cards_word ON cards(word);
CREATE INDEX IF NOT EXISTS idx_cards_created ON cards(created_at);

-- Pronunciations table (a card may carry several readings)
CREATE TABLE IF NOT EXISTS card_pronunciations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id INTEGER NOT NULL,
    pronunciation TEXT NOT NULL,
    FOREIGN KEY (card_id) REFERENCES cards(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_pronunciations_card ON card_pronunciations(card_id);
CREATE INDEX IF NOT EXISTS idx_pronunciations_text ON card_pronunciations(pronunciation);

-- Full-text search on cards
CREATE VIRTUAL TABLE IF NOT EXISTS cards_fts USING fts5(
    word, translation, memo,
    content='cards',
    content_rowid='id'
);

-- Triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS cards_ai AFTER INSERT ON cards BEGIN
    INSERT INTO cards_fts(rowid, word, translation, memo)
    VALUES (new.id, new.word, new.translation, new.memo);
END;

CREATE TRIGGER IF NOT EXISTS cards_ad AFTER DELETE ON cards BEGIN
    INSERT INTO cards_fts(cards_fts, rowid, word, translation, memo)
    VALUES ('delete', old.id, old.word, old.translation, old.memo);
END;

CREATE TRIGGER IF NOT EXISTS cards_au AFTER UPDATE ON cards BEGIN
    INSERT INTO cards_fts(cards_fts, rowid, word, translation, memo)
    VALUES ('delete', old.id, old.word, old.translation, old.memo);
    INSERT INTO cards_fts(rowid, word, translation, memo)
    VALUES (new.id, new.word, new.translation, new.memo);
END;

-- Search history
CREATE TABLE IF NOT EXISTS search_history (
    id TEXT PRIMARY KEY,
    query TEXT NOT NULL,
    filters TEXT NOT NULL,
    dedup_key TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    result_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_history_timestamp ON search_history(timestamp);
CREATE INDEX IF NOT EXISTS idx_history_query ON search_history(query);
CREATE INDEX IF NOT EXISTS idx_history_dedup ON search_history(dedup_key);

-- Search analytics
CREATE TABLE IF NOT EXISTS search_analytics (
    id TEXT PRIMARY KEY,
    search_term TEXT NOT NULL,
    card_id INTEGER,
    timestamp TIMESTAMP NOT NULL,
    action_type TEXT NOT NULL DEFAULT 'search',
    FOREIGN KEY (card_id) REFERENCES cards(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_analytics_term ON search_analytics(search_term);
CREATE INDEX IF NOT EXISTS idx_analytics_timestamp ON search_analytics(timestamp);
CREATE INDEX IF NOT EXISTS idx_analytics_card ON search_analytics(card_id);

-- Analytics settings - single row, fixed id
CREATE TABLE IF NOT EXISTS analytics_settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    enabled BOOLEAN NOT NULL DEFAULT 1,
    retention_days INTEGER NOT NULL DEFAULT 90,
    anonymize_data BOOLEAN NOT NULL DEFAULT 0,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const migrationV1Down = `
-- Drop all tables in reverse order of dependencies
DROP TRIGGER IF EXISTS cards_au;
DROP TRIGGER IF EXISTS cards_ad;
DROP TRIGGER IF EXISTS cards_ai;

DROP TABLE IF EXISTS analytics_settings;
DROP TABLE IF EXISTS search_analytics;
DROP TABLE IF EXISTS search_history;
DROP TABLE IF EXISTS cards_fts;
DROP TABLE IF EXISTS card_pronunciations;
DROP TABLE IF EXISTS cards;
DROP TABLE IF EXISTS folders;
DROP TABLE IF EXISTS schema_version;
`

// schemaVersion reads the most recently applied migration version. A fresh
// database, where the version table doesn't exist yet or holds no rows,
// reports 0.0.0.
func schemaVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	var name string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&name)
	if err == sql.ErrNoRows {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	var version string
	err = db.QueryRowContext(ctx,
		`SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows || version == "" {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}

	parsed, err := semver.NewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("invalid schema version %s: %w", version, err)
	}
	return parsed, nil
}

// ApplyMigrations brings the schema up to the newest migration. Applied
// steps are recorded in schema_version, so reruns are no-ops.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range AllMigrations {
		target, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}
		if !current.LessThan(target) {
			continue
		}

		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO schema_version (version) VALUES (?)`, migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		current = target
	}

	return nil
}

// RollbackMigration undoes the most recently applied migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	var current string
	err := db.QueryRowContext(ctx,
		`SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1`).Scan(&current)
	if err != nil {
		return fmt.Errorf("no migrations to rollback: %w", err)
	}

	for i := range AllMigrations {
		if AllMigrations[i].Version != current {
			continue
		}

		if _, err := db.ExecContext(ctx, AllMigrations[i].Down); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", current, err)
		}
		if _, err := db.ExecContext(ctx,
			`DELETE FROM schema_version WHERE version = ?`, current); err != nil {
			return fmt.Errorf("failed to remove migration record %s: %w", current, err)
		}
		return nil
	}

	return fmt.Errorf("migration %s not found", current)
}
