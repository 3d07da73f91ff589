package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/flashdeck/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// maxSearchCandidates caps the candidate set returned to the search core.
// The core re-scores and re-filters, so this only bounds work per query.
const maxSearchCandidates = 500

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Folder operations

func (s *SQLiteStorage) CreateFolder(ctx context.Context, folder *types.Folder) error {
	query := `
		INSERT INTO folders (parent_id, name, created_at)
		VALUES (?, ?, ?)
	`
	now := time.Now()
	result, err := s.db.ExecContext(ctx, query, folder.ParentID, folder.Name, now)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	folder.ID = id
	folder.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) GetFolder(ctx context.Context, folderID int64) (*types.Folder, error) {
	query := `
		SELECT id, parent_id, name, created_at
		FROM folders
		WHERE id = ?
	`
	var folder types.Folder
	err := s.db.QueryRowContext(ctx, query, folderID).Scan(
		&folder.ID, &folder.ParentID, &folder.Name, &folder.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

func (s *SQLiteStorage) ListFolders(ctx context.Context) ([]*types.Folder, error) {
	query := `
		SELECT id, parent_id, name, created_at
		FROM folders
		ORDER BY name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	folders := make([]*types.Folder, 0)
	for rows.Next() {
		var folder types.Folder
		if err := rows.Scan(&folder.ID, &folder.ParentID, &folder.Name, &folder.CreatedAt); err != nil {
			return nil, err
		}
		folders = append(folders, &folder)
	}
	return folders, rows.Err()
}

func (s *SQLiteStorage) DeleteFolder(ctx context.Context, folderID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, folderID)
	return err
}

// Card operations

func (s *SQLiteStorage) CreateCard(ctx context.Context, card *types.Card) error {
	if err := card.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO cards (folder_id, word, translation, memo, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	createdAt := card.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	result, err := s.db.ExecContext(ctx, query,
		card.FolderID, card.Word, card.Translation, card.Memo, createdAt, now)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	card.ID = id
	card.CreatedAt = createdAt
	card.UpdatedAt = now

	return s.replacePronunciations(ctx, card.ID, card.Pronunciations)
}

func (s *SQLiteStorage) GetCard(ctx context.Context, cardID int64) (*types.Card, error) {
	query := `
		SELECT id, folder_id, word, translation, memo, created_at, updated_at
		FROM cards
		WHERE id = ?
	`
	var card types.Card
	err := s.db.QueryRowContext(ctx, query, cardID).Scan(
		&card.ID, &card.FolderID, &card.Word, &card.Translation, &card.Memo,
		&card.CreatedAt, &card.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadPronunciations(ctx, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (s *SQLiteStorage) UpdateCard(ctx context.Context, card *types.Card) error {
	if err := card.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE cards
		SET folder_id = ?, word = ?, translation = ?, memo = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	result, err := s.db.ExecContext(ctx, query,
		card.FolderID, card.Word, card.Translation, card.Memo, now, card.ID)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	card.UpdatedAt = now

	return s.replacePronunciations(ctx, card.ID, card.Pronunciations)
}

func (s *SQLiteStorage) DeleteCard(ctx context.Context, cardID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, cardID)
	return err
}

func (s *SQLiteStorage) ListCards(ctx context.Context) ([]*types.Card, error) {
	query := `
		SELECT id, folder_id, word, translation, memo, created_at, updated_at
		FROM cards
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cards, err := scanCards(rows)
	if err != nil {
		return nil, err
	}
	for _, card := range cards {
		if err := s.loadPronunciations(ctx, card); err != nil {
			return nil, err
		}
	}
	return cards, nil
}

// replacePronunciations rewrites the pronunciation rows for a card
func (s *SQLiteStorage) replacePronunciations(ctx context.Context, cardID int64, pronunciations []string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM card_pronunciations WHERE card_id = ?`, cardID); err != nil {
		return fmt.Errorf("failed to clear pronunciations: %w", err)
	}
	for _, p := range pronunciations {
		if p == "" {
			continue
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO card_pronunciations (card_id, pronunciation) VALUES (?, ?)`, cardID, p)
		if err != nil {
			return fmt.Errorf("failed to insert pronunciation: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) loadPronunciations(ctx context.Context, card *types.Card) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pronunciation FROM card_pronunciations WHERE card_id = ? ORDER BY id`, card.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	card.Pronunciations = card.Pronunciations[:0]
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return err
		}
		card.Pronunciations = append(card.Pronunciations, p)
	}
	return rows.Err()
}

// Search operations

// SearchFullText returns candidate cards matching the query under FTS5 token
// semantics or plain case-insensitive substring semantics. Folder and
// date-range filters are pushed down; study-status filtering stays with the
// caller since status derivation needs the study tracker.
func (s *SQLiteStorage) SearchFullText(ctx context.Context, query string, filters types.SearchFilters) ([]*types.Card, error) {
	pattern := likePattern(query)
	args := []interface{}{pattern, pattern, pattern, pattern}

	candidateSQL := `
		SELECT id FROM cards
		WHERE word LIKE ? ESCAPE '\'
		   OR translation LIKE ? ESCAPE '\'
		   OR memo LIKE ? ESCAPE '\'
		UNION
		SELECT card_id FROM card_pronunciations WHERE pronunciation LIKE ? ESCAPE '\'
	`

	// Token matches from the FTS index widen the candidate set beyond
	// substring hits (e.g. stemmed or multi-word queries)
	if fts := sanitizeFTSQuery(query); fts != "" {
		candidateSQL += `
		UNION
		SELECT rowid FROM cards_fts WHERE cards_fts MATCH ?
		`
		args = append(args, fts)
	}

	sqlQuery := `
		SELECT c.id, c.folder_id, c.word, c.translation, c.memo, c.created_at, c.updated_at
		FROM cards c
		WHERE c.id IN (` + candidateSQL + `)`

	sqlQuery, args = applyCardFilters(sqlQuery, args, filters)
	sqlQuery += " ORDER BY c.created_at DESC LIMIT ?"
	args = append(args, maxSearchCandidates)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute full-text search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cards, err := scanCards(rows)
	if err != nil {
		return nil, err
	}
	for _, card := range cards {
		if err := s.loadPronunciations(ctx, card); err != nil {
			return nil, err
		}
	}
	return cards, nil
}

// PrefixMatches returns distinct field values starting with prefix
func (s *SQLiteStorage) PrefixMatches(ctx context.Context, field types.FieldTag, prefix string, limit int) ([]string, error) {
	return s.fieldMatches(ctx, field, escapeLike(prefix)+"%", limit)
}

// SubstringMatches returns distinct field values containing substr
func (s *SQLiteStorage) SubstringMatches(ctx context.Context, field types.FieldTag, substr string, limit int) ([]string, error) {
	return s.fieldMatches(ctx, field, likePattern(substr), limit)
}

func (s *SQLiteStorage) fieldMatches(ctx context.Context, field types.FieldTag, pattern string, limit int) ([]string, error) {
	var sqlQuery string
	switch field {
	case types.FieldWord:
		sqlQuery = `SELECT DISTINCT word FROM cards WHERE word LIKE ? ESCAPE '\' ORDER BY word LIMIT ?`
	case types.FieldTranslation:
		sqlQuery = `SELECT DISTINCT translation FROM cards WHERE translation LIKE ? ESCAPE '\' ORDER BY translation LIMIT ?`
	case types.FieldMemo:
		sqlQuery = `SELECT DISTINCT memo FROM cards WHERE memo != '' AND memo LIKE ? ESCAPE '\' ORDER BY memo LIMIT ?`
	case types.FieldPronunciation:
		sqlQuery = `SELECT DISTINCT pronunciation FROM card_pronunciations WHERE pronunciation LIKE ? ESCAPE '\' ORDER BY pronunciation LIMIT ?`
	default:
		return nil, fmt.Errorf("unknown field family: %s", field)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s matches: %w", field, err)
	}
	defer func() { _ = rows.Close() }()

	matches := make([]string, 0, limit)
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		matches = append(matches, text)
	}
	return matches, rows.Err()
}

// History operations

func (s *SQLiteStorage) InsertHistory(ctx context.Context, entry *types.HistoryEntry) error {
	filtersJSON, err := json.Marshal(entry.Filters)
	if err != nil {
		return fmt.Errorf("failed to serialize filters: %w", err)
	}

	query := `
		INSERT INTO search_history (id, query, filters, dedup_key, timestamp, result_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		entry.ID, entry.Query, string(filtersJSON), entry.DedupKey(), entry.Timestamp, entry.ResultCount)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteHistoryByDedupKey(ctx context.Context, dedupKey string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM search_history WHERE dedup_key = ?`, dedupKey)
	return err
}

func (s *SQLiteStorage) ListHistory(ctx context.Context, limit int) ([]*types.HistoryEntry, error) {
	query := `
		SELECT id, query, filters, timestamp, result_count
		FROM search_history
		ORDER BY timestamp DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*types.HistoryEntry, 0)
	for rows.Next() {
		var entry types.HistoryEntry
		var filtersJSON string
		if err := rows.Scan(&entry.ID, &entry.Query, &filtersJSON, &entry.Timestamp, &entry.ResultCount); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(filtersJSON), &entry.Filters); err != nil {
			return nil, fmt.Errorf("failed to deserialize filters for history %s: %w", entry.ID, err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func (s *SQLiteStorage) DeleteHistory(ctx context.Context, entryID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM search_history WHERE id = ?`, entryID)
	return err
}

func (s *SQLiteStorage) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM search_history`)
	return err
}

// Analytics operations

func (s *SQLiteStorage) InsertAnalyticsEvent(ctx context.Context, event *AnalyticsEvent) error {
	query := `
		INSERT INTO search_analytics (id, search_term, card_id, timestamp, action_type)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.SearchTerm, event.CardID, event.Timestamp, event.ActionType)
	if err != nil {
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CountAnalyticsEvents(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_analytics`).Scan(&count)
	return count, err
}

func (s *SQLiteStorage) AnalyticsTermCounts(ctx context.Context, limit int) ([]TermCount, error) {
	query := `
		SELECT search_term, COUNT(*) as cnt
		FROM search_analytics
		GROUP BY search_term
		ORDER BY cnt DESC, MAX(timestamp) DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make([]TermCount, 0, limit)
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, tc)
	}
	return counts, rows.Err()
}

func (s *SQLiteStorage) AnalyticsActionCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action_type, COUNT(*) FROM search_analytics GROUP BY action_type`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		counts[action] = count
	}
	return counts, rows.Err()
}

func (s *SQLiteStorage) DeleteAnalyticsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM search_analytics WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

// Settings operations

func (s *SQLiteStorage) GetAnalyticsSettings(ctx context.Context) (types.AnalyticsSettings, error) {
	query := `SELECT enabled, retention_days, anonymize_data FROM analytics_settings WHERE id = 1`
	var settings types.AnalyticsSettings
	err := s.db.QueryRowContext(ctx, query).Scan(
		&settings.Enabled, &settings.RetentionDays, &settings.AnonymizeData)
	if err == sql.ErrNoRows {
		return types.DefaultAnalyticsSettings(), nil
	}
	if err != nil {
		return types.AnalyticsSettings{}, err
	}
	return settings, nil
}

func (s *SQLiteStorage) PutAnalyticsSettings(ctx context.Context, settings types.AnalyticsSettings) error {
	query := `
		INSERT INTO analytics_settings (id, enabled, retention_days, anonymize_data, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			enabled = excluded.enabled,
			retention_days = excluded.retention_days,
			anonymize_data = excluded.anonymize_data,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		settings.Enabled, settings.RetentionDays, settings.AnonymizeData, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store analytics settings: %w", err)
	}
	return nil
}

// Helper functions

func scanCards(rows *sql.Rows) ([]*types.Card, error) {
	cards := make([]*types.Card, 0)
	for rows.Next() {
		var card types.Card
		err := rows.Scan(&card.ID, &card.FolderID, &card.Word, &card.Translation,
			&card.Memo, &card.CreatedAt, &card.UpdatedAt)
		if err != nil {
			return nil, err
		}
		cards = append(cards, &card)
	}
	return cards, rows.Err()
}

// applyCardFilters adds WHERE clause filters for the pushed-down subset
func applyCardFilters(query string, args []interface{}, filters types.SearchFilters) (string, []interface{}) {
	if filters.FilterFolder {
		if filters.FolderID == nil {
			query += " AND c.folder_id IS NULL"
		} else {
			query += " AND c.folder_id = ?"
			args = append(args, *filters.FolderID)
		}
	}

	if filters.DateRange != nil {
		query += " AND c.created_at >= ? AND c.created_at <= ?"
		args = append(args, filters.DateRange.Start, filters.DateRange.End)
	}

	return query, args
}

// sanitizeFTSQuery converts free text into a safe FTS5 phrase query.
// Each token is double-quoted (with embedded quotes doubled) so FTS5
// operators in user input cannot change query semantics.
func sanitizeFTSQuery(query string) string {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return ""
	}

	quoted := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.ReplaceAll(tok, `"`, `""`)
		quoted = append(quoted, `"`+tok+`"`)
	}
	return strings.Join(quoted, " ")
}

// escapeLike escapes LIKE pattern metacharacters with backslash
func escapeLike(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`%`, `\%`,
		`_`, `\_`,
	)
	return replacer.Replace(text)
}

// likePattern builds a contains-anywhere LIKE pattern
func likePattern(text string) string {
	return "%" + escapeLike(text) + "%"
}
