package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/storyagent/storyagent-go/internal/domain"
)

// SQLiteStorage implements Storage using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys and WAL mode for better performance
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStorage{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// NewInMemoryStorage creates an in-memory SQLite storage (for testing)
func NewInMemoryStorage() (*SQLiteStorage, error) {
	return NewSQLiteStorage(":memory:")
}

// migrate runs database migrations
func (s *SQLiteStorage) migrate() error {
	if _, err := s.db.Exec(initialMigration); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	return nil
}

const initialMigration = `
CREATE TABLE IF NOT EXISTS generations (
    id TEXT PRIMARY KEY,
    requirements TEXT NOT NULL,
    stories TEXT NOT NULL,
    model TEXT,
    story_count INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS exports (
    id TEXT PRIMARY KEY,
    project_key TEXT NOT NULL,
    group_key TEXT,
    status TEXT NOT NULL,
    outcomes TEXT NOT NULL,
    total_exported INTEGER NOT NULL DEFAULT 0,
    total_failed INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);
CREATE INDEX IF NOT EXISTS idx_exports_created_at ON exports(created_at);
`

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveGeneration stores one generation run. A missing ID or timestamp is
// filled in before the insert.
func (s *SQLiteStorage) SaveGeneration(ctx context.Context, rec *GenerationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.StoryCount = len(rec.Stories)

	stories, err := json.Marshal(rec.Stories)
	if err != nil {
		return fmt.Errorf("failed to encode stories: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO generations (id, requirements, stories, model, story_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Requirements, string(stories), rec.Model, rec.StoryCount,
		rec.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save generation: %w", err)
	}

	return nil
}

// GetGeneration retrieves a single generation by ID
func (s *SQLiteStorage) GetGeneration(ctx context.Context, id string) (*GenerationRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, requirements, stories, model, story_count, created_at
		FROM generations WHERE id = ?`, id)

	return scanGeneration(row.Scan)
}

// ListGenerations returns stored generations, newest first
func (s *SQLiteStorage) ListGenerations(ctx context.Context, offset, limit int) ([]*GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, requirements, stories, model, story_count, created_at
		FROM generations ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	records := []*GenerationRecord{}
	for rows.Next() {
		rec, err := scanGeneration(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CountGenerations returns the total number of stored generations
func (s *SQLiteStorage) CountGenerations(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations`).Scan(&count)
	return count, err
}

// DeleteGeneration removes a generation by ID
func (s *SQLiteStorage) DeleteGeneration(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM generations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete generation: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveExport stores one export audit record
func (s *SQLiteStorage) SaveExport(ctx context.Context, rec *ExportRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	outcomes, err := json.Marshal(rec.Outcomes)
	if err != nil {
		return fmt.Errorf("failed to encode outcomes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO exports (id, project_key, group_key, status, outcomes, total_exported, total_failed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProjectKey, rec.GroupKey, string(rec.Status), string(outcomes),
		rec.Exported, rec.Failed, rec.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save export: %w", err)
	}

	return nil
}

// ListExports returns stored export records, newest first
func (s *SQLiteStorage) ListExports(ctx context.Context, limit int) ([]*ExportRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_key, group_key, status, outcomes, total_exported, total_failed, created_at
		FROM exports ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer rows.Close()

	records := []*ExportRecord{}
	for rows.Next() {
		var (
			rec       ExportRecord
			groupKey  sql.NullString
			outcomes  string
			status    string
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.ProjectKey, &groupKey, &status, &outcomes,
			&rec.Exported, &rec.Failed, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}

		rec.GroupKey = groupKey.String
		rec.Status = domain.ExportStatus(status)
		if err := json.Unmarshal([]byte(outcomes), &rec.Outcomes); err != nil {
			return nil, fmt.Errorf("failed to decode outcomes: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		records = append(records, &rec)
	}

	return records, rows.Err()
}

// GetStats summarizes stored history
func (s *SQLiteStorage) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(story_count), 0) FROM generations`).
		Scan(&stats.TotalGenerations, &stats.TotalStories)
	if err != nil {
		return nil, fmt.Errorf("failed to read generation stats: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exports`).Scan(&stats.TotalExports); err != nil {
		return nil, fmt.Errorf("failed to read export stats: %w", err)
	}

	return stats, nil
}

// GetDatabasePath returns the default database path for a data directory
func GetDatabasePath(dataDir string) string {
	return filepath.Join(dataDir, "storyagent.db")
}

// scanGeneration reads one generation row through any Scan-shaped source
func scanGeneration(scan func(dest ...any) error) (*GenerationRecord, error) {
	var (
		rec       GenerationRecord
		stories   string
		model     sql.NullString
		createdAt string
	)

	err := scan(&rec.ID, &rec.Requirements, &stories, &model, &rec.StoryCount, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan generation: %w", err)
	}

	rec.Model = model.String
	if err := json.Unmarshal([]byte(stories), &rec.Stories); err != nil {
		return nil, fmt.Errorf("failed to decode stories: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &rec, nil
}
