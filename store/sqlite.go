// Package store implements the persistence gateway for analysis records:
// an append-only SQLite store, an in-memory store for tests, and a circuit
// breaker decorator for deployments with a flaky disk or network mount.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/AntoineSierzputowski/carmen"
)

const timeLayout = "2006-01-02 15:04:05"

// Compile-time interface check
var _ carmen.AnalysisStore = (*SQLiteStore)(nil)

// SQLiteStore handles persistent storage of analysis records.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the analysis database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Performance pragmas for SQLite
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=10000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	// SQLite is a single-writer database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{db: db}

	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("STORE: SQLite store initialized", "path", dbPath)

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate creates the database schema if it doesn't exist.
func (s *SQLiteStore) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		plant_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		humidity REAL NOT NULL,
		light REAL NOT NULL,
		temperature REAL NOT NULL,
		comparisons TEXT,
		status TEXT NOT NULL,
		message TEXT NOT NULL,
		action TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_plant_time ON analyses(plant_id, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_analyses_time ON analyses(timestamp DESC);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	slog.Debug("STORE: Database schema migrated")
	return nil
}

// Append stores a record and returns it with its assigned id.
func (s *SQLiteStore) Append(ctx context.Context, rec carmen.AnalysisRecord) (carmen.AnalysisRecord, error) {
	query := `
		INSERT INTO analyses (plant_id, timestamp, humidity, light, temperature, comparisons, status, message, action)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		rec.PlantID,
		rec.Timestamp.UTC().Format(timeLayout),
		rec.Humidity,
		rec.Light,
		rec.Temperature,
		rec.Comparisons,
		string(rec.Status),
		rec.Message,
		rec.Action,
	)
	if err != nil {
		return carmen.AnalysisRecord{}, fmt.Errorf("%w: failed to insert analysis: %v", carmen.ErrStoreUnavailable, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return carmen.AnalysisRecord{}, fmt.Errorf("%w: failed to read insert id: %v", carmen.ErrStoreUnavailable, err)
	}

	rec.ID = id
	return rec, nil
}

// FetchRecent returns up to limit records for plantID, newest first.
func (s *SQLiteStore) FetchRecent(ctx context.Context, plantID string, limit int) ([]carmen.AnalysisRecord, error) {
	return s.List(ctx, plantID, limit, 0)
}

// List returns records for plantID newest first with limit/offset paging.
func (s *SQLiteStore) List(ctx context.Context, plantID string, limit, offset int) ([]carmen.AnalysisRecord, error) {
	query := `
		SELECT id, plant_id, timestamp, humidity, light, temperature, comparisons, status, message, action
		FROM analyses
		WHERE plant_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, plantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query analyses: %v", carmen.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListAll returns records across all plants newest first with limit/offset paging.
func (s *SQLiteStore) ListAll(ctx context.Context, limit, offset int) ([]carmen.AnalysisRecord, error) {
	query := `
		SELECT id, plant_id, timestamp, humidity, light, temperature, comparisons, status, message, action
		FROM analyses
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query analyses: %v", carmen.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]carmen.AnalysisRecord, error) {
	var records []carmen.AnalysisRecord
	for rows.Next() {
		var rec carmen.AnalysisRecord
		var ts string
		var status string

		err := rows.Scan(
			&rec.ID,
			&rec.PlantID,
			&ts,
			&rec.Humidity,
			&rec.Light,
			&rec.Temperature,
			&rec.Comparisons,
			&status,
			&rec.Message,
			&rec.Action,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}

		parsed, err := time.Parse(timeLayout, ts)
		if err != nil {
			// Older drivers may hand back RFC3339
			parsed, err = time.Parse(time.RFC3339, ts)
			if err != nil {
				return nil, fmt.Errorf("failed to parse timestamp %q: %w", ts, err)
			}
		}
		rec.Timestamp = parsed.UTC()
		rec.Status = carmen.Status(status)

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration failed: %v", carmen.ErrStoreUnavailable, err)
	}

	return records, nil
}
