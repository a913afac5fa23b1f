// Package scheduler – sqlite_storage.go implements JobStorage backed by a
// SQLite database file.
package scheduler

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// OpenDatabase opens (creating if needed) the wakeclaw SQLite database and
// ensures the jobs table exists.
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS jobs (
		id          TEXT PRIMARY KEY,
		schedule    TEXT NOT NULL,
		type        TEXT NOT NULL,
		command     TEXT NOT NULL,
		enabled     INTEGER NOT NULL DEFAULT 1,
		created_at  TEXT NOT NULL,
		last_run_at TEXT,
		last_error  TEXT NOT NULL DEFAULT '',
		run_count   INTEGER NOT NULL DEFAULT 0
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating jobs table: %w", err)
	}

	return db, nil
}

// SQLiteJobStorage persists jobs in the "jobs" table.
type SQLiteJobStorage struct {
	db *sql.DB
}

// NewSQLiteJobStorage creates a SQLite-backed job storage using the shared DB.
func NewSQLiteJobStorage(db *sql.DB) *SQLiteJobStorage {
	return &SQLiteJobStorage{db: db}
}

// Save persists a job (insert or update).
func (s *SQLiteJobStorage) Save(job *Job) error {
	var lastRunAt sql.NullString
	if job.LastRunAt != nil {
		lastRunAt = sql.NullString{String: job.LastRunAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO jobs
			(id, schedule, type, command, enabled, created_at, last_run_at, last_error, run_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Schedule,
		job.Type,
		job.Command,
		boolToInt(job.Enabled),
		job.CreatedAt.UTC().Format(time.RFC3339),
		lastRunAt,
		job.LastError,
		job.RunCount,
	)
	if err != nil {
		return fmt.Errorf("save job %q: %w", job.ID, err)
	}
	return nil
}

// Delete removes a job by ID.
func (s *SQLiteJobStorage) Delete(id string) error {
	if _, err := s.db.Exec("DELETE FROM jobs WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete job %q: %w", id, err)
	}
	return nil
}

// LoadAll reads all persisted jobs.
func (s *SQLiteJobStorage) LoadAll() ([]*Job, error) {
	rows, err := s.db.Query(`
		SELECT id, schedule, type, command, enabled, created_at, last_run_at, last_error, run_count
		FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		var (
			j         Job
			enabled   int
			createdAt string
			lastRunAt sql.NullString
		)
		if err := rows.Scan(
			&j.ID, &j.Schedule, &j.Type, &j.Command, &enabled,
			&createdAt, &lastRunAt, &j.LastError, &j.RunCount,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}

		j.Enabled = enabled != 0
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if lastRunAt.Valid {
			t, _ := time.Parse(time.RFC3339, lastRunAt.String)
			j.LastRunAt = &t
		}
		jobs = append(jobs, &j)
	}

	return jobs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
