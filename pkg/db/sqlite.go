package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yumyai/cgcompare/pkg/job"
)

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS jobs (
		job_id     TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		species    TEXT NOT NULL,
		status     TEXT NOT NULL,
		record     TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS jobs_kind_status ON jobs (kind, status);
`

// Fixed width so that created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore is the durable job store. Each job is one row holding the full
// JSON record, so a put is a single-row upsert.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the job database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time; modernc sqlite serialises anyway and this avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{db: conn}
	if err := s.init(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Put(ctx context.Context, j *job.Job) error {
	data, err := job.Encode(j)
	if err != nil {
		return &job.StoreError{Op: "put", JobID: j.ID, Err: err}
	}

	const q = `
		INSERT INTO jobs (job_id, kind, species, status, record, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			kind = excluded.kind,
			species = excluded.species,
			status = excluded.status,
			record = excluded.record,
			updated_at = excluded.updated_at;
	`
	_, err = s.db.ExecContext(ctx, q,
		j.ID, string(j.Kind), j.Species, string(j.Status), string(data),
		j.CreatedAt.UTC().Format(timeLayout), time.Now().UTC().Format(timeLayout))
	if err != nil {
		return &job.StoreError{Op: "put", JobID: j.ID, Err: err}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*job.Job, error) {
	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM jobs WHERE job_id = ?`, id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, job.ErrNotFound
	}
	if err != nil {
		return nil, &job.StoreError{Op: "get", JobID: id, Err: err}
	}

	j, err := job.Decode([]byte(record))
	if err != nil {
		return nil, &job.StoreError{Op: "get", JobID: id, Err: err}
	}
	return j, nil
}

// List returns the records of one kind, newest first. An empty kind lists every kind.
func (s *SQLiteStore) List(ctx context.Context, kind job.Kind, limit int) ([]*job.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM jobs WHERE (? = '' OR kind = ?) ORDER BY created_at DESC LIMIT ?`,
		string(kind), string(kind), limit)
	if err != nil {
		return nil, &job.StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, &job.StoreError{Op: "list", Err: err}
		}
		j, err := job.Decode([]byte(record))
		if err != nil {
			return nil, &job.StoreError{Op: "list", Err: err}
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, &job.StoreError{Op: "list", Err: err}
	}
	return jobs, nil
}
