package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS seen_jobs (
	id     TEXT PRIMARY KEY,
	score  REAL NOT NULL,
	source TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS applications (
	id      TEXT PRIMARY KEY,
	status  TEXT NOT NULL,
	message TEXT NOT NULL
);`

// SQLiteStore keeps the state in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite: storage path is empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// A single writer keeps SQLite away from "database is locked".
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) HasSeen(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM seen_jobs WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: has seen %s: %w", id, err)
	}
	return exists, nil
}

func (s *SQLiteStore) RecordSeen(ctx context.Context, id string, seen SeenJob) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seen_jobs (id, score, source) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET score = excluded.score, source = excluded.source`,
		id, seen.Score, seen.Source,
	)
	if err != nil {
		return fmt.Errorf("sqlite: record seen %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) RecordApplication(ctx context.Context, id string, status Status, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (id, status, message) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, message = excluded.message`,
		id, string(status), message,
	)
	if err != nil {
		return fmt.Errorf("sqlite: record application %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	out := NewSnapshot()

	rows, err := s.db.QueryContext(ctx, `SELECT id, score, source FROM seen_jobs`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query seen jobs: %w", err)
	}
	for rows.Next() {
		var id string
		var seen SeenJob
		if err := rows.Scan(&id, &seen.Score, &seen.Source); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scan seen job: %w", err)
		}
		out.SeenJobs[id] = seen
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT id, status, message FROM applications`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query applications: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, status string
		var app Application
		if err := rows.Scan(&id, &status, &app.Message); err != nil {
			return nil, fmt.Errorf("sqlite: scan application: %w", err)
		}
		app.Status = Status(status)
		out.Applications[id] = app
	}

	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
