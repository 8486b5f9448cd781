package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS seen_jobs (
	id     TEXT PRIMARY KEY,
	score  DOUBLE PRECISION NOT NULL,
	source TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS applications (
	id      TEXT PRIMARY KEY,
	status  TEXT NOT NULL,
	message TEXT NOT NULL
);`

// PostgresStore keeps the state in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres: storage dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) HasSeen(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM seen_jobs WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: has seen %s: %w", id, err)
	}
	return exists, nil
}

func (s *PostgresStore) RecordSeen(ctx context.Context, id string, seen SeenJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO seen_jobs (id, score, source) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET score = EXCLUDED.score, source = EXCLUDED.source`,
		id, seen.Score, seen.Source,
	)
	if err != nil {
		return fmt.Errorf("postgres: record seen %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) RecordApplication(ctx context.Context, id string, status Status, message string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO applications (id, status, message) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, message = EXCLUDED.message`,
		id, string(status), message,
	)
	if err != nil {
		return fmt.Errorf("postgres: record application %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	out := NewSnapshot()

	rows, err := s.pool.Query(ctx, `SELECT id, score, source FROM seen_jobs`)
	if err != nil {
		return nil, fmt.Errorf("postgres: query seen jobs: %w", err)
	}
	for rows.Next() {
		var id string
		var seen SeenJob
		if err := rows.Scan(&id, &seen.Score, &seen.Source); err != nil {
			rows.Close()
			return nil, fmt.Errorf("postgres: scan seen job: %w", err)
		}
		out.SeenJobs[id] = seen
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT id, status, message FROM applications`)
	if err != nil {
		return nil, fmt.Errorf("postgres: query applications: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, status string
		var app Application
		if err := rows.Scan(&id, &status, &app.Message); err != nil {
			return nil, fmt.Errorf("postgres: scan application: %w", err)
		}
		app.Status = Status(status)
		out.Applications[id] = app
	}

	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
