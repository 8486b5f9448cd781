package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const postgresDSNEnv = "JOBAPPLIER_TEST_POSTGRES_DSN"

// exerciseReload checks that a store reopened on the same backend sees
// everything exerciseStore wrote.
func exerciseReload(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	seen, err := s.HasSeen(ctx, "42")
	if err != nil || !seen {
		t.Fatalf("expected 42 to survive reopening, got %v (%v)", seen, err)
	}

	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got := snapshot.SeenJobs["42"]; got.Score != 8.5 || got.Source != "mock" {
		t.Fatalf("unexpected reloaded seen job: %+v", got)
	}
	if got := snapshot.Applications["42"]; got.Status != StatusApplied || got.Message != "sent" {
		t.Fatalf("unexpected reloaded application: %+v", got)
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	seen, err := s.HasSeen(ctx, "42")
	if err != nil {
		t.Fatalf("has seen: %v", err)
	}
	if seen {
		t.Fatalf("expected fresh store to have no seen jobs")
	}

	if err := s.RecordSeen(ctx, "42", SeenJob{Score: -3, Source: "mock"}); err != nil {
		t.Fatalf("record seen: %v", err)
	}
	if err := s.RecordSeen(ctx, "42", SeenJob{Score: 8.5, Source: "mock"}); err != nil {
		t.Fatalf("record seen upsert: %v", err)
	}
	if err := s.RecordApplication(ctx, "42", StatusApplied, "sent"); err != nil {
		t.Fatalf("record application: %v", err)
	}

	seen, err = s.HasSeen(ctx, "42")
	if err != nil || !seen {
		t.Fatalf("expected 42 to be seen, got %v (%v)", seen, err)
	}

	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got := snapshot.SeenJobs["42"]; got.Score != 8.5 || got.Source != "mock" {
		t.Fatalf("unexpected seen job: %+v", got)
	}
	if got := snapshot.Applications["42"]; got.Status != StatusApplied || got.Message != "sent" {
		t.Fatalf("unexpected application: %+v", got)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	exerciseStore(t, s)

	reloaded, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	snapshot, _ := reloaded.Snapshot(context.Background())
	if len(snapshot.SeenJobs) != 1 || len(snapshot.Applications) != 1 {
		t.Fatalf("expected state to survive reload, got %+v", snapshot)
	}
	if snapshot.Applications["42"].Status != StatusApplied {
		t.Fatalf("unexpected application after reload: %+v", snapshot.Applications["42"])
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the state file to remain, got %d entries", len(entries))
	}
}

func TestFileStoreLoadsEmptyAndPartialDocuments(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := OpenFile(empty)
	if err != nil {
		t.Fatalf("open empty: %v", err)
	}
	if err := s.RecordSeen(context.Background(), "1", SeenJob{}); err != nil {
		t.Fatalf("record into empty: %v", err)
	}

	partial := filepath.Join(dir, "partial.json")
	if err := os.WriteFile(partial, []byte(`{"seen_jobs": {"7": {"score": 1, "source": "mock"}}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err = OpenFile(partial)
	if err != nil {
		t.Fatalf("open partial: %v", err)
	}
	if err := s.RecordApplication(context.Background(), "7", StatusFailed, "manual"); err != nil {
		t.Fatalf("record application: %v", err)
	}

	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte(`{`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := OpenFile(broken); err == nil {
		t.Fatalf("expected error for malformed state file")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s, err := OpenFile(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	snapshot, _ := s.Snapshot(context.Background())
	snapshot.SeenJobs["x"] = SeenJob{}

	if seen, _ := s.HasSeen(context.Background(), "x"); seen {
		t.Fatalf("mutating a snapshot must not change the store")
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	exerciseStore(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	exerciseReload(t, reopened)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := Open(ctx, Config{Path: path}, nil)
	if err != nil {
		t.Fatalf("open default driver: %v", err)
	}
	if fs, ok := s.(*FileStore); !ok || fs.Path() != path {
		t.Fatalf("expected json file store at %s, got %T", path, s)
	}

	if _, err := Open(ctx, Config{Driver: "mongo"}, nil); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}

	for _, driver := range []string{DriverSQLite, DriverPostgres, DriverRedis} {
		if _, err := Open(ctx, Config{Driver: driver}, nil); err == nil {
			t.Fatalf("expected error for %s without location", driver)
		}
	}
}

func TestRedisKeys(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	s := NewRedisStore(client, "")
	if s.seenKey() != "jobapplier:seen_jobs" || s.applicationsKey() != "jobapplier:applications" {
		t.Fatalf("unexpected default keys: %s %s", s.seenKey(), s.applicationsKey())
	}

	s = NewRedisStore(client, "me")
	if s.seenKey() != "me:seen_jobs" {
		t.Fatalf("unexpected prefixed key: %s", s.seenKey())
	}
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)
	dsn := "redis://" + server.Addr()

	s, err := OpenRedis(ctx, dsn, "test")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	exerciseStore(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if !server.Exists("test:seen_jobs") || !server.Exists("test:applications") {
		t.Fatalf("expected prefixed hashes, got keys %v", server.Keys())
	}

	reopened, err := OpenRedis(ctx, dsn, "test")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	exerciseReload(t, reopened)

	other, err := OpenRedis(ctx, dsn, "other")
	if err != nil {
		t.Fatalf("open other prefix: %v", err)
	}
	defer other.Close()
	if seen, _ := other.HasSeen(ctx, "42"); seen {
		t.Fatalf("prefixes must not share state")
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s is not set", postgresDSNEnv)
	}
	ctx := context.Background()

	s, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.pool.Exec(ctx, "DELETE FROM seen_jobs; DELETE FROM applications;"); err != nil {
		s.Close()
		t.Fatalf("clean tables: %v", err)
	}
	exerciseStore(t, s)
	s.Close()

	reopened, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	exerciseReload(t, reopened)
}
