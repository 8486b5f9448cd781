// Package state persists which postings were already seen and the outcome of
// every application attempt, so that runs can be repeated safely.
package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Status is the recorded outcome of an application.
type Status string

const (
	StatusApplied Status = "applied"
	StatusFailed  Status = "failed"
)

const (
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"

	DefaultPath   = ".jobapplier-state.json"
	DefaultPrefix = "jobapplier"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// SeenJob is the durable projection of a scored posting.
type SeenJob struct {
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// Application is the durable record of an apply attempt.
type Application struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Snapshot is the full persisted state. The JSON backend stores it as is.
type Snapshot struct {
	SeenJobs     map[string]SeenJob     `json:"seen_jobs"`
	Applications map[string]Application `json:"applications"`
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		SeenJobs:     make(map[string]SeenJob),
		Applications: make(map[string]Application),
	}
}

// Store is the durable mapping of seen jobs and applications.
// Every write must be durable before it returns.
type Store interface {
	HasSeen(ctx context.Context, id string) (bool, error)
	RecordSeen(ctx context.Context, id string, seen SeenJob) error
	RecordApplication(ctx context.Context, id string, status Status, message string) error
	Snapshot(ctx context.Context) (*Snapshot, error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver string
	// Path is the file for json and sqlite.
	Path string
	// DSN is the connection string for postgres and redis.
	DSN string
	// Prefix namespaces redis keys.
	Prefix string
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverJSON
	}

	logger.Debug("opening state store", zap.String("driver", driver))

	switch driver {
	case DriverJSON:
		path := cfg.Path
		if path == "" {
			path = DefaultPath
		}
		return OpenFile(path)
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	case DriverRedis:
		return OpenRedis(ctx, cfg.DSN, cfg.Prefix)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}
