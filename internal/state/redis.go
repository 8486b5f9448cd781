package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the state in two redis hashes keyed by job id.
// Redis must run with persistence enabled for the state to survive restarts.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func OpenRedis(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	redisURL = strings.TrimSpace(redisURL)
	if redisURL == "" {
		return nil, errors.New("redis: storage dsn is empty")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStore(client, prefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{rdb: client, prefix: prefix}
}

func (s *RedisStore) seenKey() string { return s.prefix + ":seen_jobs" }

func (s *RedisStore) applicationsKey() string { return s.prefix + ":applications" }

func (s *RedisStore) HasSeen(ctx context.Context, id string) (bool, error) {
	ok, err := s.rdb.HExists(ctx, s.seenKey(), id).Result()
	if err != nil {
		return false, fmt.Errorf("redis: has seen %s: %w", id, err)
	}
	return ok, nil
}

func (s *RedisStore) RecordSeen(ctx context.Context, id string, seen SeenJob) error {
	return s.hset(ctx, s.seenKey(), id, seen)
}

func (s *RedisStore) RecordApplication(ctx context.Context, id string, status Status, message string) error {
	return s.hset(ctx, s.applicationsKey(), id, Application{Status: status, Message: message})
}

func (s *RedisStore) hset(ctx context.Context, key, id string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis: encode %s: %w", id, err)
	}
	if err := s.rdb.HSet(ctx, key, id, raw).Err(); err != nil {
		return fmt.Errorf("redis: hset %s %s: %w", key, id, err)
	}
	return nil
}

func (s *RedisStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	out := NewSnapshot()

	seen, err := s.rdb.HGetAll(ctx, s.seenKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: hgetall %s: %w", s.seenKey(), err)
	}
	for id, raw := range seen {
		var job SeenJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			return nil, fmt.Errorf("redis: decode seen job %s: %w", id, err)
		}
		out.SeenJobs[id] = job
	}

	apps, err := s.rdb.HGetAll(ctx, s.applicationsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: hgetall %s: %w", s.applicationsKey(), err)
	}
	for id, raw := range apps {
		var app Application
		if err := json.Unmarshal([]byte(raw), &app); err != nil {
			return nil, fmt.Errorf("redis: decode application %s: %w", id, err)
		}
		out.Applications[id] = app
	}

	return out, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
