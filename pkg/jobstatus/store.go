package jobstatus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tripmarket:job:last_run:"

// JobStatusStore keeps the last successful run of periodic jobs outside the
// process, so a restarted job resumes its window instead of starting over.
type JobStatusStore interface {
	// GetLastRun returns the zero time when the job never ran.
	GetLastRun(ctx context.Context, job string) (time.Time, error)
	SetLastRun(ctx context.Context, job string, at time.Time) error
}

// redisCommands is the subset of *redis.Client the store needs.
type redisCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

type redisJobStatusStore struct {
	client redisCommands
	ttl    time.Duration
}

// NewRedisJobStatusStore returns a store backed by client. A ttl of zero keeps
// the keys forever.
func NewRedisJobStatusStore(client *redis.Client, ttl time.Duration) JobStatusStore {
	return newRedisJobStatusStore(client, ttl)
}

func newRedisJobStatusStore(client redisCommands, ttl time.Duration) *redisJobStatusStore {
	return &redisJobStatusStore{client: client, ttl: ttl}
}

func (s *redisJobStatusStore) GetLastRun(ctx context.Context, job string) (time.Time, error) {
	value, err := s.client.Get(ctx, keyPrefix+job).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read last run of %s: %w", job, err)
	}

	lastRun, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid last run %q stored for %s: %w", value, job, err)
	}
	return lastRun, nil
}

func (s *redisJobStatusStore) SetLastRun(ctx context.Context, job string, at time.Time) error {
	if err := s.client.Set(ctx, keyPrefix+job, at.UTC().Format(time.RFC3339Nano), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store last run of %s: %w", job, err)
	}
	return nil
}
