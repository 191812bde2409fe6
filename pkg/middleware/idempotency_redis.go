package middleware

import (
	"context"
	"encoding/json"
	"time"
	"tripmarket/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix = "tripmarket:idempotency:"
	reservedMarker       = "reserved"
)

type redisCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisIdempotencyStore shares idempotency keys between replicas. When Redis
// is unreachable requests proceed as if they carried no key.
type RedisIdempotencyStore struct {
	client redisCommands
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl, log: log}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	value, err := s.client.Get(ctx, idempotencyKeyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn("idempotency lookup failed", "error", err)
		}
		return nil, false
	}
	if value == reservedMarker {
		return nil, false
	}

	var cached CachedResponse
	if err := json.Unmarshal([]byte(value), &cached); err != nil {
		s.log.Warn("discarding unreadable idempotency record", "error", err)
		return nil, false
	}
	return &cached, true
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) bool {
	ok, err := s.client.SetNX(ctx, idempotencyKeyPrefix+key, reservedMarker, reservationTTL).Result()
	if err != nil {
		s.log.Warn("idempotency reservation failed, continuing without it", "error", err)
		return true
	}
	return ok
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) {
	response.CreatedAt = time.Now()
	data, err := json.Marshal(response)
	if err != nil {
		s.log.Error("failed to encode idempotent response", "error", err)
		return
	}
	if err := s.client.Set(ctx, idempotencyKeyPrefix+key, data, s.ttl).Err(); err != nil {
		s.log.Warn("failed to store idempotent response", "error", err)
	}
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) {
	if err := s.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		s.log.Warn("failed to release idempotency key", "error", err)
	}
}

// Stop is a no-op; the Redis client is closed with the other clients.
func (s *RedisIdempotencyStore) Stop() {}
