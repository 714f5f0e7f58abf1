package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/middleware"

	"github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "idempotency:"

// RedisIdempotencyStore shares replayable responses across API replicas.
// Redis failures degrade to executing the request again.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl, log: log}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*middleware.CachedResponse, bool) {
	raw, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("Failed to read idempotency record", "error", err)
		}
		return nil, false
	}

	var cached middleware.CachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.log.Warn("Discarding corrupt idempotency record", "error", err)
		return nil, false
	}
	return &cached, true
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *middleware.CachedResponse) {
	response.CreatedAt = time.Now().UTC()
	raw, err := json.Marshal(response)
	if err != nil {
		s.log.Error("Failed to encode idempotency record", "error", err)
		return
	}
	if err := s.client.Set(ctx, idempotencyPrefix+key, raw, s.ttl).Err(); err != nil {
		s.log.Warn("Failed to store idempotency record", "error", err)
	}
}

// Stop is a no-op; the Redis client is closed with the process clients.
func (s *RedisIdempotencyStore) Stop() {}
