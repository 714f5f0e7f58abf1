package cache

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/middleware"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduplicator(t *testing.T) {
	d := NewMemoryDeduplicator()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := d.Claim(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = d.Claim(ctx, "evt_1", time.Hour)
	assert.False(t, ok, "second claim inside the TTL must be rejected")

	now = now.Add(2 * time.Hour)
	ok, _ = d.Claim(ctx, "evt_1", time.Hour)
	assert.True(t, ok, "expired claims can be taken again")

	require.NoError(t, d.Forget(ctx, "evt_1"))
	ok, _ = d.Claim(ctx, "evt_1", time.Hour)
	assert.True(t, ok)
}

func TestMemoryDeduplicator_MarkOverridesClaim(t *testing.T) {
	d := NewMemoryDeduplicator()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	seen, err := d.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	ok, _ := d.Claim(ctx, "evt_1", time.Minute)
	require.True(t, ok)
	require.NoError(t, d.Mark(ctx, "evt_1", time.Hour))

	now = now.Add(30 * time.Minute)
	seen, _ = d.Seen(ctx, "evt_1")
	assert.True(t, seen, "mark must extend the short claim")

	now = now.Add(time.Hour)
	seen, _ = d.Seen(ctx, "evt_1")
	assert.False(t, seen)
}

// redisClient returns a client for TEST_REDIS_ADDR or skips the test.
func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisDeduplicator(t *testing.T) {
	client := redisClient(t)
	d := NewRedisDeduplicator(client, "test:dedupe:")
	ctx := context.Background()
	key := "evt_" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() { _ = d.Forget(ctx, key) })

	ok, err := d.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Mark(ctx, key, time.Hour))
	ttl, err := client.TTL(ctx, "test:dedupe:"+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute)

	seen, err := d.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, d.Forget(ctx, key))
	seen, err = d.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisIdempotencyStore(t *testing.T) {
	client := redisClient(t)
	store := NewRedisIdempotencyStore(client, time.Minute, logger.New(logger.Config{Level: logger.ERROR}))
	ctx := context.Background()
	key := "test-" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() { client.Del(ctx, idempotencyPrefix+key) })

	_, found := store.Get(ctx, key)
	assert.False(t, found)

	store.Set(ctx, key, &middleware.CachedResponse{
		StatusCode: http.StatusCreated,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`{"data":{"id":"r1"}}`),
	})

	cached, found := store.Get(ctx, key)
	require.True(t, found)
	assert.Equal(t, http.StatusCreated, cached.StatusCode)
	assert.JSONEq(t, `{"data":{"id":"r1"}}`, string(cached.Body))
}
