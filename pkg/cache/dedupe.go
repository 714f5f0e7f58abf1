package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator records that a key has been handled. Claim returns false if
// the key was already claimed and has not expired. Mark sets the key
// unconditionally, overwriting any claim and its expiry.
type Deduplicator interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type RedisDeduplicator struct {
	client *redis.Client
	prefix string
}

func NewRedisDeduplicator(client *redis.Client, prefix string) *RedisDeduplicator {
	return &RedisDeduplicator{client: client, prefix: prefix}
}

func (d *RedisDeduplicator) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return d.client.SetNX(ctx, d.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (d *RedisDeduplicator) Mark(ctx context.Context, key string, ttl time.Duration) error {
	return d.client.Set(ctx, d.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

func (d *RedisDeduplicator) Seen(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+key).Result()
	return n > 0, err
}

func (d *RedisDeduplicator) Forget(ctx context.Context, key string) error {
	return d.client.Del(ctx, d.prefix+key).Err()
}

// MemoryDeduplicator serves single-replica deployments running without Redis.
type MemoryDeduplicator struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryDeduplicator() *MemoryDeduplicator {
	return &MemoryDeduplicator{expires: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDeduplicator) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.evict()
	if _, ok := d.expires[key]; ok {
		return false, nil
	}
	d.expires[key] = now.Add(ttl)
	return true, nil
}

func (d *MemoryDeduplicator) Mark(_ context.Context, key string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expires[key] = d.evict().Add(ttl)
	return nil
}

func (d *MemoryDeduplicator) Seen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evict()
	_, ok := d.expires[key]
	return ok, nil
}

// evict drops expired keys and returns the current time. Callers hold mu.
func (d *MemoryDeduplicator) evict() time.Time {
	now := d.now()
	for k, exp := range d.expires {
		if now.After(exp) {
			delete(d.expires, k)
		}
	}
	return now
}

func (d *MemoryDeduplicator) Forget(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.expires, key)
	return nil
}
