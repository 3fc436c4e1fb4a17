package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "iptv-relay:cache:"

// RedisStore stores JSON-serialized values in Redis and lets Redis expire them.
type RedisStore[V any] struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a Redis-backed store. namespace separates stores
// sharing one Redis database (e.g. "catalog", "document").
func NewRedisStore[V any](client *redis.Client, namespace string, ttl time.Duration) *RedisStore[V] {
	return &RedisStore[V]{
		client: client,
		ttl:    ttl,
		prefix: redisKeyPrefix + namespace + ":",
	}
}

// Get returns the value stored under key; expired keys are absent
func (r *RedisStore[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, err
	}

	var entry Entry[V]
	if err := json.Unmarshal(data, &entry); err != nil {
		return zero, false, err
	}
	return entry.Value, true, nil
}

// Set stores value under key with the configured TTL
func (r *RedisStore[V]) Set(ctx context.Context, key string, value V) error {
	data, err := json.Marshal(Entry[V]{
		Key:        key,
		Value:      value,
		InsertedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, data, r.ttl).Err()
}

// Ping checks the Redis connection
func (r *RedisStore[V]) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

var _ Store[[]byte] = (*RedisStore[[]byte])(nil)
