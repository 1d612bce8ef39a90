package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a provider backed by a Redis server.
// Expiry is enforced by Redis itself via per-key TTLs.
type Redis struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// NewRedis creates a Redis-backed provider. All keys are stored under the
// given prefix so a shared Redis can hold other data alongside the cache.
func NewRedis(client *redis.Client, keyPrefix string, defaultTTL time.Duration) *Redis {
	if keyPrefix == "" {
		keyPrefix = "varycache:"
	}
	return &Redis{client: client, prefix: keyPrefix, defaultTTL: defaultTTL}
}

func (r *Redis) Get(key string) ([]byte, bool, error) {
	data, err := r.client.Get(context.Background(), r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *Redis) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	return r.client.Set(context.Background(), r.prefix+key, value, ttl).Err()
}

func (r *Redis) DefaultTTL() time.Duration {
	return r.defaultTTL
}
