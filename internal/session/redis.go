package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session values in Redis with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. A non-positive ttl keeps keys forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Get returns the value for key.
func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores value under key.
func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, r.ttl).Err()
}

// SetIfAbsent uses SETNX so concurrent first writers agree on one value.
func (r *RedisStore) SetIfAbsent(ctx context.Context, key, value string) (string, error) {
	ok, err := r.client.SetNX(ctx, key, value, r.ttl).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return value, nil
	}

	existing, found, err := r.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !found {
		// Expired between SETNX and GET.
		return value, r.Set(ctx, key, value)
	}
	return existing, nil
}

var compareAndSwapScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur and cur ~= ARGV[1] then
  return cur
end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[2])
end
return ARGV[2]
`)

// CompareAndSwap replaces old with value in one Lua call.
func (r *RedisStore) CompareAndSwap(ctx context.Context, key, old, value string) (string, error) {
	return compareAndSwapScript.Run(ctx, r.client, []string{key}, old, value, r.ttl.Milliseconds()).Text()
}

// Ping checks connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
