package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/heizer23/Atlas/pkg/auth"
)

// RedisIdentityCache stores verified identities in Redis so a gateway
// restart or a second request with the same bearer token does not hit the
// identity provider again. Implements auth.IdentityCache.
type RedisIdentityCache struct {
	client *redis.Client
}

// NewRedisIdentityCache creates a new Redis client instance
func NewRedisIdentityCache(addr, password string, db int) *RedisIdentityCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,     // e.g., "redis:6379"
		Password: password, // empty string if no password
		DB:       db,       // 0 is default
	})

	return &RedisIdentityCache{client: rdb}
}

// Get retrieves a cached identity by key. A miss returns (nil, nil).
func (r *RedisIdentityCache) Get(ctx context.Context, key string) (*auth.Identity, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var identity auth.Identity
	if err := json.Unmarshal([]byte(val), &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Put caches a verified identity with a TTL matching its credential
// lifetime.
func (r *RedisIdentityCache) Put(ctx context.Context, key string, identity auth.Identity, ttl time.Duration) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes a cached entry by key
func (r *RedisIdentityCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
