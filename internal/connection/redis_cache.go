package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/pkg/distlock"
)

const (
	redisKeyPrefix = "drip:connection:"
	writeLockTTL   = 30 * time.Second
)

// RedisCache shares connection statuses between processes. Writers take a
// short lock per key so concurrent checks do not interleave their writes.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache wraps client.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (domain.ConnectionStatus, bool, error) {
	var status domain.ConnectionStatus
	raw, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return status, false, nil
	}
	if err != nil {
		return status, false, fmt.Errorf("reading connection status: %w", err)
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return status, false, fmt.Errorf("decoding connection status: %w", err)
	}
	return status, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, status domain.ConnectionStatus, ttl time.Duration) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("writing connection status: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = redisKeyPrefix + k
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("deleting connection status: %w", err)
	}
	return nil
}

// WriteLock returns the lock guarding writes to key.
func (c *RedisCache) WriteLock(key string) distlock.Locker {
	return distlock.NewRedisLock(c.client, redisKeyPrefix+key, writeLockTTL)
}
