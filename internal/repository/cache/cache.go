// internal/repository/cache/cache.go
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"risk-analytics/internal/common/errors"
)

const keyPrefix = "analytics"

// AnalyticsCache stores JSON-encoded analytics results in Redis.
type AnalyticsCache struct {
	client *redis.Client
}

func NewAnalyticsCache(client *redis.Client) *AnalyticsCache {
	return &AnalyticsCache{client: client}
}

// Key derives a stable key from the user and the normalized request. Any
// JSON-encodable request works; field order follows the struct definition.
func Key(scope, userID string, request interface{}) (string, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("encode cache key: %w", err)
	}
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, scope, userID, hex.EncodeToString(sum[:16])), nil
}

// Get decodes the cached value into dest. A miss returns false and no error.
func (c *AnalyticsCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.NewCacheOperationFailedError("get", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// A value we cannot decode is treated as a miss and overwritten later.
		_ = c.client.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

// Set stores value for ttl. A non-positive ttl skips the write.
func (c *AnalyticsCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return errors.NewCacheOperationFailedError("encode", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.NewCacheOperationFailedError("set", err)
	}
	return nil
}

// AlertKey names the drift alert claim of a user and model type. It lives
// outside the analytics prefix so InvalidateUser leaves it alone.
func AlertKey(userID, modelType string) string {
	return fmt.Sprintf("alert:drift:%s:%s", userID, modelType)
}

// Claim sets key for ttl only if it is absent.
func (c *AnalyticsCache) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, errors.NewCacheOperationFailedError("setnx", err)
	}
	return ok, nil
}

func (c *AnalyticsCache) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return errors.NewCacheOperationFailedError("del", err)
	}
	return nil
}

// InvalidateUser deletes every cached entry of userID across scopes.
func (c *AnalyticsCache) InvalidateUser(ctx context.Context, userID string) (int, error) {
	pattern := fmt.Sprintf("%s:*:%s:*", keyPrefix, userID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, errors.NewCacheOperationFailedError("scan", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, errors.NewCacheOperationFailedError("del", err)
	}
	return int(n), nil
}
