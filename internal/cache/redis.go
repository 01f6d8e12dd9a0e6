package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/conhub/rde/internal/model"
)

const keyPrefix = "rde:qr:"

// redisEnvelope is what's actually stored at a key, so Invalidate can
// match source-type tags without a second round trip.
type redisEnvelope struct {
	Value              model.QueryResult `json:"value"`
	SourceTypesTouched []string          `json:"source_types_touched"`
}

// RedisCache shares query results across RDE instances. Failed writes
// and invalidations are logged rather than treated as fatal to the caller.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisCache wraps an already-connected client. Pass nil logger to use
// slog.Default().
func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) (model.QueryResult, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "cache get failed", "error", err)
		}
		return model.QueryResult{}, false
	}

	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.WarnContext(ctx, "cache entry decode failed", "error", err)
		return model.QueryResult{}, false
	}
	return env.Value, true
}

func (c *RedisCache) Put(ctx context.Context, key string, value model.QueryResult, ttl time.Duration, sourceTypesTouched []string) error {
	env := redisEnvelope{Value: value, SourceTypesTouched: sourceTypesTouched}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, keyPrefix+key, raw, ttl)
	for _, tag := range sourceTypesTouched {
		pipe.SAdd(ctx, tagKey(tag), key)
		pipe.Expire(ctx, tagKey(tag), ttl+time.Minute)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.WarnContext(ctx, "cache put failed", "error", err)
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, tenantID string, sourceTypes []model.ModalityHint) error {
	var errs []error
	for _, tag := range Tags(tenantID, sourceTypes) {
		keys, err := c.client.SMembers(ctx, tagKey(tag)).Result()
		if err != nil && err != redis.Nil {
			errs = append(errs, err)
			continue
		}
		if len(keys) == 0 {
			continue
		}
		del := make([]string, len(keys))
		for i, k := range keys {
			del[i] = keyPrefix + k
		}
		if err := c.client.Del(ctx, del...).Err(); err != nil {
			errs = append(errs, err)
		}
		if err := c.client.Del(ctx, tagKey(tag)).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		c.logger.WarnContext(ctx, "cache invalidate had errors", "count", len(errs), "error", errs[0])
		return fmt.Errorf("cache invalidate: %d errors, first: %w", len(errs), errs[0])
	}
	return nil
}

func (c *RedisCache) Size(ctx context.Context) int {
	n, err := c.client.DBSize(ctx).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "cache size query failed", "error", err)
		return 0
	}
	return int(n)
}

func tagKey(tag string) string {
	return "rde:tag:" + tag
}
