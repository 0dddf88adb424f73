package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aidosgk/kaspi-orders-backend/pkg/logger"
	"github.com/aidosgk/kaspi-orders-backend/pkg/redis"
)

// Cache stores finished aggregate results keyed by query signature. A miss
// is never an error; callers fall through to the upstream fetch.
type Cache interface {
	Get(ctx context.Context, signature string) (*Result, bool)
	Set(ctx context.Context, signature string, result *Result)
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	logg   *logger.Logger
}

// NewRedisCache builds the Redis-backed aggregate cache.
func NewRedisCache(client *redis.Client, ttl time.Duration, logg *logger.Logger) Cache {
	return &redisCache{client: client, ttl: ttl, logg: logg}
}

func (c *redisCache) Get(ctx context.Context, signature string) (*Result, bool) {
	generation, err := c.client.Generation(ctx)
	if err != nil {
		c.warn(ctx, "reading cache generation", err)
		return nil, false
	}
	raw, err := c.client.Get(ctx, c.client.AggregateKey(generation, signature))
	if errors.Is(err, redis.ErrCacheMiss) {
		return nil, false
	}
	if err != nil {
		c.warn(ctx, "reading cached aggregate", err)
		return nil, false
	}
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.warn(ctx, "decoding cached aggregate", err)
		return nil, false
	}
	return &result, true
}

func (c *redisCache) Set(ctx context.Context, signature string, result *Result) {
	generation, err := c.client.Generation(ctx)
	if err != nil {
		c.warn(ctx, "reading cache generation", err)
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		c.warn(ctx, "encoding aggregate for cache", err)
		return
	}
	if err := c.client.Set(ctx, c.client.AggregateKey(generation, signature), string(payload), c.ttl); err != nil {
		c.warn(ctx, "writing cached aggregate", err)
	}
}

func (c *redisCache) warn(ctx context.Context, msg string, err error) {
	if c.logg != nil {
		c.logg.Error(ctx, msg, err)
	}
}
