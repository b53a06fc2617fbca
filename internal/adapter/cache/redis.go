package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"exchange-rate-viewer/internal/domain/model"
	"exchange-rate-viewer/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fxviewer"

// RedisCache shares proxy cache entries between server instances. Expiry is
// left to redis, so ClearExpired has nothing to do.
type RedisCache struct {
	client        *redis.Client
	latestTTL     time.Duration
	historicalTTL time.Duration
	log           *logger.Logger
}

func NewRedisCache(ctx context.Context, redisURL string, latestTTL, historicalTTL time.Duration, log *logger.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		client:        client,
		latestTTL:     latestTTL,
		historicalTTL: historicalTTL,
		log:           log,
	}, nil
}

func cacheKey(kind model.Kind, code model.CurrencyCode) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, kind, model.NormalizeCode(code.String()))
}

func (c *RedisCache) GetLatest(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, bool) {
	var rate model.LatestRate
	if !c.get(ctx, cacheKey(model.KindLatest, code), &rate) {
		return nil, false
	}
	return &rate, true
}

func (c *RedisCache) SetLatest(ctx context.Context, rate *model.LatestRate) error {
	return c.set(ctx, cacheKey(model.KindLatest, rate.CurrencyCode), rate, c.latestTTL)
}

func (c *RedisCache) GetHistorical(ctx context.Context, code model.CurrencyCode) (*model.HistoricalSeries, bool) {
	var series model.HistoricalSeries
	if !c.get(ctx, cacheKey(model.KindHistorical, code), &series) {
		return nil, false
	}
	return &series, true
}

func (c *RedisCache) SetHistorical(ctx context.Context, series *model.HistoricalSeries) error {
	return c.set(ctx, cacheKey(model.KindHistorical, series.CurrencyCode), series, c.historicalTTL)
}

func (c *RedisCache) ClearExpired(ctx context.Context) error {
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Error("Failed to read from Redis", "key", key, "error", err)
		}
		c.log.Debug("Cache miss", "key", key)
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.log.Error("Failed to decode cached value", "key", key, "error", err)
		return false
	}

	c.log.Debug("Cache hit", "key", key)
	return true
}

func (c *RedisCache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	c.log.Debug("Cache set", "key", key)
	return nil
}
