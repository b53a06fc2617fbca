package cache

import (
	"context"
	"time"

	"exchange-rate-viewer/internal/domain/model"
	"exchange-rate-viewer/pkg/logger"
	"exchange-rate-viewer/pkg/ratecache"
)

type MemoryCache struct {
	latest     *ratecache.Cache[model.LatestRate]
	historical *ratecache.Cache[model.HistoricalSeries]
	log        *logger.Logger
}

func NewMemoryCache(latestTTL, historicalTTL time.Duration, log *logger.Logger) *MemoryCache {
	return &MemoryCache{
		latest:     ratecache.New[model.LatestRate](latestTTL),
		historical: ratecache.New(historicalTTL, ratecache.WithClone(model.HistoricalSeries.Clone)),
		log:        log,
	}
}

func (c *MemoryCache) GetLatest(ctx context.Context, code model.CurrencyCode) (*model.LatestRate, bool) {
	rate, found := c.latest.Lookup(code.String())
	if !found {
		c.log.Debug("Cache miss", "kind", model.KindLatest, "key", code)
		return nil, false
	}

	c.log.Debug("Cache hit", "kind", model.KindLatest, "key", code)
	return &rate, true
}

func (c *MemoryCache) SetLatest(ctx context.Context, rate *model.LatestRate) error {
	c.latest.Store(rate.CurrencyCode.String(), *rate)
	c.log.Debug("Cache set", "kind", model.KindLatest, "key", rate.CurrencyCode)
	return nil
}

func (c *MemoryCache) GetHistorical(ctx context.Context, code model.CurrencyCode) (*model.HistoricalSeries, bool) {
	series, found := c.historical.Lookup(code.String())
	if !found {
		c.log.Debug("Cache miss", "kind", model.KindHistorical, "key", code)
		return nil, false
	}

	c.log.Debug("Cache hit", "kind", model.KindHistorical, "key", code)
	return &series, true
}

func (c *MemoryCache) SetHistorical(ctx context.Context, series *model.HistoricalSeries) error {
	c.historical.Store(series.CurrencyCode.String(), *series)
	c.log.Debug("Cache set", "kind", model.KindHistorical, "key", series.CurrencyCode)
	return nil
}

func (c *MemoryCache) ClearExpired(ctx context.Context) error {
	latest := c.latest.ClearExpired()
	historical := c.historical.ClearExpired()

	c.log.Info("Cleared expired cache entries", "latest", latest, "historical", historical)
	return nil
}
