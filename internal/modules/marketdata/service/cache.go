package service

import (
	"context"
	"fmt"
	"time"

	"chart_analyst/internal/metrics"
	"chart_analyst/internal/models"
	"chart_analyst/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const cachePrefix = "candles:"

type cachedSeries struct {
	Symbol    string       `json:"symbol"`
	Timeframe string       `json:"timeframe"`
	Bars      []models.Bar `json:"bars"`
	CachedAt  time.Time    `json:"cached_at"`
}

// CachedFetcher кэширует ряды в Redis. Ошибки Redis логируются и пропускаются.
type CachedFetcher struct {
	next    Fetcher
	redis   *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
}

func NewCachedFetcher(next Fetcher, rdb *redis.Client, ttl time.Duration, m *metrics.Metrics) *CachedFetcher {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedFetcher{
		next:    next,
		redis:   rdb,
		ttl:     ttl,
		metrics: m,
	}
}

func cacheKey(symbol, timeframe string, limit int) string {
	return fmt.Sprintf("%s%s:%s:%d", cachePrefix, symbol, timeframe, limit)
}

func (c *CachedFetcher) Candles(ctx context.Context, symbol, timeframe string, limit int) (models.Series, error) {
	key := cacheKey(symbol, timeframe, limit)

	if s, ok := c.lookup(ctx, key); ok {
		return s, nil
	}

	series, err := c.next.Candles(ctx, symbol, timeframe, limit)
	if err != nil {
		return models.Series{}, err
	}

	data, err := sonic.Marshal(cachedSeries{
		Symbol:    series.Symbol(),
		Timeframe: series.Timeframe(),
		Bars:      series.Bars(),
		CachedAt:  time.Now().UTC(),
	})
	if err != nil {
		logger.Error("encode cached series %s: %v", key, err)
		return series, nil
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Error("redis set %s: %v", key, err)
	}
	return series, nil
}

func (c *CachedFetcher) lookup(ctx context.Context, key string) (models.Series, bool) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.metrics.Cache("miss")
		return models.Series{}, false
	}
	if err != nil {
		c.metrics.Cache("error")
		logger.Error("redis get %s: %v", key, err)
		return models.Series{}, false
	}

	var entry cachedSeries
	if err := sonic.Unmarshal(data, &entry); err != nil {
		c.metrics.Cache("error")
		logger.Error("decode cached series %s: %v", key, err)
		return models.Series{}, false
	}
	s, err := models.NewSeries(entry.Symbol, entry.Timeframe, entry.Bars)
	if err != nil {
		c.metrics.Cache("error")
		return models.Series{}, false
	}
	c.metrics.Cache("hit")
	return s, true
}
