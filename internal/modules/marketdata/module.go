package marketdata

import (
	"context"
	"time"

	"chart_analyst/internal/metrics"
	"chart_analyst/internal/modules/config"
	"chart_analyst/internal/modules/marketdata/service"
	"chart_analyst/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// NewRedis возвращает nil, если адрес не задан. Кэш тогда не используется.
func NewRedis(lc fx.Lifecycle, cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				logger.Error("redis %s unavailable, cache will be bypassed: %v", cfg.Redis.Addr, err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})
	return rdb
}

func NewOKXClient(cfg *config.Config, m *metrics.Metrics) *service.OKXClient {
	return service.NewOKXClient(service.OKXConfig{
		BaseURL:    cfg.OKX.BaseURL,
		Timeout:    cfg.OKX.Timeout,
		RetryDelay: 500 * time.Millisecond,
	}, m)
}

func NewFetcher(cfg *config.Config, okx *service.OKXClient, rdb *redis.Client, m *metrics.Metrics) service.Fetcher {
	if rdb == nil {
		return okx
	}
	return service.NewCachedFetcher(okx, rdb, cfg.Redis.TTL, m)
}

// Module поднимает источник свечей OKX с кэшем в Redis.
func Module() fx.Option {
	return fx.Module("marketdata",
		fx.Provide(
			NewRedis,
			NewOKXClient,
			NewFetcher,
		),
	)
}
