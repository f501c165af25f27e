package observability

import (
	"context"

	"chart_analyst/internal/metrics"
	"chart_analyst/internal/modules/config"
	"chart_analyst/pkg/logger"
	"chart_analyst/pkg/tracing"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"
)

// InitLogger переключает фасад логгера на zap с уровнем из конфига.
func InitLogger(lc fx.Lifecycle, cfg *config.Config) error {
	logger.SetServiceName(cfg.Service.Name)
	if _, err := logger.Init(cfg.Service.LogLevel); err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Sync()
			return nil
		},
	})
	return nil
}

func NewTracer(lc fx.Lifecycle, cfg *config.Config) (opentracing.Tracer, error) {
	tracing.SetServiceName(cfg.Service.Name)
	tracer, closer, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			closer()
			return nil
		},
	})
	return tracer, nil
}

// Module: логгер, трейсер и prometheus-метрики.
func Module() fx.Option {
	return fx.Module("observability",
		fx.Invoke(InitLogger),
		fx.Provide(NewTracer),
		metrics.Module(),
	)
}
