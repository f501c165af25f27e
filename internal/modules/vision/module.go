package vision

import (
	"context"
	"time"

	"chart_analyst/internal/metrics"
	"chart_analyst/internal/modules/config"
	"chart_analyst/internal/modules/vision/service"

	"go.uber.org/fx"
)

// Module: клиент AI-разбора скриншотов графиков.
func Module() fx.Option {
	return fx.Module("vision",
		fx.Provide(
			func(cfg *config.Config, m *metrics.Metrics) (*service.Client, error) {
				return service.NewClient(context.Background(), service.Config{
					APIKey:     cfg.Gemini.APIKey,
					BaseURL:    cfg.Gemini.BaseURL,
					Model:      cfg.Gemini.Model,
					Timeout:    cfg.Gemini.Timeout,
					RetryDelay: time.Second,
				}, m)
			},
		),
	)
}
