package scheduler

import (
	"context"

	"chart_analyst/internal/analysis"
	"chart_analyst/internal/models"
	"chart_analyst/internal/modules/config"
	mdservice "chart_analyst/internal/modules/marketdata/service"
	"chart_analyst/internal/modules/scheduler/service"
	tgservice "chart_analyst/internal/modules/telegram_bot/service"
	"chart_analyst/internal/modules/telegram_bot/service/file"

	"go.uber.org/fx"
)

func NewScheduler(
	cfg *config.Config,
	chats *file.Chats,
	fetcher mdservice.Fetcher,
	assembler *analysis.Assembler,
	tg *tgservice.Telegram,
) (*service.Scheduler, error) {
	analyze := func(ctx context.Context, symbol, tf string, p models.StrategyParams) (analysis.Analysis, error) {
		return tgservice.RunAnalysis(ctx, fetcher, assembler, symbol, tf, cfg.OKX.Limit, p)
	}
	return service.NewScheduler(service.Config{
		Spec:         cfg.Scheduler.Spec,
		EntryTimeout: cfg.OKX.Timeout * 3,
	}, chats, analyze, tg)
}

func Module() fx.Option {
	return fx.Module("scheduler",
		fx.Provide(NewScheduler),
		fx.Invoke(
			func(lc fx.Lifecycle, s *service.Scheduler) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						s.Start()
						return nil
					},
					OnStop: func(ctx context.Context) error {
						s.Stop(ctx)
						return nil
					},
				})
			},
		),
	)
}
