package telegram

import (
	"context"
	"errors"
	"time"

	"chart_analyst/internal/analysis"
	"chart_analyst/internal/metrics"
	"chart_analyst/internal/modules/config"
	healthservice "chart_analyst/internal/modules/health/service"
	mdservice "chart_analyst/internal/modules/marketdata/service"
	"chart_analyst/internal/modules/telegram_bot/service"
	"chart_analyst/internal/modules/telegram_bot/service/file"
	"chart_analyst/internal/modules/telegram_bot/service/pg"
	visionservice "chart_analyst/internal/modules/vision/service"
	"chart_analyst/pkg/db"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
)

func NewBot(cfg *config.Config) (*tgbot.BotAPI, error) {
	if cfg.Telegram.Token == "" {
		return nil, errors.New("telegram token is empty: set TELEGRAM_TOKEN")
	}
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	b.Debug = cfg.Telegram.Debug
	return b, nil
}

func NewTelegram(
	cfg *config.Config,
	bot *tgbot.BotAPI,
	chats *file.Chats,
	plans *pg.Plans,
	fetcher mdservice.Fetcher,
	okx *mdservice.OKXClient,
	assembler *analysis.Assembler,
	vision *visionservice.Client,
	m *metrics.Metrics,
	state *healthservice.State,
) *service.Telegram {
	return service.NewTelegram(bot, service.Settings{
		PollTimeout:      cfg.Telegram.PollTimeout,
		DefaultTimeframe: cfg.DefaultTimeframe,
		Limit:            cfg.OKX.Limit,
		Params:           cfg.Strategy,
		RequestTimeout:   cfg.OKX.Timeout + cfg.Gemini.Timeout + 10*time.Second,
	}, service.Deps{
		Chats:       chats,
		Plans:       plans,
		Fetcher:     fetcher,
		Instruments: okx,
		Analyzer:    assembler,
		Vision:      vision,
		Metrics:     m,
		State:       state,
	})
}

func Module() fx.Option {
	return fx.Module("telegram",
		// 1. Репозитории: настройки чатов в файле, история планов в PG
		fx.Provide(
			func(cfg *config.Config) *file.Chats {
				return file.NewChats(cfg.ChatStore)
			},
			func(pool *db.PgTxManager) *pg.Plans {
				return pg.NewPlans(pool)
			},
		),

		// 2. Сервис Telegram как *service.Telegram
		fx.Provide(
			NewBot,
			NewTelegram,
		),

		// Запуск основного цикла через Lifecycle
		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return t.Start(ctx)
					},
					OnStop: func(ctx context.Context) error {
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
