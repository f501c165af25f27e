package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chart_analyst/internal/models"
	healthservice "chart_analyst/internal/modules/health/service"
	"chart_analyst/internal/modules/telegram_bot/service/pg"
	visionservice "chart_analyst/internal/modules/vision/service"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func last(t *testing.T, texts []string) string {
	t.Helper()
	require.NotEmpty(t, texts)
	return texts[len(texts)-1]
}

func TestAnalyze_SendsChartAndStoresPlan(t *testing.T) {
	f := newFixture(t)

	f.command(t, 7, "/analyze btc/usdt 4h")

	assert.Equal(t, []string{"BTC-USDT 4h"}, f.fetcher.calls)
	photos := f.bot.photos()
	require.Len(t, photos, 1)
	caption := photos[0].Caption
	assert.Contains(t, caption, "*BTC/USDT 4h*")
	assert.Contains(t, caption, "План Long")
	assert.Contains(t, caption, "*Entry*: `100`")
	assert.Contains(t, caption, "*Stop Loss*: `99.5`")
	assert.Contains(t, caption, "*Take Profit (RR 1:3)*: `101.5`")
	assert.Contains(t, caption, "RSI(14): `61.20` (Neutral)")
	assert.Contains(t, caption, "Disclaimer")

	require.Len(t, f.plans.saved, 1)
	rec := f.plans.saved[0]
	assert.Equal(t, bullishAnalysis().ID, rec.ID)
	assert.Equal(t, int64(7), rec.ChatID)
	assert.Equal(t, models.ActionBuy, rec.Action)
	assert.Equal(t, 99.5, *rec.StopLoss)
}

func TestAnalyze_AliasAndRenderFallback(t *testing.T) {
	f := newFixture(t)
	f.analyzer.err = models.RenderError{Reason: "png encode"}

	f.command(t, 1, "/a ethusdt")

	assert.Equal(t, []string{"ETH-USDT 1h"}, f.fetcher.calls)
	assert.Empty(t, f.bot.photos())
	msg := last(t, f.bot.texts())
	assert.Contains(t, msg, "График построить не удалось")
	assert.Contains(t, msg, "*Take Profit (RR 1:3)*: `101.5`")
	assert.Len(t, f.plans.saved, 1)
}

func TestAnalyze_UserFacingErrors(t *testing.T) {
	tests := []struct {
		name       string
		fetchErr   error
		analyzeErr error
		want       string
	}{
		{
			name:       "insufficient data",
			analyzeErr: models.InsufficientDataError{Required: 21, Available: 5},
			want:       "нужно 21 свечей, есть 5",
		},
		{
			name:       "price below precision",
			analyzeErr: models.PrecisionError{Entry: "0.00042", Digits: 5},
			want:       "Цена 0.00042 слишком мала",
		},
		{
			name:     "exchange down",
			fetchErr: models.UpstreamError{Source: "okx", Err: fmt.Errorf("status 503")},
			want:     "Биржа не отдала данные по BTC-USDT",
		},
		{
			name:     "bad candles",
			fetchErr: fmt.Errorf("%w: bar 3", models.ErrInvalidSeries),
			want:     "некорректные свечи",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.fetcher.err = tt.fetchErr
			f.analyzer.err = tt.analyzeErr

			f.command(t, 1, "/analyze BTC-USDT")

			assert.Contains(t, last(t, f.bot.texts()), tt.want)
			assert.Empty(t, f.bot.photos())
			assert.Empty(t, f.plans.saved)
		})
	}
}

func TestAnalyze_AsksForSymbol(t *testing.T) {
	f := newFixture(t)

	f.command(t, 1, "/analyze")
	assert.Contains(t, last(t, f.bot.texts()), "Какой символ")
	assert.Empty(t, f.fetcher.calls)

	f.text(t, 1, "sol-usdt 15m")
	assert.Equal(t, []string{"SOL-USDT 15m"}, f.fetcher.calls)
	assert.Len(t, f.bot.photos(), 1)
}

func TestAnalyze_BadTimeframe(t *testing.T) {
	f := newFixture(t)

	f.command(t, 1, "/analyze BTC-USDT 7x")

	assert.Contains(t, last(t, f.bot.texts()), "неизвестный таймфрейм")
	assert.Empty(t, f.fetcher.calls)
}

func TestSet_ChatParamsReachPipeline(t *testing.T) {
	f := newFixture(t)

	f.command(t, 1, "/set short=7 long=30 risk=1 tf=4h")
	f.command(t, 1, "/a BTC-USDT")

	require.Len(t, f.analyzer.params, 1)
	p := f.analyzer.params[0]
	assert.Equal(t, 7, p.ShortWindow)
	assert.Equal(t, 30, p.LongWindow)
	assert.InDelta(t, 0.01, p.RiskFraction, 1e-12)
	assert.Equal(t, []string{"BTC-USDT 4h"}, f.fetcher.calls)
}

func TestSet_InvalidKeepsSettings(t *testing.T) {
	f := newFixture(t)

	f.command(t, 1, "/set short=50")

	assert.Contains(t, strings.Join(f.bot.texts(), "\n"), "short window must be < long window")
	chat, err := f.chats.Get(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.Equal(t, models.DefaultStrategyParams(), chat.Params)
}

func TestReset(t *testing.T) {
	f := newFixture(t)

	f.command(t, 1, "/set rr=5 tf=15m")
	f.command(t, 1, "/reset")

	chat, err := f.chats.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultStrategyParams(), chat.Params)
	assert.Equal(t, "1h", chat.Timeframe)
}

func callback(chatID int64, data string) tgbot.Update {
	return tgbot.Update{CallbackQuery: &tgbot.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbot.Message{MessageID: 1, Chat: &tgbot.Chat{ID: chatID}},
	}}
}

func TestSettingsButtons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.tg.handleUpdate(ctx, callback(1, "set:rr"))
	assert.Contains(t, last(t, f.bot.texts()), "тейк")

	f.text(t, 1, "2,5")
	chat, err := f.chats.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2.5, chat.Params.RewardMultiple)

	f.tg.handleUpdate(ctx, callback(1, "preset:swing"))
	chat, err = f.chats.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, chat.Params.LongWindow)
	assert.Equal(t, models.SmoothingWilder, chat.Params.Smoothing)
}

func TestAwait_Cancel(t *testing.T) {
	f := newFixture(t)

	f.command(t, 1, "/start")
	f.tg.handleUpdate(context.Background(), callback(1, "set:short"))
	f.text(t, 1, "отмена")
	f.text(t, 1, "9")

	chat, err := f.chats.Get(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.Equal(t, 5, chat.Params.ShortWindow)
	for _, txt := range f.bot.texts() {
		assert.NotContains(t, txt, "Сохранено")
	}
	_, ok := f.tg.popAwait(1)
	assert.False(t, ok)
}

func TestAwait_Expires(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	f.tg.now = func() time.Time { return now }

	f.tg.setAwait(1, "analyze")
	now = now.Add(awaitTTL + time.Second)

	_, ok := f.tg.popAwait(1)
	assert.False(t, ok)
}

func TestWatchlist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.command(t, 1, "/watch btcusdt 4h")
	f.command(t, 1, "/watch ETH-USDT")
	f.command(t, 1, "/watch BTC-USDT 4h")
	assert.Contains(t, last(t, f.bot.texts()), "уже в списке")

	chat, err := f.chats.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.WatchEntry{
		{Symbol: "BTC-USDT", Timeframe: "4h"},
		{Symbol: "ETH-USDT", Timeframe: "1h"},
	}, chat.Watch)

	f.command(t, 1, "/watchlist")
	assert.Contains(t, last(t, f.bot.texts()), "`BTC/USDT 4h`")

	f.command(t, 1, "/unwatch btc-usdt")
	chat, err = f.chats.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.WatchEntry{{Symbol: "ETH-USDT", Timeframe: "1h"}}, chat.Watch)
}

func TestWatch_ChecksInstrument(t *testing.T) {
	f := newFixture(t)
	f.insts.errs = map[string]error{
		"FOO-USDT":  models.UnknownInstrumentError{Symbol: "FOO-USDT"},
		"LUNA-USDT": models.UnknownInstrumentError{Symbol: "LUNA-USDT", State: "suspend"},
		"SOL-USDT":  models.UpstreamError{Source: "okx", Err: errors.New("timeout")},
	}

	f.command(t, 1, "/watch FOO-USDT")
	assert.Contains(t, last(t, f.bot.texts()), "не найден на OKX")
	f.command(t, 1, "/watch LUNA-USDT")
	assert.Contains(t, last(t, f.bot.texts()), "не торгуется")

	// биржа недоступна: символ всё равно добавляем
	f.command(t, 1, "/watch SOL-USDT")
	assert.Contains(t, last(t, f.bot.texts()), "Слежу за")

	chat, err := f.chats.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []models.WatchEntry{{Symbol: "SOL-USDT", Timeframe: "1h"}}, chat.Watch)
}

func TestWatch_KeepsSettingsChangedDuringLookup(t *testing.T) {
	f := newFixture(t)
	f.insts.gate = make(chan struct{})
	f.insts.entered = make(chan struct{}, 2)

	f.dispatch(t, 1, "/watch BTC-USDT")
	<-f.insts.entered
	f.dispatch(t, 1, "/watch ETH-USDT 4h")
	<-f.insts.entered

	// пока биржа думает, пользователь меняет настройки
	f.dispatch(t, 1, "/set short=7")

	close(f.insts.gate)
	f.tg.wg.Wait()

	chat, err := f.chats.Get(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.Equal(t, 7, chat.Params.ShortWindow)
	assert.ElementsMatch(t, []models.WatchEntry{
		{Symbol: "BTC-USDT", Timeframe: "1h"},
		{Symbol: "ETH-USDT", Timeframe: "4h"},
	}, chat.Watch)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)

	f.command(t, 1, "/analyze BTC-USDT")
	f.command(t, 1, "/history 3")

	msg := last(t, f.bot.texts())
	assert.Contains(t, msg, "Последние планы")
	assert.Contains(t, msg, "BTC/USDT 1h Bullish/Buy @ `100` SL `99.5` TP `101.5`")

	f.command(t, 1, "/history abc")
	assert.Contains(t, last(t, f.bot.texts()), "/history 10")
}

func TestHistory_Disabled(t *testing.T) {
	f := newFixture(t)
	f.plans.err = fmt.Errorf("pg.Plans.Recent: %w", pg.ErrHistoryDisabled)

	f.command(t, 1, "/history")
	assert.Contains(t, last(t, f.bot.texts()), "отключена")
}

func photoUpdate(chatID int64) tgbot.Update {
	return tgbot.Update{Message: &tgbot.Message{
		Chat:  &tgbot.Chat{ID: chatID},
		Photo: []tgbot.PhotoSize{{FileID: "small"}, {FileID: "big"}},
	}}
}

func TestPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	t.Run("narrative", func(t *testing.T) {
		f := newFixture(t)
		f.bot.fileURL = srv.URL
		f.vision.narrative = visionservice.Narrative{
			Direction: models.TrendBearish, RawDirection: "Bearish",
			Analysis: "Lower highs", Entry: "65000", StopLoss: "66000", TakeProfit: "62000",
		}

		f.tg.handleUpdate(context.Background(), photoUpdate(1))
		f.tg.wg.Wait()

		assert.Equal(t, []byte("jpeg-bytes"), f.vision.got)
		msg := last(t, f.bot.texts())
		assert.Contains(t, msg, "План Short")
		assert.Contains(t, msg, "Lower highs")
		assert.Contains(t, msg, "*Take Profit (RR 1:3)*: `62000`")
	})

	t.Run("malformed", func(t *testing.T) {
		f := newFixture(t)
		f.bot.fileURL = srv.URL
		f.vision.narrative = visionservice.Narrative{Raw: "I think it goes up"}
		f.vision.err = models.MalformedResponseError{Missing: []string{"ENTRY"}}

		f.tg.handleUpdate(context.Background(), photoUpdate(1))
		f.tg.wg.Wait()

		msg := last(t, f.bot.texts())
		assert.Contains(t, msg, "Не удалось разобрать ответ AI")
		assert.Contains(t, msg, "I think it goes up")
	})

	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t)
		f.bot.fileURL = srv.URL
		f.vision.err = models.UpstreamError{Source: "vision", Err: visionservice.ErrNotConfigured}

		f.tg.handleUpdate(context.Background(), photoUpdate(1))
		f.tg.wg.Wait()

		assert.Contains(t, last(t, f.bot.texts()), "не настроен")
	})
}

func TestStartStop(t *testing.T) {
	f := newFixture(t)
	state := healthservice.NewState()
	f.tg.deps.State = state

	require.NoError(t, f.tg.Start(context.Background()))
	assert.True(t, state.Ready())

	f.bot.updates <- tgbot.Update{Message: &tgbot.Message{
		Text:     "/start",
		Chat:     &tgbot.Chat{ID: 3, UserName: "carol"},
		Entities: []tgbot.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
	}}

	f.tg.Stop()
	assert.False(t, state.Ready())

	chat, err := f.chats.Get(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.Equal(t, "carol", chat.Name)
}
