package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"chart_analyst/internal/analysis"
	"chart_analyst/internal/models"
	"chart_analyst/internal/modules/telegram_bot/service/file"
	visionservice "chart_analyst/internal/modules/vision/service"
	"chart_analyst/internal/strategy"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type botStub struct {
	mu      sync.Mutex
	sent    []tgbot.Chattable
	fileURL string
	updates chan tgbot.Update
}

func (b *botStub) Send(c tgbot.Chattable) (tgbot.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, c)
	return tgbot.Message{MessageID: len(b.sent)}, nil
}

func (b *botStub) Request(c tgbot.Chattable) (*tgbot.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, c)
	return &tgbot.APIResponse{Ok: true}, nil
}

func (b *botStub) GetFileDirectURL(string) (string, error) { return b.fileURL, nil }

func (b *botStub) GetUpdatesChan(tgbot.UpdateConfig) tgbot.UpdatesChannel { return b.updates }

func (b *botStub) StopReceivingUpdates() {}

// texts: тексты сообщений, правок и подписей по порядку.
func (b *botStub) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.sent {
		switch v := c.(type) {
		case tgbot.MessageConfig:
			out = append(out, v.Text)
		case tgbot.EditMessageTextConfig:
			out = append(out, v.Text)
		case tgbot.PhotoConfig:
			out = append(out, v.Caption)
		}
	}
	return out
}

func (b *botStub) photos() []tgbot.PhotoConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []tgbot.PhotoConfig
	for _, c := range b.sent {
		if p, ok := c.(tgbot.PhotoConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

type fetcherStub struct {
	series models.Series
	err    error
	calls  []string
}

func (f *fetcherStub) Candles(_ context.Context, symbol, tf string, _ int) (models.Series, error) {
	f.calls = append(f.calls, symbol+" "+tf)
	return f.series, f.err
}

type analyzerStub struct {
	res       analysis.Analysis
	err       error
	levelsErr error
	params    []strategy.Params
}

func (a *analyzerStub) Analyze(_ context.Context, _ models.Series, label string, p strategy.Params) (analysis.Analysis, error) {
	a.params = append(a.params, p)
	if a.err != nil {
		return analysis.Analysis{}, a.err
	}
	res := a.res
	res.Label = label
	return res, nil
}

func (a *analyzerStub) AnalyzeLevels(_ context.Context, _ models.Series, label string, _ strategy.Params) (analysis.Analysis, error) {
	if a.levelsErr != nil {
		return analysis.Analysis{}, a.levelsErr
	}
	res := a.res
	res.Label = label
	res.Chart = models.ChartArtifact{}
	return res, nil
}

type plansStub struct {
	mu    sync.Mutex
	saved []models.PlanRecord
	err   error
}

func (p *plansStub) Save(_ context.Context, rec models.PlanRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.saved = append(p.saved, rec)
	return nil
}

func (p *plansStub) Recent(_ context.Context, chatID int64, limit int) ([]models.PlanRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	var out []models.PlanRecord
	for i := len(p.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if p.saved[i].ChatID == chatID {
			out = append(out, p.saved[i])
		}
	}
	return out, nil
}

type visionStub struct {
	narrative visionservice.Narrative
	err       error
	got       []byte
}

func (v *visionStub) AnalyzeImage(_ context.Context, image []byte, _ string) (visionservice.Narrative, error) {
	v.got = image
	return v.narrative, v.err
}

// instrumentsStub: символы из errs отвечают ошибкой, остальные существуют.
// gate != nil: ответ задерживается, пока gate не закроют; entered сигналит о входе.
type instrumentsStub struct {
	errs    map[string]error
	gate    chan struct{}
	entered chan struct{}
}

func (i *instrumentsStub) Instrument(_ context.Context, symbol string) (models.Instrument, error) {
	if i.gate != nil {
		i.entered <- struct{}{}
		<-i.gate
	}
	if err, ok := i.errs[symbol]; ok {
		return models.Instrument{}, err
	}
	return models.Instrument{InstID: symbol, State: "live"}, nil
}

func fp(v float64) *float64 { return &v }

func bullishAnalysis() analysis.Analysis {
	rsi := 61.2
	return analysis.Analysis{
		ID:        uuid.MustParse("0b8f1f2e-3c4d-4e5f-8a9b-0c1d2e3f4a5b"),
		Symbol:    "BTC-USDT",
		Timeframe: "1h",
		Plan: models.TradePlan{
			Entry:      100,
			StopLoss:   fp(99.5),
			TakeProfit: fp(101.5),
			Direction: models.SignalState{
				Trend: models.TrendBullish, Action: models.ActionBuy, Crossover: true,
				RSI: &rsi, Band: models.BandNeutral,
			},
		},
		Signal: models.SignalState{
			Trend: models.TrendBullish, Action: models.ActionBuy, Crossover: true,
			RSI: &rsi, Band: models.BandNeutral,
		},
		Band:  models.BandNeutral,
		Chart: models.ChartArtifact{Label: "BTC/USDT 1h", PNG: []byte{0x89, 'P', 'N', 'G'}},
	}
}

type fixture struct {
	tg       *Telegram
	bot      *botStub
	chats    *file.Chats
	plans    *plansStub
	fetcher  *fetcherStub
	analyzer *analyzerStub
	vision   *visionStub
	insts    *instrumentsStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bot:      &botStub{updates: make(chan tgbot.Update)},
		chats:    file.NewChats(""),
		plans:    &plansStub{},
		fetcher:  &fetcherStub{},
		analyzer: &analyzerStub{res: bullishAnalysis()},
		vision:   &visionStub{},
		insts:    &instrumentsStub{},
	}
	f.tg = NewTelegram(f.bot, Settings{
		DefaultTimeframe: "1h",
		Params:           models.DefaultStrategyParams(),
		RequestTimeout:   5 * time.Second,
	}, Deps{
		Chats:       f.chats,
		Plans:       f.plans,
		Fetcher:     f.fetcher,
		Instruments: f.insts,
		Analyzer:    f.analyzer,
		Vision:      f.vision,
	})
	f.tg.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

// command собирает апдейт "/cmd args" и ждёт асинхронные обработчики.
func (f *fixture) command(t *testing.T, chatID int64, text string) {
	t.Helper()
	f.dispatch(t, chatID, text)
	f.tg.wg.Wait()
}

// dispatch отдаёт команду, не дожидаясь асинхронных обработчиков.
func (f *fixture) dispatch(t *testing.T, chatID int64, text string) {
	t.Helper()
	require.Equal(t, byte('/'), text[0])
	cmdLen := len(text)
	for i, r := range text {
		if r == ' ' {
			cmdLen = i
			break
		}
	}
	f.tg.handleUpdate(context.Background(), tgbot.Update{Message: &tgbot.Message{
		Text:     text,
		Chat:     &tgbot.Chat{ID: chatID},
		Entities: []tgbot.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}})
}

func (f *fixture) text(t *testing.T, chatID int64, text string) {
	t.Helper()
	f.tg.handleUpdate(context.Background(), tgbot.Update{Message: &tgbot.Message{
		Text: text,
		Chat: &tgbot.Chat{ID: chatID},
	}})
	f.tg.wg.Wait()
}
