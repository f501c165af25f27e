package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"chart_analyst/internal/analysis"
	"chart_analyst/internal/metrics"
	"chart_analyst/internal/models"
	healthservice "chart_analyst/internal/modules/health/service"
	mdservice "chart_analyst/internal/modules/marketdata/service"
	visionservice "chart_analyst/internal/modules/vision/service"
	"chart_analyst/internal/strategy"
	"chart_analyst/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot: часть *tgbot.BotAPI, которой пользуется сервис.
type Bot interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
	Request(c tgbot.Chattable) (*tgbot.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbot.UpdateConfig) tgbot.UpdatesChannel
	StopReceivingUpdates()
}

type ChatStore interface {
	Get(ctx context.Context, chatID int64) (*models.ChatSettings, error)
	Save(ctx context.Context, chat *models.ChatSettings) error
	Update(ctx context.Context, chatID int64, def *models.ChatSettings, fn func(chat *models.ChatSettings) error) (*models.ChatSettings, error)
	Delete(ctx context.Context, chatID int64) error
	List(ctx context.Context) ([]*models.ChatSettings, error)
}

type PlanStore interface {
	Save(ctx context.Context, rec models.PlanRecord) error
	Recent(ctx context.Context, chatID int64, limit int) ([]models.PlanRecord, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, series models.Series, label string, p strategy.Params) (analysis.Analysis, error)
	AnalyzeLevels(ctx context.Context, series models.Series, label string, p strategy.Params) (analysis.Analysis, error)
}

type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, image []byte, mime string) (visionservice.Narrative, error)
}

// InstrumentLookup проверяет символ перед добавлением в /watch. nil, без проверки.
type InstrumentLookup interface {
	Instrument(ctx context.Context, symbol string) (models.Instrument, error)
}

// Settings: то, что сервису нужно из конфига.
type Settings struct {
	PollTimeout      int
	DefaultTimeframe string
	Limit            int
	Params           models.StrategyParams
	RequestTimeout   time.Duration
}

type Deps struct {
	Chats       ChatStore
	Plans       PlanStore
	Fetcher     mdservice.Fetcher
	Instruments InstrumentLookup
	Analyzer    Analyzer
	Vision      ImageAnalyzer
	Metrics     *metrics.Metrics
	State       *healthservice.State
}

// Telegram
type Telegram struct {
	bot  Bot
	cfg  Settings
	deps Deps

	await *awaitStore
	http  *http.Client
	now   func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTelegram(bot Bot, cfg Settings, deps Deps) *Telegram {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60
	}
	if cfg.DefaultTimeframe == "" {
		cfg.DefaultTimeframe = "1h"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 200
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 90 * time.Second
	}
	return &Telegram{
		bot:   bot,
		cfg:   cfg,
		deps:  deps,
		await: newAwaitStore(),
		http:  &http.Client{Timeout: 30 * time.Second},
		now:   time.Now,
	}
}

func (t *Telegram) Send(ctx context.Context, chatID int64, msg string) (tgbot.Message, error) {
	return t.bot.Send(tgbot.NewMessage(chatID, msg))
}

func (t *Telegram) SendF(ctx context.Context, chatID int64, format string, args ...any) (tgbot.Message, error) {
	return t.Send(ctx, chatID, fmt.Sprintf(format, args...))
}

func (t *Telegram) SendMessage(_ context.Context, message tgbot.MessageConfig) (tgbot.Message, error) {
	return t.bot.Send(message)
}

// sendMarkdown: если Telegram не принял разметку, шлём тот же текст без неё.
func (t *Telegram) sendMarkdown(ctx context.Context, chatID int64, text string) (tgbot.Message, error) {
	msg := tgbot.NewMessage(chatID, text)
	msg.ParseMode = tgbot.ModeMarkdown
	sent, err := t.SendMessage(ctx, msg)
	if err == nil {
		return sent, nil
	}
	logger.Warn("telegram: markdown rejected for chat %d: %v", chatID, err)
	return t.Send(ctx, chatID, text)
}

func (t *Telegram) sendPhoto(chatID int64, name string, png []byte, caption string) error {
	photo := tgbot.NewPhoto(chatID, tgbot.FileBytes{Name: name, Bytes: png})
	photo.Caption = caption
	photo.ParseMode = tgbot.ModeMarkdown
	if _, err := t.bot.Send(photo); err == nil {
		return nil
	}
	photo.ParseMode = ""
	_, err := t.bot.Send(photo)
	return err
}

func (t *Telegram) editReplyMarkupRemove(chatID int64, msgID int) error {
	rm := tgbot.InlineKeyboardMarkup{InlineKeyboard: [][]tgbot.InlineKeyboardButton{}}
	edit := tgbot.NewEditMessageReplyMarkup(chatID, msgID, rm)
	_, err := t.bot.Request(edit)
	return err
}

func (t *Telegram) editText(chatID int64, msgID int, text string) error {
	edit := tgbot.NewEditMessageText(chatID, msgID, text)
	_, err := t.bot.Request(edit)
	return err
}

// editMarkdown: как sendMarkdown, но правит уже отправленное сообщение.
func (t *Telegram) editMarkdown(chatID int64, msgID int, text string) error {
	edit := tgbot.NewEditMessageText(chatID, msgID, text)
	edit.ParseMode = tgbot.ModeMarkdown
	if _, err := t.bot.Request(edit); err == nil {
		return nil
	}
	return t.editText(chatID, msgID, text)
}

// download тянет файл из Telegram по file_id.
func (t *Telegram) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 20<<20))
}

// Start запускает long polling в отдельной горутине.
func (t *Telegram) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	u := tgbot.NewUpdate(0)
	u.Timeout = t.cfg.PollTimeout
	updates := t.bot.GetUpdatesChan(u)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(runCtx, update)
			}
		}
	}()

	if t.deps.State != nil {
		t.deps.State.SetReady(true)
	}
	logger.Info("telegram: polling started")
	return nil
}

func (t *Telegram) Stop() {
	if t.deps.State != nil {
		t.deps.State.SetReady(false)
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.bot.StopReceivingUpdates()
	t.wg.Wait()
	logger.Info("telegram: polling stopped")
}
