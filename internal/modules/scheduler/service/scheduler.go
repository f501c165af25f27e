package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chart_analyst/internal/analysis"
	"chart_analyst/internal/helper"
	"chart_analyst/internal/models"
	"chart_analyst/pkg/logger"

	"github.com/robfig/cron/v3"
)

type ChatLister interface {
	List(ctx context.Context) ([]*models.ChatSettings, error)
}

type Notifier interface {
	DeliverPlan(ctx context.Context, chatID int64, a analysis.Analysis, p models.StrategyParams) error
}

// AnalyzeFunc: свечи + конвейер для одного символа.
type AnalyzeFunc func(ctx context.Context, symbol, tf string, p models.StrategyParams) (analysis.Analysis, error)

type Config struct {
	Spec         string        // cron с секундами, пусто, выключен
	EntryTimeout time.Duration // на один символ из watchlist
}

type sent struct {
	action models.Action
	at     time.Time
}

// Scheduler периодически пересчитывает watchlist и пушит свежие пересечения.
type Scheduler struct {
	cfg      Config
	cron     *cron.Cron
	chats    ChatLister
	analyze  AnalyzeFunc
	notifier Notifier
	now      func() time.Time

	mu   sync.Mutex
	last map[string]sent // chat:symbol:tf
}

type cronLogger struct{}

func (cronLogger) Printf(format string, args ...any) { logger.Info("cron: "+format, args...) }

func NewScheduler(cfg Config, chats ChatLister, analyze AnalyzeFunc, notifier Notifier) (*Scheduler, error) {
	if cfg.EntryTimeout <= 0 {
		cfg.EntryTimeout = 30 * time.Second
	}
	s := &Scheduler{
		cfg:      cfg,
		chats:    chats,
		analyze:  analyze,
		notifier: notifier,
		now:      time.Now,
		last:     make(map[string]sent),
	}
	if cfg.Spec == "" {
		return s, nil
	}

	s.cron = cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(cronLogger{}))),
	)
	if _, err := s.cron.AddFunc(cfg.Spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("register watchlist task %q: %w", cfg.Spec, err)
	}
	return s, nil
}

func (s *Scheduler) Enabled() bool { return s.cron != nil }

func (s *Scheduler) Start() {
	if s.cron == nil {
		logger.Info("scheduler: disabled")
		return
	}
	s.cron.Start()
	logger.Info("scheduler: started (%s)", s.cfg.Spec)
}

// Stop ждёт завершения текущего прогона.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	logger.Info("scheduler: stopped")
}

// RunOnce проходит по всем watchlist. Возвращает число отправленных планов.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	chats, err := s.chats.List(ctx)
	if err != nil {
		logger.Error("scheduler: list chats: %v", err)
		return 0
	}

	delivered := 0
	for _, chat := range chats {
		for _, w := range chat.Watch {
			if ctx.Err() != nil {
				return delivered
			}
			if s.check(ctx, chat, w) {
				delivered++
			}
		}
	}
	if delivered > 0 {
		logger.Info("scheduler: delivered %d plans", delivered)
	}
	return delivered
}

func (s *Scheduler) check(ctx context.Context, chat *models.ChatSettings, w models.WatchEntry) bool {
	entryCtx, cancel := context.WithTimeout(ctx, s.cfg.EntryTimeout)
	defer cancel()

	a, err := s.analyze(entryCtx, w.Symbol, w.Timeframe, chat.Params)
	if err != nil {
		logger.Error("scheduler: %s %s for %d: %v", w.Symbol, w.Timeframe, chat.ChatID, err)
		return false
	}
	// только свежие пересечения
	if a.Signal.Action != models.ActionBuy && a.Signal.Action != models.ActionSell {
		return false
	}

	key := fmt.Sprintf("%d:%s:%s", chat.ChatID, w.Symbol, w.Timeframe)
	now := s.now()
	if s.seen(key, a.Signal.Action, now, helper.TimeframeDuration(w.Timeframe)) {
		return false
	}

	if err := s.notifier.DeliverPlan(ctx, chat.ChatID, a, chat.Params); err != nil {
		logger.Error("scheduler: %v", err)
		return false
	}
	s.mu.Lock()
	s.last[key] = sent{action: a.Signal.Action, at: now}
	s.mu.Unlock()
	return true
}

// seen: тот же сигнал уже уходил в пределах одной свечи.
func (s *Scheduler) seen(key string, action models.Action, now time.Time, bar time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.last[key]
	return ok && prev.action == action && now.Sub(prev.at) < bar
}
