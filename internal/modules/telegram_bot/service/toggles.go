package service

import (
	"context"
	"errors"
	"fmt"

	"chart_analyst/internal/helper"
	"chart_analyst/internal/models"
	"chart_analyst/pkg/logger"
)

const maxWatch = 20

var (
	errWatchFull  = fmt.Errorf("в списке уже %d символов, сначала /unwatch", maxWatch)
	errNotWatched = errors.New("not watched")
)

// toggleWatch добавляет символ или меняет его таймфрейм. Возвращает false, если ничего не изменилось.
func toggleWatch(chat *models.ChatSettings, symbol, tf string) (bool, error) {
	if i := chat.Watching(symbol); i >= 0 {
		if chat.Watch[i].Timeframe == tf {
			return false, nil
		}
		chat.Watch[i].Timeframe = tf
		return true, nil
	}
	if len(chat.Watch) >= maxWatch {
		return false, errWatchFull
	}
	chat.Watch = append(chat.Watch, models.WatchEntry{Symbol: symbol, Timeframe: tf})
	return true, nil
}

func unwatch(chat *models.ChatSettings, symbol string) bool {
	i := chat.Watching(symbol)
	if i < 0 {
		return false
	}
	chat.Watch = append(chat.Watch[:i], chat.Watch[i+1:]...)
	return true
}

// /watch SYMBOL [TF]
func (t *Telegram) handleWatch(ctx context.Context, chatID int64, args string) {
	chat, err := t.getChat(ctx, chatID, "")
	if err != nil {
		_, _ = t.Send(ctx, chatID, "Настройки не найдены, попробуй /start")
		return
	}

	symbol, tf, err := parseTarget(args, chat.Timeframe)
	if err != nil {
		if len(splitArgs(args)) == 0 {
			t.setAwait(chatID, "watch")
			_, _ = t.sendMarkdown(ctx, chatID, "✍️ Какой символ отслеживать? Например: `BTC-USDT 4h`")
			return
		}
		_, _ = t.Send(ctx, chatID, "❗️ "+err.Error())
		return
	}

	if chat.Watching(symbol) < 0 && !t.checkInstrument(ctx, chatID, symbol) {
		return
	}

	var changed bool
	_, applyErr, err := t.updateChat(ctx, chatID, func(chat *models.ChatSettings) error {
		var err error
		changed, err = toggleWatch(chat, symbol, tf)
		return err
	})
	if applyErr != nil {
		_, _ = t.Send(ctx, chatID, "❗️ "+applyErr.Error())
		return
	}
	if err != nil {
		_, _ = t.Send(ctx, chatID, "⚠️ Не удалось сохранить: "+err.Error())
		return
	}
	if !changed {
		_, _ = t.SendF(ctx, chatID, "👀 %s уже в списке", helper.Label(symbol, tf))
		return
	}
	_, _ = t.SendF(ctx, chatID, "👀 Слежу за %s. Пришлю план, когда появится пересечение средних.", helper.Label(symbol, tf))
}

// checkInstrument отсекает символы, которых нет на бирже. Если биржа не ответила, пропускаем.
func (t *Telegram) checkInstrument(ctx context.Context, chatID int64, symbol string) bool {
	if t.deps.Instruments == nil {
		return true
	}
	_, err := t.deps.Instruments.Instrument(ctx, symbol)
	var unknown models.UnknownInstrumentError
	switch {
	case err == nil:
		return true
	case errors.As(err, &unknown):
		if unknown.State != "" {
			_, _ = t.SendF(ctx, chatID, "❗️ %s сейчас не торгуется на OKX (%s)", symbol, unknown.State)
		} else {
			_, _ = t.SendF(ctx, chatID, "❗️ Инструмент %s не найден на OKX", symbol)
		}
		return false
	default:
		logger.Warn("watch %s: instrument check skipped: %v", symbol, err)
		return true
	}
}

// /unwatch SYMBOL
func (t *Telegram) handleUnwatch(ctx context.Context, chatID int64, args string) {
	parts := splitArgs(args)
	if len(parts) == 0 {
		_, _ = t.sendMarkdown(ctx, chatID, "Формат: `/unwatch BTC-USDT`")
		return
	}
	symbol := helper.NormSymbol(parts[0])
	_, applyErr, err := t.updateChat(ctx, chatID, func(chat *models.ChatSettings) error {
		if !unwatch(chat, symbol) {
			return errNotWatched
		}
		return nil
	})
	if applyErr != nil {
		_, _ = t.SendF(ctx, chatID, "%s не в списке", symbol)
		return
	}
	if err != nil {
		_, _ = t.Send(ctx, chatID, "⚠️ Не удалось сохранить: "+err.Error())
		return
	}
	_, _ = t.SendF(ctx, chatID, "🛑 Больше не слежу за %s", symbol)
}

func (t *Telegram) handleWatchlist(ctx context.Context, chatID int64) {
	chat, err := t.getChat(ctx, chatID, "")
	if err != nil {
		_, _ = t.Send(ctx, chatID, "Настройки не найдены, попробуй /start")
		return
	}
	_, _ = t.sendMarkdown(ctx, chatID, formatWatchlist(chat.Watch))
}
