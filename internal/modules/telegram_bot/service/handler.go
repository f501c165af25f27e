package service

import (
	"context"
	"strings"

	"chart_analyst/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (t *Telegram) handleUpdate(ctx context.Context, update tgbot.Update) {
	// 1) Обычные сообщения
	if msg := update.Message; msg != nil {
		chatID := msg.Chat.ID

		// Скриншот графика
		if fileID, mime, ok := imageOf(msg); ok {
			t.clearAwait(chatID)
			t.async(func() { t.handlePhoto(ctx, chatID, fileID, mime) })
			return
		}

		if msg.IsCommand() {
			t.clearAwait(chatID)
			t.handleCommand(ctx, msg)
			return
		}

		t.handleTextMessage(ctx, msg)
		return
	}

	// 2) Inline-кнопки (CallbackQuery)
	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.Message.Chat == nil {
			return
		}
		t.handleCallback(ctx, cb.Message.Chat.ID, cb)
		return
	}

	// 3) Остальное игнорируем
}

func (t *Telegram) handleCommand(ctx context.Context, msg *tgbot.Message) {
	chatID := msg.Chat.ID
	args := msg.CommandArguments()

	switch msg.Command() {
	case "start", "help":
		if err := t.handleStart(ctx, msg); err != nil {
			logger.Error("handleStart error: %v", err)
		}
	case "analyze", "a":
		t.async(func() { t.handleAnalyze(ctx, chatID, args) })
	case "settings":
		t.handleSettingsMenu(ctx, chatID)
	case "set":
		t.handleSet(ctx, chatID, args)
	case "reset":
		t.handleReset(ctx, chatID)
	case "watch":
		t.async(func() { t.handleWatch(ctx, chatID, args) })
	case "unwatch":
		t.handleUnwatch(ctx, chatID, args)
	case "watchlist":
		t.handleWatchlist(ctx, chatID)
	case "history":
		t.async(func() { t.handleHistory(ctx, chatID, args) })
	case "cancel":
		_, _ = t.Send(ctx, chatID, "Ок, отменил.")
	default:
		_, _ = t.Send(ctx, chatID, "Не знаю такой команды, смотри /help")
	}
}

func (t *Telegram) handleStart(ctx context.Context, msg *tgbot.Message) error {
	name := msg.Chat.UserName
	if msg.From != nil && msg.From.UserName != "" {
		name = msg.From.UserName
	}
	if _, err := t.getChat(ctx, msg.Chat.ID, name); err != nil {
		_, _ = t.Send(ctx, msg.Chat.ID, "Настройки не найдены, попробуй ещё раз /start")
		return err
	}

	_, err := t.sendMarkdown(ctx, msg.Chat.ID, startText)
	return err
}

// handleTextMessage: ответ на вопрос бота (символ, значение настройки).
func (t *Telegram) handleTextMessage(ctx context.Context, msg *tgbot.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	key, ok := t.popAwait(chatID)
	if !ok {
		_, _ = t.sendMarkdown(ctx, chatID, "Пришли скриншот графика или набери `/analyze BTC-USDT`. Все команды: /help")
		return
	}
	if isCancel(text) {
		_, _ = t.Send(ctx, chatID, "Ок, отменил.")
		return
	}

	switch {
	case key == "analyze":
		t.async(func() { t.handleAnalyze(ctx, chatID, text) })
	case key == "watch":
		t.async(func() { t.handleWatch(ctx, chatID, text) })
	case strings.HasPrefix(key, "set:"):
		t.handleAwaitValue(ctx, chatID, text, strings.TrimPrefix(key, "set:"))
	}
}

func (t *Telegram) handleCallback(ctx context.Context, chatID int64, cb *tgbot.CallbackQuery) {
	// отвечаем ТГ, чтобы убрать "часики" на кнопке
	_, _ = t.bot.Request(tgbot.NewCallback(cb.ID, ""))

	data := cb.Data
	switch {
	case strings.HasPrefix(data, "set:"):
		t.askValue(ctx, chatID, strings.TrimPrefix(data, "set:"))
	case strings.HasPrefix(data, "preset:"):
		t.applyPreset(ctx, chatID, strings.TrimPrefix(data, "preset:"))
	case data == "reset":
		t.handleReset(ctx, chatID)
	}
}

// imageOf: самый крупный размер фото или картинка, присланная файлом.
func imageOf(msg *tgbot.Message) (fileID, mime string, ok bool) {
	if n := len(msg.Photo); n > 0 {
		return msg.Photo[n-1].FileID, "image/jpeg", true
	}
	if d := msg.Document; d != nil && strings.HasPrefix(d.MimeType, "image/") {
		return d.FileID, d.MimeType, true
	}
	return "", "", false
}

// async: долгие обработчики не блокируют цикл апдейтов.
func (t *Telegram) async(fn func()) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("telegram: handler panic: %v", r)
			}
		}()
		fn()
	}()
}
