package service

import (
	"context"
	"fmt"
	"strings"

	"chart_analyst/internal/helper"
	"chart_analyst/internal/models"
	"chart_analyst/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var hints = map[string]string{
	"tf":        "Введи *таймфрейм*, например: `1h` (1m 5m 15m 30m 1h 4h 1d)",
	"short":     "Введи *короткую SMA* (целое), например: `5`",
	"long":      "Введи *длинную SMA* (целое), например: `20`",
	"rsi":       "Введи *период RSI* (целое), например: `14`",
	"risk":      "Введи *стоп* в % от входа, например: `0.5`",
	"rr":        "Введи *тейк* в R, например: `3` (TP=3R)",
	"ob":        "Введи *уровень перекупленности*, например: `70`",
	"os":        "Введи *уровень перепроданности*, например: `30`",
	"smoothing": "Введи *сглаживание RSI*: `simple` или `wilder`",
}

// applySettings применяет пары key=value к копии настроек и валидирует результат.
// При ошибке chat не меняется.
func applySettings(chat *models.ChatSettings, pairs []string) error {
	if len(pairs) == 0 {
		return fmt.Errorf("нужны пары key=value, например `short=7 long=30`")
	}

	params := chat.Params
	tf := chat.Timeframe
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(value) == "" {
			return fmt.Errorf("%q: ожидается key=value", pair)
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "tf", "timeframe":
			norm := helper.NormTF(value)
			if helper.TimeframeDuration(norm) == 0 {
				return fmt.Errorf("неизвестный таймфрейм %q", value)
			}
			tf = norm
		default:
			if err := params.Set(key, value); err != nil {
				return err
			}
		}
	}
	if err := params.Validate(); err != nil {
		return err
	}

	chat.Params = params
	chat.Timeframe = tf
	return nil
}

func (t *Telegram) handleSettingsMenu(ctx context.Context, chatID int64) {
	chat, err := t.getChat(ctx, chatID, "")
	if err != nil {
		logger.Error("settings: %v", err)
		_, _ = t.Send(ctx, chatID, "Настройки не найдены, попробуй /start")
		return
	}

	msg := tgbot.NewMessage(chatID, formatSettings(chat))
	msg.ParseMode = tgbot.ModeMarkdown
	msg.ReplyMarkup = buildSettingsKeyboard()
	_, _ = t.SendMessage(ctx, msg)
}

func buildSettingsKeyboard() tgbot.InlineKeyboardMarkup {
	rows := [][]tgbot.InlineKeyboardButton{
		tgbot.NewInlineKeyboardRow(
			tgbot.NewInlineKeyboardButtonData("⏱ Таймфрейм", "set:tf"),
			tgbot.NewInlineKeyboardButtonData("〰️ Сглаживание", "set:smoothing"),
		),
		tgbot.NewInlineKeyboardRow(
			tgbot.NewInlineKeyboardButtonData("SMA short", "set:short"),
			tgbot.NewInlineKeyboardButtonData("SMA long", "set:long"),
			tgbot.NewInlineKeyboardButtonData("RSI", "set:rsi"),
		),
		tgbot.NewInlineKeyboardRow(
			tgbot.NewInlineKeyboardButtonData("📉 Стоп %", "set:risk"),
			tgbot.NewInlineKeyboardButtonData("🎯 Тейк R", "set:rr"),
		),
		tgbot.NewInlineKeyboardRow(
			tgbot.NewInlineKeyboardButtonData("OB", "set:ob"),
			tgbot.NewInlineKeyboardButtonData("OS", "set:os"),
		),
	}

	presets := make([]tgbot.InlineKeyboardButton, 0, len(models.Presets))
	for _, key := range models.PresetKeys() {
		presets = append(presets, tgbot.NewInlineKeyboardButtonData(models.Presets[key].Name, "preset:"+key))
	}
	rows = append(rows, presets,
		tgbot.NewInlineKeyboardRow(tgbot.NewInlineKeyboardButtonData("♻️ Сбросить", "reset")))

	return tgbot.NewInlineKeyboardMarkup(rows...)
}

func (t *Telegram) askValue(ctx context.Context, chatID int64, key string) {
	hint, ok := hints[key]
	if !ok {
		_, _ = t.Send(ctx, chatID, "❗️Неизвестная настройка")
		return
	}
	t.setAwait(chatID, "set:"+key)
	_, _ = t.sendMarkdown(ctx, chatID, "✍️ "+hint+"\n\nОтмена: напиши `отмена`")
}

func (t *Telegram) handleAwaitValue(ctx context.Context, chatID int64, text, key string) {
	t.saveSettings(ctx, chatID, []string{key + "=" + strings.TrimSpace(text)})
}

// /set short=7 long=30 risk=0.8
func (t *Telegram) handleSet(ctx context.Context, chatID int64, args string) {
	pairs := splitArgs(args)
	if len(pairs) == 0 {
		t.handleSettingsMenu(ctx, chatID)
		return
	}
	t.saveSettings(ctx, chatID, pairs)
}

func (t *Telegram) saveSettings(ctx context.Context, chatID int64, pairs []string) {
	_, applyErr, err := t.updateChat(ctx, chatID, func(chat *models.ChatSettings) error {
		return applySettings(chat, pairs)
	})
	if applyErr != nil {
		_, _ = t.Send(ctx, chatID, "❗️ "+applyErr.Error())
		return
	}
	if err != nil {
		logger.Error("set: %v", err)
		_, _ = t.Send(ctx, chatID, "⚠️ Не удалось сохранить настройку: "+err.Error())
		return
	}

	_, _ = t.Send(ctx, chatID, "✅ Сохранено")
	t.handleSettingsMenu(ctx, chatID)
}

func (t *Telegram) handleReset(ctx context.Context, chatID int64) {
	_, _, err := t.updateChat(ctx, chatID, func(chat *models.ChatSettings) error {
		chat.Params = t.cfg.Params
		chat.Timeframe = t.cfg.DefaultTimeframe
		return nil
	})
	if err != nil {
		_, _ = t.Send(ctx, chatID, "⚠️ Не удалось сохранить: "+err.Error())
		return
	}
	_, _ = t.Send(ctx, chatID, "♻️ Настройки сброшены")
	t.handleSettingsMenu(ctx, chatID)
}

// применить пресет
func (t *Telegram) applyPreset(ctx context.Context, chatID int64, key string) {
	p, ok := models.Presets[key]
	if !ok {
		_, _ = t.Send(ctx, chatID, "Неизвестный пресет")
		return
	}

	_, applyErr, err := t.updateChat(ctx, chatID, func(chat *models.ChatSettings) error {
		params := chat.Params
		p.Apply(&params)
		if err := params.Validate(); err != nil {
			return err
		}
		chat.Params = params
		return nil
	})
	if applyErr != nil {
		_, _ = t.Send(ctx, chatID, "❗️ "+applyErr.Error())
		return
	}
	if err != nil {
		_, _ = t.Send(ctx, chatID, "⚠️ Не удалось сохранить: "+err.Error())
		return
	}

	_, _ = t.sendMarkdown(ctx, chatID, fmt.Sprintf("✅ Применён пресет: *%s*\n%s", p.Name, p.Description))
	t.handleSettingsMenu(ctx, chatID)
}
