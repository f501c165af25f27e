package service

import (
	"context"
	"fmt"

	"chart_analyst/internal/models"
)

// getChat возвращает настройки чата, создавая их из дефолтов при первом обращении.
func (t *Telegram) getChat(ctx context.Context, chatID int64, name string) (*models.ChatSettings, error) {
	chat, err := t.deps.Chats.Get(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get chat settings: %w", err)
	}
	if chat != nil {
		return chat, nil
	}

	// создаём, только если чат не успел появиться в параллельном обработчике
	chat, err = t.deps.Chats.Update(ctx, chatID, t.defaultChat(chatID, name), func(*models.ChatSettings) error { return nil })
	if err != nil {
		return nil, fmt.Errorf("create chat settings: %w", err)
	}
	return chat, nil
}

func (t *Telegram) defaultChat(chatID int64, name string) *models.ChatSettings {
	return models.NewChatSettings(chatID, name, t.cfg.DefaultTimeframe, t.cfg.Params)
}

// updateChat: чтение-изменение-запись настроек одним шагом в хранилище.
// applyErr: ошибка самого изменения (показываем пользователю), err: сбой хранилища.
func (t *Telegram) updateChat(
	ctx context.Context,
	chatID int64,
	fn func(chat *models.ChatSettings) error,
) (chat *models.ChatSettings, applyErr, err error) {
	chat, err = t.deps.Chats.Update(ctx, chatID, t.defaultChat(chatID, ""), func(c *models.ChatSettings) error {
		applyErr = fn(c)
		return applyErr
	})
	if applyErr != nil {
		return nil, applyErr, nil
	}
	return chat, nil, err
}
