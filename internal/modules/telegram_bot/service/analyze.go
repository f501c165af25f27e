package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chart_analyst/internal/analysis"
	"chart_analyst/internal/helper"
	"chart_analyst/internal/models"
	mdservice "chart_analyst/internal/modules/marketdata/service"
	"chart_analyst/internal/modules/telegram_bot/service/pg"
	visionservice "chart_analyst/internal/modules/vision/service"
	"chart_analyst/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// parseTarget: "btc/usdt 4h" -> ("BTC-USDT", "4h").
func parseTarget(args, defTF string) (symbol, tf string, err error) {
	parts := splitArgs(args)
	if len(parts) == 0 {
		return "", "", errors.New("укажи символ, например `/analyze BTC-USDT 1h`")
	}
	symbol = helper.NormSymbol(parts[0])
	tf = helper.NormTF(defTF)
	if len(parts) > 1 {
		tf = helper.NormTF(parts[1])
	}
	if helper.TimeframeDuration(tf) == 0 {
		return "", "", fmt.Errorf("неизвестный таймфрейм %q", tf)
	}
	return symbol, tf, nil
}

// RunAnalysis тянет свечи и прогоняет конвейер. Если график не собрался,
// возвращается анализ без картинки.
func RunAnalysis(
	ctx context.Context,
	fetcher mdservice.Fetcher,
	analyzer Analyzer,
	symbol, tf string,
	limit int,
	p models.StrategyParams,
) (analysis.Analysis, error) {
	series, err := fetcher.Candles(ctx, symbol, tf, limit)
	if err != nil {
		return analysis.Analysis{}, err
	}

	label := helper.Label(symbol, tf)
	res, err := analyzer.Analyze(ctx, series, label, p)
	var render models.RenderError
	if errors.As(err, &render) {
		logger.Warn("analysis %s: chart unavailable, sending levels only: %v", label, err)
		return analyzer.AnalyzeLevels(ctx, series, label, p)
	}
	return res, err
}

// DeliverPlan отправляет график с подписью (или текст) и пишет план в историю.
func (t *Telegram) DeliverPlan(ctx context.Context, chatID int64, a analysis.Analysis, p models.StrategyParams) error {
	report := a.Report()

	var err error
	if a.HasChart() {
		name := strings.ReplaceAll(a.Symbol, "/", "-") + "_" + a.Timeframe + ".png"
		err = t.sendPhoto(chatID, name, report.Chart, formatCaption(a.Label, report, p))
	} else {
		_, err = t.sendMarkdown(ctx, chatID, formatPlanText(a.Label, report, p))
	}
	if err != nil {
		return fmt.Errorf("deliver plan %s to %d: %w", a.ID, chatID, err)
	}

	t.deps.Metrics.Delivered()
	if t.deps.State != nil {
		t.deps.State.TouchAnalysis(t.now())
	}

	rec := models.NewPlanRecord(chatID, a.Symbol, a.Timeframe, a.Plan, t.now().UTC())
	rec.ID = a.ID
	if err := t.deps.Plans.Save(ctx, rec); err != nil && !errors.Is(err, pg.ErrHistoryDisabled) {
		logger.Error("history: save plan %s: %v", a.ID, err)
	}
	return nil
}

// /analyze SYMBOL [TF]
func (t *Telegram) handleAnalyze(ctx context.Context, chatID int64, args string) {
	chat, err := t.getChat(ctx, chatID, "")
	if err != nil {
		logger.Error("analyze: %v", err)
		_, _ = t.Send(ctx, chatID, "Настройки не найдены, попробуй /start")
		return
	}

	symbol, tf, err := parseTarget(args, chat.Timeframe)
	if err != nil {
		if len(splitArgs(args)) == 0 {
			t.setAwait(chatID, "analyze")
			_, _ = t.sendMarkdown(ctx, chatID, "✍️ Какой символ разобрать? Например: `BTC-USDT 1h`")
			return
		}
		_, _ = t.sendMarkdown(ctx, chatID, "❗️ "+err.Error())
		return
	}

	_, _ = t.bot.Request(tgbot.NewChatAction(chatID, tgbot.ChatUploadPhoto))

	runCtx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	defer cancel()

	a, err := RunAnalysis(runCtx, t.deps.Fetcher, t.deps.Analyzer, symbol, tf, t.cfg.Limit, chat.Params)
	if err != nil {
		logger.Error("analyze %s %s for %d: %v", symbol, tf, chatID, err)
		_, _ = t.Send(ctx, chatID, userMessage(err, symbol))
		return
	}

	if err := t.DeliverPlan(ctx, chatID, a, chat.Params); err != nil {
		logger.Error("analyze: %v", err)
	}
}

// userMessage: понятный текст вместо внутренней ошибки.
func userMessage(err error, symbol string) string {
	var (
		insufficient models.InsufficientDataError
		upstream     models.UpstreamError
		precision    models.PrecisionError
	)
	switch {
	case errors.As(err, &insufficient):
		return fmt.Sprintf("📉 Мало данных по %s: нужно %d свечей, есть %d.", symbol, insufficient.Required, insufficient.Available)
	case errors.As(err, &upstream) && upstream.Source == "vision":
		if errors.Is(err, visionservice.ErrNotConfigured) {
			return "🙈 AI-разбор скриншотов не настроен."
		}
		return "🤖 AI не смог разобрать картинку: " + upstream.Err.Error()
	case errors.As(err, &upstream):
		return fmt.Sprintf("🌐 Биржа не отдала данные по %s, попробуй позже или проверь символ.", symbol)
	case errors.As(err, &precision):
		return fmt.Sprintf("🔬 Цена %s слишком мала: при %d знаках стоп и тейк совпадают со входом. Увеличь стоп, например /set risk=5",
			precision.Entry, precision.Digits)
	case errors.Is(err, models.ErrInvalidSeries):
		return fmt.Sprintf("⚠️ Биржа вернула некорректные свечи по %s.", symbol)
	case errors.Is(err, context.DeadlineExceeded):
		return "⏳ Не уложился по времени, попробуй ещё раз."
	default:
		return "Что-то пошло не так, попробуй позже."
	}
}

// /history [N]
func (t *Telegram) handleHistory(ctx context.Context, chatID int64, args string) {
	limit := 5
	if parts := splitArgs(args); len(parts) > 0 {
		n, err := strconv.Atoi(parts[0])
		if err != nil || n <= 0 {
			_, _ = t.sendMarkdown(ctx, chatID, "Формат: `/history 10`")
			return
		}
		limit = n
	}

	records, err := t.deps.Plans.Recent(ctx, chatID, limit)
	if errors.Is(err, pg.ErrHistoryDisabled) {
		_, _ = t.Send(ctx, chatID, "🗂 История планов отключена.")
		return
	}
	if err != nil {
		logger.Error("history for %d: %v", chatID, err)
		_, _ = t.Send(ctx, chatID, "⚠️ Не удалось загрузить историю.")
		return
	}
	_, _ = t.sendMarkdown(ctx, chatID, formatHistory(records))
}

// handlePhoto: скриншот графика уходит в AI, ответ правится в сообщении-заглушке.
func (t *Telegram) handlePhoto(ctx context.Context, chatID int64, fileID, mime string) {
	progress, err := t.Send(ctx, chatID, "🧠 Получил картинку, анализирую с помощью AI, подожди немного...")
	if err != nil {
		logger.Error("photo: progress message to %d: %v", chatID, err)
		return
	}
	reply := func(text string) {
		if err := t.editMarkdown(chatID, progress.MessageID, text); err != nil {
			logger.Error("photo: edit reply for %d: %v", chatID, err)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	defer cancel()

	image, err := t.download(runCtx, fileID)
	if err != nil {
		logger.Error("photo: %v", err)
		reply("😔 Не удалось скачать картинку, попробуй ещё раз.")
		return
	}

	narrative, err := t.deps.Vision.AnalyzeImage(runCtx, image, mime)
	var malformed models.MalformedResponseError
	switch {
	case errors.As(err, &malformed):
		logger.Warn("photo: %v", err)
		reply(formatMalformed(narrative.Raw))
	case err != nil:
		logger.Error("photo for %d: %v", chatID, err)
		reply(userMessage(err, ""))
	default:
		reply(formatNarrative(narrative))
		if t.deps.State != nil {
			t.deps.State.TouchAnalysis(t.now())
		}
	}
}
