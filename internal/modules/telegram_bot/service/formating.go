package service

import (
	"fmt"
	"strings"

	"chart_analyst/internal/analysis"
	"chart_analyst/internal/helper"
	"chart_analyst/internal/models"
	visionservice "chart_analyst/internal/modules/vision/service"
)

const disclaimer = "⚠️ *Disclaimer*: это не финансовый совет, всегда управляй риском."

const startText = "Привет! Я разбираю графики криптовалют.\n\n" +
	"📈 `/analyze BTC-USDT 1h` (или `/a`) пришлю график с SMA, RSI и планом сделки.\n" +
	"🖼 Пришли скриншот графика, и AI опишет его.\n" +
	"⚙️ `/settings` и `/set short=7 long=30` параметры стратегии, `/reset` сброс.\n" +
	"👀 `/watch BTC-USDT 4h`, `/unwatch BTC-USDT`, `/watchlist` слежу за пересечениями.\n" +
	"🗂 `/history 5` последние планы."

func trendIcon(t models.Trend) string {
	switch t {
	case models.TrendBullish:
		return "📈"
	case models.TrendBearish:
		return "📉"
	default:
		return "📊"
	}
}

func planLabel(side string) string {
	switch side {
	case "Long":
		return "🟢 План Long"
	case "Short":
		return "🔴 План Short"
	default:
		return "⚪️ План Neutral"
	}
}

// formatCaption: подпись к графику с планом сделки.
func formatCaption(label string, r analysis.Report, p models.StrategyParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n", trendIcon(r.Direction), escapeMarkdown(label))
	fmt.Fprintf(&b, "🎯 Тренд: `%s` · Сигнал: `%s`", r.Direction, r.ActionLabel)
	if r.ActionLabel != models.ActionHold {
		b.WriteString(" (свежее пересечение)")
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "📋 *%s*:\n", planLabel(r.PlanSide()))
	fmt.Fprintf(&b, "   - *Entry*: `%s`\n", price(r.Entry))
	if r.StopLoss != nil && r.TakeProfit != nil {
		fmt.Fprintf(&b, "   - *Stop Loss*: `%s`\n", price(*r.StopLoss))
		fmt.Fprintf(&b, "   - *Take Profit (RR 1:%s)*: `%s`\n", rr(p.RewardMultiple), price(*r.TakeProfit))
	} else if r.Direction == models.TrendSideways {
		b.WriteString("   - стоп и тейк не выставляются: рынок во флэте\n")
	} else {
		b.WriteString("   - стоп и тейк не выставляются: нет свежего пересечения средних\n")
	}
	b.WriteString("\n")

	if r.OscillatorValue != nil {
		fmt.Fprintf(&b, "📊 RSI(%d): `%s` (%s)\n\n", p.OscillatorWindow, f2(*r.OscillatorValue), r.OscillatorBand)
	} else {
		fmt.Fprintf(&b, "📊 RSI(%d): `n/a`\n\n", p.OscillatorWindow)
	}

	b.WriteString(disclaimer)
	return b.String()
}

// formatPlanText: тот же план без картинки.
func formatPlanText(label string, r analysis.Report, p models.StrategyParams) string {
	return formatCaption(label, r, p) + "\n\n🖼 График построить не удалось, отправляю только уровни."
}

func formatSettings(chat *models.ChatSettings) string {
	p := chat.Params
	return fmt.Sprintf(
		"*⚙️ Настройки анализа*\n\n"+
			"Таймфрейм: `%s`\n"+
			"SMA: `%d` / `%d`\n"+
			"RSI: period=`%d` OB=`%s` OS=`%s` (%s)\n"+
			"Стоп: `%s%%` от входа\n"+
			"Тейк: `%sR`\n"+
			"В списке слежения: `%d`",
		chat.Timeframe,
		p.ShortWindow, p.LongWindow,
		p.OscillatorWindow, rr(p.Overbought), rr(p.Oversold), p.Smoothing,
		rr(p.RiskFraction*100),
		rr(p.RewardMultiple),
		len(chat.Watch),
	)
}

func formatWatchlist(watch []models.WatchEntry) string {
	if len(watch) == 0 {
		return "📭 Список слежения пуст. Добавь: `/watch BTC-USDT 1h`"
	}
	var b strings.Builder
	b.WriteString("*👀 Слежу за:*\n")
	for _, w := range watch {
		fmt.Fprintf(&b, "- `%s`\n", helper.Label(w.Symbol, w.Timeframe))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHistory(records []models.PlanRecord) string {
	if len(records) == 0 {
		return "🗂 Планов пока нет. Начни с `/analyze BTC-USDT`"
	}
	var b strings.Builder
	b.WriteString("*🗂 Последние планы:*\n")
	for _, r := range records {
		fmt.Fprintf(&b, "`%s` %s %s %s/%s @ `%s`",
			r.CreatedAt.UTC().Format("01-02 15:04"), trendIcon(r.Trend),
			helper.Label(r.Symbol, r.Timeframe), r.Trend, r.Action, price(r.Entry))
		if r.StopLoss != nil && r.TakeProfit != nil {
			fmt.Fprintf(&b, " SL `%s` TP `%s`", price(*r.StopLoss), price(*r.TakeProfit))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatNarrative: ответ AI по скриншоту.
func formatNarrative(n visionservice.Narrative) string {
	side := "Neutral"
	switch n.Direction {
	case models.TrendBullish:
		side = "Long"
	case models.TrendBearish:
		side = "Short"
	}
	return fmt.Sprintf(
		"*%s Разбор графика от AI*\n\n"+
			"🎯 *Потенциальное направление*: `%s`\n\n"+
			"💬 *Анализ*:\n%s\n\n"+
			"📋 *%s*:\n"+
			"   - *Entry*: `%s`\n"+
			"   - *Stop Loss*: `%s`\n"+
			"   - *Take Profit (RR 1:3)*: `%s`\n\n"+
			"%s",
		trendIcon(n.Direction),
		n.RawDirection,
		escapeMarkdown(n.Analysis),
		planLabel(side),
		n.Entry, n.StopLoss, n.TakeProfit,
		disclaimer,
	)
}

func formatMalformed(raw string) string {
	return "😔 Не удалось разобрать ответ AI. Попробуй скриншот почётче.\n\n```\n" +
		strings.ReplaceAll(raw, "```", "'''") + "\n```"
}
