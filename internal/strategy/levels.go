package strategy

import (
	"fmt"
	"math"

	"chart_analyst/internal/models"

	"github.com/shopspring/decimal"
)

// PricePrecision: знаков после запятой, как в котировках форекса.
const PricePrecision = 5

// DeriveLevels считает вход, стоп и тейк от последнего закрытия.
// Buy:  SL = entry*(1-R), TP = entry + M*(entry-SL)
// Sell: SL = entry*(1+R), TP = entry - M*(SL-entry)
// Hold (флэт или тренд без свежего пересечения): только вход, без стопа и тейка.
func DeriveLevels(latestClose float64, signal models.SignalState, p models.StrategyParams) (models.TradePlan, error) {
	if math.IsNaN(latestClose) || math.IsInf(latestClose, 0) || latestClose <= 0 {
		return models.TradePlan{}, fmt.Errorf("latest close must be a positive finite price, got %v", latestClose)
	}
	if p.RiskFraction <= 0 || p.RiskFraction >= 1 || p.RewardMultiple <= 0 {
		return models.TradePlan{}, fmt.Errorf("invalid risk params: risk=%v reward=%v", p.RiskFraction, p.RewardMultiple)
	}

	entry := decimal.NewFromFloat(latestClose).Round(PricePrecision)
	plan := models.TradePlan{
		Entry:     entry.InexactFloat64(),
		Direction: signal,
	}

	risk := decimal.NewFromFloat(p.RiskFraction)
	reward := decimal.NewFromFloat(p.RewardMultiple)
	one := decimal.NewFromInt(1)

	var sl, tp decimal.Decimal
	switch signal.Action {
	case models.ActionBuy:
		sl = entry.Mul(one.Sub(risk))
		tp = entry.Add(entry.Sub(sl).Mul(reward))
	case models.ActionSell:
		sl = entry.Mul(one.Add(risk))
		tp = entry.Sub(sl.Sub(entry).Mul(reward))
	default:
		return plan, nil
	}

	sl = sl.Round(PricePrecision)
	tp = tp.Round(PricePrecision)
	if sl.Equal(entry) || tp.Equal(entry) {
		return models.TradePlan{}, models.PrecisionError{Entry: entry.String(), Digits: PricePrecision}
	}
	if !tp.IsPositive() {
		return models.TradePlan{}, fmt.Errorf("take profit %s is not a positive price", tp)
	}

	plan.StopLoss = ptr(sl.InexactFloat64())
	plan.TakeProfit = ptr(tp.InexactFloat64())
	return plan, nil
}

// RoundPrice: общее округление цен для вывода и сравнения.
func RoundPrice(v float64) float64 {
	return decimal.NewFromFloat(v).Round(PricePrecision).InexactFloat64()
}
