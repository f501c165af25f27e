package analysis

import (
	"chart_analyst/internal/models"
)

// Report: внешнее представление результата для доставки и JSON.
type Report struct {
	Direction       models.Trend  `json:"direction"`
	ActionLabel     models.Action `json:"actionLabel"`
	Entry           float64       `json:"entry"`
	StopLoss        *float64      `json:"stopLoss"`
	TakeProfit      *float64      `json:"takeProfit"`
	OscillatorValue *float64      `json:"oscillatorValue"`
	OscillatorBand  models.Band   `json:"oscillatorBand"`
	Chart           []byte        `json:"chart,omitempty"`
}

func (a Analysis) Report() Report {
	r := Report{
		Direction:      a.Signal.Trend,
		ActionLabel:    a.Signal.Action,
		Entry:          a.Plan.Entry,
		StopLoss:       copyPtr(a.Plan.StopLoss),
		TakeProfit:     copyPtr(a.Plan.TakeProfit),
		OscillatorBand: a.Band,
	}
	r.OscillatorValue = copyPtr(a.Signal.RSI)
	if len(a.Chart.PNG) > 0 {
		r.Chart = append([]byte(nil), a.Chart.PNG...)
	}
	return r
}

// PlanSide: подпись стороны по сигналу: Long/Short, без пересечения Neutral.
func (r Report) PlanSide() string {
	switch r.ActionLabel {
	case models.ActionBuy:
		return "Long"
	case models.ActionSell:
		return "Short"
	default:
		return "Neutral"
	}
}

func copyPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
