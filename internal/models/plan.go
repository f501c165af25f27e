package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// TradePlan: уровни сделки. Для Sideways стоп и тейк отсутствуют.
type TradePlan struct {
	Entry      float64     `json:"entry"`
	StopLoss   *float64    `json:"stop_loss"`
	TakeProfit *float64    `json:"take_profit"`
	Direction  SignalState `json:"direction"`
}

func (p TradePlan) HasLevels() bool {
	return p.StopLoss != nil && p.TakeProfit != nil
}

// Risk: расстояние до стопа (0 без уровней).
func (p TradePlan) Risk() float64 {
	if p.StopLoss == nil {
		return 0
	}
	return math.Abs(p.Entry - *p.StopLoss)
}

func (p TradePlan) Reward() float64 {
	if p.TakeProfit == nil {
		return 0
	}
	return math.Abs(*p.TakeProfit - p.Entry)
}

// ChartArtifact: готовая картинка, пишется один раз рендером.
type ChartArtifact struct {
	Label string
	Title string
	PNG   []byte
}

func (c ChartArtifact) Empty() bool { return len(c.PNG) == 0 }

// PlanRecord: строка истории выданных планов.
type PlanRecord struct {
	ID         uuid.UUID
	ChatID     int64
	Symbol     string
	Timeframe  string
	Trend      Trend
	Action     Action
	Entry      float64
	StopLoss   *float64
	TakeProfit *float64
	RSI        *float64
	Band       Band
	CreatedAt  time.Time
}

func NewPlanRecord(chatID int64, symbol, timeframe string, plan TradePlan, now time.Time) PlanRecord {
	return PlanRecord{
		ID:         uuid.New(),
		ChatID:     chatID,
		Symbol:     symbol,
		Timeframe:  timeframe,
		Trend:      plan.Direction.Trend,
		Action:     plan.Direction.Action,
		Entry:      plan.Entry,
		StopLoss:   plan.StopLoss,
		TakeProfit: plan.TakeProfit,
		RSI:        plan.Direction.RSI,
		Band:       plan.Direction.Band,
		CreatedAt:  now,
	}
}
