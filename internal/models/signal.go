package models

// Trend: направление, выведенное из пары скользящих средних.
type Trend string

const (
	TrendBullish  Trend = "Bullish"
	TrendBearish  Trend = "Bearish"
	TrendSideways Trend = "Sideways"
)

// Action: что делать на текущей свече.
type Action string

const (
	ActionBuy  Action = "Buy"
	ActionSell Action = "Sell"
	ActionHold Action = "Hold"
)

// Band: зона осциллятора, только для отображения.
type Band string

const (
	BandOverbought Band = "Overbought"
	BandOversold   Band = "Oversold"
	BandNeutral    Band = "Neutral"
)

// SignalState: результат классификации последних двух баров.
type SignalState struct {
	Trend     Trend    `json:"trend"`
	Action    Action   `json:"action"`
	Crossover bool     `json:"crossover"`
	RSI       *float64 `json:"rsi,omitempty"`
	Band      Band     `json:"band"`
}

// Directional == есть сторона, для которой имеет смысл SL/TP.
func (s SignalState) Directional() bool {
	return s.Trend == TrendBullish || s.Trend == TrendBearish
}

// IndicatorSet выровнен индекс в индекс с Series, nil, окно ещё не набрано.
type IndicatorSet struct {
	MAShort []*float64 `json:"ma_short"`
	MALong  []*float64 `json:"ma_long"`
	RSI     []*float64 `json:"rsi"`
}

func (s IndicatorSet) Len() int { return len(s.MALong) }

func (s IndicatorSet) LastRSI() *float64 {
	if len(s.RSI) == 0 || s.RSI[len(s.RSI)-1] == nil {
		return nil
	}
	v := *s.RSI[len(s.RSI)-1]
	return &v
}
