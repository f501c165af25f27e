package strategy

import (
	"fmt"
	"math"

	"chart_analyst/internal/models"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/markcheno/go-talib"
)

// Params: настройки единственного конвейера сигналов.
type Params = models.StrategyParams

// Compute считает короткую/длинную SMA и RSI по всему ряду.
// Ряд короче длинного окна, InsufficientDataError, частичный набор не отдаём.
func Compute(series models.Series, p models.StrategyParams) (models.IndicatorSet, error) {
	if err := p.Validate(); err != nil {
		return models.IndicatorSet{}, fmt.Errorf("strategy params: %w", err)
	}
	if series.Len() < p.LongWindow {
		return models.IndicatorSet{}, models.InsufficientDataError{
			Required:  p.LongWindow,
			Available: series.Len(),
		}
	}

	closes := series.Closes()

	set := models.IndicatorSet{
		MAShort: sma(closes, p.ShortWindow),
		MALong:  sma(closes, p.LongWindow),
	}
	switch p.Smoothing {
	case models.SmoothingWilder:
		set.RSI = rsiWilder(closes, p.OscillatorWindow)
	default:
		set.RSI = rsiSimple(closes, p.OscillatorWindow)
	}
	return set, nil
}

// sma: библиотека отдаёт значения только с момента заполнения окна,
// поэтому выравниваем по правому краю.
func sma(closes []float64, period int) []*float64 {
	out := make([]*float64, len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}

	values := helper.ChanToSlice(
		trend.NewSmaWithPeriod[float64](period).Compute(helper.SliceToChan(closes)),
	)
	offset := len(closes) - len(values)
	for i, v := range values {
		if offset+i < period-1 {
			continue
		}
		out[offset+i] = ptr(v)
	}
	return out
}

// rsiSimple: классический RSI: средний рост / среднее падение за окно.
func rsiSimple(closes []float64, period int) []*float64 {
	out := make([]*float64, len(closes))
	if len(closes) <= period {
		return out
	}

	// окно пересчитываем целиком: без накопленной ошибки на плоских участках
	for i := period; i < len(closes); i++ {
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			if c := closes[j] - closes[j-1]; c > 0 {
				gain += c
			} else {
				loss -= c
			}
		}
		out[i] = ptr(rsiValue(gain/float64(period), loss/float64(period)))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50
	case avgLoss == 0:
		return 100
	}
	rs := avgGain / avgLoss
	return clamp(100-100/(1+rs), 0, 100)
}

// rsiWilder: сглаживание Уайлдера, как на большинстве графиков.
func rsiWilder(closes []float64, period int) []*float64 {
	out := make([]*float64, len(closes))
	if len(closes) <= period {
		return out
	}
	values := talib.Rsi(closes, period)

	// talib отдаёт 0, когда средние роста и падения обе нулевые; как и в simple, это 50.
	// Средние Уайлдера нулевые ровно пока с начала ряда не было ни одного изменения цены.
	moved := false
	for i := 1; i < len(closes) && i < len(values); i++ {
		if closes[i] != closes[i-1] {
			moved = true
		}
		if i < period {
			continue
		}
		if !moved {
			out[i] = ptr(50)
			continue
		}
		out[i] = ptr(clamp(values[i], 0, 100))
	}
	return out
}

func ptr(v float64) *float64 { return &v }

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
