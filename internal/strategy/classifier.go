package strategy

import (
	"chart_analyst/internal/models"
)

// Classify смотрит на два последних бара средних.
// Пересечение важнее статического сравнения уровней.
func Classify(set models.IndicatorSet, p models.StrategyParams) (models.SignalState, error) {
	n := set.Len()
	if n < 2 || len(set.MAShort) != n {
		return models.SignalState{}, models.InsufficientDataError{Required: 2, Available: alignedTail(set)}
	}

	prevS, prevL := set.MAShort[n-2], set.MALong[n-2]
	curS, curL := set.MAShort[n-1], set.MALong[n-1]
	if prevS == nil || prevL == nil || curS == nil || curL == nil {
		return models.SignalState{}, models.InsufficientDataError{Required: 2, Available: alignedTail(set)}
	}

	var st models.SignalState
	switch {
	case *prevS < *prevL && *curS > *curL:
		st = models.SignalState{Trend: models.TrendBullish, Action: models.ActionBuy, Crossover: true}
	case *prevS > *prevL && *curS < *curL:
		st = models.SignalState{Trend: models.TrendBearish, Action: models.ActionSell, Crossover: true}
	case *curS > *curL:
		st = models.SignalState{Trend: models.TrendBullish, Action: models.ActionHold}
	case *curS < *curL:
		st = models.SignalState{Trend: models.TrendBearish, Action: models.ActionHold}
	default:
		st = models.SignalState{Trend: models.TrendSideways, Action: models.ActionHold}
	}

	// RSI только для отображения, направление не трогает
	st.RSI = set.LastRSI()
	st.Band = BandFor(st.RSI, p)
	return st, nil
}

func BandFor(rsi *float64, p models.StrategyParams) models.Band {
	switch {
	case rsi == nil:
		return models.BandNeutral
	case *rsi > p.Overbought:
		return models.BandOverbought
	case *rsi < p.Oversold:
		return models.BandOversold
	default:
		return models.BandNeutral
	}
}

// alignedTail: сколько последних баров подряд имеют обе средние.
func alignedTail(set models.IndicatorSet) int {
	cnt := 0
	for i := len(set.MALong) - 1; i >= 0; i-- {
		if i >= len(set.MAShort) || set.MAShort[i] == nil || set.MALong[i] == nil {
			break
		}
		cnt++
	}
	return cnt
}
