package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidSeries = errors.New("invalid series")

// Bar: одна OHLCV свеча.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

func (b Bar) validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite value at %s", b.Time.Format(time.RFC3339))
		}
	}
	if b.Volume < 0 {
		return fmt.Errorf("negative volume at %s", b.Time.Format(time.RFC3339))
	}
	return nil
}

// Series: неизменяемый ряд свечей одного инструмента, строго по возрастанию времени.
// Создаётся только через NewSeries, наружу отдаются копии.
type Series struct {
	symbol    string
	timeframe string
	bars      []Bar
}

// NewSeries копирует bars и проверяет порядок/значения.
func NewSeries(symbol, timeframe string, bars []Bar) (Series, error) {
	cp := make([]Bar, len(bars))
	copy(cp, bars)

	for i, b := range cp {
		if err := b.validate(); err != nil {
			return Series{}, fmt.Errorf("%w: bar %d: %v", ErrInvalidSeries, i, err)
		}
		if i > 0 && !b.Time.After(cp[i-1].Time) {
			return Series{}, fmt.Errorf("%w: bar %d: timestamp %s is not after %s",
				ErrInvalidSeries, i, b.Time.Format(time.RFC3339), cp[i-1].Time.Format(time.RFC3339))
		}
	}

	return Series{symbol: symbol, timeframe: timeframe, bars: cp}, nil
}

func (s Series) Symbol() string    { return s.symbol }
func (s Series) Timeframe() string { return s.timeframe }
func (s Series) Len() int          { return len(s.bars) }
func (s Series) Bar(i int) Bar     { return s.bars[i] }

func (s Series) Bars() []Bar {
	out := make([]Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

func (s Series) Closes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Close
	}
	return out
}

func (s Series) Times() []time.Time {
	out := make([]time.Time, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Time
	}
	return out
}

// Last: последняя закрытая свеча.
func (s Series) Last() (Bar, bool) {
	if len(s.bars) == 0 {
		return Bar{}, false
	}
	return s.bars[len(s.bars)-1], true
}
