package models

import (
	"fmt"
	"strconv"
	"strings"
)

type Smoothing string

const (
	SmoothingSimple Smoothing = "simple" // средние за окно (классический RSI)
	SmoothingWilder Smoothing = "wilder"
)

// StrategyParams: все настраиваемые константы пайплайна.
type StrategyParams struct {
	ShortWindow      int       `json:"short_window" yaml:"short_window"`
	LongWindow       int       `json:"long_window" yaml:"long_window"`
	OscillatorWindow int       `json:"oscillator_window" yaml:"oscillator_window"`
	RiskFraction     float64   `json:"risk_fraction" yaml:"risk_fraction"`     // 0.005 => SL в 0.5% от входа
	RewardMultiple   float64   `json:"reward_multiple" yaml:"reward_multiple"` // 3 => TP = 3R
	Overbought       float64   `json:"overbought" yaml:"overbought"`
	Oversold         float64   `json:"oversold" yaml:"oversold"`
	Smoothing        Smoothing `json:"smoothing" yaml:"smoothing"`
}

func DefaultStrategyParams() StrategyParams {
	return StrategyParams{
		ShortWindow:      5,
		LongWindow:       20,
		OscillatorWindow: 14,
		RiskFraction:     0.005,
		RewardMultiple:   3,
		Overbought:       70,
		Oversold:         30,
		Smoothing:        SmoothingSimple,
	}
}

func (p StrategyParams) Validate() error {
	switch {
	case p.ShortWindow <= 0 || p.LongWindow <= 0:
		return fmt.Errorf("moving average windows must be positive (short=%d long=%d)", p.ShortWindow, p.LongWindow)
	case p.ShortWindow >= p.LongWindow:
		return fmt.Errorf("short window must be < long window (short=%d long=%d)", p.ShortWindow, p.LongWindow)
	case p.OscillatorWindow <= 1:
		return fmt.Errorf("oscillator window must be > 1 (got %d)", p.OscillatorWindow)
	case p.RiskFraction <= 0 || p.RiskFraction >= 1:
		return fmt.Errorf("risk fraction must be in (0,1) (got %v)", p.RiskFraction)
	case p.RewardMultiple <= 0:
		return fmt.Errorf("reward multiple must be positive (got %v)", p.RewardMultiple)
	case p.Oversold < 0 || p.Overbought > 100 || p.Oversold >= p.Overbought:
		return fmt.Errorf("oscillator bands must satisfy 0 <= oversold < overbought <= 100 (got %v/%v)", p.Oversold, p.Overbought)
	}
	switch p.Smoothing {
	case SmoothingSimple, SmoothingWilder:
	default:
		return fmt.Errorf("unknown smoothing %q", p.Smoothing)
	}
	return nil
}

// Set меняет один параметр по ключу из чата: short=7, risk=0.5 (в процентах), rr=3 ...
// Итог не валидируется, вызывающий делает Validate после всех правок.
func (p *StrategyParams) Set(key, value string) error {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	parseInt := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%s: %q is not an integer", key, value)
		}
		return n, nil
	}
	parseFloat := func() (float64, error) {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %q is not a number", key, value)
		}
		return f, nil
	}

	var err error
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "short", "ma_short", "short_window":
		p.ShortWindow, err = parseInt()
	case "long", "ma_long", "long_window":
		p.LongWindow, err = parseInt()
	case "rsi", "rsi_period", "oscillator_window":
		p.OscillatorWindow, err = parseInt()
	case "risk", "risk_pct":
		var pct float64
		pct, err = parseFloat()
		p.RiskFraction = pct / 100
	case "rr", "reward", "reward_multiple":
		p.RewardMultiple, err = parseFloat()
	case "ob", "overbought":
		p.Overbought, err = parseFloat()
	case "os", "oversold":
		p.Oversold, err = parseFloat()
	case "smoothing":
		p.Smoothing = Smoothing(strings.ToLower(value))
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return err
}

type WatchEntry struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}

// ChatSettings хранит настройки чата
type ChatSettings struct {
	ChatID int64 `json:"chat_id"` // Telegram chat ID

	Name      string         `json:"name"`
	Timeframe string         `json:"timeframe"`
	Params    StrategyParams `json:"params"`
	Watch     []WatchEntry   `json:"watch"`
}

func NewChatSettings(chatID int64, name, timeframe string, params StrategyParams) *ChatSettings {
	return &ChatSettings{
		ChatID:    chatID,
		Name:      name,
		Timeframe: timeframe,
		Params:    params,
	}
}

// Watching возвращает индекс символа в watchlist или -1.
func (c *ChatSettings) Watching(symbol string) int {
	for i, w := range c.Watch {
		if strings.EqualFold(w.Symbol, symbol) {
			return i
		}
	}
	return -1
}
