package models

import "sort"

type Preset struct {
	Name        string
	Description string
	Apply       func(p *StrategyParams)
}

var Presets = map[string]Preset{
	"scalp": {
		Name:        "⚡️ Скальпинг",
		Description: "Быстрые средние, узкий стоп",
		Apply: func(p *StrategyParams) {
			p.ShortWindow = 3
			p.LongWindow = 10
			p.OscillatorWindow = 7
			p.RiskFraction = 0.003
			p.RewardMultiple = 2
		},
	},
	"default": {
		Name:        "🟡 Стандарт",
		Description: "SMA 5/20, RSI 14, стоп 0.5%, тейк 3R",
		Apply: func(p *StrategyParams) {
			*p = DefaultStrategyParams()
		},
	},
	"swing": {
		Name:        "🐢 Свинг",
		Description: "Медленные средние, RSI Уайлдера, широкий стоп",
		Apply: func(p *StrategyParams) {
			p.ShortWindow = 20
			p.LongWindow = 50
			p.OscillatorWindow = 14
			p.RiskFraction = 0.015
			p.RewardMultiple = 2.5
			p.Smoothing = SmoothingWilder
		},
	},
}

// PresetKeys в стабильном порядке для клавиатуры.
func PresetKeys() []string {
	keys := make([]string, 0, len(Presets))
	for k := range Presets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
