package service

import (
	"errors"
	"testing"

	"chart_analyst/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormed = `Here is the plan.
[DIRECTION]: Bullish
[ANALYSIS]: Higher highs and higher lows on H1.
Price holds above the 1.0850 support.
[ENTRY]: 1.0862
[SL]: 1.0840
[TP]: 1.0928`

func TestParseNarrative(t *testing.T) {
	n, err := ParseNarrative(wellFormed)
	require.NoError(t, err)

	assert.Equal(t, models.TrendBullish, n.Direction)
	assert.Equal(t, "Bullish", n.RawDirection)
	assert.Equal(t, "Higher highs and higher lows on H1.\nPrice holds above the 1.0850 support.", n.Analysis)
	assert.Equal(t, "1.0862", n.Entry)
	assert.Equal(t, "1.0840", n.StopLoss)
	assert.Equal(t, "1.0928", n.TakeProfit)
	assert.Equal(t, wellFormed, n.Raw)
}

func TestParseNarrative_CaseInsensitive(t *testing.T) {
	n, err := ParseNarrative("[direction]: netral\n[analysis]: range\n[Entry]: 10\n[sl]: 9\n[tp]: 13")
	require.NoError(t, err)
	assert.Equal(t, models.TrendSideways, n.Direction)
	assert.Equal(t, "13", n.TakeProfit)
}

func TestParseNarrative_Directions(t *testing.T) {
	for raw, want := range map[string]models.Trend{
		"Bearish (short bias)": models.TrendBearish,
		"BULLISH":              models.TrendBullish,
		"Neutral":              models.TrendSideways,
		"Sideways":             models.TrendSideways,
	} {
		n, err := ParseNarrative("[DIRECTION]: " + raw + "\n[ANALYSIS]: x\n[ENTRY]: 1\n[SL]: 1\n[TP]: 1")
		require.NoError(t, err)
		assert.Equal(t, want, n.Direction, raw)
	}
}

func TestParseNarrative_Missing(t *testing.T) {
	cases := map[string][]string{
		"no tp":          {"TP"},
		"nothing at all": {"DIRECTION", "ANALYSIS", "ENTRY", "SL", "TP"},
		"out of order":   {"SL"},
	}
	inputs := map[string]string{
		"no tp":          "[DIRECTION]: Bullish\n[ANALYSIS]: x\n[ENTRY]: 1\n[SL]: 0.9",
		"nothing at all": "I cannot help with that.",
		"out of order":   "[DIRECTION]: Bullish\n[ANALYSIS]: x\n[SL]: 0.9\n[ENTRY]: 1\n[TP]: 1.3",
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseNarrative(inputs[name])
			var malformed models.MalformedResponseError
			require.True(t, errors.As(err, &malformed), "%v", err)
			assert.Equal(t, want, malformed.Missing)
		})
	}
}

func TestIsErrorReply(t *testing.T) {
	assert.True(t, IsErrorReply("[ERROR]: The image is not a valid or readable chart."))
	assert.True(t, IsErrorReply("[error]: nope"))
	assert.False(t, IsErrorReply(wellFormed))
}
