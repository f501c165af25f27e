package analysis

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"chart_analyst/internal/chart"
	"chart_analyst/internal/metrics"
	"chart_analyst/internal/models"
	"chart_analyst/internal/strategy"

	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renderStub struct {
	calls int
	err   error
}

func (r *renderStub) Render(series models.Series, _ models.IndicatorSet, _ models.TradePlan, label string) (models.ChartArtifact, error) {
	r.calls++
	if r.err != nil {
		return models.ChartArtifact{}, r.err
	}
	return models.ChartArtifact{Label: label, Title: chart.Title(label), PNG: []byte{0x89, 'P', 'N', 'G'}}, nil
}

// bandStub запоминает пороги RSI, с которыми его позвали.
type bandStub struct {
	renderStub
	overbought, oversold float64
}

func (b *bandStub) RenderWithBands(series models.Series, set models.IndicatorSet, plan models.TradePlan, label string, overbought, oversold float64) (models.ChartArtifact, error) {
	b.overbought, b.oversold = overbought, oversold
	return b.Render(series, set, plan, label)
}

func makeSeries(t *testing.T, closes ...float64) models.Series {
	t.Helper()
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{Time: start.Add(time.Duration(i) * time.Hour), Open: c, High: c, Low: c, Close: c}
	}
	s, err := models.NewSeries("BTC-USDT", "1h", bars)
	require.NoError(t, err)
	return s
}

// crossUp: долгое падение, затем резкий рост на последнем баре.
func crossUp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 - float64(i)*0.1
	}
	out[n-1] = 110
	return out
}

func TestAnalyze_BuyPipeline(t *testing.T) {
	r := &renderStub{}
	m := metrics.New(nil)
	a := NewAssembler(r, mocktracer.New(), m)

	res, err := a.Analyze(context.Background(), makeSeries(t, crossUp(40)...), "BTC/USDT 1h", strategy.Params(models.DefaultStrategyParams()))
	require.NoError(t, err)

	assert.Equal(t, models.TrendBullish, res.Signal.Trend)
	assert.Equal(t, models.ActionBuy, res.Signal.Action)
	assert.Equal(t, 110.0, res.Plan.Entry)
	require.True(t, res.Plan.HasLevels())
	assert.Equal(t, 109.45, *res.Plan.StopLoss)
	assert.Equal(t, 111.65, *res.Plan.TakeProfit)
	assert.True(t, res.HasChart())
	assert.Equal(t, "BTC/USDT 1h — analysis chart", res.Chart.Title)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("ok")))
}

func TestAnalyze_RealRenderer(t *testing.T) {
	a := NewAssembler(chart.NewRenderer(chart.DefaultOptions()), nil, nil)

	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 1.08 + 0.003*math.Sin(float64(i)/5)
	}
	res, err := a.Analyze(context.Background(), makeSeries(t, closes...), "", models.DefaultStrategyParams())
	require.NoError(t, err)
	assert.Equal(t, "BTC-USDT", res.Label)
	assert.NotEmpty(t, res.Chart.PNG)
}

func TestAnalyze_InsufficientData(t *testing.T) {
	r := &renderStub{}
	m := metrics.New(nil)
	a := NewAssembler(r, nil, m)

	_, err := a.Analyze(context.Background(), makeSeries(t, 1, 2, 3), "x", models.DefaultStrategyParams())
	var insufficient models.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 20, insufficient.Required)
	assert.Equal(t, 3, insufficient.Available)
	assert.Zero(t, r.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("insufficient")))
}

func TestAnalyze_RenderErrorFallsBackToLevels(t *testing.T) {
	a := NewAssembler(&renderStub{err: models.RenderError{Reason: "boom"}}, nil, nil)
	series := makeSeries(t, crossUp(40)...)

	_, err := a.Analyze(context.Background(), series, "x", models.DefaultStrategyParams())
	var re models.RenderError
	require.True(t, errors.As(err, &re))

	res, err := a.AnalyzeLevels(context.Background(), series, "x", models.DefaultStrategyParams())
	require.NoError(t, err)
	assert.False(t, res.HasChart())
	assert.Equal(t, models.ActionBuy, res.Signal.Action)
}

func TestAnalyze_Canceled(t *testing.T) {
	r := &renderStub{}
	a := NewAssembler(r, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, makeSeries(t, crossUp(40)...), "x", models.DefaultStrategyParams())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, r.calls)
}

func TestAnalyze_Idempotent(t *testing.T) {
	a := NewAssembler(&renderStub{}, nil, nil)
	series := makeSeries(t, crossUp(40)...)

	first, err := a.AnalyzeLevels(context.Background(), series, "x", models.DefaultStrategyParams())
	require.NoError(t, err)
	second, err := a.AnalyzeLevels(context.Background(), series, "x", models.DefaultStrategyParams())
	require.NoError(t, err)

	assert.Equal(t, first.Plan, second.Plan)
	assert.Equal(t, first.Signal, second.Signal)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAnalyze_ChartUsesRequestBands(t *testing.T) {
	r := &bandStub{}
	a := NewAssembler(r, nil, nil)
	p := models.DefaultStrategyParams()
	p.Overbought, p.Oversold = 80, 20

	res, err := a.Analyze(context.Background(), makeSeries(t, crossUp(40)...), "x", p)
	require.NoError(t, err)
	assert.True(t, res.HasChart())
	assert.Equal(t, 80.0, r.overbought)
	assert.Equal(t, 20.0, r.oversold)
	assert.Equal(t, 1, r.calls)
}

func TestReport(t *testing.T) {
	a := NewAssembler(&renderStub{}, nil, nil)
	res, err := a.Analyze(context.Background(), makeSeries(t, crossUp(40)...), "x", models.DefaultStrategyParams())
	require.NoError(t, err)

	rep := res.Report()
	assert.Equal(t, models.TrendBullish, rep.Direction)
	assert.Equal(t, models.ActionBuy, rep.ActionLabel)
	assert.Equal(t, "Long", rep.PlanSide())
	assert.Equal(t, res.Plan.Entry, rep.Entry)
	require.NotNil(t, rep.StopLoss)
	assert.Equal(t, *res.Plan.StopLoss, *rep.StopLoss)
	assert.NotNil(t, rep.OscillatorValue)
	assert.Equal(t, res.Chart.PNG, rep.Chart)

	*rep.StopLoss = 0
	assert.NotEqual(t, 0.0, *res.Plan.StopLoss)
}
