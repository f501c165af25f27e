package analysis

import (
	"context"
	"errors"

	"chart_analyst/internal/metrics"
	"chart_analyst/internal/models"
	"chart_analyst/internal/strategy"
	"chart_analyst/pkg/logger"
	"chart_analyst/pkg/tracing"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
)

type Renderer interface {
	Render(series models.Series, set models.IndicatorSet, plan models.TradePlan, label string) (models.ChartArtifact, error)
}

// BandRenderer рисует пороги RSI из параметров запроса, а не из своих настроек.
type BandRenderer interface {
	RenderWithBands(series models.Series, set models.IndicatorSet, plan models.TradePlan, label string, overbought, oversold float64) (models.ChartArtifact, error)
}

// Analysis: неизменяемый результат одного прогона конвейера.
type Analysis struct {
	ID         uuid.UUID
	Symbol     string
	Timeframe  string
	Label      string
	Plan       models.TradePlan
	Chart      models.ChartArtifact
	Signal     models.SignalState
	Band       models.Band
	Indicators models.IndicatorSet
}

func (a Analysis) HasChart() bool { return !a.Chart.Empty() }

type Assembler struct {
	renderer Renderer
	tracer   opentracing.Tracer
	metrics  *metrics.Metrics
}

func NewAssembler(renderer Renderer, tracer opentracing.Tracer, m *metrics.Metrics) *Assembler {
	return &Assembler{
		renderer: renderer,
		tracer:   tracer,
		metrics:  m,
	}
}

// Analyze: индикаторы -> классификация -> уровни -> график. Первая ошибка прерывает конвейер.
func (a *Assembler) Analyze(ctx context.Context, series models.Series, label string, p strategy.Params) (Analysis, error) {
	span, ctx := tracing.StartSpan(ctx, a.tracer, "analysis.Analyze")
	defer span.Finish()

	res, err := a.levels(ctx, series, label, p)
	if err != nil {
		tracing.Fail(span, err)
		a.metrics.Analysis(resultOf(err))
		return Analysis{}, err
	}

	if err := ctx.Err(); err != nil {
		a.metrics.Analysis("canceled")
		return Analysis{}, err
	}

	rspan, _ := tracing.StartSpan(ctx, a.tracer, "analysis.render")
	done := a.metrics.Stage("render")
	chart, err := a.render(series, res, p)
	done()
	rspan.Finish()
	if err != nil {
		tracing.Fail(span, err)
		a.metrics.Analysis(resultOf(err))
		logger.Error("analysis %s: render %s: %v", res.ID, res.Symbol, err)
		return Analysis{}, err
	}
	res.Chart = chart

	a.metrics.Analysis("ok")
	logger.Info("analysis %s: %s %s/%s entry=%v", res.ID, res.Label, res.Signal.Trend, res.Signal.Action, res.Plan.Entry)
	return res, nil
}

// AnalyzeLevels: тот же конвейер без графика.
func (a *Assembler) AnalyzeLevels(ctx context.Context, series models.Series, label string, p strategy.Params) (Analysis, error) {
	span, ctx := tracing.StartSpan(ctx, a.tracer, "analysis.AnalyzeLevels")
	defer span.Finish()

	res, err := a.levels(ctx, series, label, p)
	if err != nil {
		tracing.Fail(span, err)
		a.metrics.Analysis(resultOf(err))
		return Analysis{}, err
	}
	a.metrics.Analysis("ok")
	return res, nil
}

func (a *Assembler) levels(ctx context.Context, series models.Series, label string, p strategy.Params) (Analysis, error) {
	if label == "" {
		label = series.Symbol()
	}
	res := Analysis{
		ID:        uuid.New(),
		Symbol:    series.Symbol(),
		Timeframe: series.Timeframe(),
		Label:     label,
	}

	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	done := a.metrics.Stage("indicators")
	set, err := strategy.Compute(series, p)
	done()
	if err != nil {
		return Analysis{}, err
	}

	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	done = a.metrics.Stage("classify")
	signal, err := strategy.Classify(set, p)
	done()
	if err != nil {
		return Analysis{}, err
	}

	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	last, _ := series.Last()
	done = a.metrics.Stage("levels")
	plan, err := strategy.DeriveLevels(last.Close, signal, p)
	done()
	if err != nil {
		return Analysis{}, err
	}

	res.Indicators = set
	res.Signal = signal
	res.Band = signal.Band
	res.Plan = plan
	return res, nil
}

func resultOf(err error) string {
	var insufficient models.InsufficientDataError
	var render models.RenderError
	switch {
	case errors.As(err, &insufficient):
		return "insufficient"
	case errors.As(err, &render):
		return "render_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func (a *Assembler) render(series models.Series, res Analysis, p strategy.Params) (models.ChartArtifact, error) {
	if br, ok := a.renderer.(BandRenderer); ok {
		return br.RenderWithBands(series, res.Indicators, res.Plan, res.Label, p.Overbought, p.Oversold)
	}
	return a.renderer.Render(series, res.Indicators, res.Plan, res.Label)
}
