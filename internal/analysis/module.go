package analysis

import (
	"chart_analyst/internal/chart"
	"chart_analyst/internal/metrics"
	"chart_analyst/internal/modules/config"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"
	"gonum.org/v1/plot/vg"
)

func Module() fx.Option {
	return fx.Module("analysis",
		fx.Provide(
			func(cfg *config.Config) *chart.Renderer {
				return chart.NewRenderer(chart.Options{
					Width:      vg.Points(float64(cfg.Chart.Width)),
					Height:     vg.Points(float64(cfg.Chart.Height)),
					TimeFormat: cfg.Chart.TimeFormat,
					Overbought: cfg.Strategy.Overbought,
					Oversold:   cfg.Strategy.Oversold,
				})
			},
			func(r *chart.Renderer, tracer opentracing.Tracer, m *metrics.Metrics) *Assembler {
				return NewAssembler(r, tracer, m)
			},
		),
	)
}
