package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// Metrics: счётчики конвейера анализа. Нулевой указатель допустим: методы ничего не делают.
type Metrics struct {
	AnalysesTotal  *prometheus.CounterVec   // result: ok|insufficient|render_error|error
	StageDuration  *prometheus.HistogramVec // stage: indicators|classify|levels|render
	FetchFailures  *prometheus.CounterVec   // source: okx|vision
	CacheLookups   *prometheus.CounterVec   // outcome: hit|miss|error
	PlansDelivered prometheus.Counter

	gatherer prometheus.Gatherer
}

// New регистрирует метрики в reg. nil, отдельный реестр.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chart_analyst_analyses_total",
			Help: "Analyses by outcome",
		}, []string{"result"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chart_analyst_stage_duration_seconds",
			Help:    "Pipeline stage latency",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"stage"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chart_analyst_upstream_failures_total",
			Help: "Failed calls to market data and vision providers",
		}, []string{"source"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chart_analyst_series_cache_lookups_total",
			Help: "Series cache lookups by outcome",
		}, []string{"outcome"}),
		PlansDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chart_analyst_plans_delivered_total",
			Help: "Plans sent to Telegram chats",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.AnalysesTotal,
		m.StageDuration,
		m.FetchFailures,
		m.CacheLookups,
		m.PlansDelivered,
	)
	return m
}

func (m *Metrics) Analysis(result string) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(result).Inc()
}

// Stage возвращает функцию, закрывающую замер этапа.
func (m *Metrics) Stage(stage string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) UpstreamFailure(source string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) Cache(outcome string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Delivered() {
	if m == nil {
		return
	}
	m.PlansDelivered.Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(func() *Metrics {
			return New(prometheus.NewRegistry())
		}),
	)
}
