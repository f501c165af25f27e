package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Analysis("ok")
	m.Analysis("ok")
	m.Analysis("insufficient")
	m.Cache("hit")
	m.UpstreamFailure("okx")
	m.Delivered()
	m.Stage("render")()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("insufficient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchFailures.WithLabelValues("okx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlansDelivered))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Analysis("ok")
		m.Cache("miss")
		m.UpstreamFailure("vision")
		m.Delivered()
		m.Stage("levels")()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New(nil)
	m.Analysis("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `chart_analyst_analyses_total{result="ok"} 1`)
}
