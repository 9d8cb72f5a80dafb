package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.BatchStarted()
	m.AccountScored("scored", 10*time.Millisecond)
	m.AccountScored("scored", 10*time.Millisecond)
	m.AccountScored("timeout", time.Second)
	m.SignalsIngested("kafka", 3, 1)
	m.IngestError("decode")
	m.CacheHit()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchRuns))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.accountOutcomes.WithLabelValues("scored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.accountOutcomes.WithLabelValues("timeout")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.signalsIngested.WithLabelValues("kafka", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.signalsIngested.WithLabelValues("kafka", "duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestErrors.WithLabelValues("decode")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.BatchStarted()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.batchRuns))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.batchRuns))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RiskSignalRaised("usage_drop")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `health_risk_signals_raised_total{type="usage_drop"} 1`))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BatchStarted()
		m.BatchFinished(time.Second)
		m.AccountScored("error", 0)
		m.SignalsIngested("grpc", 1, 0)
		m.IngestError("x")
		m.RiskSignalRaised("x")
		m.CacheHit()
		m.CacheMiss()
	})
	assert.Nil(t, m.Registry())
}
