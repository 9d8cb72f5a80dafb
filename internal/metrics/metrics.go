// Package metrics exposes Prometheus collectors for batch runs, signal
// ingestion and cache behaviour. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	batchRuns        prometheus.Counter
	batchDuration    prometheus.Histogram
	accountOutcomes  *prometheus.CounterVec
	accountDuration  prometheus.Histogram
	signalsIngested  *prometheus.CounterVec
	ingestErrors     *prometheus.CounterVec
	riskSignalsRaise *prometheus.CounterVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
}

// New registers every collector on a fresh registry so several instances can
// coexist in one process.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		batchRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "health_batch_runs_total",
			Help: "Total number of batch scoring runs started.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "health_batch_duration_seconds",
			Help:    "Wall time of complete batch scoring runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		accountOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "health_account_scores_total",
			Help: "Per-account scoring outcomes by result.",
		}, []string{"outcome"}),
		accountDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "health_account_score_duration_seconds",
			Help:    "Histogram of single-account scoring durations.",
			Buckets: prometheus.DefBuckets,
		}),
		signalsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "health_signals_ingested_total",
			Help: "Signals received by source and result.",
		}, []string{"source", "result"}),
		ingestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "health_ingest_errors_total",
			Help: "Ingestion failures by kind.",
		}, []string{"kind"}),
		riskSignalsRaise: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "health_risk_signals_raised_total",
			Help: "Risk signals raised by type.",
		}, []string{"type"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "health_cache_hits_total",
			Help: "Total read-through cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "health_cache_misses_total",
			Help: "Total read-through cache misses.",
		}),
	}

	m.registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.batchRuns,
		m.batchDuration,
		m.accountOutcomes,
		m.accountDuration,
		m.signalsIngested,
		m.ingestErrors,
		m.riskSignalsRaise,
		m.cacheHits,
		m.cacheMisses,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) BatchStarted() {
	if m == nil {
		return
	}
	m.batchRuns.Inc()
}

func (m *Metrics) BatchFinished(d time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(d.Seconds())
}

// AccountScored records one account outcome: scored, duplicate,
// insufficient_signal, timeout or error.
func (m *Metrics) AccountScored(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.accountOutcomes.WithLabelValues(outcome).Inc()
	m.accountDuration.Observe(d.Seconds())
}

func (m *Metrics) SignalsIngested(source string, accepted, duplicates int) {
	if m == nil {
		return
	}
	m.signalsIngested.WithLabelValues(source, "accepted").Add(float64(accepted))
	m.signalsIngested.WithLabelValues(source, "duplicate").Add(float64(duplicates))
}

func (m *Metrics) IngestError(kind string) {
	if m == nil {
		return
	}
	m.ingestErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) RiskSignalRaised(riskType string) {
	if m == nil {
		return
	}
	m.riskSignalsRaise.WithLabelValues(riskType).Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}
