package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	// Workflow outcomes by final status
	Outcomes *prometheus.CounterVec

	// External analysis call latency
	AnalysisLatency prometheus.Histogram

	// Result cache hits/misses
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Audit log writes that fell back to local emission
	AuditFallbacks prometheus.Counter

	// Overall workflow latency
	VerifyLatency prometheus.Histogram
}

// New creates a new Metrics instance with all verification module metrics registered.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certifai_verification_outcomes_total",
			Help: "Total verification outcomes by status and source",
		}, []string{"status", "source"}), // source: "analysis", "cache", "short_circuit", "error"

		AnalysisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certifai_analysis_duration_seconds",
			Help:    "Duration of external document analysis calls",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90},
		}),

		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certifai_result_cache_hits_total",
			Help: "Total result cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certifai_result_cache_misses_total",
			Help: "Total result cache misses",
		}),

		AuditFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certifai_audit_fallback_total",
			Help: "Audit log writes that fell back to process-log emission",
		}),

		VerifyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certifai_verification_duration_seconds",
			Help:    "Duration of full verification runs including analysis",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
		}),
	}
}

// RecordOutcome records a finished verification run.
func (m *Metrics) RecordOutcome(status, source string) {
	if m != nil {
		m.Outcomes.WithLabelValues(status, source).Inc()
	}
}

// ObserveAnalysisLatency records the duration of one external analysis call.
func (m *Metrics) ObserveAnalysisLatency(d time.Duration) {
	if m != nil {
		m.AnalysisLatency.Observe(d.Seconds())
	}
}

// RecordCacheHit records a result cache hit.
func (m *Metrics) RecordCacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

// RecordCacheMiss records a result cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

// RecordAuditFallback records an audit store failure absorbed by the logger.
func (m *Metrics) RecordAuditFallback() {
	if m != nil {
		m.AuditFallbacks.Inc()
	}
}

// ObserveVerifyLatency records the total workflow duration.
func (m *Metrics) ObserveVerifyLatency(d time.Duration) {
	if m != nil {
		m.VerifyLatency.Observe(d.Seconds())
	}
}
