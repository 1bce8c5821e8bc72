package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	translationAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vizbot_translation_attempts_total",
			Help: "Total number of completion calls made for SQL translation.",
		},
	)
	translationRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vizbot_translation_retries_total",
			Help: "Total number of corrective translation retries.",
		},
	)
	translationRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vizbot_translation_rejections_total",
			Help: "Total number of candidate statements rejected by validation.",
		},
		[]string{"reason"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vizbot_query_duration_seconds",
			Help:    "Read-only query execution latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	queryTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vizbot_query_timeouts_total",
			Help: "Total number of queries cancelled by the statement timeout.",
		},
	)
	insightFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vizbot_insight_failures_total",
			Help: "Total number of insight generations that degraded to unavailable.",
		},
	)
	auditFlushesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vizbot_audit_flushes_total",
			Help: "Total number of audit batches flushed to the object store.",
		},
	)
	chartSelectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vizbot_chart_selections_total",
			Help: "Chart kinds chosen for executed queries.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		translationAttemptsTotal,
		translationRetriesTotal,
		translationRejectionsTotal,
		queryDurationSeconds,
		queryTimeoutsTotal,
		insightFailuresTotal,
		auditFlushesTotal,
		chartSelectionsTotal,
	)
}

func ObserveTranslationAttempt(retry bool) {
	translationAttemptsTotal.Inc()
	if retry {
		translationRetriesTotal.Inc()
	}
}

func IncrementTranslationRejection(reason string) {
	translationRejectionsTotal.WithLabelValues(reason).Inc()
}

func ObserveQueryDuration(elapsed time.Duration) {
	queryDurationSeconds.Observe(elapsed.Seconds())
}

func IncrementQueryTimeout() {
	queryTimeoutsTotal.Inc()
}

func IncrementInsightFailure() {
	insightFailuresTotal.Inc()
}

func IncrementAuditFlush() {
	auditFlushesTotal.Inc()
}

func IncrementChartSelection(kind string) {
	chartSelectionsTotal.WithLabelValues(kind).Inc()
}
