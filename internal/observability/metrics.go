package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activitiesRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "greentrace",
		Subsystem: "activities",
		Name:      "recorded_total",
		Help:      "Number of activities recorded, labeled by service.",
	}, []string{"service"})

	lastActivityPersisted = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "greentrace",
		Subsystem: "activities",
		Name:      "last_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity persisted to Postgres.",
	})

	cacheRefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "greentrace",
		Subsystem: "footprint_cache",
		Name:      "refresh_duration_seconds",
		Help:      "Time spent recomputing and upserting the footprint cache inside the record transaction.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	suggestionFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "greentrace",
		Subsystem: "suggestions",
		Name:      "fallback_total",
		Help:      "Number of report generations that fell back to rule-based suggestions.",
	})
)

func init() {
	prometheus.MustRegister(activitiesRecorded, lastActivityPersisted, cacheRefreshDuration, suggestionFallbacks)
}

// RecordActivityPersisted updates the per-service counter and the
// persistence watermark gauge.
func RecordActivityPersisted(service string, ts time.Time) {
	activitiesRecorded.WithLabelValues(service).Inc()
	if ts.IsZero() {
		return
	}
	lastActivityPersisted.Set(float64(ts.Unix()))
}

// ObserveCacheRefresh records how long a footprint cache recompute took.
func ObserveCacheRefresh(d time.Duration) {
	cacheRefreshDuration.Observe(d.Seconds())
}

// RecordSuggestionFallback counts a provider failure absorbed by the
// rule-based assembler.
func RecordSuggestionFallback() {
	suggestionFallbacks.Inc()
}
