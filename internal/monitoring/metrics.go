// Package monitoring exposes Prometheus metrics for answered queries and
// summarizes recorded query history.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyspot_queries_total",
			Help: "Total number of answered queries",
		},
		[]string{"mode"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyspot_query_duration_seconds",
			Help:    "Time spent answering a query in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"mode"},
	)

	FallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyspot_fallbacks_total",
			Help: "Total number of auto queries answered by the weighted scorer after an empty strict match",
		},
	)

	ShortfallsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyspot_shortfalls_total",
			Help: "Total number of rankings shorter than the requested result count",
		},
	)

	InvalidInputTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyspot_invalid_input_total",
			Help: "Total number of queries rejected as invalid input",
		},
	)

	CatalogSpots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studyspot_catalog_spots",
			Help: "Number of study spots in the loaded catalog",
		},
	)
)

// RecordQuery records one answered query.
func RecordQuery(mode string, duration time.Duration, fellBack, shortfall bool) {
	QueriesTotal.WithLabelValues(mode).Inc()
	QueryDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if fellBack {
		FallbacksTotal.Inc()
	}
	if shortfall {
		ShortfallsTotal.Inc()
	}
}

// RecordInvalidInput records a rejected query.
func RecordInvalidInput() {
	InvalidInputTotal.Inc()
}

// SetCatalogSize records the loaded catalog size.
func SetCatalogSize(n int) {
	CatalogSpots.Set(float64(n))
}
