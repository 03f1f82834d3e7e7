package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	ComputeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_metric_compute_seconds",
		Help:    "Time spent computing one metric result",
		Buckets: prometheus.DefBuckets,
	}, []string{"metric"})

	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_requests_total",
		Help: "API requests served, by route and status class",
	}, []string{"route", "status"})

	RowsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_rows_skipped_total",
		Help: "Input rows dropped for data-quality reasons",
	})

	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_summary_cache_hits_total",
		Help: "Summary results served from the memoization cache",
	})
)

func Init() {
	prometheus.MustRegister(ComputeDuration, RequestsTotal, RowsSkipped, CacheHits)
}
