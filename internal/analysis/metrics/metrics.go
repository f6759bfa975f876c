// Package metrics holds the Prometheus instruments for the analysis pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts terminal outcomes of analysis requests.
type Metrics struct {
	Completed     prometheus.Counter
	Failed        prometheus.Counter
	QuotaRejected prometheus.Counter
	Duration      prometheus.Histogram
}

// New creates and registers the analysis metrics.
func New() *Metrics {
	return &Metrics{
		Completed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nurture_analyses_completed_total",
			Help: "Analysis requests that reached Completed",
		}),
		Failed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nurture_analyses_failed_total",
			Help: "Analysis requests that reached Failed",
		}),
		QuotaRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nurture_analyses_quota_rejected_total",
			Help: "Analysis requests rejected by the usage limiter",
		}),
		Duration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nurture_analysis_duration_seconds",
			Help:    "End-to-end duration of analysis requests",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
}
