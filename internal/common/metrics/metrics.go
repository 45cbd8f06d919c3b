// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalyticsRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_requests_total",
			Help: "Total number of portfolio analytics requests by endpoint and outcome",
		},
		[]string{"endpoint", "status"},
	)

	AnalyticsRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_request_duration_seconds",
			Help:    "Duration of analytics request processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	PortfolioSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_portfolio_size",
			Help:    "Number of companies aggregated per request",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
		},
	)

	ExtractionIssues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_extraction_issues_total",
			Help: "Diagnostics recorded while extracting risk records",
		},
		[]string{"code"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_cache_lookups_total",
			Help: "Analytics cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	DriftAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_drift_alerts_total",
			Help: "Coverage drift alerts published by severity",
		},
		[]string{"severity"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
