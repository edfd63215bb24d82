package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DashboardBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "precinctwatch_dashboard_builds_total",
			Help: "Dashboard payloads built from the database, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	DashboardBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "precinctwatch_dashboard_build_duration_seconds",
			Help:    "Time to load stores and build a dashboard payload",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "precinctwatch_cache_requests_total",
			Help: "Dashboard cache lookups by kind and result (hit, miss, error)",
		},
		[]string{"kind", "result"},
	)

	PortfolioCompliance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "precinctwatch_portfolio_avg_compliance",
		Help: "Unweighted mean compliance percentage across active stores",
	})

	HighRiskStores = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "precinctwatch_high_risk_stores",
		Help: "Active stores currently classified high risk",
	})

	ExpiryAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "precinctwatch_certification_expiry_alerts_total",
			Help: "Certifications flagged by the expiry alert job, by status",
		},
		[]string{"status"},
	)

	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "precinctwatch_job_runs_total",
			Help: "Background job executions by job and outcome",
		},
		[]string{"job", "outcome"},
	)
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)
