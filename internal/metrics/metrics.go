package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommentsDetected tracks new comments that cleared dedup per account
	CommentsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automaton_comments_detected_total",
			Help: "Total number of new comments detected",
		},
		[]string{"account"},
	)

	// RepliesGenerated tracks successful generation calls per account
	RepliesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automaton_replies_generated_total",
			Help: "Total number of replies generated",
		},
		[]string{"account"},
	)

	// RepliesPublished tracks successfully published replies per account
	RepliesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automaton_replies_published_total",
			Help: "Total number of replies published",
		},
		[]string{"account"},
	)

	// WorkflowErrors tracks per-item failures by classified kind
	WorkflowErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automaton_workflow_errors_total",
			Help: "Total number of workflow errors",
		},
		[]string{"account", "kind"},
	)

	// CyclesTotal tracks completed detect/generate/publish cycles
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automaton_cycles_total",
			Help: "Total number of workflow cycles run",
		},
		[]string{"account"},
	)

	// CycleDuration tracks how long a full cycle takes
	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "automaton_cycle_duration_seconds",
			Help:    "Workflow cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"account"},
	)

	// RateLimiterRejections tracks acquisitions denied by the request budget
	RateLimiterRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "automaton_rate_limiter_rejections_total",
			Help: "Total number of calls rejected by the rate limiter",
		},
	)

	// DBConnectionPoolUsage tracks database pool saturation
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "automaton_db_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
