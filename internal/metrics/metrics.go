package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackendRequestsTotal tracks backend attempts by endpoint and outcome
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stepbridge_backend_requests_total",
			Help: "Total number of backend request attempts",
		},
		[]string{"method", "endpoint", "outcome"},
	)

	// BackendRetriesTotal tracks retried attempts
	BackendRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stepbridge_backend_retries_total",
			Help: "Total number of backend request retries",
		},
		[]string{"endpoint"},
	)

	// BackendLatency tracks per-attempt latency
	BackendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stepbridge_backend_request_seconds",
			Help:    "Backend request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// DNSCacheTotal tracks address cache lookups (hit, miss, stale, error)
	DNSCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stepbridge_dns_cache_total",
			Help: "Address cache lookups by result",
		},
		[]string{"result"},
	)

	// ClaimsTotal tracks finished claim workflows
	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stepbridge_claims_total",
			Help: "Claim workflows by mode and final state",
		},
		[]string{"mode", "outcome"},
	)

	// PendingCommits is the number of journaled partial commits awaiting retry
	PendingCommits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stepbridge_pending_commits",
			Help: "Partial commits waiting for a commit-only retry",
		},
	)

	// SchedulerQueueDepth is the number of continuations waiting for the main loop
	SchedulerQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stepbridge_scheduler_queue_depth",
			Help: "Tasks queued for the main loop",
		},
	)

	// DBConnectionPoolUsage tracks journal database pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stepbridge_db_connection_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
