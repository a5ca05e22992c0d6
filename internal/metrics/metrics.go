package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan outcomes recorded by ScansTotal.
const (
	OutcomeResolved  = "resolved"
	OutcomeNotFound  = "not_found"
	OutcomeNotActive = "not_active"
	OutcomeExpired   = "expired"
	OutcomeError     = "error"
)

var (
	// Total scans processed partitioned by outcome
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_scans_total",
			Help: "Total number of scan requests processed",
		},
		[]string{"outcome"},
	)

	// Rule matches partitioned by condition kind. Scans that fall through
	// to the default URL are recorded under kind "default".
	RuleMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_rule_matches_total",
			Help: "Total number of redirect rule matches by condition kind",
		},
		[]string{"kind"},
	)

	// End-to-end scan resolution latency in seconds
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qr_scan_duration_seconds",
			Help:    "Scan resolution latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Cache hits and misses on the scan path partitioned by result
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_cache_lookups_total",
			Help: "Total number of cache lookups on the scan path",
		},
		[]string{"result"},
	)
)
