package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PayoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posdesk_payouts_total",
			Help: "Total number of payout records by status",
		},
		[]string{"tenant_id", "method", "status"},
	)

	BatchesScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "posdesk_payout_batches_scheduled_total",
			Help: "Total number of batch scheduling runs",
		},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "posdesk_payout_dispatch_duration_seconds",
			Help:    "Provider dispatch duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"method"},
	)

	OriginSyncMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "posdesk_origin_sync_misses_total",
			Help: "Origin record syncs skipped because the reference was unmapped or missing",
		},
	)
)
