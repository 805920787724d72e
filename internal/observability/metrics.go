package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StatsObserverFailures counts counter-store update failures by
	// lifecycle transition. These are swallowed on the hot path, so the
	// metric is the only operational signal until reconciliation heals them.
	StatsObserverFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swap_stats_observer_failures_total",
		Help: "Total number of failed incremental stats updates by transition",
	}, []string{"transition"})

	// StatsReconcileRuns counts reconciliation runs by outcome.
	StatsReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swap_stats_reconcile_runs_total",
		Help: "Total number of reconciliation runs by outcome",
	}, []string{"outcome"})

	// StatsReconcileUserFailures counts per-user reconciliation failures.
	StatsReconcileUserFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swap_stats_reconcile_user_failures_total",
		Help: "Total number of users that failed during reconciliation",
	})

	// StatsReconcileDuration records the latency of reconciliation runs.
	StatsReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swap_stats_reconcile_duration_seconds",
		Help:    "Reconciliation run duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// MessagePipelineFailures counts message side-effect failures by step.
	MessagePipelineFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swap_message_pipeline_failures_total",
		Help: "Total number of message side-effect pipeline failures by step",
	}, []string{"step"})

	// MessageThroughput counts messages processed by type.
	MessageThroughput = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swap_message_throughput_total",
		Help: "Total number of chat messages processed",
	}, []string{"message_type"})

	// RealtimePublishFailures counts failed publishes to the realtime transport.
	RealtimePublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swap_realtime_publish_failures_total",
		Help: "Total number of failed realtime publishes by event",
	}, []string{"event"})
)
