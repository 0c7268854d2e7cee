// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_dispatches_total",
			Help: "Total number of push dispatch outcomes",
		},
		[]string{"trigger", "status", "error_code"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "push_dispatch_duration_seconds",
			Help:    "Duration of a single push send in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trigger"},
	)

	CleanupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_cleanup_failures_total",
			Help: "Source records that could not be deleted after a send",
		},
		[]string{"trigger"},
	)

	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_sweep_runs_total",
			Help: "Reminder sweep runs by result",
		},
		[]string{"result"},
	)

	SweepMatches = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_sweep_matches",
			Help:    "Reminders matched per sweep run",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		},
	)

	ChangeEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_events_received_total",
			Help: "Change events received from the change feed",
		},
		[]string{"collection", "kind"},
	)

	ChangeEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_events_dropped_total",
			Help: "Change events that could not be decoded or routed",
		},
		[]string{"reason"},
	)

	HandlersActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trigger_handlers_active",
			Help: "Number of in-flight trigger invocations",
		},
		[]string{"trigger"},
	)
)
