package sweep

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nudge_sweep_duration_seconds",
		Help:    "Duration of one full sweep over due schedule entries.",
		Buckets: prometheus.DefBuckets,
	})
	entriesDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nudge_sweep_entries_dispatched_total",
		Help: "Schedule entries handed to the dispatcher.",
	})
	dispatchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nudge_sweep_dispatch_errors_total",
		Help: "Dispatch attempts that returned an unclassified error.",
	})
	sweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nudge_sweep_errors_total",
		Help: "Sweeps that failed before dispatching, usually a query error.",
	})
)
