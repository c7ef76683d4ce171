package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session Metrics
var (
	// SessionsCurrent tracks currently registered sessions
	SessionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pushcast_sessions_current",
			Help: "Number of sessions currently in the registry",
		},
	)

	// SessionsOpenedTotal tracks sessions created since startup
	SessionsOpenedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pushcast_sessions_opened_total",
			Help: "Total sessions opened",
		},
	)

	// SessionsClosedTotal tracks session teardowns by reason
	SessionsClosedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushcast_sessions_closed_total",
			Help: "Total sessions closed by reason (peer_closed, read_error, write_error, shutdown)",
		},
		[]string{"reason"},
	)

	// SessionDuration tracks how long sessions stay connected
	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pushcast_session_duration_seconds",
			Help:    "Session lifetime in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		},
	)

	// SessionBytesTotal tracks bytes moved over session connections
	SessionBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushcast_session_bytes_total",
			Help: "Total bytes read from or written to clients",
		},
		[]string{"direction"},
	)

	// SessionWriteDuration tracks per-write latency on the connection
	SessionWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pushcast_session_write_duration_seconds",
			Help:    "Time spent in a single connection write",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	// SessionQueueDepth tracks the deepest write queue observed on enqueue
	SessionQueueDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pushcast_session_queue_depth",
			Help:    "Per-session write queue length observed on enqueue",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
	)
)

// Acceptor Metrics
var (
	// AcceptErrorsTotal tracks failed accept calls
	AcceptErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pushcast_accept_errors_total",
			Help: "Total accept errors (loop continued)",
		},
	)

	// ConnectionsRejectedTotal tracks connections refused by connection limits
	ConnectionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushcast_connections_rejected_total",
			Help: "Total connections rejected by reason (global_limit, per_ip_limit, rate_limit)",
		},
		[]string{"reason"},
	)
)

// Broadcast Metrics
var (
	// BroadcastTicksTotal tracks worker ticks
	BroadcastTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pushcast_broadcast_ticks_total",
			Help: "Total broadcast ticks",
		},
	)

	// BroadcastSendsTotal tracks payload sends scheduled across all ticks
	BroadcastSendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pushcast_broadcast_sends_total",
			Help: "Total broadcast sends scheduled",
		},
	)

	// BroadcastTickDuration tracks how long scheduling one tick takes
	BroadcastTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pushcast_broadcast_tick_duration_seconds",
			Help:    "Time to schedule sends for one broadcast tick",
			Buckets: []float64{.00001, .0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// BroadcastWorkerPanicsTotal tracks recovered worker panics
	BroadcastWorkerPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pushcast_broadcast_worker_panics_total",
			Help: "Total broadcast worker panic recoveries",
		},
	)
)
