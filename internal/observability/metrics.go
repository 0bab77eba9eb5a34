package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EngagementToggles counts toggles by kind, target and resulting state.
	EngagementToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_engagement_toggles_total",
		Help: "Total engagement toggles by kind, target and resulting state",
	}, []string{"kind", "target", "state"})

	// CommentWrites counts comment mutations by operation.
	CommentWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_comment_writes_total",
		Help: "Total comment mutations by operation",
	}, []string{"operation"})

	// ThreadBuildLatency records how long a thread read takes end to end.
	ThreadBuildLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inkwell_thread_build_seconds",
		Help:    "Latency of building a comment thread",
		Buckets: prometheus.DefBuckets,
	})

	// RelatedRequests counts related-content lookups by cache outcome.
	RelatedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_related_requests_total",
		Help: "Related content lookups by cache outcome",
	}, []string{"cache"})

	// CounterDrift counts rows whose denormalized counter was corrected.
	CounterDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_counter_drift_total",
		Help: "Rows whose denormalized counter was rewritten by reconciliation",
	}, []string{"counter"})

	// ReconcileRuns counts reconciliation passes by outcome.
	ReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_reconcile_runs_total",
		Help: "Counter reconciliation passes by outcome",
	}, []string{"outcome"})

	// WebSocketRoomConnections is the gauge of thread subscribers per content item.
	WebSocketRoomConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "inkwell_websocket_room_connections",
		Help: "Number of WebSocket connections per content thread",
	}, []string{"room_id"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// ObserveSince records the elapsed time since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
