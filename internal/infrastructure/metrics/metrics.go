package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LikeMutations counts relationship mutations by operation and outcome.
	LikeMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchcore_like_mutations_total",
		Help: "Relationship mutations by operation (like, unlike, unmatch) and result",
	}, []string{"operation", "result"})

	MutualMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchcore_mutual_matches_total",
		Help: "Pending to mutual transitions",
	})

	EnvelopesDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchcore_envelopes_dispatched_total",
		Help: "Envelopes handed to the broker by type",
	}, []string{"type"})

	// EnvelopesDropped counts envelopes lost before reaching the broker or a session.
	EnvelopesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchcore_envelopes_dropped_total",
		Help: "Envelopes dropped by stage (notify_queue, publish, session_queue)",
	}, []string{"stage"})

	PushSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matchcore_push_sessions",
		Help: "Currently registered push sessions on this node",
	})

	PushDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchcore_push_deliveries_total",
		Help: "Frames queued to sessions by addressing mode (user, topic)",
	}, []string{"mode"})
)
