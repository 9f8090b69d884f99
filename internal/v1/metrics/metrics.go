// Package metrics declares the Prometheus metrics for the lobby service,
// in the teacher's declarative promauto style.
//
// Naming convention: namespace_subsystem_name
//   - namespace: lobby (application-level grouping)
//   - subsystem: session, room, registry, identity, circuit_breaker, store,
//     rate_limit (feature-level)
//   - name: specific metric
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions tracks the current number of live RoomService streams.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lobby",
		Subsystem: "session",
		Name:      "active",
		Help:      "Current number of active RoomService streams",
	})

	// RegistrySize tracks the current number of entries in the session registry.
	RegistrySize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lobby",
		Subsystem: "registry",
		Name:      "size",
		Help:      "Current number of sessions held in the registry",
	})

	// ActiveRooms tracks the current number of rooms persisted in the store.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lobby",
		Subsystem: "room",
		Name:      "active",
		Help:      "Current number of rooms tracked by the store",
	})

	// RoomFillDuration tracks how long a room stays open between creation
	// (or the common room's last clear) and fill (capacity reached).
	RoomFillDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lobby",
		Subsystem: "room",
		Name:      "fill_duration_seconds",
		Help:      "Time between room creation and the room reaching capacity",
		Buckets:   prometheus.DefBuckets,
	})

	// RoomServiceRequests tracks CreateRoom/JoinRoom outcomes.
	RoomServiceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobby",
		Subsystem: "room",
		Name:      "requests_total",
		Help:      "Total RoomService requests by request_type and outcome",
	}, []string{"request_type", "outcome"})

	// SendToFailures tracks fan-out send_to failures (backpressure or missing session).
	SendToFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobby",
		Subsystem: "registry",
		Name:      "send_to_failures_total",
		Help:      "Total send_to calls that failed to deliver to a session",
	}, []string{"reason"})

	// PingRequests tracks Identity Service Ping outcomes.
	PingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobby",
		Subsystem: "identity",
		Name:      "ping_requests_total",
		Help:      "Total Ping requests by outcome",
	}, []string{"outcome"})

	// CircuitBreakerState tracks the KV store circuit breaker's state
	// (0: Closed, 1: Half-Open, 2: Open).
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lobby",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Current state of the KV store circuit breaker (0: Closed, 1: Half-Open, 2: Open)",
	}, []string{"store"})

	// RateLimitExceeded tracks requests rejected by the rate limiter.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobby",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total number of requests that exceeded the rate limit",
	}, []string{"method"})

	// StoreOperations tracks the total number of KV store operations.
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lobby",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Total number of KV store operations",
	}, []string{"operation", "status"})

	// StoreOperationDuration tracks KV store operation latency.
	StoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lobby",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Duration of KV store operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

func IncActiveSessions() {
	ActiveSessions.Inc()
}

func DecActiveSessions() {
	ActiveSessions.Dec()
}
