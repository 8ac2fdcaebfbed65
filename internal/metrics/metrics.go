package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream Connection Metrics
var (
	// UpstreamConnectsTotal tracks connect requests by outcome
	UpstreamConnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_connects_total",
			Help: "Total upstream connect requests by outcome (reused/connected/failed/cancelled)",
		},
		[]string{"outcome"},
	)

	// UpstreamConnectionsActive tracks currently pooled upstream connections
	UpstreamConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "upstream_connections_active",
			Help: "Number of upstream connections currently held by the pool",
		},
	)

	// UpstreamEventsTotal tracks raw events received by upstream family
	UpstreamEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_events_total",
			Help: "Total raw upstream events received by event family",
		},
		[]string{"type"},
	)

	// UpstreamErrorsTotal tracks non-fatal upstream errors
	UpstreamErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_errors_total",
			Help: "Total non-fatal errors reported by upstream connections",
		},
	)

	// UpstreamConnectDuration tracks handshake latency in seconds
	UpstreamConnectDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "upstream_connect_duration_seconds",
			Help:    "Upstream handshake duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Broadcast Metrics
var (
	// EventsBroadcastTotal tracks canonical events fanned out by kind
	EventsBroadcastTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_broadcast_total",
			Help: "Total canonical events broadcast to tenant channels by kind",
		},
		[]string{"event"},
	)

	// BroadcastErrorsTotal tracks failed fan-outs
	BroadcastErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_errors_total",
			Help: "Total canonical events that could not be delivered",
		},
	)
)

// Subscriber Metrics
var (
	// SubscribersActive tracks downstream subscribers across all tenants
	SubscribersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "subscribers_active",
			Help: "Number of downstream subscribers across all tenant channels",
		},
	)

	// SubscriberJoinsTotal tracks join requests accepted by the gateway
	SubscriberJoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriber_joins_total",
			Help: "Total accepted tenant channel joins",
		},
	)

	// WebsocketClientsActive tracks connected transport clients, subscribed or not
	WebsocketClientsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients_active",
			Help: "Number of websocket clients currently connected",
		},
	)
)

// Janitor Metrics
var (
	// JanitorSweepsTotal tracks completed janitor sweeps
	JanitorSweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "janitor_sweeps_total",
			Help: "Total janitor sweeps over the connection pool",
		},
	)

	// JanitorEvictionsTotal tracks connections reclaimed by the janitor
	JanitorEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "janitor_evictions_total",
			Help: "Total idle upstream connections evicted by the janitor",
		},
	)

	// JanitorSweepDuration tracks sweep latency in seconds
	JanitorSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "janitor_sweep_duration_seconds",
			Help:    "Janitor sweep duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
	)
)

// Circuit Breaker Metrics
var (
	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)
