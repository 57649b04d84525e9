package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IntentsDispatched counts reduced intents by type.
	IntentsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapfeed_intents_dispatched_total",
		Help: "Total number of intents reduced by the store",
	}, []string{"intent"})

	// StoreSubscribers is the gauge of registered store listeners.
	StoreSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snapfeed_store_subscribers",
		Help: "Number of listeners subscribed to the store",
	})

	// GatewayRequestLatency records backend request latency by gateway and operation.
	GatewayRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapfeed_gateway_request_latency_seconds",
		Help:    "Backend request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway", "operation"})

	// GatewayErrors counts failed backend requests by gateway and operation.
	GatewayErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapfeed_gateway_errors_total",
		Help: "Total number of failed backend requests",
	}, []string{"gateway", "operation"})

	// PersistenceErrors counts degraded storage reads and writes by operation.
	PersistenceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapfeed_persistence_errors_total",
		Help: "Total number of durable storage failures",
	}, []string{"driver", "operation"})

	// PersistenceWrites counts session snapshots written to storage.
	PersistenceWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapfeed_persistence_writes_total",
		Help: "Total number of session snapshots written",
	})

	// WebSocketConnectionsTotal is the gauge of state-stream subscribers.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snapfeed_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapfeed_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackGatewayCall returns a function that records latency when called (e.g. defer).
func TrackGatewayCall(gateway, operation string) func() {
	start := time.Now()
	return func() {
		GatewayRequestLatency.WithLabelValues(gateway, operation).Observe(time.Since(start).Seconds())
	}
}
