package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marsrover",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "marsrover",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Rover metrics
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marsrover",
		Subsystem: "rover",
		Name:      "commands_total",
		Help:      "Total rover commands processed, by outcome",
	}, []string{"command", "outcome"})

	ObstaclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marsrover",
		Subsystem: "rover",
		Name:      "obstacles_total",
		Help:      "Total moves refused because of an obstacle",
	}, []string{"heading"})

	PoleCrossingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "marsrover",
		Subsystem: "rover",
		Name:      "pole_crossings_total",
		Help:      "Total pole crossings",
	})

	BatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marsrover",
		Subsystem: "rover",
		Name:      "batches_total",
		Help:      "Total command batches, by outcome",
	}, []string{"outcome"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "marsrover",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})
)

// Handler serves the Prometheus /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
