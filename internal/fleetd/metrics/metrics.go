// Package metrics exposes Prometheus instrumentation for the fleet controller.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fleet"

var (
	// APIRequestsTotal counts HTTP requests by method, route and status
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "HTTP requests handled by the API.",
	}, []string{"method", "route", "status"})

	// APIRequestDuration observes HTTP latency by method, route and status
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// APIActiveRequests tracks in-flight HTTP requests
	APIActiveRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "api_active_requests",
		Help:      "HTTP requests currently in flight.",
	})

	// ScreensByStatus is the latest health monitor snapshot
	ScreensByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "screens",
		Help:      "Screens by derived health status.",
	}, []string{"status"})

	// StatusTransitions counts health status changes seen by the monitor
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "screen_status_transitions_total",
		Help:      "Screen health status transitions.",
	}, []string{"from", "to"})

	// CommandsTotal counts command log entries reaching each status
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Command log entries by status reached.",
	}, []string{"status"})

	// HeartbeatsTotal counts accepted device heartbeats
	HeartbeatsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "heartbeats_total",
		Help:      "Device heartbeats accepted.",
	})

	// DeviceConnections tracks open device websocket connections
	DeviceConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "device_connections",
		Help:      "Open device control connections.",
	})
)

// Handler exposes the metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
