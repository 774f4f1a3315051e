// Package metrics exposes Prometheus metrics for the board server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "whiteboard"

// Collector holds every metric the server records. Each Collector has its
// own registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Rooms       prometheus.Gauge
	Clients     prometheus.Gauge
	Operations  *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec
	Snapshots   *prometheus.CounterVec
	SessionsRun *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_open",
			Help:      "Number of boards with at least one connected client",
		}),
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients_connected",
			Help:      "Number of connected websocket clients",
		}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Operations submitted by clients",
		}, []string{"type", "result"}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent applying an operation to a board",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}, []string{"type"}),
		Snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_saved_total",
			Help:      "Board snapshots written to the store",
		}, []string{"result"}),
		SessionsRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Interaction sessions by kind and outcome",
		}, []string{"kind", "outcome"}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Rooms,
		c.Clients,
		c.Operations,
		c.OpDuration,
		c.Snapshots,
		c.SessionsRun,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveOperation records one applied operation.
func (c *Collector) ObserveOperation(opType string, err error, took time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Operations.WithLabelValues(opType, result).Inc()
	c.OpDuration.WithLabelValues(opType).Observe(took.Seconds())
}

func (c *Collector) ObserveSnapshot(err error) {
	if err != nil {
		c.Snapshots.WithLabelValues("error").Inc()
		return
	}
	c.Snapshots.WithLabelValues("ok").Inc()
}
