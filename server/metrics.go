package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for a node. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	commands    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	connections prometheus.Counter
	clients     prometheus.Gauge
	errors      *prometheus.CounterVec
	syncs       prometheus.Histogram
	reconnects  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with registry.
// keys, when not nil, backs the respkv_keys gauge.
func NewMetrics(registry prometheus.Registerer, keys func() int) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "respkv",
			Name:      "commands_total",
			Help:      "Commands processed, by command name",
		}, []string{"command"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "respkv",
			Name:      "command_duration_seconds",
			Help:      "Command execution latency",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"command"}),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "respkv",
			Name:      "connections_total",
			Help:      "Client connections accepted",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "respkv",
			Name:      "connected_clients",
			Help:      "Currently connected clients",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "respkv",
			Name:      "errors_total",
			Help:      "Errors by type",
		}, []string{"type"}),
		syncs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "respkv",
			Subsystem: "replication",
			Name:      "handshake_duration_seconds",
			Help:      "Duration of successful handshakes with the primary",
			Buckets:   prometheus.DefBuckets,
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "respkv",
			Subsystem: "replication",
			Name:      "handshake_retries_total",
			Help:      "Handshake attempts after the first one",
		}),
	}

	registry.MustRegister(
		m.commands,
		m.duration,
		m.connections,
		m.clients,
		m.errors,
		m.syncs,
		m.reconnects,
	)

	if keys != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "respkv",
			Name:      "keys",
			Help:      "Entries held by the store, including expired entries not yet removed",
		}, func() float64 {
			return float64(keys())
		}))
	}

	return m
}

func (m *Metrics) recordCommand(name string, d time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name).Inc()
	m.duration.WithLabelValues(name).Observe(d.Seconds())
}

func (m *Metrics) connectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
	m.clients.Inc()
}

func (m *Metrics) connectionClosed() {
	if m == nil {
		return
	}
	m.clients.Dec()
}

// RecordError counts an error of the given type
func (m *Metrics) RecordError(errorType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(errorType).Inc()
}

// RecordSyncDuration observes a completed replication handshake
func (m *Metrics) RecordSyncDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.syncs.Observe(d.Seconds())
}

// RecordReconnection counts a retried replication handshake
func (m *Metrics) RecordReconnection() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}
