// Package metrics defines the Prometheus collectors exported by the server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's collectors. Each Server owns its own registry so
// several servers can run in one process.
type Metrics struct {
	registry *prometheus.Registry

	// ConnectionsActive tracks currently registered connections
	ConnectionsActive prometheus.Gauge

	// ConnectionsTotal counts accepted TCP connections
	ConnectionsTotal prometheus.Counter

	// ConnectionsRejected counts connections closed before or during the handshake, by reason
	ConnectionsRejected *prometheus.CounterVec

	// MessagesReceived counts decoded text messages
	MessagesReceived prometheus.Counter

	// MessagesDropped counts inbound frames discarded, by reason
	MessagesDropped *prometheus.CounterVec

	// FramesSent counts frames queued to clients, by origin
	FramesSent *prometheus.CounterVec

	// FramesDropped counts frames dropped because a client's queue was full
	FramesDropped prometheus.Counter

	// PushMessages counts admin push messages, by type and outcome
	PushMessages *prometheus.CounterVec
}

// New creates and registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ConnectionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "socketd_connections_active",
			Help: "Number of registered client connections",
		}),
		ConnectionsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "socketd_connections_total",
			Help: "Total number of accepted client connections",
		}),
		ConnectionsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "socketd_connections_rejected_total",
			Help: "Connections closed by the server before or during the handshake, by reason",
		}, []string{"reason"}),
		MessagesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "socketd_messages_received_total",
			Help: "Total number of text messages decoded from clients",
		}),
		MessagesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "socketd_messages_dropped_total",
			Help: "Inbound frames discarded, by reason",
		}, []string{"reason"}),
		FramesSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "socketd_frames_sent_total",
			Help: "Frames queued to clients, by origin",
		}, []string{"origin"}),
		FramesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "socketd_frames_dropped_total",
			Help: "Frames dropped because the client's outbound queue was full",
		}),
		PushMessages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "socketd_push_messages_total",
			Help: "Admin push messages, by type and outcome",
		}, []string{"type", "outcome"}),
	}
}

// Registry returns the registry backing m, for tests and custom exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
