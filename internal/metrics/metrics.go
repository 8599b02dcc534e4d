// Package metrics holds the Prometheus collectors of the whiteboard server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"WhiteboardServer/internal/state"
)

const namespace = "whiteboard"

// Metrics are the server's collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	connections      prometheus.Gauge
	connectionsTotal prometheus.Counter
	requests         *prometheus.CounterVec
	broadcasts       prometheus.Counter
	slowConsumers    prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of open client connections",
		}),
		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total number of accepted client connections",
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests handled by command and outcome",
		}, []string{"command", "outcome"}),
		broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_messages_total",
			Help:      "Messages queued to connections other than the direct reply",
		}),
		slowConsumers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slow_consumer_disconnects_total",
			Help:      "Connections closed because their outbox was full",
		}),
	}
}

// WatchStore exposes the store's user, board and stroke totals as gauges.
func WatchStore(reg prometheus.Registerer, stats func() state.Stats) {
	factory := promauto.With(reg)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "users",
		Help:      "Users currently known to the session store",
	}, func() float64 { return float64(stats().Users) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "boards",
		Help:      "Boards created since start",
	}, func() float64 { return float64(stats().Boards) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "strokes",
		Help:      "Strokes stored across all boards",
	}, func() float64 { return float64(stats().Strokes) })
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
	m.connectionsTotal.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// Request counts one handled line. outcome is "ok", "failed" or "ignored".
func (m *Metrics) Request(command, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) Broadcast(n int) {
	if m == nil {
		return
	}
	m.broadcasts.Add(float64(n))
}

func (m *Metrics) SlowConsumer() {
	if m == nil {
		return
	}
	m.slowConsumers.Inc()
}
