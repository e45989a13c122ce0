// Package metrics wires the server and session components to a private
// Prometheus registry. The core never imports prometheus directly — it
// only depends on the Sink interface, so unit tests can inject a
// no-op/counting fake the way the teacher's realtime package injects fake
// stores.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sink is the narrow interface the session and server components use to
// report counters. It exists so hashengine/session/tcpserver never import
// Prometheus types directly.
type Sink interface {
	SessionAccepted()
	SessionClosed()
	SessionReaped()
	LineProcessed(bytesHashed int)
	AcceptError()
}

// Metrics is the concrete Sink backed by a private prometheus.Registry.
type Metrics struct {
	registry *prometheus.Registry

	sessionsActive      prometheus.Gauge
	linesTotal          prometheus.Counter
	bytesHashedTotal    prometheus.Counter
	sessionsReapedTotal prometheus.Counter
	acceptErrorsTotal   prometheus.Counter
}

// New constructs a Metrics instance registered on a fresh private registry
// so multiple Server instances (e.g. in tests) never collide on the
// process-global default registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hashd_sessions_active",
			Help: "Number of currently live connection sessions.",
		}),
		linesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hashd_lines_total",
			Help: "Total number of completed lines hashed.",
		}),
		bytesHashedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hashd_bytes_hashed_total",
			Help: "Total number of line payload bytes hashed.",
		}),
		sessionsReapedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hashd_sessions_reaped_total",
			Help: "Total number of dead session handles removed by the reaper.",
		}),
		acceptErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hashd_accept_errors_total",
			Help: "Total number of non-fatal accept() errors.",
		}),
	}

	reg.MustRegister(
		m.sessionsActive,
		m.linesTotal,
		m.bytesHashedTotal,
		m.sessionsReapedTotal,
		m.acceptErrorsTotal,
	)

	return m
}

// Registry exposes the private registry for mounting a /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) SessionAccepted() { m.sessionsActive.Inc() }
func (m *Metrics) SessionClosed()   { m.sessionsActive.Dec() }
func (m *Metrics) SessionReaped()   { m.sessionsReapedTotal.Inc() }
func (m *Metrics) AcceptError()     { m.acceptErrorsTotal.Inc() }

func (m *Metrics) LineProcessed(bytesHashed int) {
	m.linesTotal.Inc()
	m.bytesHashedTotal.Add(float64(bytesHashed))
}

// Noop is a Sink that discards everything; used when metrics are disabled
// and in tests that don't care about counters.
type Noop struct{}

func (Noop) SessionAccepted()    {}
func (Noop) SessionClosed()      {}
func (Noop) SessionReaped()      {}
func (Noop) AcceptError()        {}
func (Noop) LineProcessed(n int) {}
