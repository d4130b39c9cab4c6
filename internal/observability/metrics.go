// Package observability exposes prometheus metrics for the capture service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	registry         *prometheus.Registry
	EventsTotal      *prometheus.CounterVec
	UnmatchedTotal   prometheus.Counter
	DiagramsTotal    prometheus.Counter
	LedgerSize       prometheus.Gauge
	DomainCount      prometheus.Gauge
	ConnectedViewers prometheus.Gauge
}

// NewMetrics creates and registers all collectors on a private registry.
func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autosequence",
			Name:      "events_total",
			Help:      "Network events received by kind",
		}, []string{"kind"}),
		UnmatchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "autosequence",
			Name:      "unmatched_events_total",
			Help:      "Completion/redirect/error events with no pending match",
		}),
		DiagramsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "autosequence",
			Name:      "diagrams_total",
			Help:      "Sequence diagrams compiled",
		}),
		LedgerSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "autosequence",
			Name:      "ledger_size",
			Help:      "Records in the current capture ledger",
		}),
		DomainCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "autosequence",
			Name:      "domain_count",
			Help:      "Distinct participant domains in the current capture",
		}),
		ConnectedViewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "autosequence",
			Name:      "connected_viewers",
			Help:      "Registered live viewers",
		}),
	}
	r.MustRegister(m.EventsTotal, m.UnmatchedTotal, m.DiagramsTotal,
		m.LedgerSize, m.DomainCount, m.ConnectedViewers)
	return m
}

// Registry returns the private registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
