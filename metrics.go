package varycache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the cache.
// A nil *Metrics is valid and counts nothing.
type Metrics struct {
	Hits        prometheus.Counter
	Misses      prometheus.Counter
	Bypasses    prometheus.Counter
	Stores      prometheus.Counter
	StoreErrors prometheus.Counter
	ReadErrors  prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "varycache",
			Name:      "hits_total",
			Help:      "Total requests served from the cache.",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "varycache",
			Name:      "misses_total",
			Help:      "Total cacheable requests not found in the cache.",
		}),
		Bypasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "varycache",
			Name:      "bypasses_total",
			Help:      "Total requests ineligible for caching by method.",
		}),
		Stores: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "varycache",
			Name:      "stores_total",
			Help:      "Total responses written to the cache.",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "varycache",
			Name:      "store_errors_total",
			Help:      "Total failed cache writes.",
		}),
		ReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "varycache",
			Name:      "read_errors_total",
			Help:      "Total backend read errors, each treated as a miss.",
		}),
	}
	reg.MustRegister(m.Hits, m.Misses, m.Bypasses, m.Stores, m.StoreErrors, m.ReadErrors)
	return m
}

func (m *Metrics) hit() {
	if m != nil {
		m.Hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.Misses.Inc()
	}
}

func (m *Metrics) bypass() {
	if m != nil {
		m.Bypasses.Inc()
	}
}

func (m *Metrics) stored() {
	if m != nil {
		m.Stores.Inc()
	}
}

func (m *Metrics) storeError() {
	if m != nil {
		m.StoreErrors.Inc()
	}
}

func (m *Metrics) readError() {
	if m != nil {
		m.ReadErrors.Inc()
	}
}
