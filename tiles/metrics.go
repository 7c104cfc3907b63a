package tiles

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts tile cache activity. A nil *Metrics records nothing.
type Metrics struct {
	Hits     prometheus.Counter
	Misses   prometheus.Counter
	Fetches  prometheus.Counter
	Failures prometheus.Counter
	Pending  prometheus.Gauge
}

// NewMetrics registers the tile cache collectors with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Hits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldmap",
			Subsystem: "tiles",
			Name:      "cache_hits_total",
			Help:      "Tile lookups served from the cache",
		}),
		Misses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldmap",
			Subsystem: "tiles",
			Name:      "cache_misses_total",
			Help:      "Tile lookups that dispatched a fetch",
		}),
		Fetches: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldmap",
			Subsystem: "tiles",
			Name:      "fetches_total",
			Help:      "Tile fetches started by background workers",
		}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldmap",
			Subsystem: "tiles",
			Name:      "fetch_failures_total",
			Help:      "Tile fetches that failed and left a tombstone",
		}),
		Pending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "fieldmap",
			Subsystem: "tiles",
			Name:      "fetches_pending",
			Help:      "Tile fetches currently in flight",
		}),
	}
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

func (m *Metrics) fetch() {
	if m != nil {
		m.Fetches.Inc()
	}
}

func (m *Metrics) failure() {
	if m != nil {
		m.Failures.Inc()
	}
}

func (m *Metrics) setPending(n int) {
	if m != nil {
		m.Pending.Set(float64(n))
	}
}
