package cluster

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the cluster's Prometheus instrumentation. Counters
// cover the request path; the node gauge and swept counter cover
// membership and the expiration driver.
type metrics struct {
	gets    prometheus.Counter
	hits    prometheus.Counter
	sets    prometheus.Counter
	deletes prometheus.Counter
	swept   prometheus.Counter
	nodes   prometheus.Gauge
}

// newMetrics registers the cluster metrics with reg and returns them.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		gets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "volt",
			Name:      "gets_total",
			Help:      "Read operations routed through the cluster.",
		}),
		hits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "volt",
			Name:      "hits_total",
			Help:      "Read operations that found a live entry.",
		}),
		sets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "volt",
			Name:      "sets_total",
			Help:      "Write operations routed through the cluster.",
		}),
		deletes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "volt",
			Name:      "deletes_total",
			Help:      "Delete operations routed through the cluster.",
		}),
		swept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "volt",
			Name:      "expired_entries_swept_total",
			Help:      "Entries reclaimed by the expiration driver.",
		}),
		nodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "volt",
			Name:      "nodes",
			Help:      "Logical nodes currently in the cluster.",
		}),
	}
}
