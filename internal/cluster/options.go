package cluster

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Defaults applied by New when the corresponding option is not given.
const (
	// DefaultVirtualNodes is the number of ring positions per node.
	// 100 keeps per-node load deviation small at typical cluster
	// sizes; see internal/ring for the trade-off.
	DefaultVirtualNodes = 100

	// DefaultReplicationFactor is the number of distinct nodes that
	// hold each key. Writes fan out to this many nodes; reads consult
	// the primary only.
	DefaultReplicationFactor = 2

	// DefaultSweepInterval is the expiration driver's tick period.
	// Observable sweep latency is bounded by two ticks.
	DefaultSweepInterval = 10 * time.Millisecond
)

// Option configures a Cluster at construction time.
//
// Options follow the functional-options pattern: New accepts a
// variadic list and applies each in order, so adding configuration
// never changes the constructor's signature. The resulting
// configuration is immutable once New returns; there is no dynamic
// reconfiguration.
//
// Example:
//
//	c := cluster.New(
//	    cluster.WithVirtualNodes(200),
//	    cluster.WithReplicationFactor(3),
//	    cluster.WithLogger(logger),
//	)
type Option func(*Cluster)

// WithVirtualNodes sets the number of virtual ring positions per node.
//
// More positions smooth key distribution across nodes at the cost of
// ring memory and slower membership changes.
//
// Parameters:
//   - v: Positions per node; values below 1 are clamped to 1
//
// Example:
//
//	cluster.New(cluster.WithVirtualNodes(200))
func WithVirtualNodes(v int) Option {
	return func(c *Cluster) {
		if v < 1 {
			v = 1
		}
		c.virtualNodes = v
	}
}

// WithReplicationFactor sets how many distinct nodes hold each key.
//
// A factor exceeding the current node count degrades gracefully:
// writes go to every available node until enough nodes exist.
//
// Parameters:
//   - r: Replicas per key; values below 1 are clamped to 1
//
// Example:
//
//	cluster.New(cluster.WithReplicationFactor(3))
func WithReplicationFactor(r int) Option {
	return func(c *Cluster) {
		if r < 1 {
			r = 1
		}
		c.replicationFactor = r
	}
}

// WithSweepInterval sets the expiration driver's tick period.
//
// Shorter ticks reclaim expired entries sooner at the cost of more
// wakeups; correctness never depends on the tick because reads apply
// lazy expiration.
//
// Parameters:
//   - d: Tick period; non-positive values fall back to
//     DefaultSweepInterval
//
// Example:
//
//	cluster.New(cluster.WithSweepInterval(50 * time.Millisecond))
func WithSweepInterval(d time.Duration) Option {
	return func(c *Cluster) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}

// WithLogger sets the structured logger used for membership and driver
// events.
//
// Parameters:
//   - logger: A zap logger; nil keeps the default no-op logger
//
// Example:
//
//	logger, _ := zap.NewProduction()
//	cluster.New(cluster.WithLogger(logger))
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cluster) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetricsRegisterer registers the cluster's metrics with the given
// registerer instead of the cluster-private registry.
//
// Useful when the embedding process already serves a shared /metrics
// endpoint; note that Gatherer then returns an empty registry.
//
// Parameters:
//   - reg: The registerer to install metrics on; nil keeps the
//     private registry
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	cluster.New(cluster.WithMetricsRegisterer(reg))
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(c *Cluster) {
		if reg != nil {
			c.metricsRegisterer = reg
		}
	}
}
