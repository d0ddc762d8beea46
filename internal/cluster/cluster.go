// Package cluster provides the public facade of the Volt storage engine.
// See doc.go for complete package documentation.
package cluster

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/voltkv/volt/internal/ring"
	"github.com/voltkv/volt/internal/store"
)

// ErrClosed is returned by write operations and AddNode issued after
// Close. Reads on a closed cluster still resolve; they miss once the
// nodes are unreachable.
var ErrClosed = errors.New("cluster is closed")

// Cluster is the public facade of the storage engine. It owns every
// node and the hash ring, and all reads, writes, deletes, and
// membership changes route through it.
//
// The descriptor→node map and the ring are read-mostly shared state:
// request routing takes only a read lock (the ring itself is lock-free
// for readers), while AddNode/RemoveNode serialize on the write lock
// and publish atomically. No lock is ever held across a replica await.
//
// A Cluster is safe for concurrent use by any number of goroutines.
//
// Example:
//
//	c := cluster.New(cluster.WithReplicationFactor(2))
//	defer c.Close()
//	c.AddNode("node1")
//	c.AddNode("node2")
//	err := c.Set(ctx, "greeting", []byte("hello"), 0)
type Cluster struct {
	// mu protects nodes. Request routing holds it only long enough to
	// resolve descriptors to node pointers.
	mu    sync.RWMutex
	nodes map[string]*store.Node

	// ring maps keys to ordered replica lists. Reads are lock-free.
	ring *ring.Ring

	// Configuration, immutable after New.
	virtualNodes      int
	replicationFactor int
	sweepInterval     time.Duration

	logger            *zap.Logger
	registry          *prometheus.Registry
	metricsRegisterer prometheus.Registerer
	metrics           *metrics

	// Expiration driver lifecycle. The driver starts on the first
	// AddNode and runs until Close.
	driverOnce sync.Once
	closeOnce  sync.Once
	closed     atomic.Bool
	stop       chan struct{}
	wg         sync.WaitGroup
}

// New constructs an empty cluster with the given options.
//
// The created cluster:
//   - Has no nodes; seed it with AddNode before serving traffic
//   - Uses the defaults in options.go for anything not overridden
//   - Spawns no background work yet — the expiration driver starts on
//     the first AddNode, so it is guaranteed to be running before any
//     TTL'd write can expire observably
//
// Parameters:
//   - opts: Functional options; see WithVirtualNodes,
//     WithReplicationFactor, WithSweepInterval, WithLogger,
//     WithMetricsRegisterer
//
// Returns:
//   - Initialized Cluster ready for AddNode
//
// Example:
//
//	c := cluster.New(
//	    cluster.WithVirtualNodes(100),
//	    cluster.WithReplicationFactor(2),
//	)
func New(opts ...Option) *Cluster {
	c := &Cluster{
		nodes:             make(map[string]*store.Node),
		virtualNodes:      DefaultVirtualNodes,
		replicationFactor: DefaultReplicationFactor,
		sweepInterval:     DefaultSweepInterval,
		logger:            zap.NewNop(),
		registry:          prometheus.NewRegistry(),
		stop:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metricsRegisterer == nil {
		c.metricsRegisterer = c.registry
	}
	c.metrics = newMetrics(c.metricsRegisterer)
	c.ring = ring.New(c.virtualNodes)
	return c
}

// AddNode creates the shard named by descriptor and makes it routable.
//
// Ordering matters here: the node is fully constructed and published
// in the descriptor map before the ring references it, so a concurrent
// Get that observes the new ring state always finds a valid node.
//
// Behavior:
//   - Adding a descriptor that already exists is a no-op
//   - The first successful AddNode starts the expiration driver
//   - Only ~1/M of keys move to the new node (see internal/ring)
//
// Parameters:
//   - descriptor: The node's name, unique within the cluster
//
// Returns:
//   - nil on success or duplicate add
//   - An error for an empty descriptor or a closed cluster
//
// Thread Safety:
// Safe for concurrent calls; membership changes serialize internally.
//
// Example:
//
//	if err := c.AddNode("node4"); err != nil {
//	    log.Fatal(err)
//	}
func (c *Cluster) AddNode(descriptor string) error {
	if descriptor == "" {
		return errors.New("node descriptor cannot be empty")
	}
	if c.closed.Load() {
		return ErrClosed
	}

	c.mu.Lock()
	if _, exists := c.nodes[descriptor]; exists {
		c.mu.Unlock()
		return nil
	}
	c.nodes[descriptor] = store.NewNode(descriptor)
	c.mu.Unlock()

	c.ring.Add(descriptor)
	c.metrics.nodes.Inc()
	c.logger.Info("node added", zap.String("node", descriptor))

	c.driverOnce.Do(c.startDriver)
	return nil
}

// RemoveNode unroutes and drops the shard named by descriptor,
// reporting whether it existed.
//
// The ring stops routing to the node first, then the map entry is
// dropped. Operations already holding the node's reference complete
// against it, and the shard's memory is reclaimed when the last
// reference falls. The keys it held are lost with it — there is no
// data migration in this scope.
//
// Parameters:
//   - descriptor: The node to remove
//
// Returns:
//   - true when the node existed
//   - false when it was already absent (idempotent)
//
// Thread Safety:
// Safe for concurrent calls.
//
// Example:
//
//	if c.RemoveNode("node4") {
//	    log.Println("node4 decommissioned")
//	}
func (c *Cluster) RemoveNode(descriptor string) bool {
	c.ring.Remove(descriptor)

	c.mu.Lock()
	_, existed := c.nodes[descriptor]
	delete(c.nodes, descriptor)
	c.mu.Unlock()

	if existed {
		c.metrics.nodes.Dec()
		c.logger.Info("node removed", zap.String("node", descriptor))
	}
	return existed
}

// NumNodes returns the number of logical nodes in the cluster.
//
// Thread Safety:
// Safe for concurrent calls; takes the read lock briefly.
func (c *Cluster) NumNodes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}

// Get returns a copy of the value stored under key, or (nil, false)
// on a miss.
//
// Behavior:
//   - Consults only the key's primary replica; replicas are never
//     read, keeping the path to one map lookup
//   - Expired entries read as missing regardless of sweep progress
//   - On an empty cluster every key is a miss
//
// Parameters:
//   - key: The key to read
//
// Returns:
//   - (value copy, true) on a hit
//   - (nil, false) on a miss
//
// Thread Safety:
// Safe for concurrent calls.
//
// Performance:
// Get is strictly synchronous and completes in the calling goroutine:
// one lock-free ring lookup, one brief read-lock map resolve, one
// lock-free store read. It never suspends on replica coordination.
//
// Example:
//
//	if value, ok := c.Get("user:123"); ok {
//	    fmt.Printf("%s\n", value)
//	}
func (c *Cluster) Get(key string) ([]byte, bool) {
	c.metrics.gets.Inc()

	node, ok := c.primaryFor(key)
	if !ok {
		return nil, false
	}

	value, ok := node.Get(key)
	if ok {
		c.metrics.hits.Inc()
	}
	return value, ok
}

// Contains reports whether a live entry exists under key on the key's
// primary replica, with the same routing and expiration semantics as
// Get but without copying the value.
//
// Parameters:
//   - key: The key to probe
//
// Returns:
//   - true when the primary holds a live entry
//
// Thread Safety:
// Safe for concurrent calls; synchronous like Get.
func (c *Cluster) Contains(key string) bool {
	node, ok := c.primaryFor(key)
	if !ok {
		return false
	}
	return node.Contains(key)
}

// Set stores value under key on every replica.
//
// Behavior:
//   - A positive ttl arms expiration; zero stores forever
//   - The replica list is resolved from a single ring snapshot, so a
//     concurrent membership change cannot split the write across two
//     ring views
//   - The per-node writes run concurrently; Set returns once all of
//     them have landed, so immediately afterwards every replica
//     reflects the write
//   - If the replication factor exceeds the node count, the write goes
//     to every available node (degraded replication)
//   - On an empty cluster Set is a no-op
//
// Parameters:
//   - ctx: Context for cancelling the fan-out
//   - key: The key to store under
//   - value: The value bytes (empty is valid)
//   - ttl: Time to live, or 0 for no expiration
//
// Returns:
//   - nil on success
//   - The context's error when cancelled mid-fan-out (partial writes
//     are not rolled back)
//   - ErrClosed after Close
//
// Thread Safety:
// Safe for concurrent calls. This is a suspending operation: it awaits
// the concurrent completion of the replica writes.
//
// Example:
//
//	err := c.Set(ctx, "session:42", []byte("token"), 15*time.Minute)
func (c *Cluster) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.metrics.sets.Inc()

	replicas := c.replicasFor(key)
	if len(replicas) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, node := range replicas {
		node := node
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			node.Set(key, value, ttl)
			return nil
		})
	}
	return g.Wait()
}

// Delete removes key from every replica, with the same fan-out,
// degraded-replication, and cancellation semantics as Set.
//
// Parameters:
//   - ctx: Context for cancelling the fan-out
//   - key: The key to delete
//
// Returns:
//   - true when at least one replica held a live entry
//   - false when every replica reported absent, or the cluster is
//     empty
//   - The context's error when cancelled; ErrClosed after Close
//
// Thread Safety:
// Safe for concurrent calls; suspending like Set.
//
// Example:
//
//	deleted, err := c.Delete(ctx, "session:42")
func (c *Cluster) Delete(ctx context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, ErrClosed
	}
	c.metrics.deletes.Inc()

	replicas := c.replicasFor(key)
	if len(replicas) == 0 {
		return false, nil
	}

	var present atomic.Bool
	g, ctx := errgroup.WithContext(ctx)
	for _, node := range replicas {
		node := node
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if node.Delete(key) {
				present.Store(true)
			}
			return nil
		})
	}
	err := g.Wait()
	return present.Load(), err
}

// Gatherer exposes the cluster-private metrics registry for scraping.
//
// When WithMetricsRegisterer redirected registration elsewhere, the
// returned gatherer is empty and the caller should scrape its own
// registry instead.
//
// Returns:
//   - The private registry as a prometheus.Gatherer
//
// Example:
//
//	mux.Handle("/metrics", promhttp.HandlerFor(c.Gatherer(),
//	    promhttp.HandlerOpts{}))
func (c *Cluster) Gatherer() prometheus.Gatherer {
	return c.registry
}

// Close stops the expiration driver and rejects subsequent writes and
// AddNode calls. RemoveNode still works after Close.
//
// Behavior:
//   - Idempotent: further Closes are no-ops
//   - Safe to call even if no node was ever added
//   - Blocks until the driver goroutine has exited
//   - Reads remain answerable; in-flight fan-outs finish
//
// Thread Safety:
// Safe for concurrent calls.
//
// Example:
//
//	c := cluster.New()
//	defer c.Close()
func (c *Cluster) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stop)
		c.wg.Wait()
		c.logger.Info("cluster closed")
	})
}

// replicasFor resolves the replica node list for key from one ring
// snapshot: up to replicationFactor distinct descriptors, clamped to
// the node count by the ring itself.
func (c *Cluster) replicasFor(key string) []*store.Node {
	descriptors := c.ring.Lookup(key, c.replicationFactor)
	if len(descriptors) == 0 {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	nodes := make([]*store.Node, 0, len(descriptors))
	for _, d := range descriptors {
		// A descriptor may have been removed between the ring snapshot
		// and the map read; the write simply skips it.
		if node, ok := c.nodes[d]; ok {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// primaryFor resolves the primary node for key from one ring snapshot.
// The second return is false on an empty cluster, or in the narrow
// window where the primary was removed between the ring snapshot and
// the map read — the removed shard is no longer reachable, so the read
// is a miss.
func (c *Cluster) primaryFor(key string) (*store.Node, bool) {
	primary := c.ring.Primary(key)
	if primary == "" {
		return nil, false
	}

	c.mu.RLock()
	node, ok := c.nodes[primary]
	c.mu.RUnlock()
	return node, ok
}
