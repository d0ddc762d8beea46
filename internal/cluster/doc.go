// Package cluster provides the public facade of the Volt storage
// engine: it owns the nodes and the hash ring, routes every request to
// the right shard, fans writes out to replicas, and drives expiration.
//
// # Overview
//
// Cluster is the only type the edge layer talks to. It composes the
// two lower layers — internal/ring for key→node routing and
// internal/store for per-shard storage — and adds replication fan-out,
// membership management, the background expiration driver, structured
// logging, and Prometheus instrumentation.
//
// # Architecture
//
//	┌───────────────────────────────────────────────┐
//	│                   Cluster                      │
//	├───────────────────────────────────────────────┤
//	│  ring:  *ring.Ring        (lock-free reads)   │
//	│  nodes: map[string]*store.Node  (RWMutex)     │
//	│  driver: ticker goroutine → SweepExpired      │
//	│  metrics: prometheus counters + node gauge    │
//	├───────────────────────────────────────────────┤
//	│  Get / Contains          (synchronous)        │
//	│  Set / Delete            (fan-out, awaited)   │
//	│  AddNode / RemoveNode    (membership)         │
//	│  Close                   (lifecycle)          │
//	└───────────────────────────────────────────────┘
//
// Data flow:
//
//	write: caller → Set → ring lookup (one snapshot)
//	       → R nodes concurrently → await all → return
//	read:  caller → Get → ring lookup → primary node
//	       → lock-free map read → return
//
// # Consistency Model
//
// Within a single key on a single node:
//   - Writes are linearizable; a read that begins after a write
//     completes observes that write or a later one
//
// Across a primary and its replicas:
//   - Eventual consistency. Set awaits all R replica writes before
//     returning, so immediately after Set completes every replica
//     reflects the write
//   - Reads consult only the primary, so cross-replica divergence is
//     invisible today; it matters only to future replica-aware reads
//
// Between unrelated keys:
//   - No ordering guaranteed
//
// # Replication
//
// The replica list for a key comes from one ring snapshot: up to R
// distinct descriptors, primary first. Taking a single snapshot for
// the whole fan-out means a concurrent AddNode cannot split one write
// across two ring views.
//
// Degraded replication: when R exceeds the node count, the write goes
// to every available node rather than failing. Reads are unaffected —
// they always target the primary only.
//
// # Cancellation
//
// Set and Delete take a context and are the only suspending
// operations; they await the concurrent completion of the per-replica
// writes. Cancelling the context mid-fan-out abandons the remaining
// replica writes without rolling back those that already landed;
// callers needing atomicity across replicas must build it above this
// layer. Get never suspends and takes no context.
//
// # Membership
//
// AddNode ordering: the shard is fully constructed and published in
// the descriptor map before the ring references it, so a concurrent
// Get that observes the new ring state always finds a valid node.
//
// RemoveNode ordering: the ring stops routing to the node first, then
// the map entry is dropped. An operation that already resolved the
// node completes against it — node references are shared pointers and
// the shard's memory is reclaimed when the last reference falls.
//
// # Expiration Driver
//
// One goroutine, multiplexed over all nodes, started lazily by the
// first AddNode and stopped by Close:
//
//   - Wakes every SweepInterval (default 10ms)
//   - Snapshots the node set without holding the lock across sweeps
//   - Calls SweepExpired(now) on each node
//   - Observable sweep latency is at most two ticks
//
// The driver only bounds memory reclamation; correctness never depends
// on it because reads apply lazy expiration at the store layer.
//
// # Concurrency and Thread Safety
//
// All Cluster methods are safe for concurrent use:
//
// Locking Strategy:
//   - The descriptor map uses an RWMutex; request routing holds the
//     read side only long enough to resolve descriptors to pointers
//   - The ring is lock-free for readers (see internal/ring)
//   - No lock is ever held across a replica await
//
// Suspension points:
//   - Only Set and Delete suspend, at the errgroup await
//   - Get and Contains complete synchronously in the calling goroutine
//
// # Error Handling
//
// The hot path is error-free by design:
//   - Missing key: value-shaped absence (nil, false), never an error
//   - Empty cluster: reads miss, Set is a no-op, Delete reports false
//   - ErrClosed: writes and AddNode after Close
//   - Context cancellation: surfaced from Set/Delete as the context's
//     error; partial writes stand
//
// # Metrics
//
// Registered on a cluster-private registry (or the registerer supplied
// via WithMetricsRegisterer):
//
//	volt_gets_total                  reads routed through the cluster
//	volt_hits_total                  reads that found a live entry
//	volt_sets_total                  writes routed through the cluster
//	volt_deletes_total               deletes routed through the cluster
//	volt_expired_entries_swept_total entries reclaimed by the driver
//	volt_nodes                       current logical node count
//
// # Usage Examples
//
//	// Constructing and seeding a cluster
//	c := cluster.New(
//	    cluster.WithVirtualNodes(100),
//	    cluster.WithReplicationFactor(2),
//	    cluster.WithLogger(logger),
//	)
//	defer c.Close()
//	c.AddNode("node1")
//	c.AddNode("node2")
//
//	// Writing with and without TTL
//	err := c.Set(ctx, "user:123", []byte(`{"name":"Alice"}`), 0)
//	err = c.Set(ctx, "session:42", []byte("token"), 15*time.Minute)
//
//	// Reading (primary only, never suspends)
//	if value, ok := c.Get("user:123"); ok {
//	    fmt.Printf("user: %s\n", value)
//	}
//
//	// Deleting
//	deleted, err := c.Delete(ctx, "user:123")
//
// # Testing
//
// The package tests cover:
//   - Round-trips, deletes, and empty-cluster behavior
//   - TTL expiration end to end with the driver running
//   - The overwrite-defeats-stale-TTL rule at cluster level
//   - Replica convergence via white-box per-node probes
//   - Degraded replication with R greater than the node count
//   - Membership validation, Close idempotence, cancellation
//   - Concurrent mixed workloads
//
// Running tests:
//
//	go test ./internal/cluster/... -race
//
// # Future Enhancements
//
// The design deliberately leaves room for:
//   - Replica-aware reads (failover to replicas when the primary is
//     gone), riding the same replica lists Set uses today
//   - Cross-node reconciliation keyed on store.Entry versions
//   - Dynamic reconfiguration of V and R, currently fixed at
//     construction
//
// # See Also
//
// Related packages:
//   - internal/ring: the routing table
//   - internal/store: the shards
//   - cmd/volt: the HTTP/JSON edge over this facade
package cluster
