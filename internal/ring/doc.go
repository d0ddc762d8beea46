// Package ring implements the consistent-hash routing table that maps
// keys to node descriptors in a Volt cluster, with virtual nodes for
// load smoothing and copy-on-write snapshots for lock-free reads.
//
// # Overview
//
// The ring answers one question: given a key, which nodes hold it, and
// in what order? Each logical node occupies V virtual positions on a
// 64-bit circular space. A key routes to the node owning the first
// position clockwise of the key's hash; walking further clockwise and
// skipping repeat descriptors yields the key's ordered replica list,
// with the first element as the primary.
//
// Membership changes are incremental: adding or removing a node
// touches only that node's V positions, so only the keys whose
// clockwise successor changed are reassigned — roughly 1/M of the
// keyspace for the M-th node.
//
// # Architecture
//
//	┌──────────────────────────────────────────┐
//	│                  Ring                     │
//	├──────────────────────────────────────────┤
//	│  current: atomic.Pointer[state]          │
//	│    state (immutable snapshot):           │
//	│      points[]     sorted (hash, desc)    │
//	│      descriptors[] sorted distinct set   │
//	│  mu: writer mutex (Add/Remove only)      │
//	├──────────────────────────────────────────┤
//	│  Lookup: hash → binary search →          │
//	│          clockwise walk, dedup           │
//	└──────────────────────────────────────────┘
//
// Key → node resolution:
//
//	"user:123" → xxhash64 → 0x9f3a... → first point ≥ hash
//	           → walk clockwise → ["node2", "node1"]
//
// # Hashing
//
// The hash is xxhash64 for both virtual-node placement and key lookup:
//
//   - Virtual positions: xxhash64(descriptor || LE32(i)) for i in
//     [0, V)
//   - Key positions: xxhash64(key)
//
// The choice is load-bearing. Routing is deterministic only while
// every participant hashes identically, so the function is fixed for
// the life of a cluster and must not change without remapping every
// key. xxhash64 is non-cryptographic; uniform distribution is what
// matters here, not collision resistance against an adversary. 64-bit
// collisions between keys are harmless — colliding keys share a
// primary, and the node map distinguishes them by full key.
//
// Equal-position ties between two descriptors are broken by descriptor
// order so lookups stay deterministic even across collisions in
// virtual-node placement.
//
// # Concurrency and Thread Safety
//
// The ring is read-mostly: lookups happen on every request while
// membership changes are rare. The design reflects that split:
//
// Read path (Lookup, Primary, Size, Descriptors):
//   - Loads the current snapshot through an atomic pointer
//   - Never takes a lock, never blocks, never suspends
//   - Binary-searches the immutable snapshot in place
//
// Write path (Add, Remove):
//   - Serializes on a writer mutex
//   - Derives a complete new snapshot from the current one
//   - Publishes it with a single atomic store
//
// A reader that loaded the old snapshot simply finishes against it;
// the old state is garbage-collected once the last reader drops it.
// This is exactly the discipline the cluster relies on for in-flight
// operations during node removal: they complete against the ring view
// they resolved.
//
// # Performance
//
// Complexity:
//   - Lookup: O(log(V·N)) binary search plus a clockwise walk that is
//     O(count) in the common case
//   - Add/Remove: O(V·N) snapshot rebuild, acceptable because
//     membership changes are rare
//   - Size/Descriptors: O(1) / O(N) on the snapshot
//
// Memory:
//   - One (hash, descriptor) pair per virtual position: ~24 bytes
//   - V=100, N=10 nodes ≈ 24KB per snapshot
//   - Two snapshots alive transiently during a mutation
//
// Tuning V:
//   - Larger V smooths load (per-node share deviation shrinks roughly
//     with 1/sqrt(V)) at the cost of snapshot size and rebuild time
//   - V=100 keeps the max/min primary-count ratio under ~1.5 for three
//     nodes at realistic key volumes
//
// # Usage Examples
//
//	// Building a ring
//	r := ring.New(100)
//	r.Add("node1")
//	r.Add("node2")
//	r.Add("node3")
//
//	// Routing a key
//	primary := r.Primary("user:123")
//	replicas := r.Lookup("user:123", 2) // [primary, first replica]
//
//	// Membership change: only ~1/4 of keys move to the new node
//	r.Add("node4")
//
//	// Removal is the inverse; survivors keep their keys
//	r.Remove("node2")
//
// # Testing
//
// The package tests cover:
//   - Lookup determinism for fixed ring states
//   - Replica-list distinctness and count clamping
//   - Add/Remove idempotence and routing restoration
//   - Primary-count balance at V=100 across 100k keys
//   - Reassignment minimality when growing the ring
//   - Benchmarks for Lookup and Add/Remove
//
// Running tests:
//
//	go test ./internal/ring/... -race
//	go test -bench=. ./internal/ring/...
//
// # See Also
//
// Related packages:
//   - internal/cluster: owns the ring and resolves descriptors to
//     live nodes
//   - internal/store: the shards the ring routes to
package ring
