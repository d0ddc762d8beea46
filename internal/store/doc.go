// Package store implements the per-shard storage engine for Volt: a
// concurrent map from key to entry plus an append-only expiration
// queue, owned by a single Node and shared by nothing else.
//
// # Overview
//
// A Node is the leaf of the storage engine. The cluster layer routes
// every request to one or more Nodes; the Node itself has no notion of
// the hash ring, replicas, or other shards. It stores opaque byte
// values under string keys, answers reads synchronously in the calling
// goroutine, and tracks pending expirations for the cluster's
// background driver to reclaim.
//
// # Architecture
//
//	┌─────────────────────────────────────────┐
//	│                 Node                     │
//	├─────────────────────────────────────────┤
//	│  entries: xsync.MapOf[string, *Entry]   │
//	│    - striped concurrent hash map        │
//	│    - lock-free reads                    │
//	│  queue: expiryQueue                     │
//	│    - min-heap of (deadline, key,        │
//	│      version) records                   │
//	│    - multi-producer, single-consumer    │
//	│  stats: NodeStats                       │
//	│    - atomic operation counters          │
//	├─────────────────────────────────────────┤
//	│  Get / Set / Delete / Contains / Len    │
//	│  SweepExpired (driver-only)             │
//	└─────────────────────────────────────────┘
//
// # Core Types
//
// Entry: The stored triple under one key
//   - Value: the canonical byte copy
//   - ExpiresAt: absolute UnixNano deadline, 0 means never
//   - Version: per-key write counter for record invalidation
//
// Node: One shard
//   - Get(key) - synchronous read with lazy expiry
//   - Set(key, value, ttl) - whole-value replace, version bump
//   - Delete(key) - remove, reporting was-present
//   - Contains(key) / Len() - probes and diagnostics
//   - SweepExpired(now) - advance the expiration queue
//
// NodeStats: Cumulative atomic counters
//   - Gets, Hits, Sets, Deletes, Expired
//
// # Expiration Model
//
// Volt uses a dual expiration strategy:
//
// Lazy expiration:
//   - Get, Contains, and Delete treat an entry whose deadline has
//     passed as missing
//   - Callers never observe an expired value regardless of how far
//     behind the sweep is
//   - The entry may stay physically present until swept
//
// Active expiration (sweep):
//   - Every TTL'd Set pushes an (expiresAt, key, version) record onto
//     the queue
//   - The cluster's driver periodically calls SweepExpired, which pops
//     due records and deletes the matching map entries
//   - Bounds memory growth for keys that are never read again
//
// Record staleness:
//   - Writes never mutate or remove queue records; a key overwritten
//     with a longer TTL (or no TTL) leaves its old record behind
//   - At pop time a record evicts the live entry only when the entry's
//     version still matches the record AND the entry's own deadline has
//     passed
//   - Records that fail the check are discarded as garbage, so a short
//     stale TTL can never evict a newer write
//   - Queue garbage is bounded by write throughput times TTL
//
// # Concurrency and Thread Safety
//
// All Node operations are safe for concurrent use:
//
// Locking Strategy:
//   - The entry map is striped (puzpuzpuz/xsync); reads are lock-free
//     and writes contend only within a stripe
//   - There is no node-wide lock anywhere on the data path
//   - The queue mutex is held only for the O(log n) heap operation,
//     never across map access
//
// Consistency Guarantees:
//   - Per-key writes are linearizable: Set and Delete go through the
//     map's atomic compute primitives
//   - A Get that begins after a Set completes observes that Set or a
//     later one
//   - No ordering is guaranteed between distinct keys
//
// Role Separation:
//   - Foreground goroutines call Get/Set/Delete/Contains freely
//   - SweepExpired is intended for one background caller but is safe
//     to run concurrently with everything else
//
// # Memory Management
//
// Ownership and copying:
//   - Set stores a private copy of the caller's value; later caller
//     mutations cannot reach the map
//   - Get returns a fresh copy; callers may retain or mutate it freely
//   - Keys and values are heap-allocated; reclamation is the garbage
//     collector's job once an entry is deleted or swept
//
// Overheads:
//   - ~100 bytes fixed overhead per live entry (map slot + Entry)
//   - One ~40 byte queue record per TTL'd write until swept
//   - Expired-but-unswept entries count toward Len and memory
//
// # Failure Model
//
// Node operations never fail: misses are value-shaped (nil, false),
// deletes report was-present, and the only true fault — out of
// memory — is fatal to the process. There is no error return anywhere
// on the hot path.
//
// # Performance
//
// Targets and characteristics:
//   - Get: ~100ns — one lock-free map load, one integer deadline
//     compare, one value copy
//   - Set: ~1µs — one striped map compute plus, for TTL'd writes, one
//     O(log n) heap push
//   - SweepExpired: amortized O(log n) per record, proportional to due
//     records only
//   - Len: O(1) map size estimate
//
// # Usage Examples
//
//	// Creating a node and storing values
//	n := store.NewNode("node1")
//	n.Set("user:123", []byte(`{"name":"Alice"}`), 0)
//	n.Set("session:42", []byte("token"), 15*time.Minute)
//
//	// Reading with lazy expiry
//	if value, ok := n.Get("user:123"); ok {
//	    fmt.Printf("user: %s\n", value)
//	}
//
//	// Deleting
//	wasPresent := n.Delete("user:123")
//
//	// Driving expiration (normally the cluster does this)
//	swept := n.SweepExpired(time.Now().UnixNano())
//	log.Printf("reclaimed %d entries", swept)
//
// # Testing
//
// The package tests cover:
//   - Round-trips, overwrites, and copy isolation
//   - Lazy expiry before any sweep runs
//   - Sweep reclamation and stale-record discard
//   - The overwrite-defeats-stale-TTL rule in both variants
//   - Concurrent access, including contended single-key writes
//   - Benchmarks for the Get/Set hot paths
//
// Running tests:
//
//	go test ./internal/store/... -race
//	go test -bench=. ./internal/store/...
//
// # Future Enhancements
//
// Reserved but not yet exposed:
//   - Entry.Version is the tie-breaker for replica reconciliation when
//     cross-node repair lands; it is deliberately not surfaced in the
//     public API today
//
// # See Also
//
// Related packages:
//   - internal/ring: maps keys to the Node that owns them
//   - internal/cluster: owns Nodes, fans out writes, drives sweeps
package store
