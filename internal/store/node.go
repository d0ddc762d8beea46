// Package store implements the per-shard storage engine for Volt.
// See doc.go for complete package documentation.
package store

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Node owns one shard: a concurrent map from key to entry plus the
// shard's expiration queue. Nodes are created by the cluster on
// membership change and are immutable after construction — all
// interior mutability lives in the map, the queue, and the atomic
// counters.
//
// Each node:
//   - Stores opaque byte values under string keys
//   - Answers reads synchronously with lazy expiration
//   - Tracks pending expirations for the background sweep
//   - Never fails; misses are value-shaped, OOM is fatal
//
// Concurrency model:
//   - Get and Contains are lock-free map reads
//   - Set and Delete go through the map's per-key atomic compute, so
//     writes to the same key are linearizable and writes to different
//     keys proceed in parallel
//   - SweepExpired is called by a single background driver; it is safe
//     to run concurrently with any foreground operation
//
// Example:
//
//	n := store.NewNode("node1")
//	n.Set("greeting", []byte("hello"), 0)
//	value, ok := n.Get("greeting")
type Node struct {
	// entries is the shard's key space. A striped concurrent map keeps
	// reads in the ~100ns envelope without a node-wide lock.
	entries *xsync.MapOf[string, *Entry]

	// queue holds pending expirations for TTL'd writes.
	// Multi-producer, single-consumer; see expiryQueue.
	queue *expiryQueue

	// stats tracks operation counts for diagnostics.
	// Updated atomically; read via Stats.
	stats NodeStats

	// id is the node's descriptor within the cluster.
	// Immutable after creation.
	id string
}

// NodeStats tracks per-node operation counts, enabling workload
// characterization and white-box test assertions.
//
// Counters are:
//   - Cumulative since node creation (never reset)
//   - Updated atomically (lock-free)
//   - Safe for concurrent updates
//   - Suitable for rate calculation by sampling over time
//
// Example rate calculation:
//
//	s1 := n.Stats()
//	time.Sleep(time.Second)
//	s2 := n.Stats()
//	getRate := s2.Gets - s1.Gets // gets per second
type NodeStats struct {
	// Gets counts Get and Contains calls, hits and misses alike.
	Gets uint64

	// Hits counts Get and Contains calls that observed a live entry.
	Hits uint64

	// Sets counts successful writes, inserts and overwrites alike.
	Sets uint64

	// Deletes counts Delete calls that removed a live entry.
	// Deletes of absent or expired entries are not counted.
	Deletes uint64

	// Expired counts entries reclaimed by SweepExpired.
	Expired uint64
}

// NewNode creates an empty shard with the given descriptor.
//
// The created node:
//   - Starts empty (no entries, no queued expirations)
//   - Is immediately safe for concurrent use
//   - Has no capacity limit beyond available memory
//   - Carries no background work of its own; expiration sweeps are
//     driven by the cluster calling SweepExpired
//
// Parameters:
//   - id: The node's descriptor, unique within its cluster
//
// Returns:
//   - Initialized Node ready for operations
//
// Example:
//
//	n := store.NewNode("node1")
func NewNode(id string) *Node {
	return &Node{
		id:      id,
		entries: xsync.NewMapOf[string, *Entry](),
		queue:   newExpiryQueue(),
	}
}

// ID returns the node's descriptor.
//
// Thread Safety:
// Lock-free; the descriptor is immutable after creation.
func (n *Node) ID() string { return n.id }

// Get returns a copy of the value stored under key, or (nil, false) on
// a miss.
//
// Behavior:
//   - An entry whose deadline has passed is a miss even if the sweep
//     has not reclaimed it yet — callers can never observe an expired
//     value
//   - The returned slice is a fresh copy; callers may retain or
//     mutate it freely
//   - Empty values are legal: a hit may return an empty slice
//
// Parameters:
//   - key: The key to read (any string)
//
// Returns:
//   - (value copy, true) when a live entry exists
//   - (nil, false) when the key is absent or expired
//
// Thread Safety:
// Safe for concurrent calls; multiple goroutines read in parallel
// with no lock.
//
// Performance:
// ~100ns: one lock-free map load, one integer deadline compare, one
// value copy. Get is strictly synchronous and completes in the calling
// goroutine.
//
// Example:
//
//	if value, ok := n.Get("user:123"); ok {
//	    fmt.Printf("%s\n", value)
//	}
func (n *Node) Get(key string) ([]byte, bool) {
	atomic.AddUint64(&n.stats.Gets, 1)

	entry, ok := n.entries.Load(key)
	if !ok || entry.expired(time.Now().UnixNano()) {
		return nil, false
	}
	atomic.AddUint64(&n.stats.Hits, 1)

	// Return a copy so the canonical bytes stay immutable.
	value := make([]byte, len(entry.Value))
	copy(value, entry.Value)
	return value, true
}

// Set stores value under key, replacing any existing entry whole.
//
// Behavior:
//   - A positive ttl arms expiration at now+ttl; a zero or negative
//     ttl stores the entry forever
//   - The entry's version is bumped atomically with the replace
//   - A private copy of value is stored; later caller mutations cannot
//     reach the map
//   - TTL'd writes push an expiration record onto the queue; records
//     for earlier writes to the same key are left in place and
//     discarded at sweep time once their version no longer matches
//
// Parameters:
//   - key: The key to store under (any string)
//   - value: The value bytes (empty/nil is valid and stored)
//   - ttl: Time to live, or 0 for no expiration
//
// Thread Safety:
// Safe for concurrent calls. Writes to the same key are serialized by
// the map's per-key compute; one concurrent writer wins whole.
//
// Performance:
// ~1µs: one striped map compute plus, for TTL'd writes, one O(log n)
// heap push behind a short mutex.
//
// Example:
//
//	n.Set("user:123", []byte(`{"name":"Alice"}`), 0)
//	n.Set("session:42", []byte("token"), 15*time.Minute)
func (n *Node) Set(key string, value []byte, ttl time.Duration) {
	atomic.AddUint64(&n.stats.Sets, 1)

	// Store a copy so later caller mutations cannot reach the map.
	stored := make([]byte, len(value))
	copy(stored, value)

	deadline := deadlineFor(ttl, time.Now())

	var version uint64
	n.entries.Compute(key, func(old *Entry, loaded bool) (*Entry, bool) {
		version = 1
		if loaded {
			version = old.Version + 1
		}
		return &Entry{Value: stored, ExpiresAt: deadline, Version: version}, false
	})

	if deadline != noExpiry {
		n.queue.push(expiryRecord{key: key, expiresAt: deadline, version: version})
	}
}

// Delete removes the entry under key and reports whether a live entry
// was present.
//
// Behavior:
//   - An expired-but-unswept entry counts as absent: it is removed
//     physically but Delete reports false
//   - Delete does not prune the expiration queue; any record for the
//     removed entry is discarded at sweep time
//   - Idempotent in effect: a second Delete reports false
//
// Parameters:
//   - key: The key to delete (any string)
//
// Returns:
//   - true when a live entry was removed
//   - false when the key was absent or expired
//
// Thread Safety:
// Safe for concurrent calls; concurrent deletes of one key report
// present at most once.
//
// Performance:
// O(1) average: one striped map load-and-delete.
//
// Example:
//
//	if n.Delete("session:42") {
//	    log.Println("session evicted")
//	}
func (n *Node) Delete(key string) bool {
	entry, ok := n.entries.LoadAndDelete(key)
	if !ok || entry.expired(time.Now().UnixNano()) {
		return false
	}
	atomic.AddUint64(&n.stats.Deletes, 1)
	return true
}

// Contains reports whether a live entry exists under key, with the
// same expiration semantics as Get but without copying the value.
//
// Parameters:
//   - key: The key to probe
//
// Returns:
//   - true when a live entry exists
//   - false when the key is absent or expired
//
// Thread Safety:
// Safe for concurrent calls; lock-free.
//
// Performance:
// Slightly cheaper than Get: no value copy.
func (n *Node) Contains(key string) bool {
	atomic.AddUint64(&n.stats.Gets, 1)

	entry, ok := n.entries.Load(key)
	if !ok || entry.expired(time.Now().UnixNano()) {
		return false
	}
	atomic.AddUint64(&n.stats.Hits, 1)
	return true
}

// Len returns the number of entries physically present in the map.
//
// Best-effort: the count may include expired entries the sweep has not
// reclaimed yet, and it may be stale immediately under concurrent
// writes. Diagnostics only.
//
// Returns:
//   - Current entry count, expired-but-unswept included
//
// Thread Safety:
// Safe for concurrent calls.
//
// Performance:
// O(1); the map maintains its size.
func (n *Node) Len() int {
	return n.entries.Size()
}

// PendingExpirations returns the number of queued expiration records,
// stale ones included. Diagnostics only.
//
// Returns:
//   - Current queue length
//
// Thread Safety:
// Safe for concurrent calls; takes the queue mutex briefly.
func (n *Node) PendingExpirations() int {
	return n.queue.len()
}

// SweepExpired advances the expiration queue up to now (nanoseconds
// since the Unix epoch) and returns the number of entries reclaimed.
//
// For each due record the live entry is removed only when it is the
// one the record describes: same version, and a deadline that has
// itself passed. Records for keys that were overwritten, deleted, or
// re-armed with a longer TTL fail that check and are simply
// discarded — this is what keeps a short stale TTL from evicting a
// later write.
//
// Parameters:
//   - now: The sweep instant in UnixNano; records with deadlines at or
//     before now are processed
//
// Returns:
//   - Number of entries removed from the map
//
// Thread Safety:
// Intended for a single caller (the cluster's expiration driver) but
// safe to run concurrently with foreground operations; the
// version-and-deadline check makes races with concurrent writes
// harmless.
//
// Performance:
// O(log n) per processed record; a call with no due records is a
// single peek under the queue mutex.
//
// Example:
//
//	swept := n.SweepExpired(time.Now().UnixNano())
func (n *Node) SweepExpired(now int64) int {
	swept := 0
	for {
		rec, ok := n.queue.popDue(now)
		if !ok {
			return swept
		}

		n.entries.Compute(rec.key, func(entry *Entry, loaded bool) (*Entry, bool) {
			if !loaded {
				return nil, true // already gone; discard the record
			}
			if entry.Version != rec.version || !entry.expired(now) {
				return entry, false // superseded record; keep the entry
			}
			atomic.AddUint64(&n.stats.Expired, 1)
			swept++
			return nil, true
		})
	}
}

// Stats returns a snapshot of the node's operation counters.
//
// The returned statistics are a point-in-time copy and may be stale
// immediately under concurrent traffic; they are meant for monitoring
// trends and test assertions, not exact accounting.
//
// Returns:
//   - Copy of current counters (safe to retain)
//
// Thread Safety:
// Safe for concurrent calls; each field is an atomic load.
//
// Example:
//
//	s := n.Stats()
//	fmt.Printf("hit rate: %.2f\n", float64(s.Hits)/float64(s.Gets))
func (n *Node) Stats() NodeStats {
	return NodeStats{
		Gets:    atomic.LoadUint64(&n.stats.Gets),
		Hits:    atomic.LoadUint64(&n.stats.Hits),
		Sets:    atomic.LoadUint64(&n.stats.Sets),
		Deletes: atomic.LoadUint64(&n.stats.Deletes),
		Expired: atomic.LoadUint64(&n.stats.Expired),
	}
}
