// Package ring implements consistent-hash routing for Volt.
// See doc.go for complete package documentation.
package ring

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/slices"
)

// point is one virtual position on the ring: a 64-bit position paired
// with the descriptor of the logical node that owns it.
type point struct {
	hash       uint64
	descriptor string
}

// state is an immutable ring snapshot. Writers derive a new state from
// the current one and publish it whole; readers never observe a
// half-updated ring.
type state struct {
	// points holds every virtual position, sorted by hash with ties
	// broken by descriptor so lookups stay deterministic even across
	// 64-bit collisions.
	points []point

	// descriptors is the sorted set of distinct logical nodes.
	descriptors []string
}

// Ring is a consistent-hash routing table with virtual nodes, mapping
// keys to ordered replica lists of node descriptors.
//
// Concurrency model:
//   - Reads (Lookup, Primary, Size, Descriptors) are lock-free against
//     an atomic snapshot and never block
//   - Mutations (Add, Remove) serialize on a writer mutex, derive a
//     complete new snapshot, and publish it atomically
//   - A reader holding an old snapshot finishes against it; the old
//     state is garbage-collected when the last reader drops it
//
// Routing invariants:
//   - For a fixed ring state and key, the replica list is
//     deterministic
//   - Adding or removing a node touches only that node's positions;
//     keys whose primary did not change are unaffected
//
// Example:
//
//	r := ring.New(100)
//	r.Add("node1")
//	r.Add("node2")
//	replicas := r.Lookup("user:123", 2)
type Ring struct {
	// mu serializes writers. Readers never take it.
	mu sync.Mutex

	// current points at the live snapshot.
	current atomic.Pointer[state]

	// virtualNodes is the number of positions per descriptor.
	// Immutable after construction.
	virtualNodes int
}

// New creates an empty ring with the given number of virtual positions
// per node.
//
// The virtual node count trades memory for load smoothness: per-node
// load deviation shrinks roughly with 1/sqrt(V). It is fixed for the
// ring's lifetime.
//
// Parameters:
//   - virtualNodes: Positions per logical node; values below 1 are
//     clamped to 1
//
// Returns:
//   - Initialized empty ring, immediately safe for concurrent use
//
// Example:
//
//	r := ring.New(100)
func New(virtualNodes int) *Ring {
	if virtualNodes < 1 {
		virtualNodes = 1
	}
	r := &Ring{virtualNodes: virtualNodes}
	r.current.Store(&state{})
	return r
}

// hashKey maps a key onto the 64-bit circular space.
//
// xxhash64 is the ring's hash for both key lookup and virtual-node
// placement. It is fixed for the life of a cluster: every participant
// must hash identically or routing diverges.
func hashKey(key string) uint64 {
	return xxhash.Sum64String(key)
}

// virtualPosition computes the ring position of descriptor's i-th
// virtual node: xxhash64 over descriptor||LE32(i).
func virtualPosition(descriptor string, i uint32) uint64 {
	buf := make([]byte, 0, len(descriptor)+4)
	buf = append(buf, descriptor...)
	buf = binary.LittleEndian.AppendUint32(buf, i)
	return xxhash.Sum64(buf)
}

// comparePoints orders points by hash, then descriptor. The secondary
// key keeps the sort — and therefore every lookup — deterministic when
// two virtual positions collide.
func comparePoints(a, b point) int {
	switch {
	case a.hash < b.hash:
		return -1
	case a.hash > b.hash:
		return 1
	}
	switch {
	case a.descriptor < b.descriptor:
		return -1
	case a.descriptor > b.descriptor:
		return 1
	}
	return 0
}

// Add inserts a logical node, placing its virtual positions on the
// ring.
//
// Behavior:
//   - Computes V positions as xxhash64(descriptor||LE32(i)) for i in
//     [0, V)
//   - Adding a descriptor that is already present is a no-op, so Add
//     is idempotent
//   - Only keys whose clockwise successor became one of the new
//     positions change primary — roughly 1/M of the keyspace for the
//     M-th node
//
// Parameters:
//   - descriptor: The logical node to add
//
// Thread Safety:
// Safe for concurrent calls; writers serialize on the ring mutex and
// publish atomically. Concurrent readers keep the snapshot they
// loaded.
//
// Performance:
// O(V·N) to rebuild the sorted snapshot. Membership changes are rare,
// so the rebuild cost is acceptable.
//
// Example:
//
//	r.Add("node4")
func (r *Ring) Add(descriptor string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.current.Load()
	if _, found := slices.BinarySearch(old.descriptors, descriptor); found {
		return
	}

	next := &state{
		points:      make([]point, 0, len(old.points)+r.virtualNodes),
		descriptors: make([]string, 0, len(old.descriptors)+1),
	}
	next.points = append(next.points, old.points...)
	for i := 0; i < r.virtualNodes; i++ {
		next.points = append(next.points, point{
			hash:       virtualPosition(descriptor, uint32(i)),
			descriptor: descriptor,
		})
	}
	slices.SortFunc(next.points, comparePoints)

	next.descriptors = append(next.descriptors, old.descriptors...)
	next.descriptors = append(next.descriptors, descriptor)
	slices.Sort(next.descriptors)

	r.current.Store(next)
}

// Remove deletes a logical node and all of its virtual positions.
//
// Behavior:
//   - Removing an unknown descriptor is a no-op, so Remove is
//     idempotent
//   - Keys owned by the removed node fall to their next clockwise
//     successor; all other keys keep their primary
//
// Parameters:
//   - descriptor: The logical node to remove
//
// Thread Safety:
// Safe for concurrent calls, same discipline as Add. A reader that
// resolved the removed descriptor from an older snapshot completes
// against it.
//
// Performance:
// O(V·N) to rebuild the snapshot.
//
// Example:
//
//	r.Remove("node4")
func (r *Ring) Remove(descriptor string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.current.Load()
	idx, found := slices.BinarySearch(old.descriptors, descriptor)
	if !found {
		return
	}

	next := &state{
		points:      make([]point, 0, len(old.points)-r.virtualNodes),
		descriptors: make([]string, 0, len(old.descriptors)-1),
	}
	for _, p := range old.points {
		if p.descriptor != descriptor {
			next.points = append(next.points, p)
		}
	}
	next.descriptors = append(next.descriptors, old.descriptors[:idx]...)
	next.descriptors = append(next.descriptors, old.descriptors[idx+1:]...)

	r.current.Store(next)
}

// Lookup returns the ordered replica list for key: at most count
// distinct descriptors, starting at the first virtual position
// clockwise of the key's hash (wrapping past the highest position) and
// skipping positions whose descriptor was already collected.
//
// Behavior:
//   - The first element is the key's primary
//   - count is clamped to the number of distinct nodes
//   - An empty ring or non-positive count returns nil
//   - For a fixed ring state the result is deterministic
//
// Parameters:
//   - key: The key to route
//   - count: Maximum number of distinct descriptors wanted
//
// Returns:
//   - Ordered descriptor list of length min(count, Size()), or nil
//
// Thread Safety:
// Lock-free; resolves entirely against one atomic snapshot, so the
// whole list reflects a single ring state.
//
// Performance:
// O(log(V·N)) binary search plus a clockwise walk that is O(count) in
// the common case.
//
// Example:
//
//	replicas := r.Lookup("user:123", 2)
//	primary, replica := replicas[0], replicas[1]
func (r *Ring) Lookup(key string, count int) []string {
	s := r.current.Load()
	if len(s.points) == 0 || count <= 0 {
		return nil
	}
	if count > len(s.descriptors) {
		count = len(s.descriptors)
	}

	target := point{hash: hashKey(key)}
	start, _ := slices.BinarySearchFunc(s.points, target, comparePoints)
	if start == len(s.points) {
		start = 0
	}

	replicas := make([]string, 0, count)
	seen := make(map[string]struct{}, count)
	for i := 0; i < len(s.points) && len(replicas) < count; i++ {
		p := s.points[(start+i)%len(s.points)]
		if _, dup := seen[p.descriptor]; dup {
			continue
		}
		seen[p.descriptor] = struct{}{}
		replicas = append(replicas, p.descriptor)
	}
	return replicas
}

// Primary returns the primary descriptor for key, or "" when the ring
// is empty. Equivalent to Lookup(key, 1).
//
// Parameters:
//   - key: The key to route
//
// Returns:
//   - The primary's descriptor, or "" for an empty ring
//
// Thread Safety:
// Lock-free.
//
// Example:
//
//	owner := r.Primary("user:123")
func (r *Ring) Primary(key string) string {
	replicas := r.Lookup(key, 1)
	if len(replicas) == 0 {
		return ""
	}
	return replicas[0]
}

// Size returns the number of distinct logical nodes on the ring.
//
// Thread Safety:
// Lock-free; reads the current snapshot.
func (r *Ring) Size() int {
	return len(r.current.Load().descriptors)
}

// Descriptors returns the sorted set of distinct logical nodes.
//
// Returns:
//   - A copy of the descriptor set; safe to retain and modify
//
// Thread Safety:
// Lock-free; the copy reflects one snapshot.
func (r *Ring) Descriptors() []string {
	s := r.current.Load()
	return slices.Clone(s.descriptors)
}
