package store

import (
	"container/heap"
	"sync"
)

// expiryRecord is one pending expiration: the deadline and version a
// write observed when it pushed the record. A key accumulates one record
// per TTL'd write across its lifetime; stale records are filtered at
// sweep time, never eagerly.
type expiryRecord struct {
	key       string
	expiresAt int64
	version   uint64
}

// recordHeap orders expiry records by ascending deadline.
type recordHeap []expiryRecord

func (h recordHeap) Len() int            { return len(h) }
func (h recordHeap) Less(i, j int) bool  { return h[i].expiresAt < h[j].expiresAt }
func (h recordHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *recordHeap) Push(x interface{}) { *h = append(*h, x.(expiryRecord)) }

func (h *recordHeap) Pop() interface{} {
	old := *h
	n := len(old)
	rec := old[n-1]
	*h = old[:n-1]
	return rec
}

// expiryQueue is the per-node expiration queue: a min-heap of records,
// multi-producer (every TTL'd Set pushes) and single-consumer (the
// sweep pops). The mutex is held only for the O(log n) heap operation;
// it is never held across map access.
type expiryQueue struct {
	mu      sync.Mutex
	records recordHeap
}

func newExpiryQueue() *expiryQueue {
	q := &expiryQueue{}
	heap.Init(&q.records)
	return q
}

// push adds a record for a TTL'd write.
func (q *expiryQueue) push(rec expiryRecord) {
	q.mu.Lock()
	heap.Push(&q.records, rec)
	q.mu.Unlock()
}

// popDue removes and returns the earliest record if its deadline is at
// or before now. The second return is false when the queue is empty or
// the head is still in the future.
func (q *expiryQueue) popDue(now int64) (expiryRecord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.records) == 0 || q.records[0].expiresAt > now {
		return expiryRecord{}, false
	}
	return heap.Pop(&q.records).(expiryRecord), true
}

// len returns the number of pending records, including stale ones that
// the sweep has not yet discarded. Diagnostics only.
func (q *expiryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}
