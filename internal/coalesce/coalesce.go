// Package coalesce provides a single-slot-per-key queue: between drains only
// the latest value written for a key is retained. The map server uses it for
// pending position updates, which makes "last write wins per tick" an explicit
// property instead of an accident of map mutation.
package coalesce

import "sync"

// Queue keeps at most one pending value per key.
type Queue[K comparable, V any] struct {
	mu      sync.Mutex
	pending map[K]V
}

// NewQueue returns an empty queue.
func NewQueue[K comparable, V any]() *Queue[K, V] {
	return &Queue[K, V]{pending: make(map[K]V)}
}

// Put stores value for key, overwriting any pending value for the same key.
func (q *Queue[K, V]) Put(key K, value V) {
	q.mu.Lock()
	q.pending[key] = value
	q.mu.Unlock()
}

// Remove discards any pending value for key.
func (q *Queue[K, V]) Remove(key K) {
	q.mu.Lock()
	delete(q.pending, key)
	q.mu.Unlock()
}

// Drain returns all pending entries and leaves the queue empty.
func (q *Queue[K, V]) Drain() map[K]V {
	q.mu.Lock()
	drained := q.pending
	q.pending = make(map[K]V)
	q.mu.Unlock()
	return drained
}

// Len reports the number of keys with a pending value.
func (q *Queue[K, V]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
