// Package buffer holds the fixed-capacity window that feeds the chart.
package buffer

import "sync"

// DefaultCapacity is the window size used when none is configured.
const DefaultCapacity = 10

// Rolling is a bounded FIFO ring. Once full, each Push evicts the oldest
// element. Order is insertion order; elements are never re-sorted.
type Rolling[T any] struct {
	mu   sync.RWMutex
	data []T
	head int // index of the oldest element
	size int
}

// NewRolling returns an empty window; capacity <= 0 falls back to DefaultCapacity.
func NewRolling[T any](capacity int) *Rolling[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Rolling[T]{data: make([]T, capacity)}
}

// Push appends v, evicting the oldest element when the window is full.
func (r *Rolling[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := len(r.data)
	if r.size < c {
		r.data[(r.head+r.size)%c] = v
		r.size++
		return
	}
	r.data[r.head] = v
	r.head = (r.head + 1) % c
}

// Snapshot returns a copy of the window, oldest first.
func (r *Rolling[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.size)
	c := len(r.data)
	for i := 0; i < r.size; i++ {
		out[i] = r.data[(r.head+i)%c]
	}
	return out
}

// Last returns the most recently pushed element.
func (r *Rolling[T]) Last() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.data[(r.head+r.size-1)%len(r.data)], true
}

func (r *Rolling[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *Rolling[T]) Cap() int { return len(r.data) }
