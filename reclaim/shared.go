package reclaim

import "sync/atomic"

type (
	// Shared is a reference-counted handle to a value of type T. Copying a
	// Shared does not change the count; use Clone to take another reference
	// and Drop to give one back. When the last reference is dropped, the
	// node is handed to the collector and its release function runs on the
	// next Drain.
	//
	// The zero Shared is an empty handle: Get returns nil and Drop is a
	// no-op.
	Shared[T any] struct {
		node *node[T]
	}

	node[T any] struct {
		value     T
		refs      atomic.Int64
		release   func(*T)
		collector *Collector
	}

	// Cell is a slot holding one Shared value that can be replaced
	// atomically. Readers either see the complete old value or the complete
	// new one. Get pins the current value with a counted reference; Replace
	// installs a new value and drops the cell's reference to the old one
	// without waiting for readers.
	Cell[T any] struct {
		current atomic.Pointer[node[T]]
	}
)

// NewShared allocates a node for value with a reference count of one.
// release, if not nil, runs once inside Collector.Drain after the last
// reference has been dropped.
func NewShared[T any](c *Collector, value T, release func(*T)) Shared[T] {
	n := &node[T]{value: value, release: release, collector: c}
	n.refs.Store(1)
	return Shared[T]{node: n}
}

// Get returns a pointer to the payload, or nil for an empty handle. The
// pointer is valid as long as the handle has not been dropped.
func (s Shared[T]) Get() *T {
	if s.node == nil {
		return nil
	}
	return &s.node.value
}

func (s Shared[T]) Valid() bool { return s.node != nil }

// Clone takes another reference to the same payload.
func (s Shared[T]) Clone() Shared[T] {
	if s.node != nil {
		s.node.refs.Add(1)
	}
	return s
}

// Drop gives back this reference and empties the handle, so dropping the
// same variable twice only counts once. The decrement that reaches zero
// retires the node.
func (s *Shared[T]) Drop() {
	n := s.node
	if n == nil {
		return
	}
	s.node = nil
	if n.refs.Add(-1) == 0 {
		n.collector.retire(n)
	}
}

// RefCount returns the current reference count, mostly for tests.
func (s Shared[T]) RefCount() int64 {
	if s.node == nil {
		return 0
	}
	return s.node.refs.Load()
}

// acquire takes a reference unless the count has already reached zero, in
// which case the node is retired and must not be revived.
func (n *node[T]) acquire() bool {
	for {
		r := n.refs.Load()
		if r <= 0 {
			return false
		}
		if n.refs.CompareAndSwap(r, r+1) {
			return true
		}
	}
}

func (n *node[T]) retire() {
	if n.release != nil {
		n.release(&n.value)
	}
	var zero T
	n.value = zero
	n.collector = nil
}

// NewCell returns a cell holding initial, taking over the caller's
// reference.
func NewCell[T any](initial Shared[T]) *Cell[T] {
	c := &Cell[T]{}
	c.current.Store(initial.node)
	return c
}

// Load borrows the current payload without pinning it. It is only safe for
// the goroutine that is the sole caller of Replace, since no one else can
// retire the value under it. Returns nil if the cell is empty.
func (c *Cell[T]) Load() *T {
	n := c.current.Load()
	if n == nil {
		return nil
	}
	return &n.value
}

// Get returns a counted reference to the current payload. The caller must
// Drop it when done. A Get racing with Replace may load a node that is
// retired before it can be pinned; it then retries with the new current
// node.
func (c *Cell[T]) Get() Shared[T] {
	for {
		n := c.current.Load()
		if n == nil {
			return Shared[T]{}
		}
		if n.acquire() {
			return Shared[T]{node: n}
		}
	}
}

// Replace installs s, taking over the caller's reference, and drops the
// reference the cell held on the previous value. It never waits for
// readers, so it is safe on the audio goroutine.
func (c *Cell[T]) Replace(s Shared[T]) {
	old := c.current.Swap(s.node)
	prev := Shared[T]{node: old}
	prev.Drop()
}

// Close empties the cell, dropping its reference.
func (c *Cell[T]) Close() {
	c.Replace(Shared[T]{})
}
