package reclaim

// ClaimPush claims the next push position of q without publishing a value,
// leaving the queue as a producer stalled between claiming and storing
// would. The returned position is passed to PublishPush.
func ClaimPush[T any](q *Queue[T]) uint64 {
	return q.head.Add(1) - 1
}

// PublishPush stores v at a position returned by ClaimPush.
func PublishPush[T any](q *Queue[T], pos uint64, v T) {
	s := &q.slots[pos&q.mask]
	s.value = v
	s.seq.Store(pos + 1)
}

// LoadUnpinned loads the current node of c the way Get does and returns a
// function that finishes pinning it later, as a reader preempted between
// the two steps would.
func LoadUnpinned[T any](c *Cell[T]) func() (Shared[T], bool) {
	n := c.current.Load()
	return func() (Shared[T], bool) {
		if n == nil || !n.acquire() {
			return Shared[T]{}, false
		}
		return Shared[T]{node: n}, true
	}
}
