package reclaim

import "sync/atomic"

type (
	// Queue is a bounded, lock-free multi-producer multi-consumer ring. Push
	// and Pop never block: a full queue makes Push return false, an empty
	// queue makes Pop return false.
	//
	// Every slot carries a sequence number. A slot at position pos is free
	// for the producer of pos when its sequence equals pos, and holds a
	// value for the consumer of pos when it equals pos+1; the consumer then
	// hands it to the producer of the next lap by storing pos+capacity.
	// Producers claim a position by advancing head before they publish, so a
	// producer stalled between the two steps never makes another Push fail;
	// it only delays consumers, which see the queue as empty up to that
	// position.
	//
	// head and tail only ever grow; the slot index is the counter masked with
	// capacity-1, so the capacity is always a power of two.
	Queue[T any] struct {
		head  atomic.Uint64 // next position to push
		_pad1 [56]byte
		tail  atomic.Uint64 // next position to pop
		_pad2 [56]byte

		slots []slot[T]
		mask  uint64
	}

	slot[T any] struct {
		seq   atomic.Uint64
		value T
	}
)

// NewQueue returns a queue holding at least size values; size is rounded up
// to the next power of two. Sizes below 2 are treated as 2.
func NewQueue[T any](size int) *Queue[T] {
	n := 2
	for n < size {
		n <<= 1
	}
	q := &Queue[T]{slots: make([]slot[T], n), mask: uint64(n - 1)}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// Push stores v in the queue. It returns false only if the queue is full;
// the caller should try again later.
func (q *Queue[T]) Push(v T) bool {
	pos := q.head.Load()
	for {
		s := &q.slots[pos&q.mask]
		seq := s.seq.Load()
		switch dif := int64(seq - pos); {
		case dif == 0:
			if q.head.CompareAndSwap(pos, pos+1) {
				s.value = v
				s.seq.Store(pos + 1)
				return true
			}
			pos = q.head.Load()
		case dif < 0:
			// the slot still holds the value of the previous lap
			return false
		default:
			pos = q.head.Load()
		}
	}
}

// Pop removes the oldest value from the queue. ok is false if the queue is
// empty, or if the oldest position has been claimed but not yet published
// by its producer.
func (q *Queue[T]) Pop() (v T, ok bool) {
	pos := q.tail.Load()
	for {
		s := &q.slots[pos&q.mask]
		seq := s.seq.Load()
		switch dif := int64(seq - (pos + 1)); {
		case dif == 0:
			if q.tail.CompareAndSwap(pos, pos+1) {
				v = s.value
				var zero T
				s.value = zero
				s.seq.Store(pos + q.mask + 1)
				return v, true
			}
			pos = q.tail.Load()
		case dif < 0:
			return v, false
		default:
			pos = q.tail.Load()
		}
	}
}

// Len returns the number of values pushed but not yet popped. It is only a
// snapshot when other goroutines are using the queue.
func (q *Queue[T]) Len() int {
	t := q.tail.Load()
	h := q.head.Load()
	if t > h {
		return 0
	}
	return int(h - t)
}

// Cap returns the number of slots in the queue.
func (q *Queue[T]) Cap() int {
	return len(q.slots)
}
