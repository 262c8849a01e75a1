// Package reclaim implements deferred reclamation of memory shared with the
// audio goroutine.
//
// Payloads are held in reference-counted Shared handles. Dropping the last
// handle never runs the payload's release function in place: the handle is
// pushed onto a lock-free Queue owned by a Collector, and the release runs
// later when Collector.Drain is called from a non-real-time goroutine
// (usually through Collector.Run). This keeps dropping a handle on the audio
// goroutine wait-free and allocation-free.
package reclaim

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

type (
	// Collector owns the retirement queue and runs the release functions of
	// retired payloads when drained.
	Collector struct {
		queue *Queue[retiree]

		retired  atomic.Uint64
		released atomic.Uint64
		retries  atomic.Uint64
	}

	// CollectorStats is a snapshot of the collector counters.
	CollectorStats struct {
		Retired  uint64 // payloads whose last handle has been dropped
		Released uint64 // payloads whose release has been run by Drain
		Retries  uint64 // times a retirement found the queue full
		Pending  int    // retirements waiting for the next Drain
	}

	// retiree is the type-erased retirement command stored in the queue.
	retiree interface {
		retire()
	}
)

// DefaultQueueSize is the retirement queue size used when NewCollector is
// given a non-positive size.
const DefaultQueueSize = 1024

func NewCollector(queueSize int) *Collector {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Collector{queue: NewQueue[retiree](queueSize)}
}

// retire enqueues r. When the queue is full the calling goroutine yields and
// retries until a Drain frees a slot; the audio goroutine retires at most a
// handful of payloads per callback, so it does not hit this in practice.
func (c *Collector) retire(r retiree) {
	for !c.queue.Push(r) {
		c.retries.Add(1)
		runtime.Gosched()
	}
	c.retired.Add(1)
}

// Drain runs the release of every payload currently in the retirement queue
// and returns how many were released. It must not be called from the audio
// goroutine.
func (c *Collector) Drain() int {
	n := 0
	for {
		r, ok := c.queue.Pop()
		if !ok {
			break
		}
		r.retire()
		n++
	}
	c.released.Add(uint64(n))
	return n
}

// Run drains the collector every interval until ctx is cancelled, then
// drains one final time.
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer c.Drain()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Drain()
		}
	}
}

func (c *Collector) Stats() CollectorStats {
	return CollectorStats{
		Retired:  c.retired.Load(),
		Released: c.released.Load(),
		Retries:  c.retries.Load(),
		Pending:  c.queue.Len(),
	}
}
