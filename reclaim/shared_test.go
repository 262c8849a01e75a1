package reclaim_test

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loopsmith/loopsmith/reclaim"
)

type payload struct {
	id int
}

func countingRelease(counter *atomic.Int64) func(*payload) {
	return func(*payload) { counter.Add(1) }
}

func TestSharedReleasedOnlyOnDrain(t *testing.T) {
	c := reclaim.NewCollector(16)
	var released atomic.Int64
	s := reclaim.NewShared(c, payload{id: 1}, countingRelease(&released))
	if s.Get().id != 1 {
		t.Fatalf("Get().id = %d, want 1", s.Get().id)
	}
	s.Drop()
	if s.Valid() {
		t.Fatalf("handle still valid after Drop")
	}
	if released.Load() != 0 {
		t.Fatalf("payload released synchronously by Drop")
	}
	if st := c.Stats(); st.Retired != 1 || st.Pending != 1 {
		t.Fatalf("stats after drop = %+v, want one retired and pending", st)
	}
	if n := c.Drain(); n != 1 {
		t.Fatalf("Drain() = %d, want 1", n)
	}
	if released.Load() != 1 {
		t.Fatalf("released = %d, want 1", released.Load())
	}
	s.Drop() // dropping an emptied handle is a no-op
	if c.Drain() != 0 || released.Load() != 1 {
		t.Fatalf("second Drop retired the payload again")
	}
}

func TestSharedRetiredWhenLastHandleDropped(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for iter := 0; iter < 200; iter++ {
		c := reclaim.NewCollector(16)
		var released atomic.Int64
		handles := []reclaim.Shared[payload]{reclaim.NewShared(c, payload{id: iter}, countingRelease(&released))}
		for len(handles) > 0 {
			if rnd.Intn(2) == 0 && len(handles) < 8 {
				handles = append(handles, handles[rnd.Intn(len(handles))].Clone())
				continue
			}
			i := rnd.Intn(len(handles))
			h := handles[i]
			handles = append(handles[:i], handles[i+1:]...)
			h.Drop()
			c.Drain()
			if len(handles) > 0 && released.Load() != 0 {
				t.Fatalf("iteration %d: released while %d handles remain", iter, len(handles))
			}
		}
		if released.Load() != 1 {
			t.Fatalf("iteration %d: released %d times, want 1", iter, released.Load())
		}
	}
}

func TestSharedConcurrentCloneDrop(t *testing.T) {
	c := reclaim.NewCollector(64)
	var released atomic.Int64
	root := reclaim.NewShared(c, payload{id: 7}, countingRelease(&released))
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		mine := root.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10000; i++ {
				h := mine.Clone()
				if h.Get().id != 7 {
					t.Errorf("payload changed under a live handle")
				}
				h.Drop()
			}
			mine.Drop()
		}()
	}
	wg.Wait()
	c.Drain()
	if released.Load() != 0 {
		t.Fatalf("released while the root handle is alive")
	}
	if root.RefCount() != 1 {
		t.Fatalf("RefCount() = %d, want 1", root.RefCount())
	}
	root.Drop()
	c.Drain()
	if released.Load() != 1 {
		t.Fatalf("released %d times, want 1", released.Load())
	}
}

func TestRetireRetriesWhenQueueFull(t *testing.T) {
	c := reclaim.NewCollector(2)
	var released atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()
	for i := 0; i < 100; i++ {
		s := reclaim.NewShared(c, payload{id: i}, countingRelease(&released))
		s.Drop()
	}
	cancel()
	<-done
	if released.Load() != 100 {
		t.Fatalf("released = %d, want 100", released.Load())
	}
	if st := c.Stats(); st.Retired != 100 || st.Released != 100 || st.Pending != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestCellReplace(t *testing.T) {
	c := reclaim.NewCollector(16)
	var released atomic.Int64
	cell := reclaim.NewCell(reclaim.NewShared(c, payload{id: 1}, countingRelease(&released)))
	if cell.Load().id != 1 {
		t.Fatalf("Load().id = %d, want 1", cell.Load().id)
	}
	pinned := cell.Get()
	cell.Replace(reclaim.NewShared(c, payload{id: 2}, countingRelease(&released)))
	c.Drain()
	if released.Load() != 0 {
		t.Fatalf("old value released while pinned")
	}
	if pinned.Get().id != 1 || cell.Load().id != 2 {
		t.Fatalf("pinned=%d current=%d, want 1 and 2", pinned.Get().id, cell.Load().id)
	}
	pinned.Drop()
	c.Drain()
	if released.Load() != 1 {
		t.Fatalf("released = %d after dropping the pin, want 1", released.Load())
	}
	cell.Close()
	c.Drain()
	if released.Load() != 2 || cell.Load() != nil {
		t.Fatalf("Close did not release the current value")
	}
}

func TestCellReplaceDoesNotWaitForReaders(t *testing.T) {
	c := reclaim.NewCollector(16)
	var released atomic.Int64
	cell := reclaim.NewCell(reclaim.NewShared(c, payload{id: 1}, countingRelease(&released)))
	pin := reclaim.LoadUnpinned(cell)
	cell.Replace(reclaim.NewShared(c, payload{id: 2}, countingRelease(&released)))
	if n := c.Drain(); n != 1 || released.Load() != 1 {
		t.Fatalf("Drain() = %d, released = %d, want 1 and 1", n, released.Load())
	}
	if s, ok := pin(); ok {
		t.Fatalf("a late reader pinned the retired value %+v", *s.Get())
	}
	if n := c.Drain(); n != 0 || released.Load() != 1 {
		t.Fatalf("retired value released again: Drain() = %d, released = %d", n, released.Load())
	}
	h := cell.Get()
	if h.Get().id != 2 {
		t.Fatalf("Get().id = %d, want 2", h.Get().id)
	}
	h.Drop()
	cell.Close()
	c.Drain()
	if released.Load() != 2 {
		t.Fatalf("released = %d after Close, want 2", released.Load())
	}
}

func TestCellConcurrentReadersSeeWholeValues(t *testing.T) {
	type pair struct{ a, b int }
	c := reclaim.NewCollector(256)
	var released atomic.Int64
	cell := reclaim.NewCell(reclaim.NewShared(c, pair{0, 0}, func(p *pair) {
		p.a, p.b = -1, -2 // poison: a reader holding a pin must never see this
		released.Add(1)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	drained := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(drained)
	}()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				h := cell.Get()
				p := h.Get()
				if p.a != p.b {
					t.Errorf("torn value %+v", *p)
				}
				h.Drop()
			}
		}()
	}
	for i := 1; i <= 500; i++ {
		cell.Replace(reclaim.NewShared(c, pair{i, i}, func(p *pair) {
			p.a, p.b = -1, -2
			released.Add(1)
		}))
	}
	close(stop)
	wg.Wait()
	cell.Close()
	cancel()
	<-drained
	if released.Load() != 501 {
		t.Fatalf("released = %d, want 501", released.Load())
	}
}
