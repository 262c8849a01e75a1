package engine

import (
	"math"
	"sync/atomic"

	"github.com/loopsmith/loopsmith/multitrack"
)

// RateChange hands a sample rate change seen on the audio goroutine over to
// a control goroutine, which prepares the coordinator while the audio
// goroutine keeps out of the engine.
type RateChange struct {
	pending atomic.Bool
	rate    atomic.Uint64
	current float64 // audio goroutine only
}

// NewRateChange returns a RateChange for an engine prepared at rate.
func NewRateChange(rate float64) *RateChange {
	return &RateChange{current: rate}
}

// Check is called by the audio goroutine before each block with the rate
// reported by the host, or 0 if unknown. It returns false if the block must
// not touch the engine, either because the rate just changed or because the
// coordinator has not been prepared for it yet.
func (r *RateChange) Check(rate float64) bool {
	if r.pending.Load() {
		return false
	}
	if rate <= 0 || rate == r.current {
		return true
	}
	r.current = rate
	r.rate.Store(math.Float64bits(rate))
	r.pending.Store(true)
	return false
}

// Apply prepares co for a pending rate change and reports whether there was
// one. It must be called from a control goroutine.
func (r *RateChange) Apply(co *multitrack.Coordinator, channels int) bool {
	if !r.pending.Load() {
		return false
	}
	co.Prepare(math.Float64frombits(r.rate.Load()), channels)
	r.pending.Store(false)
	return true
}
