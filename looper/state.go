package looper

import (
	"math"
	"sync/atomic"
)

// State is the playback mode of a looper handle.
type State int32

const (
	Empty State = iota
	Recording
	Playing
	Paused
	Overdubbing
	NumStates
)

var stateNames = [NumStates]string{"empty", "recording", "playing", "paused", "overdubbing"}

func (s State) String() string {
	if s < 0 || s >= NumStates {
		return "unknown"
	}
	return stateNames[s]
}

// gain is a float32 that can be shared between goroutines.
type gain struct {
	bits atomic.Uint32
}

func (g *gain) Load() float32 { return math.Float32frombits(g.bits.Load()) }

func (g *gain) Store(v float32) { g.bits.Store(math.Float32bits(v)) }
