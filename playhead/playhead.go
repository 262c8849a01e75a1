// Package playhead tracks the musical position of the transport, either by
// integrating processed samples itself (Standalone) or by following the
// transport of a plugin host (Hosted).
//
// Nothing in this package takes a lock: the audio goroutine calls TickN and
// TimeInfo while control goroutines call Play, Pause, Stop and SetTempo.
package playhead

import (
	"math"
	"sync/atomic"
)

type (
	// Provider is the transport clock. TickN must only be called by the
	// audio goroutine; the other methods may be called from any goroutine.
	Provider interface {
		TickN(samples int)
		Play()
		Pause()
		Stop()
		SetTempo(bpm float64)
		TimeInfo() TimeInfo
	}

	// TimeInfo is a snapshot of the transport. Tempo is only meaningful when
	// TempoValid is set, PositionBeats only when BeatsValid is set.
	TimeInfo struct {
		Tempo           float64
		TempoValid      bool
		PositionSamples float64
		PositionBeats   float64
		BeatsValid      bool
		Playing         bool
	}

	// Standalone is an internal transport clock. Its position advances only
	// while playing; beats advance only while a tempo is set.
	Standalone struct {
		sampleRate float64Value
		tempo      float64Value // 0 when there is no tempo
		playing    atomic.Bool
		rewind     atomic.Bool

		// written by TickN only
		samples float64Value
		beats   float64Value
	}

	float64Value struct {
		bits atomic.Uint64
	}
)

// NewStandalone returns a stopped clock without a tempo.
func NewStandalone(sampleRate float64) *Standalone {
	s := &Standalone{}
	s.sampleRate.Store(sampleRate)
	return s
}

func (s *Standalone) SetSampleRate(sampleRate float64) { s.sampleRate.Store(sampleRate) }

func (s *Standalone) TickN(samples int) {
	if s.rewind.Swap(false) {
		s.samples.Store(0)
		s.beats.Store(0)
	}
	if samples <= 0 || !s.playing.Load() {
		return
	}
	n := float64(samples)
	s.samples.Store(s.samples.Load() + n)
	if tempo, sr := s.tempo.Load(), s.sampleRate.Load(); tempo > 0 && sr > 0 {
		s.beats.Store(s.beats.Load() + n*tempo/60/sr)
	}
}

func (s *Standalone) Play() { s.playing.Store(true) }

// Pause freezes the position.
func (s *Standalone) Pause() { s.playing.Store(false) }

// Stop freezes the position and rewinds it to zero. The rewind is applied by
// the next TickN; until then TimeInfo already reports position zero.
func (s *Standalone) Stop() {
	s.playing.Store(false)
	s.rewind.Store(true)
}

// SetTempo sets the tempo; beats keep counting from the current beat
// position at the new rate. Non-positive values are ignored.
func (s *Standalone) SetTempo(bpm float64) {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return
	}
	s.tempo.Store(bpm)
}

// ClearTempo removes the tempo; beats become unavailable and freeze.
func (s *Standalone) ClearTempo() { s.tempo.Store(0) }

func (s *Standalone) TimeInfo() TimeInfo {
	tempo := s.tempo.Load()
	ti := TimeInfo{
		Tempo:      tempo,
		TempoValid: tempo > 0,
		BeatsValid: tempo > 0,
		Playing:    s.playing.Load(),
	}
	if !s.rewind.Load() {
		ti.PositionSamples = s.samples.Load()
		ti.PositionBeats = s.beats.Load()
	}
	return ti
}

func (f *float64Value) Load() float64 { return math.Float64frombits(f.bits.Load()) }

func (f *float64Value) Store(v float64) { f.bits.Store(math.Float64bits(v)) }
