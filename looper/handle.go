// Package looper implements a single looper track: the always-recording
// scratch pad, the clip materialized from it, and the state machine driving
// recording, playback and overdubbing.
//
// A Handle is shared between the audio goroutine and control goroutines.
// Control goroutines only set request flags (ToggleRecording,
// TogglePlayback, Clear) and gains; the audio goroutine performs every state
// transition at the start of the next frame it processes.
package looper

import (
	"sync/atomic"

	"github.com/loopsmith/loopsmith/reclaim"
)

type (
	// Handle is the per-track looper engine.
	Handle struct {
		collector *reclaim.Collector
		scratch   *ScratchPad
		clip      *reclaim.Cell[Clip]

		state atomic.Int32

		recordRequest   atomic.Bool
		playbackRequest atomic.Bool
		clearRequest    atomic.Bool

		dry    gain
		volume gain

		numSamples atomic.Int64
		position   atomic.Int64

		// owned by the audio goroutine
		startCursor int
		length      int
		cursor      int
		inFrame     bool
		capped      bool
		cleared     bool
		overrides   Overrides
	}

	// Clip is a materialized loop: Channels[c][i] is frame i of channel c.
	Clip struct {
		Channels [][]float32
		Length   int
	}

	// Overrides are gain values set per frame by the audio goroutine, e.g.
	// from the parameter locks of the trigger under the playhead. A value is
	// used only when its Has flag is set; otherwise the gain set by the
	// control side applies.
	Overrides struct {
		Volume    float32
		HasVolume bool
		Dry       float32
		HasDry    bool
	}
)

// NewHandle returns a handle with unity dry and wet gain. Prepare must be
// called before the first Process.
func NewHandle(c *reclaim.Collector) *Handle {
	h := &Handle{
		collector: c,
		scratch:   NewScratchPad(),
		clip:      reclaim.NewCell(reclaim.NewShared(c, Clip{}, nil)),
	}
	h.dry.Store(1)
	h.volume.Store(1)
	return h
}

// Prepare sizes the scratch pad and resets the handle to Empty. It must not
// be called while the audio goroutine is running.
func (h *Handle) Prepare(sampleRate float64, channels int, maxLoopSeconds float64) {
	h.scratch.Prepare(sampleRate, channels, maxLoopSeconds)
	h.clip.Replace(reclaim.NewShared(h.collector, Clip{}, nil))
	h.state.Store(int32(Empty))
	h.recordRequest.Store(false)
	h.playbackRequest.Store(false)
	h.clearRequest.Store(false)
	h.startCursor, h.length, h.cursor = 0, 0, 0
	h.inFrame, h.capped, h.cleared = false, false, false
	h.overrides = Overrides{}
	h.numSamples.Store(0)
	h.position.Store(0)
}

// Requests, called from control goroutines.

// ToggleRecording requests: Empty -> Recording, Recording -> Playing,
// Playing/Paused -> Overdubbing, Overdubbing -> Playing.
func (h *Handle) ToggleRecording() { h.recordRequest.Store(true) }

// TogglePlayback requests: Playing/Recording/Overdubbing -> Paused,
// Paused -> Playing.
func (h *Handle) TogglePlayback() { h.playbackRequest.Store(true) }

// Clear requests the handle to go back to Empty, silencing the clip.
func (h *Handle) Clear() { h.clearRequest.Store(true) }

// SetVolume sets the wet gain applied to the clip.
func (h *Handle) SetVolume(v float32) { h.volume.Store(v) }

// SetDryVolume sets the gain applied to the input passed through.
func (h *Handle) SetDryVolume(v float32) { h.dry.Store(v) }

// Queries, safe from any goroutine.

func (h *Handle) State() State { return State(h.state.Load()) }

func (h *Handle) Volume() float32 { return h.volume.Load() }

func (h *Handle) DryVolume() float32 { return h.dry.Load() }

// NumSamples returns the recorded length while recording, the clip length
// afterwards, and 0 when empty.
func (h *Handle) NumSamples() int { return int(h.numSamples.Load()) }

// PlayheadPercent returns the playback position as a fraction of the clip
// length in [0, 1).
func (h *Handle) PlayheadPercent() float32 {
	n := h.numSamples.Load()
	if n == 0 {
		return 0
	}
	switch h.State() {
	case Playing, Paused, Overdubbing:
		return float32(h.position.Load()) / float32(n)
	}
	return 0
}

func (h *Handle) IsRecording() bool {
	s := h.State()
	return s == Recording || s == Overdubbing
}

func (h *Handle) IsPlayingBack() bool {
	s := h.State()
	return s == Playing || s == Overdubbing
}

// IsEmpty reports whether the handle holds no loop.
func (h *Handle) IsEmpty() bool { return h.State() == Empty }

// ClipSnapshot returns a counted reference to the current clip, for
// collaborators such as exporters or waveform views. The caller must Drop
// it. Overdubbing keeps writing into the referenced clip.
func (h *Handle) ClipSnapshot() reclaim.Shared[Clip] { return h.clip.Get() }

// ScratchPad exposes the scratch pad for read-only snapshots.
func (h *Handle) ScratchPad() *ScratchPad { return h.scratch }

// Audio goroutine.

// Cleared reports whether the requests applied in the current frame cleared
// the loop, even if a later request of the same frame left the Empty state
// again. Audio goroutine only.
func (h *Handle) Cleared() bool { return h.cleared }

// SetOverrides sets the per-frame gain overrides. Audio goroutine only.
func (h *Handle) SetOverrides(o Overrides) { h.overrides = o }

// StoppedAtCapacity reports whether the last recording was stopped because
// it filled the scratch pad. Audio goroutine only.
func (h *Handle) StoppedAtCapacity() bool { return h.capped }

// Process records sample into the scratch pad and returns the output for
// channel: dry*sample plus volume times the clip sample under the playback
// cursor when playing or overdubbing. While overdubbing, the returned clip
// sample is the one before sample is summed into it.
func (h *Handle) Process(channel int, sample float32) float32 {
	if !h.inFrame {
		h.applyRequests()
		h.inFrame = true
	}
	h.scratch.Set(channel, sample)
	dry := h.dry.Load()
	if h.overrides.HasDry {
		dry = h.overrides.Dry
	}
	out := dry * sample
	state := h.State()
	if state != Playing && state != Overdubbing {
		return out
	}
	clip := h.clip.Load()
	if clip == nil || clip.Length == 0 || channel < 0 || channel >= len(clip.Channels) {
		return out
	}
	vol := h.volume.Load()
	if h.overrides.HasVolume {
		vol = h.overrides.Volume
	}
	i := h.cursor % clip.Length
	wet := clip.Channels[channel][i]
	if state == Overdubbing {
		clip.Channels[channel][i] = wet + sample
	}
	return out + vol*wet
}

// AfterProcess finishes a frame: it advances the recording length or the
// playback cursor, forces a stop once a recording fills the scratch pad, and
// advances the scratch pad cursor.
func (h *Handle) AfterProcess() {
	if !h.inFrame {
		h.applyRequests()
	}
	h.inFrame = false
	switch h.State() {
	case Recording:
		h.length++
		h.numSamples.Store(int64(h.length))
		if h.length >= h.scratch.Capacity() {
			h.capped = true
			h.stopRecording(Playing)
		}
	case Playing, Overdubbing:
		if clip := h.clip.Load(); clip != nil && clip.Length > 0 {
			h.cursor++
			if h.cursor >= clip.Length {
				h.cursor = 0
			}
			h.position.Store(int64(h.cursor))
		}
	}
	h.scratch.AfterProcess()
}

func (h *Handle) applyRequests() {
	h.cleared = false
	if h.clearRequest.Swap(false) {
		h.clear()
	}
	if h.recordRequest.Swap(false) {
		switch h.State() {
		case Empty:
			h.startCursor = h.scratch.Cursor()
			h.length = 0
			h.capped = false
			h.numSamples.Store(0)
			h.setState(Recording)
		case Recording:
			h.stopRecording(Playing)
		case Playing, Paused:
			h.setState(Overdubbing)
		case Overdubbing:
			h.setState(Playing)
		}
	}
	if h.playbackRequest.Swap(false) {
		switch h.State() {
		case Recording:
			h.stopRecording(Paused)
		case Playing, Overdubbing:
			h.setState(Paused)
		case Paused:
			h.cursor = 0
			h.position.Store(0)
			h.setState(Playing)
		}
	}
}

// stopRecording copies the recorded range out of the scratch pad into a new
// clip and installs it.
func (h *Handle) stopRecording(next State) {
	clip := Clip{Channels: make([][]float32, h.scratch.Channels()), Length: h.length}
	for ch := range clip.Channels {
		clip.Channels[ch] = make([]float32, h.length)
	}
	h.scratch.CopyOut(clip.Channels, h.startCursor, h.length)
	h.clip.Replace(reclaim.NewShared(h.collector, clip, nil))
	h.cursor = 0
	h.position.Store(0)
	h.numSamples.Store(int64(h.length))
	h.setState(next)
}

func (h *Handle) clear() {
	if clip := h.clip.Load(); clip != nil {
		for _, ch := range clip.Channels {
			clear(ch)
		}
	}
	h.length, h.cursor = 0, 0
	h.capped = false
	h.cleared = true
	h.numSamples.Store(0)
	h.position.Store(0)
	h.setState(Empty)
}

func (h *Handle) setState(s State) { h.state.Store(int32(s)) }
