package looper

import "sync/atomic"

// ScratchPad is a fixed-capacity multi-channel circular buffer that records
// every incoming frame, whatever the looper state. Recording a loop then only
// means remembering where in the scratch pad the loop started.
//
// Set and AfterProcess must only be called from the audio goroutine. Cursor
// may be read from anywhere.
type ScratchPad struct {
	channels [][]float32
	capacity int
	cursor   atomic.Int64
}

// NewScratchPad returns an unprepared scratch pad; call Prepare before use.
func NewScratchPad() *ScratchPad {
	return &ScratchPad{}
}

// Prepare allocates maxLoopSeconds*sampleRate frames for each channel,
// discarding any earlier content. It must be called before audio starts.
func (p *ScratchPad) Prepare(sampleRate float64, channels int, maxLoopSeconds float64) {
	capacity := int(maxLoopSeconds * sampleRate)
	if capacity < 1 {
		capacity = 1
	}
	if channels < 1 {
		channels = 1
	}
	p.channels = make([][]float32, channels)
	for i := range p.channels {
		p.channels[i] = make([]float32, capacity)
	}
	p.capacity = capacity
	p.cursor.Store(0)
}

// Set writes sample to channel at the current cursor. Channels outside the
// prepared range are ignored.
func (p *ScratchPad) Set(channel int, sample float32) {
	if channel < 0 || channel >= len(p.channels) {
		return
	}
	p.channels[channel][p.cursor.Load()] = sample
}

// AfterProcess advances the cursor by one frame, wrapping at capacity.
func (p *ScratchPad) AfterProcess() {
	if p.capacity == 0 {
		return
	}
	c := p.cursor.Load() + 1
	if c >= int64(p.capacity) {
		c = 0
	}
	p.cursor.Store(c)
}

// Cursor returns the frame that the next Set writes.
func (p *ScratchPad) Cursor() int { return int(p.cursor.Load()) }

func (p *ScratchPad) Capacity() int { return p.capacity }

func (p *ScratchPad) Channels() int { return len(p.channels) }

// Get returns the sample at frame (taken modulo capacity) of channel.
func (p *ScratchPad) Get(channel, frame int) float32 {
	if channel < 0 || channel >= len(p.channels) || p.capacity == 0 {
		return 0
	}
	return p.channels[channel][wrap(frame, p.capacity)]
}

// CopyOut copies length frames starting at start into dst, one slice per
// channel. When the range crosses the end of the buffer the copy is done in
// two segments: the tail of the buffer first, then its head. length is
// capped at capacity and at the length of each dst slice.
func (p *ScratchPad) CopyOut(dst [][]float32, start, length int) {
	if p.capacity == 0 {
		return
	}
	length = min(length, p.capacity)
	start = wrap(start, p.capacity)
	for ch := 0; ch < len(dst) && ch < len(p.channels); ch++ {
		src := p.channels[ch]
		out := dst[ch]
		n := min(length, len(out))
		first := min(n, p.capacity-start)
		copy(out[:first], src[start:start+first])
		copy(out[first:n], src[:n-first])
	}
}

// Snapshot returns a copy of the whole buffer, rotated so that index 0 is the
// oldest frame. It allocates and is meant for non-real-time readers such as
// waveform views; the copy may race with the audio goroutine writing the
// newest frames.
func (p *ScratchPad) Snapshot() [][]float32 {
	ret := make([][]float32, len(p.channels))
	for ch := range ret {
		ret[ch] = make([]float32, p.capacity)
	}
	p.CopyOut(ret, p.Cursor(), p.capacity)
	return ret
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
