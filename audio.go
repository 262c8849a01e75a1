package loopsmith

type (
	// AudioBuffer is a buffer of stereo frames: AudioBuffer[i][0] is the left
	// channel of frame i and AudioBuffer[i][1] the right one.
	AudioBuffer [][2]float32

	// AudioSource fills buf with the next frames to be played. Returning an
	// error stops playback.
	AudioSource func(buf AudioBuffer) error

	// AudioContext is an audio output device. Play starts pulling audio from
	// f, on a goroutine owned by the context, until the returned CloserWaiter
	// is closed or f returns an error.
	AudioContext interface {
		Play(f AudioSource) CloserWaiter
	}

	CloserWaiter interface {
		Close() error
		Wait() error
	}
)

// Fill fills the buffer with a constant frame.
func (buf AudioBuffer) Fill(frame [2]float32) {
	for i := range buf {
		buf[i] = frame
	}
}

// Channel copies channel ch of buf into dst, growing dst when needed, and
// returns it.
func (buf AudioBuffer) Channel(ch int, dst []float32) []float32 {
	if cap(dst) < len(buf) {
		dst = make([]float32, len(buf))
	}
	dst = dst[:len(buf)]
	for i := range buf {
		dst[i] = buf[i][ch]
	}
	return dst
}

// Loop fills dst with src repeated from position pos, and returns the
// position after the last frame written. An empty src fills dst with
// silence.
func (buf AudioBuffer) Loop(dst AudioBuffer, pos int) int {
	if len(buf) == 0 {
		dst.Fill([2]float32{})
		return 0
	}
	pos %= len(buf)
	for i := range dst {
		dst[i] = buf[pos]
		pos++
		if pos == len(buf) {
			pos = 0
		}
	}
	return pos
}
