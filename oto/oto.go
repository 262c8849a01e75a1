// Package oto plays audio through the system output with oto.
package oto

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/loopsmith/loopsmith"
)

type (
	OtoContext struct {
		ctx *oto.Context
	}

	// OtoOutput pulls audio from an AudioSource whenever oto asks for more.
	OtoOutput struct {
		source loopsmith.AudioSource
		player *oto.Player
		buf    loopsmith.AudioBuffer

		once sync.Once
		done chan struct{}
		err  error
	}
)

const bytesPerFrame = 8 // two float32 channels

// NewContext opens the default output device at sampleRate, stereo float32,
// and waits for it to become ready.
func NewContext(sampleRate int) (*OtoContext, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{ctx: ctx}, nil
}

// Play starts pulling audio from f.
func (c *OtoContext) Play(f loopsmith.AudioSource) loopsmith.CloserWaiter {
	o := NewOutput(f)
	o.player = c.ctx.NewPlayer(o)
	o.player.Play()
	return o
}

// Suspend pauses the output device of every player.
func (c *OtoContext) Suspend() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// NewOutput returns an io.Reader of float32 little endian stereo frames
// rendered by f. Play wires it to an oto player.
func NewOutput(f loopsmith.AudioSource) *OtoOutput {
	return &OtoOutput{source: f, done: make(chan struct{})}
}

func (o *OtoOutput) Read(p []byte) (int, error) {
	select {
	case <-o.done:
		return 0, io.EOF
	default:
	}
	frames := len(p) / bytesPerFrame
	if cap(o.buf) < frames {
		o.buf = make(loopsmith.AudioBuffer, frames)
	}
	o.buf = o.buf[:frames]
	if err := o.source(o.buf); err != nil {
		o.finish(err)
		return 0, io.EOF
	}
	n := len(FloatBufferToLE(o.buf, p[:0]))
	clear(p[n:])
	return len(p), nil
}

// Close stops the player. It returns the error from the source, if it
// stopped playback first.
func (o *OtoOutput) Close() error {
	o.finish(nil)
	if o.player != nil {
		if err := o.player.Close(); err != nil {
			return fmt.Errorf("cannot close oto player: %w", err)
		}
	}
	return o.Wait()
}

// Wait blocks until the output is closed or the source returns an error.
// io.EOF from the source is not reported.
func (o *OtoOutput) Wait() error {
	<-o.done
	if errors.Is(o.err, io.EOF) {
		return nil
	}
	return o.err
}

func (o *OtoOutput) finish(err error) {
	o.once.Do(func() {
		o.err = err
		close(o.done)
	})
}
