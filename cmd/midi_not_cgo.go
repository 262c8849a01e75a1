//go:build !cgo

package cmd

import (
	"github.com/loopsmith/loopsmith/control"
)

func NewMidiContext(handler control.Handler) control.MIDIContext {
	// with no cgo, we cannot use MIDI, so return a null context
	return control.NullMIDIContext{}
}
