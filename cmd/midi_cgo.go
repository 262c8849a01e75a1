//go:build cgo

package cmd

import (
	"github.com/loopsmith/loopsmith/control"
	"github.com/loopsmith/loopsmith/control/gomidi"
)

func NewMidiContext(handler control.Handler) control.MIDIContext {
	return gomidi.NewContext(handler)
}
