// Package gomidi implements control.MIDIContext on the rtmidi driver. It
// needs cgo.
package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/loopsmith/loopsmith/control"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	RTMIDIContext struct {
		driver             *rtmididrv.Driver
		handler            control.Handler
		currentIn          drivers.In
		stop               func()
		inputDevices       []RTMIDIDevice
		devicesInitialized bool
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		in      drivers.In
	}
)

var (
	ErrNoDriver = errors.New("no MIDI driver available")
	ErrNoDevice = errors.New("no matching MIDI input")
)

// NewContext opens the driver. Messages from the opened input are passed to
// handler on the driver's goroutine.
func NewContext(handler control.Handler) *RTMIDIContext {
	m := RTMIDIContext{handler: handler}
	// a nil driver means no MIDI; every device operation then fails with
	// ErrNoDriver
	m.driver, _ = rtmididrv.New()
	return &m
}

func (m *RTMIDIContext) InputDevices(yield func(control.MIDIDevice) bool) {
	if !m.devicesInitialized {
		m.initInputDevices()
	}
	for _, device := range m.inputDevices {
		if !yield(device) {
			break
		}
	}
}

func (m *RTMIDIContext) initInputDevices() {
	if m.driver == nil {
		return
	}
	ins, err := m.driver.Ins()
	if err != nil {
		return
	}
	for _, in := range ins {
		m.inputDevices = append(m.inputDevices, RTMIDIDevice{context: m, in: in})
	}
	m.devicesInitialized = true
}

// Open opens the input device, closing the currently open one if
// necessary.
func (d RTMIDIDevice) Open() error {
	c := d.context
	if c.currentIn == d.in {
		return nil
	}
	if c.driver == nil {
		return ErrNoDriver
	}
	c.closeCurrent()
	if err := d.in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input %s failed: %w", d.in, err)
	}
	stop, err := midi.ListenTo(d.in, c.handle)
	if err != nil {
		d.in.Close()
		return fmt.Errorf("listening to MIDI input %s failed: %w", d.in, err)
	}
	c.currentIn, c.stop = d.in, stop
	return nil
}

func (d RTMIDIDevice) String() string {
	return d.in.String()
}

func (c *RTMIDIContext) handle(msg midi.Message, timestampms int32) {
	if c.handler != nil {
		c.handler(msg, timestampms)
	}
}

func (c *RTMIDIContext) closeCurrent() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.currentIn = nil
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	c.closeCurrent()
	c.driver.Close()
}

func (c *RTMIDIContext) HasDeviceOpen() bool {
	return c.currentIn != nil && c.currentIn.IsOpen()
}

func (c *RTMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) error {
	if namePrefix == "" && !takeFirst {
		return nil
	}
	if c.driver == nil {
		return ErrNoDriver
	}
	prefix := strings.ToLower(namePrefix)
	for input := range c.InputDevices {
		if takeFirst || strings.HasPrefix(strings.ToLower(input.String()), prefix) {
			return input.Open()
		}
	}
	if takeFirst {
		return ErrNoDevice
	}
	return fmt.Errorf("%w: no input starting with %q", ErrNoDevice, namePrefix)
}
