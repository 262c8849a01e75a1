package control

import "gitlab.com/gomidi/midi/v2"

type (
	// MIDIContext gives access to the MIDI input devices of the system.
	// Messages from the open device are passed to the handler given when the
	// context was created.
	MIDIContext interface {
		InputDevices(yield func(MIDIDevice) bool)
		// TryToOpenBy opens the first input device whose name starts with
		// namePrefix, or the first device at all if takeFirst is true.
		TryToOpenBy(namePrefix string, takeFirst bool) error
		HasDeviceOpen() bool
		Close()
	}

	MIDIDevice interface {
		String() string
		Open() error
	}

	// Handler receives MIDI messages, e.g. (*Bindings).HandleMessage.
	Handler func(msg midi.Message, timestampms int32)

	NullMIDIContext struct{}
)

func (NullMIDIContext) InputDevices(yield func(MIDIDevice) bool) {}

func (NullMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) error { return nil }

func (NullMIDIContext) HasDeviceOpen() bool { return false }

func (NullMIDIContext) Close() {}
