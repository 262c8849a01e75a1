// Package control maps MIDI input to engine commands.
package control

import (
	"fmt"

	"github.com/loopsmith/loopsmith/config"
	"github.com/loopsmith/loopsmith/engine"
	"github.com/loopsmith/loopsmith/sequencer"
	"gitlab.com/gomidi/midi/v2"
)

type (
	// Bindings translates MIDI messages into commands according to the
	// bindings of a config. HandleMessage may be called from the MIDI driver
	// goroutine; the commands are delivered on the channel returned by
	// Commands and dropped if it is full.
	Bindings struct {
		notes    map[key][]binding
		controls map[key][]binding
		commands chan engine.Command
	}

	key struct {
		channel, number uint8
	}

	binding struct {
		cmd    engine.Command
		lo, hi float64
	}
)

// NewBindings resolves the action names and parameters of bs. It fails on
// the first binding that does not name a known command or parameter.
func NewBindings(bs []config.Binding) (*Bindings, error) {
	b := &Bindings{
		notes:    map[key][]binding{},
		controls: map[key][]binding{},
		commands: make(chan engine.Command, 256),
	}
	for i, cb := range bs {
		kind, err := engine.ParseCommandKind(cb.Action)
		if err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
		bd := binding{cmd: engine.Command{Kind: kind, Track: cb.Track, Step: cb.Step, Value: cb.Value}}
		if cb.Param != "" {
			if bd.cmd.Param, err = sequencer.ParseParameterID(cb.Param); err != nil {
				return nil, fmt.Errorf("binding %d: %w", i, err)
			}
		}
		bd.lo, bd.hi = cb.Range()
		k := key{cb.Channel, cb.Number}
		switch cb.Kind {
		case config.NoteBinding:
			b.notes[k] = append(b.notes[k], bd)
		case config.ControllerBinding:
			b.controls[k] = append(b.controls[k], bd)
		default:
			return nil, fmt.Errorf("binding %d: unknown kind %q", i, cb.Kind)
		}
	}
	return b, nil
}

// Commands returns the channel the resolved commands are sent to.
func (b *Bindings) Commands() <-chan engine.Command { return b.commands }

// Len returns the number of bindings.
func (b *Bindings) Len() int {
	n := 0
	for _, v := range b.notes {
		n += len(v)
	}
	for _, v := range b.controls {
		n += len(v)
	}
	return n
}

// HandleMessage has the signature of a gomidi listener. Note ons with a
// non-zero velocity trigger note bindings; controller changes trigger
// controller bindings with the value scaled to the binding range.
func (b *Bindings) HandleMessage(msg midi.Message, timestampms int32) {
	var channel, number, value uint8
	switch {
	case msg.GetNoteOn(&channel, &number, &value):
		if value == 0 {
			return
		}
		for _, bd := range b.notes[key{channel, number}] {
			engine.TrySend(b.commands, bd.cmd)
		}
	case msg.GetControlChange(&channel, &number, &value):
		for _, bd := range b.controls[key{channel, number}] {
			cmd := bd.cmd
			cmd.Value = bd.lo + float64(value)*(bd.hi-bd.lo)/127
			engine.TrySend(b.commands, cmd)
		}
	}
}
