// Package render runs an engine offline: an input signal and a script of
// timed commands produce an output signal and a summary.
package render

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/loopsmith/loopsmith/engine"
	"gopkg.in/yaml.v3"
)

type (
	// Script is a list of commands and the times they are given at. Length
	// is the duration of the render in seconds; zero means the length of the
	// input.
	Script struct {
		Length float64 `yaml:"length"`
		Events []Event `yaml:"events"`
	}

	// Event is a command given At seconds into the render.
	Event struct {
		At      float64
		Command engine.Command
	}
)

var ErrInvalidScript = errors.New("invalid script")

func (ev *Event) UnmarshalYAML(value *yaml.Node) error {
	var at struct {
		At float64 `yaml:"at"`
	}
	if err := value.Decode(&at); err != nil {
		return err
	}
	if err := value.Decode(&ev.Command); err != nil {
		return err
	}
	ev.At = at.At
	return nil
}

// ReadScript decodes a script and sorts its events by time, keeping the
// order of simultaneous events.
func ReadScript(r io.Reader) (Script, error) {
	var s Script
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return Script{}, fmt.Errorf("ReadScript failed: %w", err)
	}
	if s.Length < 0 {
		return Script{}, fmt.Errorf("%w: negative length %v", ErrInvalidScript, s.Length)
	}
	for i, ev := range s.Events {
		if ev.At < 0 {
			return Script{}, fmt.Errorf("%w: event %d at %v s", ErrInvalidScript, i+1, ev.At)
		}
	}
	slices.SortStableFunc(s.Events, func(a, b Event) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		}
		return 0
	})
	return s, nil
}
