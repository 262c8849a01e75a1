package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/loopsmith/loopsmith/config"
)

func TestDefaultIsValid(t *testing.T) {
	c := config.Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
}

func TestReadEmptyYieldsDefaults(t *testing.T) {
	c, err := config.Read(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if c.Tracks != config.Default().Tracks || c.SampleRate != config.Default().SampleRate {
		t.Errorf("empty config = %+v, want defaults", c)
	}
}

func TestReadOverridesDefaults(t *testing.T) {
	const doc = `
sample_rate: 48000
tracks: 8
drain_interval: 25ms
pattern:
  steps: 32
tempo:
  min: 90
  max: 180
midi:
  input: launch
  bindings:
    - kind: note
      channel: 0
      number: 36
      action: toggle_recording
      track: 2
    - kind: cc
      channel: 1
      number: 7
      action: set_volume
      track: 0
      max: 2
`
	c, err := config.Read(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if c.SampleRate != 48000 || c.Tracks != 8 {
		t.Errorf("sample rate %v, tracks %d", c.SampleRate, c.Tracks)
	}
	if c.DrainInterval != 25*time.Millisecond {
		t.Errorf("drain interval = %v, want 25ms", c.DrainInterval)
	}
	if c.Pattern.Steps != 32 || c.Pattern.StepBeats != 0.25 {
		t.Errorf("pattern = %+v, want 32 steps of the default length", c.Pattern)
	}
	if c.Tempo.BeatsPerBar != 4 {
		t.Errorf("beats per bar = %d, want the default 4", c.Tempo.BeatsPerBar)
	}
	if len(c.MIDI.Bindings) != 2 {
		t.Fatalf("got %d bindings, want 2", len(c.MIDI.Bindings))
	}
	b := c.MIDI.Bindings[1]
	if b.Kind != config.ControllerBinding || b.Number != 7 || b.Action != "set_volume" {
		t.Errorf("binding = %+v", b)
	}
	if lo, hi := b.Range(); lo != 0 || hi != 2 {
		t.Errorf("Range() = %v, %v; want 0, 2", lo, hi)
	}
	if lo, hi := c.MIDI.Bindings[0].Range(); lo != 0 || hi != 1 {
		t.Errorf("default Range() = %v, %v; want 0, 1", lo, hi)
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(c *config.Config)
	}{
		{"zero sample rate", func(c *config.Config) { c.SampleRate = 0 }},
		{"negative loop length", func(c *config.Config) { c.MaxLoopSeconds = -1 }},
		{"no tracks", func(c *config.Config) { c.Tracks = 0 }},
		{"zero drain interval", func(c *config.Config) { c.DrainInterval = 0 }},
		{"zero queue", func(c *config.Config) { c.RetireQueueSize = 0 }},
		{"zero steps", func(c *config.Config) { c.Pattern.Steps = 0 }},
		{"zero step beats", func(c *config.Config) { c.Pattern.StepBeats = 0 }},
		{"narrow tempo range", func(c *config.Config) { c.Tempo.Min, c.Tempo.Max = 100, 150 }},
		{"negative gain", func(c *config.Config) { c.MasterGain = -0.5 }},
		{"bad binding kind", func(c *config.Config) {
			c.MIDI.Bindings = []config.Binding{{Kind: "pitchbend", Action: "clear"}}
		}},
		{"binding track out of range", func(c *config.Config) {
			c.MIDI.Bindings = []config.Binding{{Kind: config.NoteBinding, Action: "clear", Track: c.Tracks}}
		}},
		{"binding without action", func(c *config.Config) {
			c.MIDI.Bindings = []config.Binding{{Kind: config.NoteBinding}}
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := config.Default()
			tc.modify(&c)
			if err := c.Validate(); !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestReadRejectsUnknownKeys(t *testing.T) {
	if _, err := config.Read(strings.NewReader("trakcs: 3\n")); err == nil {
		t.Error("misspelled key was accepted")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loopsmith.yml")
	if err := os.WriteFile(path, []byte("tracks: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := config.Load(path)
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("Load = %v, want ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error %q does not name the file", err)
	}
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load of a missing file = %v, want os.ErrNotExist", err)
	}
}
