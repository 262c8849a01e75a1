// Package config loads the settings of a looper session from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	Config struct {
		SampleRate      float64       `yaml:"sample_rate"`
		MaxLoopSeconds  float64       `yaml:"max_loop_seconds"`
		Tracks          int           `yaml:"tracks"`
		DrainInterval   time.Duration `yaml:"drain_interval"`
		RetireQueueSize int           `yaml:"retire_queue_size"`
		Pattern         Pattern       `yaml:"pattern"`
		Tempo           Tempo         `yaml:"tempo"`
		MasterGain      float64       `yaml:"master_gain"`
		MonitorGain     float64       `yaml:"monitor_gain"`
		MIDI            MIDI          `yaml:"midi"`
	}

	Pattern struct {
		Steps     int     `yaml:"steps"`
		StepBeats float64 `yaml:"step_beats"`
	}

	// Tempo bounds the tempo detected from the first recorded loop.
	Tempo struct {
		Min         float64 `yaml:"min"`
		Max         float64 `yaml:"max"`
		BeatsPerBar int     `yaml:"beats_per_bar"`
	}

	MIDI struct {
		// Input is a case-insensitive prefix of the input device name. Empty
		// means no MIDI input.
		Input    string    `yaml:"input"`
		Bindings []Binding `yaml:"bindings"`
	}

	// Binding maps a MIDI note or controller to an action. For controller
	// bindings, the controller value 0..127 is mapped linearly to Min..Max
	// and passed as the action value; note bindings pass Value.
	Binding struct {
		Kind    BindingKind `yaml:"kind"`
		Channel uint8       `yaml:"channel"`
		Number  uint8       `yaml:"number"`
		Action  string      `yaml:"action"`
		Track   int         `yaml:"track"`
		Step    int         `yaml:"step,omitempty"`
		Param   string      `yaml:"param,omitempty"`
		Value   float64     `yaml:"value,omitempty"`
		Min     float64     `yaml:"min,omitempty"`
		Max     float64     `yaml:"max,omitempty"`
	}

	BindingKind string
)

const (
	NoteBinding       BindingKind = "note"
	ControllerBinding BindingKind = "cc"
)

var ErrInvalidConfig = errors.New("invalid config")

// Default returns the settings used for every key missing from a config
// file.
func Default() Config {
	return Config{
		SampleRate:      44100,
		MaxLoopSeconds:  60,
		Tracks:          4,
		DrainInterval:   10 * time.Millisecond,
		RetireQueueSize: 1024,
		Pattern:         Pattern{Steps: 16, StepBeats: 0.25},
		Tempo:           Tempo{Min: 80, Max: 160, BeatsPerBar: 4},
		MasterGain:      1,
		MonitorGain:     1,
	}
}

// Load reads and validates the config file at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c, err := Read(bytes.NewReader(b))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Read decodes a config on top of Default and validates it. An empty
// document yields the defaults.
func Read(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks that every setting is in range. The returned error wraps
// ErrInvalidConfig and names the first offending key.
func (c *Config) Validate() error {
	switch {
	case !positive(c.SampleRate):
		return invalid("sample_rate", c.SampleRate)
	case !positive(c.MaxLoopSeconds):
		return invalid("max_loop_seconds", c.MaxLoopSeconds)
	case c.Tracks <= 0:
		return invalid("tracks", c.Tracks)
	case c.DrainInterval <= 0:
		return invalid("drain_interval", c.DrainInterval)
	case c.RetireQueueSize <= 0:
		return invalid("retire_queue_size", c.RetireQueueSize)
	case c.Pattern.Steps <= 0:
		return invalid("pattern.steps", c.Pattern.Steps)
	case !positive(c.Pattern.StepBeats):
		return invalid("pattern.step_beats", c.Pattern.StepBeats)
	case !positive(c.Tempo.Min):
		return invalid("tempo.min", c.Tempo.Min)
	case !positive(c.Tempo.Max) || c.Tempo.Max < 2*c.Tempo.Min:
		return fmt.Errorf("%w: tempo.max must be at least twice tempo.min, got %v and %v", ErrInvalidConfig, c.Tempo.Max, c.Tempo.Min)
	case c.Tempo.BeatsPerBar <= 0:
		return invalid("tempo.beats_per_bar", c.Tempo.BeatsPerBar)
	case c.MasterGain < 0 || math.IsNaN(c.MasterGain):
		return invalid("master_gain", c.MasterGain)
	case c.MonitorGain < 0 || math.IsNaN(c.MonitorGain):
		return invalid("monitor_gain", c.MonitorGain)
	}
	for i, b := range c.MIDI.Bindings {
		if err := b.validate(c.Tracks); err != nil {
			return fmt.Errorf("midi.bindings[%d]: %w", i, err)
		}
	}
	return nil
}

func (b *Binding) validate(tracks int) error {
	switch {
	case b.Kind != NoteBinding && b.Kind != ControllerBinding:
		return fmt.Errorf("%w: kind must be %q or %q, got %q", ErrInvalidConfig, NoteBinding, ControllerBinding, b.Kind)
	case b.Channel > 15:
		return invalid("channel", b.Channel)
	case b.Number > 127:
		return invalid("number", b.Number)
	case b.Action == "":
		return fmt.Errorf("%w: action is missing", ErrInvalidConfig)
	case b.Track < 0 || b.Track >= tracks:
		return invalid("track", b.Track)
	case b.Step < 0:
		return invalid("step", b.Step)
	}
	return nil
}

// Range returns the output range of a controller binding; an unset range
// is 0..1.
func (b *Binding) Range() (lo, hi float64) {
	if b.Min == 0 && b.Max == 0 {
		return 0, 1
	}
	return b.Min, b.Max
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func invalid(key string, v any) error {
	return fmt.Errorf("%w: %s = %v", ErrInvalidConfig, key, v)
}
