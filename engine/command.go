package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/loopsmith/loopsmith/sequencer"
	"gopkg.in/yaml.v3"
)

type (
	// Command is a serializable request to the model, produced by MIDI
	// bindings, the command line and render scripts. Which fields are used
	// depends on Kind.
	Command struct {
		Kind  CommandKind           `yaml:"action"`
		Track int                   `yaml:"track,omitempty"`
		Step  int                   `yaml:"step,omitempty"`
		Param sequencer.ParameterID `yaml:"-"`
		Value float64               `yaml:"value,omitempty"`
	}

	CommandKind int
)

const (
	CmdToggleRecording CommandKind = iota
	CmdTogglePlayback
	CmdClear
	CmdSetVolume
	CmdSetDryVolume
	CmdToggleTrigger
	CmdAddLock
	CmdRemoveLock
	CmdPlay
	CmdPause
	CmdStop
	CmdSetTempo
	CmdSetMasterGain
	CmdSetMonitorGain
	NumCommandKinds
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrCommandDisabled = errors.New("command not allowed")
)

var commandNames = [NumCommandKinds]string{
	"toggle_recording",
	"toggle_playback",
	"clear",
	"set_volume",
	"set_dry_volume",
	"toggle_trigger",
	"add_lock",
	"remove_lock",
	"play",
	"pause",
	"stop",
	"set_tempo",
	"set_master_gain",
	"set_monitor_gain",
}

func (k CommandKind) String() string {
	if k < 0 || k >= NumCommandKinds {
		return "unknown"
	}
	return commandNames[k]
}

// ParseCommandKind returns the kind whose String() is name. Hyphens are
// accepted in place of underscores.
func ParseCommandKind(name string) (CommandKind, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for i, cn := range commandNames {
		if n == cn {
			return CommandKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

func (k CommandKind) MarshalYAML() (any, error) {
	if k < 0 || k >= NumCommandKinds {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCommand, int(k))
	}
	return k.String(), nil
}

func (k *CommandKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	kind, err := ParseCommandKind(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*k = kind
	return nil
}

// UnmarshalYAML decodes a command, resolving the parameter name in the
// "param" field.
func (c *Command) UnmarshalYAML(value *yaml.Node) error {
	type plain Command
	var aux struct {
		plain `yaml:",inline"`
		Param string `yaml:"param"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	*c = Command(aux.plain)
	if aux.Param != "" {
		id, err := sequencer.ParseParameterID(aux.Param)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		c.Param = id
	}
	return nil
}

func (c Command) String() string {
	switch c.Kind {
	case CmdToggleRecording, CmdTogglePlayback, CmdClear:
		return fmt.Sprintf("%s track %d", c.Kind, c.Track+1)
	case CmdSetVolume, CmdSetDryVolume:
		return fmt.Sprintf("%s track %d to %.2f", c.Kind, c.Track+1, c.Value)
	case CmdToggleTrigger:
		return fmt.Sprintf("%s track %d step %d", c.Kind, c.Track+1, c.Step+1)
	case CmdAddLock:
		return fmt.Sprintf("%s track %d step %d %s=%.2f", c.Kind, c.Track+1, c.Step+1, c.Param, c.Value)
	case CmdRemoveLock:
		return fmt.Sprintf("%s track %d step %d %s", c.Kind, c.Track+1, c.Step+1, c.Param)
	case CmdSetTempo, CmdSetMasterGain, CmdSetMonitorGain:
		return fmt.Sprintf("%s %.2f", c.Kind, c.Value)
	}
	return c.Kind.String()
}
