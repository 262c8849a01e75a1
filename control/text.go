package control

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/loopsmith/loopsmith/engine"
	"github.com/loopsmith/loopsmith/sequencer"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrSyntax = errors.New("syntax error")

type verb struct {
	kind engine.CommandKind
	args string // t: track, s: step, p: parameter, v: value
}

// Track and step numbers are 1-based on the command line.
var verbs = map[string]verb{
	"rec":     {engine.CmdToggleRecording, "t"},
	"play":    {engine.CmdTogglePlayback, "t"},
	"clear":   {engine.CmdClear, "t"},
	"vol":     {engine.CmdSetVolume, "tv"},
	"dry":     {engine.CmdSetDryVolume, "tv"},
	"trig":    {engine.CmdToggleTrigger, "ts"},
	"lock":    {engine.CmdAddLock, "tspv"},
	"unlock":  {engine.CmdRemoveLock, "tsp"},
	"start":   {engine.CmdPlay, ""},
	"pause":   {engine.CmdPause, ""},
	"stop":    {engine.CmdStop, ""},
	"tempo":   {engine.CmdSetTempo, "v"},
	"gain":    {engine.CmdSetMasterGain, "v"},
	"monitor": {engine.CmdSetMonitorGain, "v"},
}

// ParseLine parses a command typed by the user, e.g. "rec 1" or
// "lock 2 5 volume 0.5". Command names of engine.CommandKind are accepted
// too, with the same arguments as their short form.
func ParseLine(line string) (engine.Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return engine.Command{}, fmt.Errorf("%w: empty command", ErrSyntax)
	}
	v, ok := verbs[strings.ToLower(fields[0])]
	if !ok {
		kind, err := engine.ParseCommandKind(fields[0])
		if err != nil {
			return engine.Command{}, err
		}
		for _, cand := range verbs {
			if cand.kind == kind {
				v = cand
			}
		}
	}
	args := fields[1:]
	if len(args) != len(v.args) {
		return engine.Command{}, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrSyntax, fields[0], len(v.args), len(args))
	}
	cmd := engine.Command{Kind: v.kind}
	for i, a := range v.args {
		var err error
		switch a {
		case 't':
			cmd.Track, err = index(args[i])
		case 's':
			cmd.Step, err = index(args[i])
		case 'p':
			cmd.Param, err = sequencer.ParseParameterID(args[i])
		case 'v':
			cmd.Value, err = strconv.ParseFloat(args[i], 64)
		}
		if err != nil {
			return engine.Command{}, fmt.Errorf("%w: argument %d of %s: %w", ErrSyntax, i+1, fields[0], err)
		}
	}
	return cmd, nil
}

func index(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("%d is not a positive number", n)
	}
	return n - 1, nil
}

// WriteStatus prints the transport and one line per track.
func WriteStatus(w io.Writer, s engine.PlayerStatus, m engine.MeterResult) {
	title := cases.Title(language.English)
	transport := "stopped"
	if s.Time.Playing {
		transport = "playing"
	}
	fmt.Fprintf(w, "%s", title.String(transport))
	if s.Time.TempoValid {
		fmt.Fprintf(w, " at %.1f BPM", s.Time.Tempo)
	}
	if s.Time.BeatsValid {
		fmt.Fprintf(w, ", beat %.2f", s.Time.PositionBeats+1)
	}
	fmt.Fprintf(w, ", peak %.1f dB\n", engine.Decibels(max(m.Peak[0], m.Peak[1])))
	for i := 0; i < s.NumTracks; i++ {
		t := s.Tracks[i]
		fmt.Fprintf(w, "%2d %-12s %8d samples %5.1f%% vol %.2f\n", i+1, title.String(t.State.String()), t.NumSamples, 100*t.Percent, t.Volume)
	}
}
