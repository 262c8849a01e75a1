package sequencer

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

type (
	// ParameterID names a track parameter that a trigger can lock.
	ParameterID int

	// Trigger is one step of a pattern. Locks override track parameters
	// while the trigger's step is under the playhead. A published Trigger is
	// never mutated: edits clone the Locks map.
	Trigger struct {
		Step  int
		Beats float64
		Locks map[ParameterID]float32
	}

	// Pattern is an immutable snapshot of a track's triggers, sorted by step
	// with at most one trigger per step.
	Pattern struct {
		Length    int
		StepBeats float64
		Triggers  []Trigger
	}
)

const (
	ParamVolume ParameterID = iota
	ParamDryVolume
	NumParameters
)

var parameterNames = [NumParameters]string{"volume", "dry volume"}

func (p ParameterID) String() string {
	if p < 0 || p >= NumParameters {
		return "unknown"
	}
	return parameterNames[p]
}

var ErrUnknownParameter = errors.New("unknown parameter")

// ParseParameterID accepts the parameter names returned by String, with
// underscores or hyphens in place of spaces, and "dry" for ParamDryVolume.
func ParseParameterID(name string) (ParameterID, error) {
	n := strings.ToLower(strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(name)))
	if n == "dry" {
		return ParamDryVolume, nil
	}
	for i, pn := range parameterNames {
		if n == pn {
			return ParameterID(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
}

// Lock returns the locked value of id, if the trigger has one.
func (t Trigger) Lock(id ParameterID) (float32, bool) {
	v, ok := t.Locks[id]
	return v, ok
}

// Span returns the pattern duration in beats.
func (p *Pattern) Span() float64 {
	return float64(p.Length) * p.StepBeats
}

// ActiveStep returns the step containing beats, wrapping at the pattern
// span, or -1 for a degenerate pattern.
func (p *Pattern) ActiveStep(beats float64) int {
	span := p.Span()
	if p.Length <= 0 || p.StepBeats <= 0 || math.IsNaN(beats) || math.IsInf(beats, 0) {
		return -1
	}
	m := math.Mod(beats, span)
	if m < 0 {
		m += span
	}
	step := int(math.Floor(m / p.StepBeats))
	return min(step, p.Length-1)
}

// At returns the index of the trigger at step in p.Triggers.
func (p *Pattern) At(step int) (int, bool) {
	return slices.BinarySearchFunc(p.Triggers, step, func(t Trigger, s int) int { return t.Step - s })
}

func (p *Pattern) clone() Pattern {
	return Pattern{Length: p.Length, StepBeats: p.StepBeats, Triggers: slices.Clone(p.Triggers)}
}

func (p *Pattern) validStep(step int) bool {
	return step >= 0 && step < p.Length
}

func cloneLocks(m map[ParameterID]float32) map[ParameterID]float32 {
	ret := make(map[ParameterID]float32, len(m)+1)
	for k, v := range m {
		ret[k] = v
	}
	return ret
}
