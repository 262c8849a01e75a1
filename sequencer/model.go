// Package sequencer holds the per-track step pattern of triggers and finds
// the trigger under a musical position.
//
// Patterns are copy-on-write: every edit clones the pattern, changes the
// copy and installs it into a reclaim.Cell. The audio goroutine pins the
// current pattern for the duration of a lookup and never sees a partial
// edit.
package sequencer

import (
	"slices"
	"sync"

	"github.com/loopsmith/loopsmith/reclaim"
)

type (
	// TrackTriggerModel is the pattern of one track. Edits may come from any
	// number of control goroutines; lookups are safe on the audio goroutine.
	TrackTriggerModel struct {
		mu        sync.Mutex // serializes writers
		collector *reclaim.Collector
		pattern   *reclaim.Cell[Pattern]
	}

	// StepTracker remembers the last step a track has entered, so that a
	// trigger fires once per visit of its step. The zero value is ready to
	// use. It is owned by the audio goroutine.
	StepTracker struct {
		last  int
		valid bool
	}
)

// NewTrackTriggerModel returns an empty pattern of steps steps, each
// stepBeats beats long. Non-positive arguments fall back to 16 steps of a
// sixteenth note.
func NewTrackTriggerModel(c *reclaim.Collector, steps int, stepBeats float64) *TrackTriggerModel {
	if steps <= 0 {
		steps = 16
	}
	if stepBeats <= 0 {
		stepBeats = 0.25
	}
	p := Pattern{Length: steps, StepBeats: stepBeats}
	return &TrackTriggerModel{
		collector: c,
		pattern:   reclaim.NewCell(reclaim.NewShared(c, p, nil)),
	}
}

// edit runs f on a copy of the current pattern and publishes the copy if f
// returns true.
func (m *TrackTriggerModel) edit(f func(p *Pattern) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.pattern.Load().clone()
	if !f(&next) {
		return
	}
	m.pattern.Replace(reclaim.NewShared(m.collector, next, nil))
}

// ToggleTrigger removes the trigger at step, or adds a trigger without locks
// if there is none. Steps outside the pattern are ignored.
func (m *TrackTriggerModel) ToggleTrigger(step int) {
	m.edit(func(p *Pattern) bool {
		if !p.validStep(step) {
			return false
		}
		i, found := p.At(step)
		if found {
			p.Triggers = slices.Delete(p.Triggers, i, i+1)
		} else {
			p.Triggers = slices.Insert(p.Triggers, i, Trigger{Step: step, Beats: float64(step) * p.StepBeats})
		}
		return true
	})
}

// AddLock sets the value of id on the trigger at step. It does nothing if
// there is no trigger at step.
func (m *TrackTriggerModel) AddLock(step int, id ParameterID, value float32) {
	m.edit(func(p *Pattern) bool {
		i, found := p.At(step)
		if !found || id < 0 || id >= NumParameters {
			return false
		}
		locks := cloneLocks(p.Triggers[i].Locks)
		locks[id] = value
		p.Triggers[i].Locks = locks
		return true
	})
}

// RemoveLock removes the lock on id from the trigger at step.
func (m *TrackTriggerModel) RemoveLock(step int, id ParameterID) {
	m.edit(func(p *Pattern) bool {
		i, found := p.At(step)
		if !found {
			return false
		}
		if _, ok := p.Triggers[i].Locks[id]; !ok {
			return false
		}
		locks := cloneLocks(p.Triggers[i].Locks)
		delete(locks, id)
		p.Triggers[i].Locks = locks
		return true
	})
}

// SetTriggers replaces the whole pattern content. Triggers outside the
// pattern are dropped; when several triggers share a step the last one in
// triggers wins. Beats are recomputed from the step.
func (m *TrackTriggerModel) SetTriggers(triggers []Trigger) {
	m.edit(func(p *Pattern) bool {
		byStep := make(map[int]Trigger, len(triggers))
		for _, t := range triggers {
			if !p.validStep(t.Step) {
				continue
			}
			t.Beats = float64(t.Step) * p.StepBeats
			t.Locks = cloneLocks(t.Locks)
			byStep[t.Step] = t
		}
		p.Triggers = make([]Trigger, 0, len(byStep))
		for _, t := range byStep {
			p.Triggers = append(p.Triggers, t)
		}
		slices.SortFunc(p.Triggers, func(a, b Trigger) int { return a.Step - b.Step })
		return true
	})
}

// SetPatternLength changes the number of steps. Triggers beyond the new
// length are kept but never fire until the pattern grows again.
func (m *TrackTriggerModel) SetPatternLength(steps int) {
	m.edit(func(p *Pattern) bool {
		if steps <= 0 || steps == p.Length {
			return false
		}
		p.Length = steps
		return true
	})
}

// SetStepBeats changes the step duration in beats.
func (m *TrackTriggerModel) SetStepBeats(beats float64) {
	m.edit(func(p *Pattern) bool {
		if beats <= 0 || beats == p.StepBeats {
			return false
		}
		p.StepBeats = beats
		for i := range p.Triggers {
			p.Triggers[i].Beats = float64(p.Triggers[i].Step) * beats
		}
		return true
	})
}

// Snapshot returns a counted reference to the current pattern. The caller
// must Drop it.
func (m *TrackTriggerModel) Snapshot() reclaim.Shared[Pattern] {
	return m.pattern.Get()
}

func (m *TrackTriggerModel) PatternLength() int {
	s := m.pattern.Get()
	defer s.Drop()
	return s.Get().Length
}

func (m *TrackTriggerModel) StepBeats() float64 {
	s := m.pattern.Get()
	defer s.Drop()
	return s.Get().StepBeats
}

// Triggers returns a copy of the triggers of the current pattern, sorted by
// step.
func (m *TrackTriggerModel) Triggers() []Trigger {
	s := m.pattern.Get()
	defer s.Drop()
	return slices.Clone(s.Get().Triggers)
}

// TriggerAt returns the trigger at step, if any.
func (m *TrackTriggerModel) TriggerAt(step int) (Trigger, bool) {
	s := m.pattern.Get()
	defer s.Drop()
	p := s.Get()
	i, found := p.At(step)
	if !found {
		return Trigger{}, false
	}
	return p.Triggers[i], true
}

// FindRunningBeatTrigger returns the trigger of the step containing beats,
// if that step has one. It does not allocate.
func (m *TrackTriggerModel) FindRunningBeatTrigger(beats float64) (Trigger, bool) {
	s := m.pattern.Get()
	defer s.Drop()
	p := s.Get()
	step := p.ActiveStep(beats)
	if step < 0 {
		return Trigger{}, false
	}
	i, found := p.At(step)
	if !found {
		return Trigger{}, false
	}
	return p.Triggers[i], true
}

// FindCurrentBeatTrigger returns the trigger of the step containing beats
// only when that step was just entered: calling it again while beats stays
// within the same step returns nothing. It does not allocate.
func (m *TrackTriggerModel) FindCurrentBeatTrigger(tracker *StepTracker, beats float64) (Trigger, bool) {
	s := m.pattern.Get()
	defer s.Drop()
	p := s.Get()
	step := p.ActiveStep(beats)
	if step < 0 {
		tracker.Reset()
		return Trigger{}, false
	}
	if tracker.valid && tracker.last == step {
		return Trigger{}, false
	}
	tracker.last, tracker.valid = step, true
	i, found := p.At(step)
	if !found {
		return Trigger{}, false
	}
	return p.Triggers[i], true
}

// Close releases the current pattern. The model must not be used
// afterwards.
func (m *TrackTriggerModel) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pattern.Close()
}

// Reset forgets the last entered step, so the next lookup fires the step
// under the playhead again. Call it when the transport stops.
func (t *StepTracker) Reset() {
	t.last, t.valid = 0, false
}

// Step returns the last entered step, or -1 if there is none.
func (t *StepTracker) Step() int {
	if !t.valid {
		return -1
	}
	return t.last
}
