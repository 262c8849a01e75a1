package engine

import "github.com/loopsmith/loopsmith/sequencer"

type (
	// Action describes a user action that can be performed on the model,
	// initiated by calling Do(). It is usually initiated by a command line
	// command, a MIDI binding or a render script. Action advertises whether
	// it is enabled, so a control surface can refuse it with a useful
	// message. The underlying Doer can optionally implement Enabler; if it
	// does not, the action is always allowed.
	Action struct {
		doer Doer
	}

	// Doer is an interface that defines a single Do() method, which is called
	// when an action is performed.
	Doer interface {
		Do()
	}

	// Enabler is an interface that defines a single Enabled() method, which
	// is used to check if an Action is enabled or not.
	Enabler interface {
		Enabled() bool
	}
)

// Action methods

func MakeAction(doer Doer) Action {
	return Action{doer: doer}
}

func (a Action) Do() {
	e, ok := a.doer.(Enabler)
	if ok && !e.Enabled() {
		return
	}
	if a.doer != nil {
		a.doer.Do()
	}
}

func (a Action) Enabled() bool {
	if a.doer == nil {
		return false // no doer, not allowed
	}
	e, ok := a.doer.(Enabler)
	if !ok {
		return true // not enabler, always allowed
	}
	return e.Enabled()
}

// track actions

type (
	toggleRecording trackRef
	togglePlayback  trackRef
	clearTrack      trackRef
	setVolume       struct {
		trackRef
		gain float32
	}
	setDryVolume struct {
		trackRef
		gain float32
	}
	toggleTrigger struct {
		trackRef
		step int
	}
	addLock struct {
		trackRef
		step  int
		id    sequencer.ParameterID
		value float32
	}
	removeLock struct {
		trackRef
		step int
		id   sequencer.ParameterID
	}

	trackRef struct {
		m     *Model
		track int
	}
)

func (m *Model) ToggleRecording(track int) Action {
	return MakeAction(toggleRecording{m, track})
}
func (a toggleRecording) Enabled() bool { return trackRef(a).valid() }
func (a toggleRecording) Do()           { a.m.co.ToggleRecording(a.track) }

func (m *Model) TogglePlayback(track int) Action {
	return MakeAction(togglePlayback{m, track})
}
func (a togglePlayback) Enabled() bool { return trackRef(a).valid() }
func (a togglePlayback) Do()           { a.m.co.TogglePlayback(a.track) }

func (m *Model) Clear(track int) Action { return MakeAction(clearTrack{m, track}) }
func (a clearTrack) Enabled() bool      { return trackRef(a).valid() }
func (a clearTrack) Do()                { a.m.co.Clear(a.track) }

func (m *Model) SetVolume(track int, gain float32) Action {
	return MakeAction(setVolume{trackRef{m, track}, gain})
}
func (a setVolume) Enabled() bool { return a.valid() && a.gain >= 0 }
func (a setVolume) Do()           { a.m.co.SetVolume(a.track, a.gain) }

func (m *Model) SetDryVolume(track int, gain float32) Action {
	return MakeAction(setDryVolume{trackRef{m, track}, gain})
}
func (a setDryVolume) Enabled() bool { return a.valid() && a.gain >= 0 }
func (a setDryVolume) Do()           { a.m.co.SetDryVolume(a.track, a.gain) }

func (m *Model) ToggleTrigger(track, step int) Action {
	return MakeAction(toggleTrigger{trackRef{m, track}, step})
}
func (a toggleTrigger) Enabled() bool { return a.valid() && a.validStep(a.step) }
func (a toggleTrigger) Do()           { a.m.co.ToggleTrigger(a.track, a.step) }

func (m *Model) AddLock(track, step int, id sequencer.ParameterID, value float32) Action {
	return MakeAction(addLock{trackRef{m, track}, step, id, value})
}
func (a addLock) Enabled() bool {
	if !a.valid() || a.id < 0 || a.id >= sequencer.NumParameters {
		return false
	}
	_, ok := a.m.co.TriggerModel(a.track).TriggerAt(a.step)
	return ok
}
func (a addLock) Do() { a.m.co.AddLock(a.track, a.step, a.id, a.value) }

func (m *Model) RemoveLock(track, step int, id sequencer.ParameterID) Action {
	return MakeAction(removeLock{trackRef{m, track}, step, id})
}
func (a removeLock) Enabled() bool { return a.valid() && a.validStep(a.step) }
func (a removeLock) Do()           { a.m.co.RemoveLock(a.track, a.step, a.id) }

func (r trackRef) valid() bool {
	return r.m != nil && r.track >= 0 && r.track < r.m.co.NumTracks()
}

func (r trackRef) validStep(step int) bool {
	return step >= 0 && step < r.m.co.TriggerModel(r.track).PatternLength()
}

// transport actions

type (
	play     Model
	pause    Model
	stop     Model
	setTempo struct {
		m   *Model
		bpm float64
	}
	setMasterGain struct {
		m    *Model
		gain float32
	}
	setMonitor struct {
		m    *Model
		gain float32
	}
)

func (m *Model) Play() Action  { return MakeAction((*play)(m)) }
func (m *play) Do()            { TrySend[any](m.broker.ToPlayer, PlayMsg{}) }
func (m *Model) Pause() Action { return MakeAction((*pause)(m)) }
func (m *pause) Do()           { TrySend[any](m.broker.ToPlayer, PauseMsg{}) }
func (m *Model) Stop() Action  { return MakeAction((*stop)(m)) }
func (m *stop) Do()            { TrySend[any](m.broker.ToPlayer, StopMsg{}) }

func (m *Model) SetTempo(bpm float64) Action { return MakeAction(setTempo{m, bpm}) }
func (a setTempo) Enabled() bool             { return a.bpm > 0 }
func (a setTempo) Do()                       { TrySend[any](a.m.broker.ToPlayer, TempoMsg{BPM: a.bpm}) }

func (m *Model) SetMasterGain(gain float32) Action { return MakeAction(setMasterGain{m, gain}) }
func (a setMasterGain) Enabled() bool              { return a.gain >= 0 }
func (a setMasterGain) Do()                        { TrySend[any](a.m.broker.ToPlayer, MasterGainMsg{Gain: a.gain}) }

func (m *Model) SetMonitorGain(gain float32) Action { return MakeAction(setMonitor{m, gain}) }
func (a setMonitor) Enabled() bool                  { return a.gain >= 0 }
func (a setMonitor) Do()                            { a.m.co.SetMonitorGain(a.gain) }
