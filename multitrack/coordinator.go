// Package multitrack coordinates several looper tracks that share one
// transport clock.
//
// The Coordinator is the only place where tracks affect each other: the
// first loop recorded into an empty session sets the tempo and starts the
// transport, and clearing the last loop stops it. It also runs each track's
// step sequencer against the transport and applies parameter locks.
package multitrack

import (
	"math"
	"sync/atomic"

	"github.com/loopsmith/loopsmith/looper"
	"github.com/loopsmith/loopsmith/playhead"
	"github.com/loopsmith/loopsmith/reclaim"
	"github.com/loopsmith/loopsmith/sequencer"
)

type (
	// Coordinator owns the tracks of a session. Process and AfterProcess
	// must be called by the audio goroutine; control methods may be called
	// from any goroutine and silently ignore out-of-range track indices.
	Coordinator struct {
		provider  playhead.Provider
		tracks    []*track
		estimator TempoEstimator
		onEvent   func(Event)
		monitor   atomic.Uint32

		sampleRate float64
		maxLoop    float64
	}

	track struct {
		handle   *looper.Handle
		triggers *sequencer.TrackTriggerModel
		steps    sequencer.StepTracker
		prev     looper.State // audio goroutine only
	}

	Options struct {
		Tracks         int
		MaxLoopSeconds float64
		PatternSteps   int
		StepBeats      float64
		// Estimator defaults to DefaultEstimator.
		Estimator TempoEstimator
		// OnEvent, if set, is called on the audio goroutine and must not
		// block.
		OnEvent func(Event)
	}

	Event struct {
		Kind  EventKind
		Track int
		Step  int
		Tempo float64
	}

	EventKind int
)

const (
	TempoDetected EventKind = iota
	TransportStopped
	RecordingCapped
	TriggerFired
	NumEventKinds
)

var eventKindNames = [NumEventKinds]string{"tempo detected", "transport stopped", "recording capped", "trigger fired"}

func (k EventKind) String() string {
	if k < 0 || k >= NumEventKinds {
		return "unknown"
	}
	return eventKindNames[k]
}

// New returns a coordinator with opts.Tracks empty tracks. It panics if
// opts.Tracks is not positive.
func New(c *reclaim.Collector, p playhead.Provider, opts Options) *Coordinator {
	if opts.Tracks <= 0 {
		panic("multitrack: a coordinator needs at least one track")
	}
	if opts.MaxLoopSeconds <= 0 {
		opts.MaxLoopSeconds = 60
	}
	if opts.Estimator == nil {
		opts.Estimator = DefaultEstimator()
	}
	co := &Coordinator{
		provider:  p,
		estimator: opts.Estimator,
		onEvent:   opts.OnEvent,
		maxLoop:   opts.MaxLoopSeconds,
	}
	co.monitor.Store(math.Float32bits(1))
	co.tracks = make([]*track, opts.Tracks)
	for i := range co.tracks {
		h := looper.NewHandle(c)
		// the input is monitored once by the coordinator, not by every track
		h.SetDryVolume(0)
		co.tracks[i] = &track{
			handle:   h,
			triggers: sequencer.NewTrackTriggerModel(c, opts.PatternSteps, opts.StepBeats),
		}
	}
	return co
}

// Prepare sizes every track for sampleRate and channels. It must be called
// before the first Process and never while the audio goroutine runs.
func (co *Coordinator) Prepare(sampleRate float64, channels int) {
	co.sampleRate = sampleRate
	for _, t := range co.tracks {
		t.handle.Prepare(sampleRate, channels, co.maxLoop)
		t.prev = looper.Empty
		t.steps.Reset()
	}
	if s, ok := co.provider.(interface{ SetSampleRate(float64) }); ok {
		s.SetSampleRate(sampleRate)
	}
}

// Process runs sample of channel through every track and returns the mix of
// the monitored input and all track outputs.
func (co *Coordinator) Process(channel int, sample float32) float32 {
	out := math.Float32frombits(co.monitor.Load()) * sample
	for _, t := range co.tracks {
		out += t.handle.Process(channel, sample)
	}
	return out
}

// AfterProcess finishes a frame: it advances every track, reacts to state
// transitions, ticks the transport and selects the parameter locks for the
// next frame.
func (co *Coordinator) AfterProcess() {
	for i, t := range co.tracks {
		t.handle.AfterProcess()
		if t.handle.Cleared() && t.prev != looper.Empty {
			// a request later in the frame may already have left Empty
			co.transition(i, t.prev, looper.Empty)
			t.prev = looper.Empty
		}
		state := t.handle.State()
		if state != t.prev {
			co.transition(i, t.prev, state)
			t.prev = state
		}
	}
	co.provider.TickN(1)
	co.sequence()
}

func (co *Coordinator) transition(i int, from, to looper.State) {
	t := co.tracks[i]
	if from == looper.Recording && to != looper.Recording && t.handle.StoppedAtCapacity() {
		co.emit(Event{Kind: RecordingCapped, Track: i})
	}
	if from == looper.Recording && to == looper.Playing && co.nonEmpty() == 1 {
		if bpm, ok := co.estimator.Estimate(t.handle.NumSamples(), co.sampleRate); ok {
			co.provider.Stop()
			co.provider.SetTempo(bpm)
			co.provider.Play()
			co.resetSteps()
			co.emit(Event{Kind: TempoDetected, Track: i, Tempo: bpm})
		}
	}
	if to == looper.Empty && from != looper.Empty && co.nonEmptyExcept(i) == 0 {
		co.provider.Stop()
		co.resetSteps()
		co.emit(Event{Kind: TransportStopped, Track: i})
	}
}

func (co *Coordinator) sequence() {
	info := co.provider.TimeInfo()
	running := info.Playing && info.BeatsValid
	for i, t := range co.tracks {
		if !running {
			t.handle.SetOverrides(looper.Overrides{})
			continue
		}
		if trig, ok := t.triggers.FindCurrentBeatTrigger(&t.steps, info.PositionBeats); ok {
			co.emit(Event{Kind: TriggerFired, Track: i, Step: trig.Step})
		}
		trig, ok := t.triggers.FindRunningBeatTrigger(info.PositionBeats)
		if !ok {
			t.handle.SetOverrides(looper.Overrides{})
			continue
		}
		t.handle.SetOverrides(overrides(trig))
	}
}

func overrides(trig sequencer.Trigger) looper.Overrides {
	var o looper.Overrides
	if v, ok := trig.Lock(sequencer.ParamVolume); ok {
		o.Volume, o.HasVolume = v, true
	}
	if v, ok := trig.Lock(sequencer.ParamDryVolume); ok {
		o.Dry, o.HasDry = v, true
	}
	return o
}

func (co *Coordinator) nonEmpty() int {
	n := 0
	for _, t := range co.tracks {
		if t.handle.State() != looper.Empty {
			n++
		}
	}
	return n
}

// nonEmptyExcept counts the non-empty tracks other than track i.
func (co *Coordinator) nonEmptyExcept(i int) int {
	n := 0
	for j, t := range co.tracks {
		if j != i && t.handle.State() != looper.Empty {
			n++
		}
	}
	return n
}

func (co *Coordinator) resetSteps() {
	for _, t := range co.tracks {
		t.steps.Reset()
	}
}

func (co *Coordinator) emit(e Event) {
	if co.onEvent != nil {
		co.onEvent(e)
	}
}

func (co *Coordinator) track(i int) *track {
	if i < 0 || i >= len(co.tracks) {
		return nil
	}
	return co.tracks[i]
}

// Control

func (co *Coordinator) NumTracks() int { return len(co.tracks) }

func (co *Coordinator) ToggleRecording(i int) {
	if t := co.track(i); t != nil {
		t.handle.ToggleRecording()
	}
}

func (co *Coordinator) TogglePlayback(i int) {
	if t := co.track(i); t != nil {
		t.handle.TogglePlayback()
	}
}

// Clear empties track i. Clearing the last non-empty track stops the
// transport.
func (co *Coordinator) Clear(i int) {
	if t := co.track(i); t != nil {
		t.handle.Clear()
	}
}

func (co *Coordinator) SetVolume(i int, gain float32) {
	if t := co.track(i); t != nil {
		t.handle.SetVolume(gain)
	}
}

// SetDryVolume sets an extra input gain for track i, on top of the monitor
// gain.
func (co *Coordinator) SetDryVolume(i int, gain float32) {
	if t := co.track(i); t != nil {
		t.handle.SetDryVolume(gain)
	}
}

func (co *Coordinator) ToggleTrigger(i, step int) {
	if t := co.track(i); t != nil {
		t.triggers.ToggleTrigger(step)
	}
}

func (co *Coordinator) AddLock(i, step int, id sequencer.ParameterID, value float32) {
	if t := co.track(i); t != nil {
		t.triggers.AddLock(step, id, value)
	}
}

func (co *Coordinator) RemoveLock(i, step int, id sequencer.ParameterID) {
	if t := co.track(i); t != nil {
		t.triggers.RemoveLock(step, id)
	}
}

// SetMonitorGain sets the gain of the input passed straight to the output.
func (co *Coordinator) SetMonitorGain(gain float32) { co.monitor.Store(math.Float32bits(gain)) }

func (co *Coordinator) MonitorGain() float32 { return math.Float32frombits(co.monitor.Load()) }

// Queries

func (co *Coordinator) NumSamples(i int) int {
	if t := co.track(i); t != nil {
		return t.handle.NumSamples()
	}
	return 0
}

func (co *Coordinator) PlayheadPercent(i int) float32 {
	if t := co.track(i); t != nil {
		return t.handle.PlayheadPercent()
	}
	return 0
}

func (co *Coordinator) IsRecording(i int) bool {
	if t := co.track(i); t != nil {
		return t.handle.IsRecording()
	}
	return false
}

func (co *Coordinator) IsPlayingBack(i int) bool {
	if t := co.track(i); t != nil {
		return t.handle.IsPlayingBack()
	}
	return false
}

func (co *Coordinator) TrackState(i int) looper.State {
	if t := co.track(i); t != nil {
		return t.handle.State()
	}
	return looper.Empty
}

func (co *Coordinator) Volume(i int) float32 {
	if t := co.track(i); t != nil {
		return t.handle.Volume()
	}
	return 0
}

func (co *Coordinator) Playhead() playhead.Provider { return co.provider }

// Handle returns the looper of track i, or nil.
func (co *Coordinator) Handle(i int) *looper.Handle {
	if t := co.track(i); t != nil {
		return t.handle
	}
	return nil
}

// TriggerModel returns the pattern of track i, or nil.
func (co *Coordinator) TriggerModel(i int) *sequencer.TrackTriggerModel {
	if t := co.track(i); t != nil {
		return t.triggers
	}
	return nil
}

// Close releases the patterns of every track. The coordinator must not be
// used afterwards.
func (co *Coordinator) Close() {
	for _, t := range co.tracks {
		t.triggers.Close()
	}
}
