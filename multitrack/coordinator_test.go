package multitrack_test

import (
	"testing"

	"github.com/loopsmith/loopsmith/looper"
	"github.com/loopsmith/loopsmith/multitrack"
	"github.com/loopsmith/loopsmith/playhead"
	"github.com/loopsmith/loopsmith/reclaim"
	"github.com/loopsmith/loopsmith/sequencer"
)

const sampleRate = 1000

type session struct {
	co     *multitrack.Coordinator
	clock  *playhead.Standalone
	events []multitrack.Event
}

func newSession(t *testing.T, tracks int) *session {
	t.Helper()
	s := &session{clock: playhead.NewStandalone(sampleRate)}
	s.co = multitrack.New(reclaim.NewCollector(64), s.clock, multitrack.Options{
		Tracks:         tracks,
		MaxLoopSeconds: 10,
		PatternSteps:   16,
		StepBeats:      0.25,
		OnEvent:        func(e multitrack.Event) { s.events = append(s.events, e) },
	})
	s.co.Prepare(sampleRate, 1)
	return s
}

func (s *session) frame(in float32) float32 {
	out := s.co.Process(0, in)
	s.co.AfterProcess()
	return out
}

func (s *session) run(n int, in float32) {
	for i := 0; i < n; i++ {
		s.frame(in)
	}
}

func (s *session) count(kind multitrack.EventKind) int {
	n := 0
	for _, e := range s.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestFirstLoopSetsTempoAndStartsTransport(t *testing.T) {
	s := newSession(t, 2)
	s.co.ToggleRecording(0)
	s.run(2000, 0.1) // two seconds: one bar of 4/4 at 120 bpm
	if s.clock.TimeInfo().Playing {
		t.Fatalf("transport started while recording")
	}
	s.co.ToggleRecording(0)
	s.frame(0)
	ti := s.clock.TimeInfo()
	if !ti.Playing || ti.Tempo != 120 {
		t.Fatalf("after first loop: %+v, want playing at 120 bpm", ti)
	}
	if s.count(multitrack.TempoDetected) != 1 || s.events[0].Tempo != 120 {
		t.Fatalf("events = %+v", s.events)
	}

	// a second loop does not retune the session
	s.co.ToggleRecording(1)
	s.run(1500, 0.1)
	s.co.ToggleRecording(1)
	s.frame(0)
	if ti := s.clock.TimeInfo(); ti.Tempo != 120 || s.count(multitrack.TempoDetected) != 1 {
		t.Fatalf("second loop changed the tempo: %+v", ti)
	}
	if s.co.TrackState(1) != looper.Playing || s.co.NumSamples(1) != 1500 {
		t.Fatalf("track 1: %v with %d samples", s.co.TrackState(1), s.co.NumSamples(1))
	}
}

func TestClearingLastTrackStopsTransport(t *testing.T) {
	s := newSession(t, 2)
	for i := 0; i < 2; i++ {
		s.co.ToggleRecording(i)
		s.run(1000, 0.1)
		s.co.ToggleRecording(i)
		s.frame(0)
	}
	s.run(100, 0)
	s.co.Clear(0)
	s.frame(0)
	if !s.clock.TimeInfo().Playing {
		t.Fatalf("transport stopped while track 1 still holds a loop")
	}
	s.co.Clear(1)
	s.frame(0)
	ti := s.clock.TimeInfo()
	if ti.Playing || ti.PositionSamples != 0 {
		t.Fatalf("after clearing every track: %+v", ti)
	}
	if s.count(multitrack.TransportStopped) != 1 {
		t.Fatalf("events = %+v", s.events)
	}
}

func TestClearAndRecordInOneFrameStopsTransport(t *testing.T) {
	s := newSession(t, 1)
	s.co.ToggleRecording(0)
	s.run(2000, 0.1)
	s.co.ToggleRecording(0)
	s.frame(0)
	s.run(200, 0)
	if !s.clock.TimeInfo().Playing {
		t.Fatalf("transport not running after the first loop")
	}
	s.co.Clear(0)
	s.co.ToggleRecording(0)
	s.frame(0.1)
	if s.co.TrackState(0) != looper.Recording {
		t.Fatalf("state = %v, want recording", s.co.TrackState(0))
	}
	if ti := s.clock.TimeInfo(); ti.Playing || s.count(multitrack.TransportStopped) != 1 {
		t.Fatalf("after clear and record: %+v, events = %+v", ti, s.events)
	}
	// the new loop sets the tempo of the empty session again
	s.run(999, 0.1)
	s.co.ToggleRecording(0)
	s.frame(0)
	if ti := s.clock.TimeInfo(); !ti.Playing || ti.Tempo != 120 || s.count(multitrack.TempoDetected) != 2 {
		t.Fatalf("after the new loop: %+v, events = %+v", ti, s.events)
	}
}

func TestOutputMix(t *testing.T) {
	s := newSession(t, 2)
	if got := s.frame(0.5); got != 0.5 {
		t.Fatalf("monitored input = %v, want 0.5", got)
	}
	s.co.SetMonitorGain(0)
	s.co.ToggleRecording(0)
	for i := 0; i < 10; i++ {
		if got := s.frame(float32(i)); got != 0 {
			t.Fatalf("recording frame %d produced %v", i, got)
		}
	}
	s.co.ToggleRecording(0)
	s.co.SetMonitorGain(1)
	for pass := 0; pass < 2; pass++ {
		for i := 0; i < 10; i++ {
			if got := s.frame(100); got != float32(i)+100 {
				t.Fatalf("pass %d frame %d: got %v, want %v", pass, i, got, float32(i)+100)
			}
		}
	}
}

func TestOutOfRangeTracksAreIgnored(t *testing.T) {
	s := newSession(t, 1)
	s.co.ToggleRecording(3)
	s.co.TogglePlayback(-1)
	s.co.Clear(1)
	s.co.SetVolume(7, 0)
	s.co.ToggleTrigger(2, 0)
	s.co.AddLock(2, 0, sequencer.ParamVolume, 0)
	s.run(10, 1)
	if s.co.NumSamples(3) != 0 || s.co.IsRecording(3) || s.co.TrackState(-1) != looper.Empty {
		t.Fatalf("queries on a missing track returned data")
	}
	if s.co.TriggerModel(1) != nil || s.co.Handle(1) != nil {
		t.Fatalf("accessors returned a missing track")
	}
	if s.co.TrackState(0) != looper.Empty {
		t.Fatalf("track 0 changed state to %v", s.co.TrackState(0))
	}
}

func TestTriggerLocksOverrideVolume(t *testing.T) {
	s := newSession(t, 1)
	s.co.SetMonitorGain(0)
	s.co.ToggleTrigger(0, 0)
	s.co.AddLock(0, 0, sequencer.ParamVolume, 0)
	s.co.ToggleRecording(0)
	s.run(2000, 1)
	s.co.ToggleRecording(0)
	if got := s.frame(0); got != 1 {
		t.Fatalf("first playback frame = %v, want 1", got)
	}
	// 120 bpm at 1000 Hz: step 0 spans the first 125 samples
	for i := 0; i < 100; i++ {
		if got := s.frame(0); got != 0 {
			t.Fatalf("frame %d inside the locked step = %v, want 0", i, got)
		}
	}
	s.run(50, 0)
	for i := 0; i < 50; i++ {
		if got := s.frame(0); got != 1 {
			t.Fatalf("frame %d after the locked step = %v, want 1", i, got)
		}
	}
	if n := s.count(multitrack.TriggerFired); n != 1 {
		t.Fatalf("trigger fired %d times, want 1", n)
	}
}

func TestCapacityEvent(t *testing.T) {
	s := newSession(t, 1)
	s.co.ToggleRecording(0)
	s.run(10*sampleRate+5, 0)
	if s.co.TrackState(0) != looper.Playing || s.co.NumSamples(0) != 10*sampleRate {
		t.Fatalf("state %v, %d samples", s.co.TrackState(0), s.co.NumSamples(0))
	}
	if s.count(multitrack.RecordingCapped) != 1 || s.count(multitrack.TempoDetected) != 1 {
		t.Fatalf("events = %+v", s.events)
	}
}

func TestNewPanicsWithoutTracks(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("New did not panic")
		}
	}()
	multitrack.New(reclaim.NewCollector(0), playhead.NewStandalone(sampleRate), multitrack.Options{})
}

func TestBeatPeriodEstimator(t *testing.T) {
	e := multitrack.DefaultEstimator()
	tests := []struct {
		samples int
		want    float64
		ok      bool
	}{
		{2000, 120, true}, // 4 beats in 2 s
		{1000, 120, true}, // 240 halves to 120
		{4000, 120, true}, // 60 doubles to 120
		{3000, 80, true},
		{1500, 80, true}, // 160 is outside [80, 160)
		{0, 0, false},
	}
	for _, tt := range tests {
		got, ok := e.Estimate(tt.samples, sampleRate)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Estimate(%d) = %v, %v, want %v, %v", tt.samples, got, ok, tt.want, tt.ok)
		}
	}
}
