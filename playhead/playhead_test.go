package playhead_test

import (
	"testing"

	"github.com/loopsmith/loopsmith/playhead"
)

func TestStandaloneTransport(t *testing.T) {
	p := playhead.NewStandalone(48000)
	p.TickN(480)
	if ti := p.TimeInfo(); ti.PositionSamples != 0 || ti.Playing {
		t.Fatalf("stopped clock advanced: %+v", ti)
	}
	p.Play()
	p.TickN(480)
	p.TickN(480)
	if ti := p.TimeInfo(); ti.PositionSamples != 960 || !ti.Playing || ti.BeatsValid {
		t.Fatalf("after two ticks: %+v", ti)
	}
	p.Pause()
	p.TickN(480)
	if ti := p.TimeInfo(); ti.PositionSamples != 960 || ti.Playing {
		t.Fatalf("paused clock moved: %+v", ti)
	}
	p.Play()
	p.TickN(40)
	if ti := p.TimeInfo(); ti.PositionSamples != 1000 {
		t.Fatalf("resumed clock at %v, want 1000", ti.PositionSamples)
	}
	p.Stop()
	if ti := p.TimeInfo(); ti.PositionSamples != 0 || ti.Playing {
		t.Fatalf("stop did not rewind: %+v", ti)
	}
	p.TickN(100)
	if ti := p.TimeInfo(); ti.PositionSamples != 0 {
		t.Fatalf("stopped clock advanced to %v", ti.PositionSamples)
	}
	p.Play()
	p.TickN(100)
	if ti := p.TimeInfo(); ti.PositionSamples != 100 {
		t.Fatalf("restarted clock at %v, want 100", ti.PositionSamples)
	}
}

func TestStandaloneBeats(t *testing.T) {
	p := playhead.NewStandalone(1000)
	p.SetTempo(120) // 2 beats per second, 500 samples per beat
	p.Play()
	p.TickN(250)
	ti := p.TimeInfo()
	if !ti.TempoValid || !ti.BeatsValid || ti.Tempo != 120 {
		t.Fatalf("tempo not reported: %+v", ti)
	}
	if ti.PositionBeats != 0.5 {
		t.Fatalf("PositionBeats = %v, want 0.5", ti.PositionBeats)
	}
	p.SetTempo(60)
	p.TickN(1000)
	if got := p.TimeInfo().PositionBeats; got != 1.5 {
		t.Fatalf("PositionBeats = %v after tempo change, want 1.5", got)
	}
	p.SetTempo(-5)
	if got := p.TimeInfo().Tempo; got != 60 {
		t.Fatalf("negative tempo accepted: %v", got)
	}
	p.ClearTempo()
	if ti := p.TimeInfo(); ti.TempoValid || ti.BeatsValid {
		t.Fatalf("tempo still valid after ClearTempo: %+v", ti)
	}
}

func TestHostedFollowsHost(t *testing.T) {
	var host playhead.TimeInfo
	hostOK := false
	h := playhead.NewHosted(playhead.HostTimeSourceFunc(func() (playhead.TimeInfo, bool) {
		return host, hostOK
	}), 1000)

	h.Play()
	h.TickN(100)
	if ti := h.TimeInfo(); ti.PositionSamples != 100 || !ti.Playing {
		t.Fatalf("fallback not used when host reports nothing: %+v", ti)
	}

	host = playhead.TimeInfo{Tempo: 90, TempoValid: true, PositionSamples: 5000, PositionBeats: 7.25, BeatsValid: true, Playing: true}
	hostOK = true
	if ti := h.TimeInfo(); ti != host {
		t.Fatalf("TimeInfo() = %+v, want host %+v", ti, host)
	}

	// host without beats: beats derived from samples and tempo
	host = playhead.TimeInfo{Tempo: 120, TempoValid: true, PositionSamples: 1000, Playing: true}
	if ti := h.TimeInfo(); !ti.BeatsValid || ti.PositionBeats != 2 {
		t.Fatalf("derived beats: %+v", ti)
	}

	// host without tempo: fallback tempo fills in
	host = playhead.TimeInfo{PositionSamples: 500, Playing: true}
	if ti := h.TimeInfo(); ti.TempoValid || ti.BeatsValid {
		t.Fatalf("tempo invented without any source: %+v", ti)
	}
	h.SetTempo(60)
	if ti := h.TimeInfo(); !ti.TempoValid || ti.Tempo != 60 || ti.PositionBeats != 0.5 {
		t.Fatalf("fallback tempo not used: %+v", ti)
	}

	hostOK = false
	h.Stop()
	if ti := h.TimeInfo(); ti.PositionSamples != 0 || ti.Playing {
		t.Fatalf("fallback not stopped: %+v", ti)
	}
}

func TestProvidersImplementInterface(t *testing.T) {
	var _ playhead.Provider = playhead.NewStandalone(44100)
	var _ playhead.Provider = playhead.NewHosted(nil, 44100)
}
