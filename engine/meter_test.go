package engine_test

import (
	"math"
	"testing"
	"time"

	"github.com/loopsmith/loopsmith"
	"github.com/loopsmith/loopsmith/engine"
)

func TestMeterUpdate(t *testing.T) {
	m := engine.NewMeter(engine.NewBroker(), 0.5)
	buf := loopsmith.AudioBuffer{{0.5, -0.25}, {-0.5, 0.25}, {0.5, -0.25}, {-0.5, 0.25}}
	res := m.Update(buf)
	if res.Peak != [2]float32{0.5, 0.25} {
		t.Errorf("Peak = %v, want [0.5 0.25]", res.Peak)
	}
	if res.RMS != [2]float32{0.5, 0.25} {
		t.Errorf("RMS = %v, want [0.5 0.25]", res.RMS)
	}
	res = m.Update(nil)
	if res.Peak != [2]float32{0.25, 0.125} {
		t.Errorf("decayed Peak = %v, want [0.25 0.125]", res.Peak)
	}
	if res.RMS != [2]float32{} {
		t.Errorf("RMS of an empty buffer = %v, want zero", res.RMS)
	}
	res = m.Update(loopsmith.AudioBuffer{{0.1, 0.1}})
	if res.Peak != [2]float32{0.125, 0.1} {
		t.Errorf("Peak = %v, want the held level on the left channel", res.Peak)
	}
}

func TestMeterRun(t *testing.T) {
	b := engine.NewBroker()
	m := engine.NewMeter(b, 0.9)
	go m.Run()
	buf := b.GetAudioBuffer()
	*buf = append(*buf, [2]float32{1, 0.5})
	if !engine.TrySend(b.ToMeter, engine.MsgToMeter{Data: buf}) {
		t.Fatal("meter channel full")
	}
	msg, ok := engine.TimeoutReceive(b.ToModel, 3*time.Second)
	if !ok {
		t.Fatal("no result from the meter")
	}
	if !msg.HasMeterResult || msg.MeterResult.Peak != [2]float32{1, 0.5} {
		t.Errorf("meter message = %+v", msg)
	}
	engine.TrySend(b.CloseMeter, struct{}{})
	select {
	case <-b.FinishedMeter:
	case <-time.After(3 * time.Second):
		t.Fatal("meter did not finish")
	}
}

func TestDecibels(t *testing.T) {
	if d := engine.Decibels(1); d != 0 {
		t.Errorf("Decibels(1) = %v, want 0", d)
	}
	if d := engine.Decibels(0.1); math.Abs(float64(d)+20) > 1e-4 {
		t.Errorf("Decibels(0.1) = %v, want -20", d)
	}
	if d := engine.Decibels(0); !math.IsInf(float64(d), -1) {
		t.Errorf("Decibels(0) = %v, want -inf", d)
	}
}

func TestAlerts(t *testing.T) {
	var a engine.Alerts
	a.Add("hello", engine.Info)
	a.AddNamed("tempo", "120 BPM", engine.Info)
	a.AddNamed("tempo", "90 BPM", engine.Warning)
	if a.Len() != 2 {
		t.Fatalf("Len = %d, want 2", a.Len())
	}
	var named engine.Alert
	for alert := range a.Iterate {
		if alert.Name == "tempo" {
			named = alert
		}
	}
	if named.Message != "90 BPM" || named.Priority != engine.Warning {
		t.Errorf("named alert = %+v, want the replacement", named)
	}
	a.AddAlert(engine.Alert{Message: "short", Duration: time.Second})
	if !a.Update(2 * time.Second) {
		t.Fatal("Update reported no active alerts")
	}
	if a.Len() != 2 {
		t.Errorf("Len after 2s = %d, want 2", a.Len())
	}
	a.ClearNamed("tempo")
	if a.Len() != 1 {
		t.Errorf("Len after ClearNamed = %d, want 1", a.Len())
	}
	if a.Update(time.Minute) {
		t.Error("alerts still active after a minute")
	}
	if s := engine.Error.String(); s != "error" {
		t.Errorf("Error.String() = %q", s)
	}
}

func TestAlertsUnseen(t *testing.T) {
	var a engine.Alerts
	a.Add("one", engine.Info)
	a.AddNamed("tempo", "120 BPM", engine.Info)
	var got []string
	for alert := range a.Unseen {
		got = append(got, alert.Message)
	}
	if len(got) != 2 {
		t.Fatalf("unseen = %q, want both alerts", got)
	}
	for alert := range a.Unseen {
		t.Errorf("alert %q yielded twice", alert.Message)
	}
	a.AddNamed("tempo", "90 BPM", engine.Info)
	got = got[:0]
	for alert := range a.Unseen {
		got = append(got, alert.Message)
	}
	if len(got) != 1 || got[0] != "90 BPM" {
		t.Errorf("unseen after replace = %q, want [90 BPM]", got)
	}
}
