// Package engine connects a multitrack coordinator to the outside world. The
// Player runs on the audio goroutine, the Meter on its own goroutine and the
// Model on the control goroutine; they talk only through a Broker.
package engine

import (
	"fmt"
	"time"

	"github.com/loopsmith/loopsmith/multitrack"
)

// Model is the control side of the engine. It turns commands into actions,
// keeps the latest player status and meter levels, and collects alerts for
// the user. Model is not safe for concurrent use; it is owned by a single
// control goroutine.
type Model struct {
	broker *Broker
	co     *multitrack.Coordinator

	status PlayerStatus
	meter  MeterResult
	alerts Alerts
	fired  [MaxTracks]int
}

func NewModel(broker *Broker, co *multitrack.Coordinator) *Model {
	return &Model{broker: broker, co: co}
}

// Action returns the action for cmd. It fails only if the kind is unknown;
// check Enabled before doing it.
func (m *Model) Action(cmd Command) (Action, error) {
	switch cmd.Kind {
	case CmdToggleRecording:
		return m.ToggleRecording(cmd.Track), nil
	case CmdTogglePlayback:
		return m.TogglePlayback(cmd.Track), nil
	case CmdClear:
		return m.Clear(cmd.Track), nil
	case CmdSetVolume:
		return m.SetVolume(cmd.Track, float32(cmd.Value)), nil
	case CmdSetDryVolume:
		return m.SetDryVolume(cmd.Track, float32(cmd.Value)), nil
	case CmdToggleTrigger:
		return m.ToggleTrigger(cmd.Track, cmd.Step), nil
	case CmdAddLock:
		return m.AddLock(cmd.Track, cmd.Step, cmd.Param, float32(cmd.Value)), nil
	case CmdRemoveLock:
		return m.RemoveLock(cmd.Track, cmd.Step, cmd.Param), nil
	case CmdPlay:
		return m.Play(), nil
	case CmdPause:
		return m.Pause(), nil
	case CmdStop:
		return m.Stop(), nil
	case CmdSetTempo:
		return m.SetTempo(cmd.Value), nil
	case CmdSetMasterGain:
		return m.SetMasterGain(float32(cmd.Value)), nil
	case CmdSetMonitorGain:
		return m.SetMonitorGain(float32(cmd.Value)), nil
	}
	return Action{}, fmt.Errorf("%w: %d", ErrUnknownCommand, int(cmd.Kind))
}

// Do performs cmd, or returns an error wrapping ErrCommandDisabled if the
// command does not apply, e.g. because the track does not exist.
func (m *Model) Do(cmd Command) error {
	a, err := m.Action(cmd)
	if err != nil {
		return err
	}
	if !a.Enabled() {
		return fmt.Errorf("%w: %s", ErrCommandDisabled, cmd)
	}
	a.Do()
	return nil
}

// Update handles all pending messages from the player and the meter. It
// returns true if any message was handled.
func (m *Model) Update() bool {
	handled := false
	for {
		select {
		case msg := <-m.broker.ToModel:
			m.handle(msg)
			handled = true
		default:
			return handled
		}
	}
}

// Wait blocks until a message arrives or d has passed, then handles all
// pending messages. It returns true if any message was handled.
func (m *Model) Wait(d time.Duration) bool {
	msg, ok := TimeoutReceive(m.broker.ToModel, d)
	if !ok {
		return false
	}
	m.handle(msg)
	m.Update()
	return true
}

func (m *Model) handle(msg MsgToModel) {
	if msg.HasStatus {
		m.status = msg.Status
	}
	if msg.HasMeterResult {
		m.meter = msg.MeterResult
	}
	if msg.HasEvent {
		m.event(msg.Event)
	}
	switch d := msg.Data.(type) {
	case Alert:
		m.alerts.AddAlert(d)
	case error:
		m.alerts.Add(d.Error(), Error)
	}
}

func (m *Model) event(e multitrack.Event) {
	switch e.Kind {
	case multitrack.TempoDetected:
		m.alerts.AddNamed("tempo", fmt.Sprintf("Tempo set to %.1f BPM from track %d", e.Tempo, e.Track+1), Info)
	case multitrack.TransportStopped:
		m.alerts.AddNamed("tempo", "All tracks cleared, transport stopped", Info)
	case multitrack.RecordingCapped:
		m.alerts.AddNamed(fmt.Sprintf("capped%d", e.Track), fmt.Sprintf("Track %d reached the maximum loop length", e.Track+1), Warning)
	case multitrack.TriggerFired:
		if e.Track >= 0 && e.Track < MaxTracks {
			m.fired[e.Track]++
		}
	}
}

func (m *Model) Status() PlayerStatus { return m.status }
func (m *Model) Meter() MeterResult   { return m.meter }
func (m *Model) Alerts() *Alerts      { return &m.alerts }

// TriggersFired returns how many triggers of track have fired since the
// model was created.
func (m *Model) TriggersFired(track int) int {
	if track < 0 || track >= MaxTracks {
		return 0
	}
	return m.fired[track]
}

// Coordinator returns the coordinator the model controls.
func (m *Model) Coordinator() *multitrack.Coordinator { return m.co }
