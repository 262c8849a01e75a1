package engine

import (
	"unsafe"

	"github.com/loopsmith/loopsmith"
	"github.com/loopsmith/loopsmith/looper"
	"github.com/loopsmith/loopsmith/multitrack"
	"github.com/loopsmith/loopsmith/playhead"
	"github.com/viterin/vek/vek32"
)

type (
	// Player is the audio shell of the engine, run on the audio goroutine.
	// It feeds every input frame through the coordinator, applies the master
	// gain and reports its status to the model. It is controlled by messages
	// from the model through the broker.
	Player struct {
		coordinator *multitrack.Coordinator
		broker      *Broker
		masterGain  float32
	}

	// PlayerStatus is sent to the model after every processed block.
	PlayerStatus struct {
		NumTracks  int
		Tracks     [MaxTracks]TrackStatus
		Time       playhead.TimeInfo
		MasterGain float32
	}

	TrackStatus struct {
		State      looper.State
		NumSamples int
		Percent    float32
		Volume     float32
	}

	// Messages from the model to the player.

	PlayMsg  struct{}
	PauseMsg struct{}
	StopMsg  struct{}
	TempoMsg struct {
		BPM float64
	}
	MasterGainMsg struct {
		Gain float32
	}
)

// MaxTracks is the largest number of tracks an engine reports status for.
const MaxTracks = 16

// NewPlayer returns a player driving co. The caller must have called
// co.Prepare.
func NewPlayer(broker *Broker, co *multitrack.Coordinator) *Player {
	return &Player{coordinator: co, broker: broker, masterGain: 1}
}

// Process renders len(out) frames. in is the input signal; frames beyond
// len(in) are treated as silence. in and out may be the same buffer.
func (p *Player) Process(in, out loopsmith.AudioBuffer) {
	p.processMessages()
	co := p.coordinator
	for i := range out {
		var frame [2]float32
		if i < len(in) {
			frame = in[i]
		}
		out[i][0] = co.Process(0, frame[0])
		out[i][1] = co.Process(1, frame[1])
		co.AfterProcess()
	}
	if len(out) > 0 && p.masterGain != 1 {
		flat := unsafe.Slice((*float32)(unsafe.Pointer(&out[0])), 2*len(out))
		vek32.MulNumber_Inplace(flat, p.masterGain)
	}
	bufPtr := p.broker.GetAudioBuffer() // borrow a buffer from the broker
	*bufPtr = append(*bufPtr, out...)
	if len(*bufPtr) == 0 || !TrySend(p.broker.ToMeter, MsgToMeter{Data: bufPtr}) {
		p.broker.PutAudioBuffer(bufPtr)
	}
	p.sendStatus()
}

// OnEvent forwards coordinator events to the model. Pass it as
// multitrack.Options.OnEvent; it never blocks.
func (p *Player) OnEvent(e multitrack.Event) {
	TrySend(p.broker.ToModel, MsgToModel{HasEvent: true, Event: e})
}

func (p *Player) processMessages() {
loop:
	for { // process new messages
		select {
		case msg := <-p.broker.ToPlayer:
			switch m := msg.(type) {
			case PlayMsg:
				p.coordinator.Playhead().Play()
			case PauseMsg:
				p.coordinator.Playhead().Pause()
			case StopMsg:
				p.coordinator.Playhead().Stop()
			case TempoMsg:
				p.coordinator.Playhead().SetTempo(m.BPM)
			case MasterGainMsg:
				p.masterGain = m.Gain
			default:
				// ignore unknown messages
			}
		default:
			break loop
		}
	}
}

// all sends from the player are non-blocking, so that the audio goroutine
// can never deadlock on a slow model
func (p *Player) sendStatus() {
	co := p.coordinator
	s := PlayerStatus{
		NumTracks:  min(co.NumTracks(), MaxTracks),
		Time:       co.Playhead().TimeInfo(),
		MasterGain: p.masterGain,
	}
	for i := 0; i < s.NumTracks; i++ {
		s.Tracks[i] = TrackStatus{
			State:      co.TrackState(i),
			NumSamples: co.NumSamples(i),
			Percent:    co.PlayheadPercent(i),
			Volume:     co.Volume(i),
		}
	}
	TrySend(p.broker.ToModel, MsgToModel{HasStatus: true, Status: s})
}
