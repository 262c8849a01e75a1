package engine

import (
	"sync"
	"time"

	"github.com/loopsmith/loopsmith"
	"github.com/loopsmith/loopsmith/multitrack"
)

type (
	// Broker is the central message broker of the engine. It connects the
	// player (audio goroutine), the model (control goroutine) and the meter,
	// with one channel per recipient. It also keeps a sync.Pool of
	// *loopsmith.AudioBuffers so that the player can hand copies of its
	// output to the meter without allocating every time.
	//
	// For closing the meter goroutine, send struct{}{} to CloseMeter (it has
	// a capacity of 1, so use TrySend; a full channel means closing has
	// already been requested) and wait on FinishedMeter, which is closed once
	// the meter has stopped:
	//    select {
	//      case <-FinishedMeter:
	//      case <-time.After(3 * time.Second):
	//    }
	Broker struct {
		ToModel  chan MsgToModel
		ToPlayer chan any
		ToMeter  chan MsgToMeter

		CloseMeter    chan struct{}
		FinishedMeter chan struct{}

		bufferPool sync.Pool
	}

	// MsgToModel is a message sent to the model. The frequently sent data
	// (status, meter results and coordinator events) are not boxed to avoid
	// allocations on the audio goroutine. Infrequent messages go in Data.
	MsgToModel struct {
		HasStatus bool
		Status    PlayerStatus

		HasMeterResult bool
		MeterResult    MeterResult

		HasEvent bool
		Event    multitrack.Event

		Data any
	}

	// MsgToMeter is a message sent to the meter. Data is either a
	// *loopsmith.AudioBuffer to analyze, which the meter returns to the pool,
	// or a func() executed in the meter goroutine.
	MsgToMeter struct {
		Reset bool
		Data  any
	}
)

func NewBroker() *Broker {
	return &Broker{
		ToPlayer:      make(chan any, 1024),
		ToModel:       make(chan MsgToModel, 1024),
		ToMeter:       make(chan MsgToMeter, 1024),
		CloseMeter:    make(chan struct{}, 1),
		FinishedMeter: make(chan struct{}),
		bufferPool:    sync.Pool{New: func() any { return &loopsmith.AudioBuffer{} }},
	}
}

// GetAudioBuffer returns an empty audio buffer from the buffer pool. Return
// it with PutAudioBuffer when done.
func (b *Broker) GetAudioBuffer() *loopsmith.AudioBuffer {
	return b.bufferPool.Get().(*loopsmith.AudioBuffer)
}

// PutAudioBuffer truncates buf, keeping its capacity, and returns it to the
// buffer pool.
func (b *Broker) PutAudioBuffer(buf *loopsmith.AudioBuffer) {
	if len(*buf) > 0 {
		*buf = (*buf)[:0]
	}
	b.bufferPool.Put(buf)
}

// TrySend sends v to c if c is not full. It never blocks. Returns true if
// the value was sent.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive blocks until a value is received from c or t has passed.
// ok is false on timeout or if c is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
