package engine

import (
	"math"

	"github.com/loopsmith/loopsmith"
	"github.com/viterin/vek/vek32"
)

type (
	// Meter measures the output level off the audio goroutine. It receives
	// copies of the output from the player through the broker and sends a
	// MeterResult back to the model for every analyzed buffer.
	Meter struct {
		broker *Broker
		decay  float32
		peaks  [2]float32
		tmp    []float32
		tmp2   []float32
	}

	// MeterResult holds linear levels per channel. Peak decays between
	// buffers; RMS is the level of the last buffer only.
	MeterResult struct {
		Peak [2]float32
		RMS  [2]float32
	}

	Decibel float32
)

// NewMeter returns a meter whose peak hold is multiplied by decay after every
// buffer.
func NewMeter(b *Broker, decay float32) *Meter {
	return &Meter{broker: b, decay: decay}
}

// Run analyzes buffers until CloseMeter is signaled, then closes
// FinishedMeter.
func (m *Meter) Run() {
	defer close(m.broker.FinishedMeter)
	for {
		select {
		case <-m.broker.CloseMeter:
			return
		case msg := <-m.broker.ToMeter:
			if msg.Reset {
				m.peaks = [2]float32{}
			}
			switch data := msg.Data.(type) {
			case *loopsmith.AudioBuffer:
				res := m.Update(*data)
				m.broker.PutAudioBuffer(data)
				TrySend(m.broker.ToModel, MsgToModel{HasMeterResult: true, MeterResult: res})
			case func():
				data()
			}
		}
	}
}

// Update analyzes buf and returns the new levels.
func (m *Meter) Update(buf loopsmith.AudioBuffer) MeterResult {
	var ret MeterResult
	if len(buf) == 0 {
		for ch := range m.peaks {
			m.peaks[ch] *= m.decay
			ret.Peak[ch] = m.peaks[ch]
		}
		return ret
	}
	for ch := 0; ch < 2; ch++ {
		m.tmp = buf.Channel(ch, m.tmp)
		if cap(m.tmp2) < len(m.tmp) {
			m.tmp2 = make([]float32, len(m.tmp))
		}
		sq := vek32.Mul_Into(m.tmp2[:len(m.tmp)], m.tmp, m.tmp)
		ret.RMS[ch] = float32(math.Sqrt(float64(vek32.Mean(sq))))
		vek32.Abs_Inplace(m.tmp)
		peak := vek32.Max(m.tmp)
		m.peaks[ch] = max(peak, m.peaks[ch]*m.decay)
		ret.Peak[ch] = m.peaks[ch]
	}
	return ret
}

// Decibels converts a linear level to decibels full scale; silence maps to
// -inf.
func Decibels(level float32) Decibel {
	return Decibel(20 * math.Log10(float64(level)))
}
