package render

import (
	"embed"
	"fmt"
	"io"
	"math"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/loopsmith/loopsmith"
	"github.com/loopsmith/loopsmith/engine"
	"github.com/loopsmith/loopsmith/looper"
)

//go:embed templates/*.txt
var templateFS embed.FS

type (
	Summary struct {
		SampleRate float64
		Frames     int
		Tempo      float64
		TempoValid bool
		Peak       float32
		Tracks     []TrackSummary
		Errors     []string
		Alerts     []engine.Alert
	}

	TrackSummary struct {
		Number   int
		State    looper.State
		Samples  int
		Volume   float32
		Triggers int
	}
)

// BlockSize is the largest number of frames processed at once.
const BlockSize = 256

// Run renders the script through e with input looped as the input signal.
// Commands that fail are recorded in the summary and skipped. e must not be
// running on other goroutines.
func Run(e *engine.Engine, input loopsmith.AudioBuffer, s Script, sampleRate float64) (loopsmith.AudioBuffer, Summary) {
	length := len(input)
	if s.Length > 0 {
		length = int(math.Round(s.Length * sampleRate))
	}
	out := make(loopsmith.AudioBuffer, length)
	in := make(loopsmith.AudioBuffer, BlockSize)
	sum := Summary{SampleRate: sampleRate, Frames: length}
	pos, next := 0, 0
	for frame := 0; frame < length; {
		for next < len(s.Events) && frameOf(s.Events[next].At, sampleRate) <= frame {
			ev := s.Events[next]
			if err := e.Model.Do(ev.Command); err != nil {
				sum.Errors = append(sum.Errors, fmt.Sprintf("%.3f s: %v", ev.At, err))
			}
			next++
		}
		n := min(BlockSize, length-frame)
		if next < len(s.Events) {
			n = min(n, frameOf(s.Events[next].At, sampleRate)-frame)
		}
		pos = input.Loop(in[:n], pos)
		e.Player.Process(in[:n], out[frame:frame+n])
		frame += n
		drainMeter(e, &sum)
		e.Model.Update()
		e.Collector.Drain()
	}
	status := e.Model.Status()
	sum.Tempo, sum.TempoValid = status.Time.Tempo, status.Time.TempoValid
	for i := 0; i < status.NumTracks; i++ {
		t := status.Tracks[i]
		sum.Tracks = append(sum.Tracks, TrackSummary{
			Number:   i + 1,
			State:    t.State,
			Samples:  t.NumSamples,
			Volume:   t.Volume,
			Triggers: e.Model.TriggersFired(i),
		})
	}
	for a := range e.Model.Alerts().Iterate {
		sum.Alerts = append(sum.Alerts, a)
	}
	return out, sum
}

func frameOf(seconds, sampleRate float64) int {
	return int(math.Round(seconds * sampleRate))
}

func drainMeter(e *engine.Engine, sum *Summary) {
	for {
		select {
		case msg := <-e.Broker.ToMeter:
			if buf, ok := msg.Data.(*loopsmith.AudioBuffer); ok {
				res := e.Meter.Update(*buf)
				sum.Peak = max(sum.Peak, res.Peak[0], res.Peak[1])
				e.Broker.PutAudioBuffer(buf)
			}
		default:
			return
		}
	}
}

// WriteSummary prints sum with the text template.
func WriteSummary(w io.Writer, sum Summary) error {
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return fmt.Errorf("could not parse summary template: %w", err)
	}
	if err := tmpl.ExecuteTemplate(w, "summary.txt", sum); err != nil {
		return fmt.Errorf("could not execute summary template: %w", err)
	}
	return nil
}

// Seconds returns the rendered duration.
func (s Summary) Seconds() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(s.Frames) / s.SampleRate
}

func (s Summary) PeakDecibels() float64 {
	return float64(engine.Decibels(s.Peak))
}
