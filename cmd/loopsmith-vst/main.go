//go:build plugin

package main

import (
	"context"
	"log"
	"time"

	"github.com/loopsmith/loopsmith"
	"github.com/loopsmith/loopsmith/config"
	"github.com/loopsmith/loopsmith/control"
	"github.com/loopsmith/loopsmith/engine"
	"github.com/loopsmith/loopsmith/playhead"
	"gitlab.com/gomidi/midi/v2"
	"pipelined.dev/audio/vst2"
)

const (
	pluginID   = 0x4C6F6F70 // "Loop"
	pluginName = "Loopsmith"
)

// hostTime reads the host transport through the vst2 callback.
func hostTime(h vst2.Host) playhead.HostTimeSourceFunc {
	return func() (playhead.TimeInfo, bool) {
		ti := h.GetTimeInfo(vst2.TempoValid | vst2.PpqPosValid)
		if ti == nil {
			return playhead.TimeInfo{}, false
		}
		return playhead.TimeInfo{
			Tempo:           ti.Tempo,
			TempoValid:      ti.Flags&vst2.TempoValid != 0 && ti.Tempo > 0,
			PositionSamples: ti.SamplePos,
			PositionBeats:   ti.PpqPos,
			BeatsValid:      ti.Flags&vst2.PpqPosValid != 0,
			Playing:         ti.Flags&vst2.TransportPlaying != 0,
		}, true
	}
}

// sampleRate asks the host for its sample rate, or returns 0.
func sampleRate(h vst2.Host) float64 {
	ti := h.GetTimeInfo(0)
	if ti == nil {
		return 0
	}
	return ti.SampleRate
}

func init() {
	var (
		version = int32(100)
	)
	vst2.PluginAllocator = func(h vst2.Host) (vst2.Plugin, vst2.Dispatcher) {
		cfg := config.Default()
		if sr := sampleRate(h); sr > 0 {
			cfg.SampleRate = sr
		}
		e := engine.New(cfg, playhead.NewHosted(hostTime(h), cfg.SampleRate))
		bindings, err := control.NewBindings(cfg.MIDI.Bindings)
		if err != nil {
			log.Printf("midi bindings: %v", err)
			bindings, _ = control.NewBindings(nil)
		}
		rate := engine.NewRateChange(cfg.SampleRate)
		ctx, cancel := context.WithCancel(context.Background())
		go e.Collector.Run(ctx, cfg.DrainInterval)
		go e.Meter.Run()
		go func() {
			// the model is owned by this goroutine
			t := time.NewTicker(50 * time.Millisecond)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case c := <-bindings.Commands():
					if err := e.Model.Do(c); err != nil {
						log.Print(err)
					}
				case <-t.C:
					rate.Apply(e.Coordinator, 2)
					e.Model.Update()
				}
			}
		}()
		buf := make(loopsmith.AudioBuffer, 1024)
		return vst2.Plugin{
				UniqueID:       pluginID,
				Version:        version,
				InputChannels:  2,
				OutputChannels: 2,
				Name:           pluginName,
				Vendor:         "loopsmith",
				Category:       vst2.PluginCategoryEffect,
				ProcessFloatFunc: func(in, out vst2.FloatBuffer) {
					if !rate.Check(sampleRate(h)) {
						// silent until the model goroutine has prepared the new rate
						clear(out.Channel(0))
						clear(out.Channel(1))
						return
					}
					if len(buf) < out.Frames {
						buf = append(buf, make(loopsmith.AudioBuffer, out.Frames-len(buf))...)
					}
					buf = buf[:out.Frames]
					inL, inR := in.Channel(0), in.Channel(1)
					for i := range buf {
						buf[i] = [2]float32{inL[i], inR[i]}
					}
					e.Player.Process(buf, buf)
					left, right := out.Channel(0), out.Channel(1)
					for i := range buf {
						left[i], right[i] = buf[i][0], buf[i][1]
					}
				},
			}, vst2.Dispatcher{
				CanDoFunc: func(pcds vst2.PluginCanDoString) vst2.CanDoResponse {
					switch pcds {
					case vst2.PluginCanReceiveEvents, vst2.PluginCanReceiveMIDIEvent, vst2.PluginCanReceiveTimeInfo:
						return vst2.YesCanDo
					}
					return vst2.NoCanDo
				},
				ProcessEventsFunc: func(ev *vst2.EventsPtr) {
					for i := 0; i < ev.NumEvents(); i++ {
						switch v := ev.Event(i).(type) {
						case *vst2.MIDIEvent:
							bindings.HandleMessage(midi.Message(v.Data[:]), 0)
						}
					}
				},
				CloseFunc: func() {
					cancel()
					e.StopMeter()
					e.Close()
				},
			}
	}
}

func main() {}
