package engine

import (
	"time"

	"github.com/loopsmith/loopsmith/config"
	"github.com/loopsmith/loopsmith/multitrack"
	"github.com/loopsmith/loopsmith/playhead"
	"github.com/loopsmith/loopsmith/reclaim"
)

// Engine is a coordinator with its player, model and meter, built from a
// config.
type Engine struct {
	Collector   *reclaim.Collector
	Broker      *Broker
	Coordinator *multitrack.Coordinator
	Player      *Player
	Model       *Model
	Meter       *Meter
}

// New builds and prepares a stereo engine for cfg, driven by p. The
// collector is not drained; run Collector.Run or call Drain regularly.
func New(cfg config.Config, p playhead.Provider) *Engine {
	e := &Engine{
		Collector: reclaim.NewCollector(cfg.RetireQueueSize),
		Broker:    NewBroker(),
	}
	e.Coordinator = multitrack.New(e.Collector, p, multitrack.Options{
		Tracks:         cfg.Tracks,
		MaxLoopSeconds: cfg.MaxLoopSeconds,
		PatternSteps:   cfg.Pattern.Steps,
		StepBeats:      cfg.Pattern.StepBeats,
		Estimator: multitrack.BeatPeriodEstimator{
			MinTempo:    cfg.Tempo.Min,
			MaxTempo:    cfg.Tempo.Max,
			BeatsPerBar: cfg.Tempo.BeatsPerBar,
		},
		OnEvent: func(ev multitrack.Event) { e.Player.OnEvent(ev) },
	})
	e.Coordinator.Prepare(cfg.SampleRate, 2)
	e.Coordinator.SetMonitorGain(float32(cfg.MonitorGain))
	e.Player = NewPlayer(e.Broker, e.Coordinator)
	e.Model = NewModel(e.Broker, e.Coordinator)
	e.Meter = NewMeter(e.Broker, 0.95)
	e.Model.SetMasterGain(float32(cfg.MasterGain)).Do()
	return e
}

// StopMeter asks a running meter goroutine to stop and waits for it.
func (e *Engine) StopMeter() {
	TrySend(e.Broker.CloseMeter, struct{}{})
	select {
	case <-e.Broker.FinishedMeter:
	case <-time.After(3 * time.Second):
	}
}

// Close releases the patterns and clips of the coordinator.
func (e *Engine) Close() {
	e.Coordinator.Close()
	e.Collector.Drain()
}
