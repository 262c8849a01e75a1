package playhead

type (
	// HostTimeSource reports the transport of a plugin host. ok is false
	// when the host currently provides no time information.
	HostTimeSource interface {
		HostTimeInfo() (info TimeInfo, ok bool)
	}

	// HostTimeSourceFunc adapts a function to HostTimeSource.
	HostTimeSourceFunc func() (TimeInfo, bool)

	// Hosted follows the host transport, and falls back to an internal
	// Standalone clock whenever the host reports nothing. Transport requests
	// only drive the fallback: the host owns its own transport.
	Hosted struct {
		source   HostTimeSource
		fallback *Standalone
	}
)

func (f HostTimeSourceFunc) HostTimeInfo() (TimeInfo, bool) { return f() }

func NewHosted(source HostTimeSource, sampleRate float64) *Hosted {
	return &Hosted{source: source, fallback: NewStandalone(sampleRate)}
}

func (h *Hosted) SetSampleRate(sampleRate float64) { h.fallback.SetSampleRate(sampleRate) }

func (h *Hosted) TickN(samples int) { h.fallback.TickN(samples) }

func (h *Hosted) Play() { h.fallback.Play() }

func (h *Hosted) Pause() { h.fallback.Pause() }

func (h *Hosted) Stop() { h.fallback.Stop() }

func (h *Hosted) SetTempo(bpm float64) { h.fallback.SetTempo(bpm) }

// TimeInfo returns the host transport if the host provides one. A missing
// host tempo is filled in from the fallback clock, and missing beats are
// derived from the sample position and the tempo.
func (h *Hosted) TimeInfo() TimeInfo {
	if h.source == nil {
		return h.fallback.TimeInfo()
	}
	info, ok := h.source.HostTimeInfo()
	if !ok {
		return h.fallback.TimeInfo()
	}
	if !info.TempoValid || info.Tempo <= 0 {
		info.Tempo, info.TempoValid = h.fallback.tempo.Load(), false
		if info.Tempo > 0 {
			info.TempoValid = true
		}
	}
	if !info.BeatsValid && info.TempoValid {
		if sr := h.fallback.sampleRate.Load(); sr > 0 {
			info.PositionBeats = info.PositionSamples * info.Tempo / 60 / sr
			info.BeatsValid = true
		}
	}
	return info
}
