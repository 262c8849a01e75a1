package multitrack

type (
	// TempoEstimator guesses the tempo of a freshly recorded loop from its
	// length.
	TempoEstimator interface {
		Estimate(samples int, sampleRate float64) (bpm float64, ok bool)
	}

	// BeatPeriodEstimator assumes the loop is one bar long and doubles or
	// halves the number of beats in it until the tempo falls in
	// [MinTempo, MaxTempo).
	BeatPeriodEstimator struct {
		MinTempo    float64
		MaxTempo    float64
		BeatsPerBar int
	}
)

func DefaultEstimator() BeatPeriodEstimator {
	return BeatPeriodEstimator{MinTempo: 80, MaxTempo: 160, BeatsPerBar: 4}
}

func (e BeatPeriodEstimator) Estimate(samples int, sampleRate float64) (float64, bool) {
	if samples <= 0 || sampleRate <= 0 {
		return 0, false
	}
	beats := e.BeatsPerBar
	if beats <= 0 {
		beats = 4
	}
	seconds := float64(samples) / sampleRate
	bpm := float64(beats) * 60 / seconds
	if e.MinTempo <= 0 || e.MaxTempo <= e.MinTempo {
		return bpm, true
	}
	for i := 0; i < 64 && bpm < e.MinTempo; i++ {
		bpm *= 2
	}
	for i := 0; i < 64 && bpm >= e.MaxTempo; i++ {
		bpm /= 2
	}
	return bpm, true
}
