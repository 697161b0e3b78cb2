package ecg

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/pulse.report/internal/monitoring"
	"github.com/banshee-data/pulse.report/internal/signal"
)

// strategy records which algorithm produced a detection result. It never
// leaves the package: callers only see Events.
type strategy int

const (
	strategyNone strategy = iota
	strategyAdaptive
	strategyFallback
)

func (s strategy) String() string {
	switch s {
	case strategyAdaptive:
		return "adaptive"
	case strategyFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Exponential tracker weight applied to each new envelope sample.
const levelWeight = 0.125

// levelTracker follows the running signal and noise levels of the envelope
// and derives the detection threshold from them.
type levelTracker struct {
	signal    float64
	noise     float64
	scale     float64
	threshold float64
}

func newLevelTracker(initial, scale float64) *levelTracker {
	t := &levelTracker{signal: initial, noise: initial / 2, scale: scale}
	t.recompute()
	return t
}

func (t *levelTracker) recompute() {
	gap := t.signal - t.noise
	if gap < 0 {
		gap = 0
	}
	t.threshold = t.noise + t.scale*gap
}

func (t *levelTracker) observeSignal(v float64) {
	t.signal = levelWeight*v + (1-levelWeight)*t.signal
}

func (t *levelTracker) observeNoise(v float64) {
	t.noise = levelWeight*v + (1-levelWeight)*t.noise
}

// Detect finds beats using the default configuration with the refractory
// period set to minRRS seconds.
func Detect(w signal.Waveform, minRRS float64) signal.Events {
	cfg := DefaultDetectorConfig()
	cfg.MinRRS = minRRS
	return DetectWithConfig(w, cfg)
}

// DetectWithConfig finds beats in w. It runs the adaptive detector and falls
// back to the moving-average peak picker when fewer than two beats are found.
// An empty waveform yields empty Events.
func DetectWithConfig(w signal.Waveform, cfg DetectorConfig) signal.Events {
	events, _ := detect(w, cfg)
	return events
}

func detect(w signal.Waveform, cfg DetectorConfig) (signal.Events, strategy) {
	if w.IsEmpty() {
		return signal.EventsFromIndices(nil), strategyNone
	}

	beats := detectAdaptive(w, cfg)
	if len(beats) >= 2 {
		return signal.EventsFromIndices(beats), strategyAdaptive
	}

	fallback := detectNaive(w, cfg.MinRRS)
	monitoring.Logf("ecg: adaptive detector found %d beat(s) in %d samples, using moving-average fallback (%d beats)",
		len(beats), w.Len(), len(fallback))
	return signal.EventsFromIndices(fallback), strategyFallback
}

// detectAdaptive runs the threshold state machine over the envelope and
// returns sorted, de-duplicated beat positions.
func detectAdaptive(w signal.Waveform, cfg DetectorConfig) []int {
	bandpassed, envelope := Condition(w, cfg)
	n := len(envelope)

	warmup := secondsToSamples(1, w.FS)
	if warmup > n {
		warmup = n
	}
	levels := newLevelTracker(stat.Mean(envelope[:warmup], nil), cfg.ThresholdScale)

	refractory := secondsToSamples(cfg.MinRRS, w.FS)
	searchBack := secondsToSamples(cfg.SearchBackS, w.FS)

	var beats []int
	lastDetection := -1
	for i, v := range envelope {
		// A zero-energy envelope cannot hold a beat, even when the threshold
		// has collapsed to zero on a flat recording.
		fire := v > 0 && v >= levels.threshold &&
			(lastDetection < 0 || i-lastDetection >= refractory)
		if fire {
			lo := i - searchBack
			if lo < 0 {
				lo = 0
			}
			beats = append(beats, lo+floats.MaxIdx(bandpassed[lo:i+1]))
			lastDetection = i
			levels.observeSignal(v)
		} else {
			levels.observeNoise(v)
		}
		levels.recompute()
	}

	return sortUnique(beats)
}

func sortUnique(idx []int) []int {
	if len(idx) == 0 {
		return idx
	}
	sort.Ints(idx)
	out := idx[:1]
	for _, v := range idx[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
