package ecg

import (
	"math"

	"github.com/banshee-data/pulse.report/internal/signal"
)

// highPass is a one-pole RC high-pass filter.
type highPass struct {
	alpha   float64
	prevIn  float64
	prevOut float64
	primed  bool
}

// newHighPass returns nil when cutoff is outside (0, fs/2), which disables the
// stage.
func newHighPass(cutoff, fs float64) *highPass {
	if cutoff <= 0 || cutoff >= fs/2 {
		return nil
	}
	rc := 1 / (2 * math.Pi * cutoff)
	dt := 1 / fs
	return &highPass{alpha: rc / (rc + dt)}
}

// Filter returns the next output sample. The first output is zero.
func (f *highPass) Filter(x float64) float64 {
	if !f.primed {
		f.primed = true
		f.prevIn = x
		f.prevOut = 0
		return 0
	}
	y := f.alpha * (f.prevOut + x - f.prevIn)
	f.prevIn = x
	f.prevOut = y
	return y
}

// lowPass is a one-pole RC low-pass (exponential smoothing) filter.
type lowPass struct {
	alpha  float64
	out    float64
	primed bool
}

func newLowPass(cutoff, fs float64) *lowPass {
	if cutoff <= 0 || cutoff >= fs/2 {
		return nil
	}
	rc := 1 / (2 * math.Pi * cutoff)
	dt := 1 / fs
	return &lowPass{alpha: dt / (rc + dt)}
}

// Filter returns the next output sample. The state is seeded with the first
// input so a DC offset does not ring through.
func (f *lowPass) Filter(x float64) float64 {
	if !f.primed {
		f.primed = true
		f.out = x
		return x
	}
	f.out += f.alpha * (x - f.out)
	return f.out
}

// causalMean returns the trailing moving average of x over win samples. The
// divisor is always win, so the first win-1 outputs ramp up from zero.
func causalMean(x []float64, win int) []float64 {
	out := make([]float64, len(x))
	var acc float64
	for i, v := range x {
		acc += v
		if i >= win {
			acc -= x[i-win]
		}
		out[i] = acc / float64(win)
	}
	return out
}

// Condition band-passes w and derives the beat envelope. bandpassed is the
// filtered waveform before differentiation; envelope is the integrated
// squared derivative. Both have len(w.Data) samples and every output depends
// only on inputs at or before its index.
func Condition(w signal.Waveform, cfg DetectorConfig) (bandpassed, envelope []float64) {
	n := len(w.Data)
	bandpassed = make([]float64, n)
	if n == 0 {
		return bandpassed, []float64{}
	}

	hp := newHighPass(cfg.LowcutHz, w.FS)
	lp := newLowPass(cfg.HighcutHz, w.FS)
	for i, x := range w.Data {
		if hp != nil {
			x = hp.Filter(x)
		}
		if lp != nil {
			x = lp.Filter(x)
		}
		bandpassed[i] = x
	}

	squared := make([]float64, n)
	for i := 1; i < n; i++ {
		d := bandpassed[i] - bandpassed[i-1]
		squared[i] = d * d
	}

	envelope = causalMean(squared, secondsToSamples(cfg.IntegrationWindowS, w.FS))
	return bandpassed, envelope
}
