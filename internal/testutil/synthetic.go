package testutil

import "math"

// ReferenceRR is the short RR fixture (seconds) used for detector recovery
// tests: eight intervals, nine beats.
var ReferenceRR = []float64{0.82, 0.78, 0.80, 0.79, 0.83, 0.77, 0.84, 0.88}

// RegressionRR is the twenty-interval RR fixture the HRV regression values
// were recorded against.
var RegressionRR = []float64{
	0.82, 0.78, 0.80, 0.79, 0.83, 0.77, 0.84, 0.88, 0.86, 0.81,
	0.79, 0.82, 0.85, 0.78, 0.80, 0.79, 0.83, 0.84, 0.82, 0.81,
}

// ECGOptions controls SyntheticECG.
type ECGOptions struct {
	FS        float64 // sampling rate, Hz
	LeadS     float64 // silence before the first beat, seconds
	TailS     float64 // silence after the last beat, seconds
	WidthS    float64 // gaussian pulse sigma, seconds
	Amplitude float64
	// WanderAmp adds a slow 0.3 Hz baseline sinusoid of this amplitude.
	WanderAmp float64
}

// DefaultECGOptions returns 250 Hz narrow pulses with half a second of
// padding on each side.
func DefaultECGOptions() ECGOptions {
	return ECGOptions{
		FS:        250,
		LeadS:     0.5,
		TailS:     0.5,
		WidthS:    0.01,
		Amplitude: 1,
	}
}

// SyntheticECG builds a waveform with one narrow gaussian pulse per beat. Beat
// times start at opts.LeadS and advance by each interval in rr, so the result
// contains len(rr)+1 beats. The returned indices are the nearest sample to
// each beat centre.
func SyntheticECG(rr []float64, opts ECGOptions) (data []float64, beats []int) {
	times := make([]float64, 0, len(rr)+1)
	t := opts.LeadS
	times = append(times, t)
	for _, r := range rr {
		t += r
		times = append(times, t)
	}

	n := int(math.Round((t + opts.TailS) * opts.FS))
	data = make([]float64, n)
	for i := range data {
		ts := float64(i) / opts.FS
		v := opts.WanderAmp * math.Sin(2*math.Pi*0.3*ts)
		for _, bt := range times {
			z := (ts - bt) / opts.WidthS
			if math.Abs(z) < 8 {
				v += opts.Amplitude * math.Exp(-0.5*z*z)
			}
		}
		data[i] = v
	}

	beats = make([]int, len(times))
	for i, bt := range times {
		beats[i] = int(math.Round(bt * opts.FS))
	}
	return data, beats
}
