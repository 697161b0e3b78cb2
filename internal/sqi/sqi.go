// Package sqi scores how usable a recorded waveform and its RR series are.
//
// Each index is a plain function of its input so that callers can compute
// one in isolation; Evaluate bundles all five and Result.IsAcceptable applies
// the accept/reject rule.
package sqi

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/pulse.report/internal/signal"
)

const (
	// snrWindow is the length of the non-overlapping windows whose variance
	// estimates the noise floor.
	snrWindow = 5
	// snrNoiseFloor keeps SNR finite on perfectly smooth input.
	snrNoiseFloor = 1e-9

	// Acceptance limits.
	MinKurtosis = 0.0
	MinSNR      = 1.0
	MaxRRCV     = 0.2
)

// Result holds the signal quality indices.
type Result struct {
	Kurtosis        float64 `json:"kurtosis"`
	SNR             float64 `json:"snr"`
	RRCV            float64 `json:"rr_cv"`
	SpectralEntropy float64 `json:"spectral_entropy"`
	SpikeRatio      float64 `json:"ppg_spike_ratio"`
}

// IsAcceptable reports whether the recording passes the kurtosis, SNR and RR
// variability limits.
func (r Result) IsAcceptable() bool {
	return r.Kurtosis >= MinKurtosis && r.SNR >= MinSNR && r.RRCV <= MaxRRCV
}

// MarshalJSON adds the derived "acceptable" flag.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		Acceptable bool `json:"acceptable"`
	}{plain(r), r.IsAcceptable()})
}

// Evaluate computes every index for w and rr.
func Evaluate(w signal.Waveform, rr signal.RRSeries) Result {
	return Result{
		Kurtosis:        Kurtosis(w.Data),
		SNR:             SNR(w.Data),
		RRCV:            RRCV(rr.RR),
		SpectralEntropy: SpectralEntropy(w.Data),
		SpikeRatio:      SpikeRatio(w.Data),
	}
}

// Kurtosis is the fourth central moment over the squared second, both
// population moments. It is zero for empty or constant data.
func Kurtosis(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	m2 := stat.Moment(2, x, nil)
	if m2 == 0 {
		return 0
	}
	return stat.Moment(4, x, nil) / (m2 * m2)
}

// SNR is the mean signal power divided by the average variance of
// consecutive non-overlapping windows of five samples. A trailing partial
// window is ignored, and the result is zero when there is no full window.
func SNR(x []float64) float64 {
	windows := len(x) / snrWindow
	if windows == 0 {
		return 0
	}
	power := floats.Dot(x, x) / float64(len(x))

	var noise float64
	for k := 0; k < windows; k++ {
		noise += stat.PopVariance(x[k*snrWindow:(k+1)*snrWindow], nil)
	}
	noise = math.Max(noise/float64(windows), snrNoiseFloor)
	return power / noise
}

// RRCV is the population standard deviation of rr over its mean. It is zero
// for an empty series or a zero mean.
func RRCV(rr []float64) float64 {
	if len(rr) == 0 {
		return 0
	}
	mean, variance := stat.PopMeanVariance(rr, nil)
	if mean == 0 {
		return 0
	}
	return math.Sqrt(variance) / mean
}

// SpectralEntropy is the Shannon entropy, in bits, of the normalised power
// spectrum of the whole waveform.
func SpectralEntropy(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	coeffs := fourier.NewFFT(len(x)).Coefficients(nil, x)
	p := make([]float64, len(coeffs))
	for i, c := range coeffs {
		p[i] = real(c)*real(c) + imag(c)*imag(c)
	}
	total := floats.Sum(p)
	if total == 0 {
		return 0
	}
	floats.Scale(1/total, p)
	return stat.Entropy(p) / math.Ln2
}

// SpikeRatio is the fraction of absolute first differences exceeding their
// mean by more than two population standard deviations. It is zero below two
// samples or when every difference is equal.
func SpikeRatio(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	diffs := make([]float64, len(x)-1)
	for i := range diffs {
		diffs[i] = math.Abs(x[i+1] - x[i])
	}
	mean, variance := stat.PopMeanVariance(diffs, nil)
	sd := math.Sqrt(variance)
	if sd == 0 {
		return 0
	}
	limit := mean + 2*sd
	spikes := floats.Count(func(d float64) bool { return d > limit }, diffs)
	return float64(spikes) / float64(len(diffs))
}
