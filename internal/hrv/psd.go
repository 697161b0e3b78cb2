package hrv

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/pulse.report/internal/signal"
)

// DefaultInterpFS is the resampling rate used when callers have no preference.
const DefaultInterpFS = 4.0

// Welch segment length in seconds of resampled signal, and the shortest
// segment in samples unless the signal itself is shorter.
const (
	welchSegmentS   = 30.0
	minWelchSegment = 4
)

// Band is a half-open frequency interval [Lo, Hi) in Hz.
type Band struct {
	Lo float64
	Hi float64
}

// Contains reports whether f lies in the band.
func (b Band) Contains(f float64) bool { return f >= b.Lo && f < b.Hi }

// Standard HRV frequency bands.
var (
	VLFBand = Band{Lo: 0.003, Hi: 0.04}
	LFBand  = Band{Lo: 0.04, Hi: 0.15}
	HFBand  = Band{Lo: 0.15, Hi: 0.4}
)

// PSDPoint is one (frequency, power) bin. It serialises as [freq, power].
type PSDPoint struct {
	Freq  float64
	Power float64
}

// MarshalJSON encodes the point as a two-element array.
func (p PSDPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Freq, p.Power})
}

// UnmarshalJSON decodes a two-element array.
func (p *PSDPoint) UnmarshalJSON(b []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	p.Freq, p.Power = pair[0], pair[1]
	return nil
}

// PSDMetrics are the frequency-domain HRV results.
type PSDMetrics struct {
	LF         float64    `json:"lf"`
	HF         float64    `json:"hf"`
	VLF        float64    `json:"vlf"`
	LFHF       float64    `json:"lf_hf"`
	TotalPower float64    `json:"total_power"`
	Points     []PSDPoint `json:"points"`
}

// PSD estimates the power spectrum of the instantaneous heart rate (bpm)
// resampled at fsInterp Hz and integrates the VLF, LF and HF bands.
func PSD(rr signal.RRSeries, fsInterp float64) PSDMetrics {
	freqs, powers := welch(resampleHeartRate(rr.RR, fsInterp), fsInterp)

	m := PSDMetrics{
		LF:         bandPower(freqs, powers, LFBand),
		HF:         bandPower(freqs, powers, HFBand),
		VLF:        bandPower(freqs, powers, VLFBand),
		TotalPower: floats.Sum(powers),
		Points:     make([]PSDPoint, len(freqs)),
	}
	if m.HF > 0 {
		m.LFHF = m.LF / m.HF
	}
	for i := range freqs {
		m.Points[i] = PSDPoint{Freq: freqs[i], Power: powers[i]}
	}
	return m
}

// resampleHeartRate places the RR series on a uniform grid at fs Hz. Each grid
// time t takes the heart rate of the first beat whose cumulative time is not
// before t (the last beat once t passes it), so the rate is held across each
// interval. Zero intervals map to 60 bpm.
func resampleHeartRate(rr []float64, fs float64) []float64 {
	if len(rr) == 0 || fs <= 0 {
		return nil
	}
	// Summed left to right. Grid times that land exactly on a beat time are
	// sensitive to the rounding of this total.
	times := make([]float64, len(rr))
	var acc float64
	for i, v := range rr {
		acc += v
		times[i] = acc
	}
	n := int(math.Ceil(times[len(times)-1] * fs))
	if n <= 0 {
		return nil
	}

	out := make([]float64, n)
	idx := 0
	for i := range out {
		t := float64(i) / fs
		for idx+1 < len(times) && times[idx] < t {
			idx++
		}
		if rr[idx] == 0 {
			out[i] = 60
		} else {
			out[i] = 60 / rr[idx]
		}
	}
	return out
}

// welch averages Hann-windowed one-sided periodograms over half-overlapping
// segments. Signals shorter than the minimum segment are analysed as a single
// segment; fewer than two samples give empty slices.
func welch(x []float64, fs float64) (freqs, powers []float64) {
	n := len(x)
	if n < 2 {
		return []float64{}, []float64{}
	}

	seg := int(math.Round(fs * welchSegmentS))
	if seg < minWelchSegment {
		seg = minWelchSegment
	}
	if seg > n {
		seg = n
	}
	step := seg / 2

	window := hann(seg)
	fft := fourier.NewFFT(seg)
	bins := seg/2 + 1
	frame := make([]float64, seg)
	coeffs := make([]complex128, bins)
	powers = make([]float64, bins)
	scale := 1 / float64(seg)

	segments := 0
	for pos := 0; pos+seg <= n; pos += step {
		floats.MulTo(frame, x[pos:pos+seg], window)
		fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			p := (real(c)*real(c) + imag(c)*imag(c)) * scale
			if k != 0 && !(seg%2 == 0 && k == seg/2) {
				p *= 2
			}
			powers[k] += p
		}
		segments++
	}
	floats.Scale(1/float64(segments), powers)

	freqs = make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * fs / float64(seg)
	}
	return freqs, powers
}

// hann returns the periodic Hann window of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}

func bandPower(freqs, powers []float64, b Band) float64 {
	var sum float64
	for i, f := range freqs {
		if b.Contains(f) {
			sum += powers[i]
		}
	}
	return sum
}
