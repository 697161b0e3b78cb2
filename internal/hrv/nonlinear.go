package hrv

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/pulse.report/internal/signal"
)

const (
	// SampleEntropyM is the template length for sample entropy.
	SampleEntropyM = 2
	// sampleEntropyR is the tolerance as a fraction of SDNN.
	sampleEntropyR = 0.2
	// sampleEntropyMinSD keeps the tolerance positive on constant series.
	sampleEntropyMinSD = 1e-4

	// DFAMinWindow and DFAMaxWindow bound the short-term DFA window sizes.
	DFAMinWindow = 4
	DFAMaxWindow = 16
	// dfaMinSamples is the shortest series DFA is attempted on.
	dfaMinSamples = 8
)

// NonlinearMetrics are the nonlinear HRV descriptors.
type NonlinearMetrics struct {
	SD1         float64 `json:"sd1"`
	SD2         float64 `json:"sd2"`
	SampEntropy float64 `json:"samp_entropy"`
	DFAAlpha1   float64 `json:"dfa_alpha1"`
}

// Nonlinear computes the Poincaré descriptors, sample entropy and DFA α1.
func Nonlinear(rr signal.RRSeries) NonlinearMetrics {
	sd1, sd2 := poincare(rr.RR)
	return NonlinearMetrics{
		SD1:         sd1,
		SD2:         sd2,
		SampEntropy: sampleEntropy(rr.RR, SampleEntropyM),
		DFAAlpha1:   dfaAlpha1(rr.RR),
	}
}

// poincare returns SD1 from the population variance of successive
// differences and SD2 from SDNN and SD1. Both are zero below two intervals.
func poincare(rr []float64) (sd1, sd2 float64) {
	if len(rr) < 2 {
		return 0, 0
	}
	sd1 = math.Sqrt(0.5 * stat.PopVariance(successiveDiffs(rr), nil))
	s := sdnn(rr)
	sd2 = math.Sqrt(math.Max(0, 2*s*s-sd1*sd1))
	return sd1, sd2
}

// sampleEntropy is -ln(A/B), where B counts pairs of length-m templates within
// Chebyshev distance r and A counts those pairs that still match at length
// m+1. r is 0.2 times SDNN. The result is zero when either count is zero or
// the series is shorter than m+2.
func sampleEntropy(x []float64, m int) float64 {
	n := len(x)
	if n < m+2 {
		return 0
	}
	r := sampleEntropyR * math.Max(sdnn(x), sampleEntropyMinSD)

	var b, a int
	// Only the n-m templates that have an (m+1)th sample take part, so every
	// pair counted in b can also be counted in a.
	for i := 0; i < n-m; i++ {
		for j := i + 1; j < n-m; j++ {
			if !withinTolerance(x[i:i+m], x[j:j+m], r) {
				continue
			}
			b++
			if math.Abs(x[i+m]-x[j+m]) < r {
				a++
			}
		}
	}
	if a == 0 || b == 0 {
		return 0
	}
	return math.Log(float64(b) / float64(a))
}

func withinTolerance(u, v []float64, r float64) bool {
	for k := range u {
		if math.Abs(u[k]-v[k]) >= r {
			return false
		}
	}
	return true
}

// dfaAlpha1 integrates the mean-centred series, linearly detrends it in
// non-overlapping windows of DFAMinWindow..DFAMaxWindow samples and returns the
// slope of log RMS fluctuation against log window size.
func dfaAlpha1(rr []float64) float64 {
	n := len(rr)
	if n < dfaMinSamples {
		return 0
	}

	mean := stat.Mean(rr, nil)
	centred := append([]float64(nil), rr...)
	floats.AddConst(-mean, centred)
	profile := floats.CumSum(make([]float64, n), centred)

	maxWin := DFAMaxWindow
	if maxWin > n {
		maxWin = n
	}

	var logN, logF []float64
	for win := DFAMinWindow; win <= maxWin; win++ {
		f := fluctuation(profile, win)
		if f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f) {
			logN = append(logN, math.Log(float64(win)))
			logF = append(logF, math.Log(f))
		}
	}
	if len(logN) < 2 {
		return 0
	}
	_, slope := stat.LinearRegression(logN, logF, nil, false)
	return slope
}

// fluctuation is the RMS residual of per-window least-squares line fits over
// the complete windows of length win. It is zero when no window fits.
func fluctuation(profile []float64, win int) float64 {
	segments := len(profile) / win
	if segments == 0 {
		return 0
	}
	xs := make([]float64, win)
	for k := range xs {
		xs[k] = float64(k)
	}

	var sumSq float64
	for s := 0; s < segments; s++ {
		seg := profile[s*win : (s+1)*win]
		intercept, slope := stat.LinearRegression(xs, seg, nil, false)
		for k, y := range seg {
			r := y - (intercept + slope*xs[k])
			sumSq += r * r
		}
	}
	return math.Sqrt(sumSq / float64(segments*win))
}
