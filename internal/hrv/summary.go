package hrv

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/pulse.report/internal/signal"
	"github.com/banshee-data/pulse.report/internal/units"
)

// AverageRR returns the mean interval in seconds. ok is false for an empty
// series.
func AverageRR(rr signal.RRSeries) (mean float64, ok bool) {
	if rr.Len() == 0 {
		return 0, false
	}
	return stat.Mean(rr.RR, nil), true
}

// HeartRate returns the mean heart rate in beats per minute. ok is false when
// the mean interval is not positive.
func HeartRate(rr signal.RRSeries) (bpm float64, ok bool) {
	mean, ok := AverageRR(rr)
	if !ok || mean <= 0 {
		return 0, false
	}
	return units.BPM(mean), true
}

// HistogramBin is one bar of an RR histogram.
type HistogramBin struct {
	Center   float64 `json:"center"`
	Fraction float64 `json:"fraction"`
}

// Histogram splits [min, max] of the series into equal-width bins and returns
// each bin's centre with the fraction of intervals falling into it. The
// maximum value lands in the last bin. It returns nil for an empty series,
// zero bins or a series with no spread.
func Histogram(rr signal.RRSeries, bins int) []HistogramBin {
	if rr.Len() == 0 || bins <= 0 {
		return nil
	}
	lo, hi := floats.Min(rr.RR), floats.Max(rr.RR)
	if hi-lo < 1e-12 {
		return nil
	}
	width := (hi - lo) / float64(bins)

	counts := make([]int, bins)
	for _, v := range rr.RR {
		idx := int(math.Floor((v - lo) / width))
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}

	total := float64(rr.Len())
	out := make([]HistogramBin, bins)
	for i, c := range counts {
		out[i] = HistogramBin{
			Center:   lo + width*(float64(i)+0.5),
			Fraction: float64(c) / total,
		}
	}
	return out
}

// Summary holds the range and mean of an RR series.
type Summary struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// Summarize returns the zero Summary for an empty series.
func Summarize(rr signal.RRSeries) Summary {
	if rr.Len() == 0 {
		return Summary{}
	}
	return Summary{
		Min:   floats.Min(rr.RR),
		Max:   floats.Max(rr.RR),
		Mean:  stat.Mean(rr.RR, nil),
		Count: rr.Len(),
	}
}

// Derived bundles every HRV family computed from one RR series.
type Derived struct {
	RR        signal.RRSeries  `json:"rr_series"`
	Time      TimeMetrics      `json:"hrv_time"`
	PSD       PSDMetrics       `json:"hrv_psd"`
	Nonlinear NonlinearMetrics `json:"hrv_nonlinear"`
}

// Derive computes the time, frequency and nonlinear metrics of rr. A
// non-positive fsInterp selects DefaultInterpFS.
func Derive(rr signal.RRSeries, fsInterp float64) Derived {
	if fsInterp <= 0 {
		fsInterp = DefaultInterpFS
	}
	rr = signal.NewRRSeries(rr.RR)
	return Derived{
		RR:        rr,
		Time:      Time(rr),
		PSD:       PSD(rr, fsInterp),
		Nonlinear: Nonlinear(rr),
	}
}
