package hrv

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/pulse.report/internal/signal"
)

// PNN50Threshold is the successive-difference magnitude, in seconds, counted
// by pNN50.
const PNN50Threshold = 0.050

// TimeMetrics are the time-domain HRV statistics of an RR series.
type TimeMetrics struct {
	N     int     `json:"n"`
	AVNN  float64 `json:"avnn"`
	SDNN  float64 `json:"sdnn"`
	RMSSD float64 `json:"rmssd"`
	PNN50 float64 `json:"pnn50"`
}

// Time computes AVNN (mean), SDNN (sample standard deviation), RMSSD and
// pNN50. The successive-difference statistics divide by n-1. AVNN is zero for
// an empty series and the others are zero below two intervals.
func Time(rr signal.RRSeries) TimeMetrics {
	n := len(rr.RR)
	m := TimeMetrics{N: n}
	if n == 0 {
		return m
	}
	m.AVNN = stat.Mean(rr.RR, nil)
	if n < 2 {
		return m
	}

	m.SDNN = stat.StdDev(rr.RR, nil)

	diffs := successiveDiffs(rr.RR)
	m.RMSSD = math.Sqrt(floats.Dot(diffs, diffs) / float64(n-1))
	over := floats.Count(func(d float64) bool { return math.Abs(d) > PNN50Threshold }, diffs)
	m.PNN50 = float64(over) / float64(n-1)
	return m
}

// sdnn is the sample standard deviation, zero below two values.
func sdnn(rr []float64) float64 {
	if len(rr) < 2 {
		return 0
	}
	return stat.StdDev(rr, nil)
}

// successiveDiffs returns rr[i+1]-rr[i].
func successiveDiffs(rr []float64) []float64 {
	if len(rr) < 2 {
		return nil
	}
	out := make([]float64, len(rr)-1)
	for i := range out {
		out[i] = rr[i+1] - rr[i]
	}
	return out
}
