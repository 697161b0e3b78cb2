package ecg

import "github.com/banshee-data/pulse.report/internal/signal"

// Baseline window of the moving-average peak picker.
const naiveBaselineS = 0.150

// detectNaive subtracts a causal moving-average baseline from the raw
// waveform and keeps positive strict local maxima of the residual that are at
// least minRRS apart.
func detectNaive(w signal.Waveform, minRRS float64) []int {
	data := w.Data
	if len(data) < 3 {
		return nil
	}

	minGap := secondsToSamples(minRRS, w.FS)
	baseline := causalMean(data, secondsToSamples(naiveBaselineS, w.FS))
	residual := make([]float64, len(data))
	for i, v := range data {
		residual[i] = v - baseline[i]
	}

	var peaks []int
	last := 0
	for i := 1; i < len(residual)-1; i++ {
		y := residual[i]
		if y <= 0 || y <= residual[i-1] || y <= residual[i+1] {
			continue
		}
		if len(peaks) == 0 || i-last >= minGap {
			peaks = append(peaks, i)
			last = i
		}
	}
	return peaks
}
