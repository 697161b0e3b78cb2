package hrv

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// PSD allocates one sample per point of the resampled grid, so its memory
// grows with the recording span times the interpolation rate.
const (
	// MaxInterpFS is the highest accepted interpolation rate in Hz.
	MaxInterpFS = 1000.0
	// MaxResampledPoints bounds the resampled heart-rate signal. At the
	// default 4 Hz this is about six days of beats.
	MaxResampledPoints = 1 << 21
)

// CheckInterpFS reports whether fs is a usable interpolation rate.
func CheckInterpFS(fs float64) error {
	if !(fs > 0) || fs > MaxInterpFS {
		return fmt.Errorf("interpolation rate must be in (0, %g] Hz, got %g", MaxInterpFS, fs)
	}
	return nil
}

// CheckResampling reports whether PSD(rr, fs) stays within the resampling
// limits.
func CheckResampling(rr []float64, fs float64) error {
	if err := CheckInterpFS(fs); err != nil {
		return err
	}
	span := floats.Sum(rr)
	if points := span * fs; points > MaxResampledPoints {
		return fmt.Errorf("%.0f s of RR at %g Hz needs %.0f resampled points, limit is %d",
			span, fs, points, MaxResampledPoints)
	}
	return nil
}
