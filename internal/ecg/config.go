package ecg

import (
	"fmt"
	"math"
)

// DetectorConfig tunes the conditioner and the adaptive detector.
type DetectorConfig struct {
	LowcutHz           float64 `json:"lowcut_hz"`
	HighcutHz          float64 `json:"highcut_hz"`
	IntegrationWindowS float64 `json:"integration_window_s"`
	// MinRRS is the physiological refractory floor between two beats.
	MinRRS         float64 `json:"min_rr_s"`
	ThresholdScale float64 `json:"threshold_scale"`
	SearchBackS    float64 `json:"search_back_s"`
}

// Default detector parameters.
const (
	DefaultLowcutHz           = 5.0
	DefaultHighcutHz          = 15.0
	DefaultIntegrationWindowS = 0.150
	DefaultMinRRS             = 0.25
	DefaultThresholdScale     = 0.6
	DefaultSearchBackS        = 0.150
)

// DefaultDetectorConfig returns the QRS-oriented defaults: a 5-15 Hz band,
// 150 ms integration and search-back windows, and a 250 ms refractory period.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		LowcutHz:           DefaultLowcutHz,
		HighcutHz:          DefaultHighcutHz,
		IntegrationWindowS: DefaultIntegrationWindowS,
		MinRRS:             DefaultMinRRS,
		ThresholdScale:     DefaultThresholdScale,
		SearchBackS:        DefaultSearchBackS,
	}
}

// Validate checks that every parameter is positive. The detector itself does
// not call Validate; boundaries that accept user input should.
func (c DetectorConfig) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"lowcut_hz", c.LowcutHz},
		{"highcut_hz", c.HighcutHz},
		{"integration_window_s", c.IntegrationWindowS},
		{"min_rr_s", c.MinRRS},
		{"threshold_scale", c.ThresholdScale},
		{"search_back_s", c.SearchBackS},
	}
	for _, f := range fields {
		if !(f.value > 0) {
			return fmt.Errorf("%s must be positive, got %g", f.name, f.value)
		}
	}
	if c.LowcutHz >= c.HighcutHz {
		return fmt.Errorf("lowcut_hz (%g) must be below highcut_hz (%g)", c.LowcutHz, c.HighcutHz)
	}
	return nil
}

// secondsToSamples converts a duration to a sample count, never below one.
func secondsToSamples(seconds, fs float64) int {
	n := int(math.Round(seconds * fs))
	if n < 1 {
		return 1
	}
	return n
}
