// Package units provides shared constants and validation for interval units
package units

// Unit constants
const (
	S  = "s"
	MS = "ms"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{S, MS}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "s, ms"
}

// ConvertInterval converts an interval from seconds to the target units.
// The analysis packages work in seconds throughout.
func ConvertInterval(seconds float64, targetUnits string) float64 {
	switch targetUnits {
	case MS:
		return seconds * 1000
	default:
		return seconds
	}
}

// BPM converts an RR interval in seconds to an instantaneous heart rate.
// Non-positive intervals yield 0.
func BPM(seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return 60 / seconds
}
