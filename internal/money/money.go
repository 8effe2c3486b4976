// Package money holds the rounding and clamping helpers shared by every
// monetary computation in the engine.
package money

import "math"

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ClampNonNegative floors v at zero.
func ClampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// WithinTolerance reports whether the remaining balance is effectively zero
// given the configured paid tolerance.
func WithinTolerance(remaining, tolerance float64) bool {
	return remaining <= tolerance
}
