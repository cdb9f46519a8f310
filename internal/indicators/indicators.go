// Package indicators computes the technical indicators the market
// analyzer feeds on. Every function is total: when the input series is
// too short or the math degenerates, a documented neutral default comes
// back instead of an error, so one broken indicator never aborts an
// analysis.
package indicators

import "math"

// last returns the final element of a series, or fallback when the
// series is empty or the element is not a finite number.
func last(series []float64, fallback float64) float64 {
	if len(series) == 0 {
		return fallback
	}
	v := series[len(series)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// Mean returns the arithmetic mean of values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (Bessel's correction).
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
