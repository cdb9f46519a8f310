package risk

import (
	"math"
	"slices"
)

// varHorizons and varConfidences define the computed VaR grid.
var (
	varHorizons    = []int{1, 5, 22}
	varConfidences = []float64{0.95, 0.99}
)

// historicalVaR returns the (1-confidence) percentile of the return
// distribution: the return at or below which the worst tail lies. The
// result is typically negative.
func historicalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	slices.Sort(sorted)

	idx := int(float64(len(sorted)) * (1 - confidence))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// parametricVaR assumes normally distributed returns and returns
// mean + z*stdev at the given confidence.
func parametricVaR(returns []float64, confidence float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := meanOf(returns)
	std := stdDevOf(returns)
	return mean + normPPF(1-confidence)*std
}

// conservativeVaR takes the lower (more negative) of the historical and
// parametric estimates, scaled by sqrt(horizon days).
func conservativeVaR(returns []float64, confidence float64, horizonDays int) float64 {
	hist := historicalVaR(returns, confidence)
	param := parametricVaR(returns, confidence)
	oneDay := math.Min(hist, param)
	return oneDay * math.Sqrt(float64(horizonDays))
}

// cvar returns the mean of returns at or below the historical VaR
// threshold at the given confidence (expected shortfall).
func cvar(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	threshold := historicalVaR(returns, confidence)
	var sum float64
	var count int
	for _, r := range returns {
		if r <= threshold {
			sum += r
			count++
		}
	}
	if count == 0 {
		return threshold
	}
	return sum / float64(count)
}

// normPPF is the inverse standard normal CDF (Acklam's rational
// approximation, relative error below 1.15e-9 on (0,1)).
func normPPF(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}

	a := [6]float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	b := [5]float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01}
	c := [6]float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	d := [4]float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00}

	const pLow = 0.02425
	const pHigh = 1 - pLow

	switch {
	case p < pLow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p <= pHigh:
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	default:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDevOf is the sample standard deviation (Bessel's correction).
func stdDevOf(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := meanOf(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
