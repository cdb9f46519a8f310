package indicators

import (
	"math"
	"sort"
)

// pivotWindow is the number of neighbors on each side a bar must
// dominate to count as a local pivot.
const pivotWindow = 5

// maxLevels caps how many support/resistance levels are kept per side.
const maxLevels = 5

// SupportResistance detects local pivots over a +/-5 bar window. A bar
// is resistance when its high is the maximum of the neighborhood and
// support when its low is the minimum. At most 5 levels are kept on
// each side of the current price, sorted by proximity to it.
func SupportResistance(highs, lows []float64, currentPrice float64) (support, resistance []float64) {
	n := len(highs)
	if n != len(lows) || n < 2*pivotWindow+1 {
		return nil, nil
	}

	for i := pivotWindow; i < n-pivotWindow; i++ {
		isHigh, isLow := true, true
		for j := i - pivotWindow; j <= i+pivotWindow; j++ {
			if j == i {
				continue
			}
			if highs[j] > highs[i] {
				isHigh = false
			}
			if lows[j] < lows[i] {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh && highs[i] > currentPrice {
			resistance = append(resistance, highs[i])
		}
		if isLow && lows[i] < currentPrice {
			support = append(support, lows[i])
		}
	}

	support = nearestLevels(support, currentPrice)
	resistance = nearestLevels(resistance, currentPrice)
	return support, resistance
}

// nearestLevels sorts levels by distance to price and keeps the closest
// maxLevels, de-duplicated.
func nearestLevels(levels []float64, price float64) []float64 {
	if len(levels) == 0 {
		return nil
	}
	seen := make(map[float64]struct{}, len(levels))
	unique := levels[:0]
	for _, lv := range levels {
		if _, ok := seen[lv]; ok {
			continue
		}
		seen[lv] = struct{}{}
		unique = append(unique, lv)
	}
	sort.Slice(unique, func(i, j int) bool {
		return math.Abs(unique[i]-price) < math.Abs(unique[j]-price)
	})
	if len(unique) > maxLevels {
		unique = unique[:maxLevels]
	}
	return unique
}
