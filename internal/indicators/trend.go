package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// LinRegSlope returns the slope of a least-squares line fitted over the
// last window bars. Returns 0 when the window does not fit or the
// regression degenerates.
func LinRegSlope(closes []float64, window int) float64 {
	if window < 2 || len(closes) < window {
		return 0
	}

	out := talib.LinearRegSlope(closes, window)
	slope := out[len(out)-1]
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return 0
	}
	return slope
}

// AnnualizedVolatility is the sample standard deviation of daily
// returns scaled by sqrt(252 trading days).
func AnnualizedVolatility(closes []float64) float64 {
	returns := DailyReturns(closes)
	if len(returns) < 2 {
		return 0
	}
	return StdDev(returns) * math.Sqrt(252.0)
}

// DailyReturns converts a price series into simple period returns,
// skipping bars with a non-positive previous close.
func DailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] > 0 {
			returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
		}
	}
	return returns
}
