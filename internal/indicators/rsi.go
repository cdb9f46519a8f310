package indicators

import (
	talib "github.com/markcheno/go-talib"
)

// DefaultRSIPeriod is the standard Wilder lookback.
const DefaultRSIPeriod = 14

// RSI returns the latest Relative Strength Index over the given period.
// With insufficient history or a degenerate series (zero average loss
// producing NaN downstream) it returns 50, the neutral midpoint. A
// series with gains and no losses legitimately returns 100.
func RSI(closes []float64, period int) float64 {
	if period < 1 || len(closes) <= period {
		return 50.0
	}
	series := talib.Rsi(closes, period)
	return last(series, 50.0)
}
