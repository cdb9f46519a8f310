package indicators

import (
	talib "github.com/markcheno/go-talib"
)

// SMA returns the latest simple moving average over period, or 0 when
// the series is shorter than the period.
func SMA(closes []float64, period int) float64 {
	if period < 1 || len(closes) < period {
		return 0
	}
	return last(talib.Sma(closes, period), 0)
}

// EMA returns the latest exponential moving average over period, or 0
// when the series is shorter than the period.
func EMA(closes []float64, period int) float64 {
	if period < 1 || len(closes) < period {
		return 0
	}
	return last(talib.Ema(closes, period), 0)
}
