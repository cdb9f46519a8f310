package indicators

import (
	talib "github.com/markcheno/go-talib"
)

// Stochastic returns the latest slow %K and %D of the stochastic
// oscillator. Both default to 50 (mid-range) on insufficient history.
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) (k, d float64) {
	if kPeriod < 1 || len(closes) < kPeriod+2*dPeriod || len(highs) != len(closes) || len(lows) != len(closes) {
		return 50.0, 50.0
	}
	slowK, slowD := talib.Stoch(highs, lows, closes, kPeriod, dPeriod, talib.SMA, dPeriod, talib.SMA)
	return last(slowK, 50.0), last(slowD, 50.0)
}

// ATR returns the latest Average True Range, 0 on insufficient history.
func ATR(highs, lows, closes []float64, period int) float64 {
	if period < 1 || len(closes) <= period || len(highs) != len(closes) || len(lows) != len(closes) {
		return 0
	}
	return last(talib.Atr(highs, lows, closes, period), 0)
}

// WilliamsR returns the latest Williams %R, -50 (mid-range) on
// insufficient history.
func WilliamsR(highs, lows, closes []float64, period int) float64 {
	if period < 1 || len(closes) < period || len(highs) != len(closes) || len(lows) != len(closes) {
		return -50.0
	}
	return last(talib.WillR(highs, lows, closes, period), -50.0)
}

// CCI returns the latest Commodity Channel Index, 0 on insufficient
// history.
func CCI(highs, lows, closes []float64, period int) float64 {
	if period < 2 || len(closes) < period || len(highs) != len(closes) || len(lows) != len(closes) {
		return 0
	}
	return last(talib.Cci(highs, lows, closes, period), 0)
}
