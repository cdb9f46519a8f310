package indicators

import (
	talib "github.com/markcheno/go-talib"
)

// BollingerResult holds the latest Bollinger band values. Width is
// (upper-lower)/middle, 0 when the middle band is 0.
type BollingerResult struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
	Width  float64 `json:"width"`
}

// Bollinger computes Bollinger Bands as SMA(period) +/- k standard
// deviations. Returns zeros when the series is too short.
func Bollinger(closes []float64, period int, k float64) BollingerResult {
	if period < 2 || len(closes) < period {
		return BollingerResult{}
	}
	upper, middle, lower := talib.BBands(closes, period, k, k, talib.SMA)

	result := BollingerResult{
		Upper:  last(upper, 0),
		Middle: last(middle, 0),
		Lower:  last(lower, 0),
	}
	if result.Middle != 0 {
		result.Width = (result.Upper - result.Lower) / result.Middle
	}
	return result
}
