package indicators

import (
	talib "github.com/markcheno/go-talib"
)

// MACDResult holds the latest MACD line, signal line and histogram.
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD computes MACD(fast, slow, signal) and returns the most recent
// values. Returns all zeros when the series is too short.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	if len(closes) <= slow+signal {
		return MACDResult{}
	}
	macdLine, signalLine, hist := talib.Macd(closes, fast, slow, signal)
	return MACDResult{
		MACD:      last(macdLine, 0),
		Signal:    last(signalLine, 0),
		Histogram: last(hist, 0),
	}
}
