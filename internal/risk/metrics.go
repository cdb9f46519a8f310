package risk

import (
	"math"
	"strings"
	"time"

	"github.com/quantforge/decider/internal/market"
)

// minBetaObservations is the overlap required before beta is reported.
const minBetaObservations = 60

// tradingDaysPerYear is used for annualization.
const tradingDaysPerYear = 252.0

// beta computes covariance(stock, benchmark)/variance(benchmark) over
// the date intersection of the two series. Returns nil with fewer than
// 60 overlapping return observations.
func beta(stockBars, benchBars []market.Candle) *float64 {
	benchByDay := make(map[time.Time]float64, len(benchBars))
	for _, bar := range benchBars {
		if bar.Close > 0 {
			benchByDay[day(bar.Date)] = bar.Close
		}
	}

	var stockCloses, benchCloses []float64
	for _, bar := range stockBars {
		if bar.Close <= 0 {
			continue
		}
		if benchClose, ok := benchByDay[day(bar.Date)]; ok {
			stockCloses = append(stockCloses, bar.Close)
			benchCloses = append(benchCloses, benchClose)
		}
	}

	stockReturns := returnsOf(stockCloses)
	benchReturns := returnsOf(benchCloses)
	if len(stockReturns) < minBetaObservations || len(stockReturns) != len(benchReturns) {
		return nil
	}

	stockMean := meanOf(stockReturns)
	benchMean := meanOf(benchReturns)

	var covariance, variance float64
	for i := range stockReturns {
		covariance += (stockReturns[i] - stockMean) * (benchReturns[i] - benchMean)
		variance += (benchReturns[i] - benchMean) * (benchReturns[i] - benchMean)
	}
	if variance == 0 {
		return nil
	}
	b := covariance / variance
	return &b
}

// sharpeRatio annualizes mean return and volatility over 252 trading
// days. Returns nil when volatility is zero.
func sharpeRatio(returns []float64, riskFreeRate float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	std := stdDevOf(returns)
	if std == 0 {
		return nil
	}
	annualizedReturn := meanOf(returns) * tradingDaysPerYear
	annualizedStd := std * math.Sqrt(tradingDaysPerYear)
	s := (annualizedReturn - riskFreeRate) / annualizedStd
	return &s
}

// maxDrawdown returns the deepest peak-to-trough decline as a positive
// fraction, nil for an empty series.
func maxDrawdown(closes []float64) *float64 {
	if len(closes) == 0 {
		return nil
	}
	peak := closes[0]
	worst := 0.0
	for _, price := range closes {
		if price > peak {
			peak = price
		}
		if peak > 0 {
			dd := (peak - price) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return &worst
}

// Sector keyword sets for the categorical sector-risk lookup.
var (
	highRiskSectors = []string{"technology", "biotech", "energy", "mining", "crypto"}
	lowRiskSectors  = []string{"utilities", "consumer staples", "consumer defensive", "healthcare"}

	// creditSensitiveSectors get a credit-risk score tiered by market cap.
	creditSensitiveSectors = []string{"financial", "bank", "real estate", "utilities", "insurance"}
)

// sectorRisk maps a sector name onto {0.8, 0.5, 0.3}.
func sectorRisk(sector string) float64 {
	lower := strings.ToLower(sector)
	for _, kw := range highRiskSectors {
		if strings.Contains(lower, kw) {
			return 0.8
		}
	}
	for _, kw := range lowRiskSectors {
		if strings.Contains(lower, kw) {
			return 0.3
		}
	}
	return 0.5
}

// concentrationRisk penalizes position weight progressively: doubled
// above 20%, one-and-a-half above 10%, linear below.
func concentrationRisk(weight float64) float64 {
	switch {
	case weight > 0.2:
		return math.Min(1, weight*2)
	case weight > 0.1:
		return weight * 1.5
	default:
		return weight
	}
}

// liquidityRisk tiers by average volume, bumped when volume is erratic
// (coefficient of variation above 0.5 or 1.0).
func liquidityRisk(volumes []float64) float64 {
	if len(volumes) == 0 {
		return 0.5
	}
	avg := meanOf(volumes)

	var base float64
	switch {
	case avg > 1_000_000:
		base = 0.2
	case avg > 100_000:
		base = 0.4
	default:
		base = 0.8
	}

	if avg > 0 {
		cv := stdDevOf(volumes) / avg
		if cv > 1.0 {
			base += 0.2
		} else if cv > 0.5 {
			base += 0.1
		}
	}
	return math.Min(1, base)
}

// creditRisk applies only to credit-sensitive sectors, tiered by market
// cap. Nil for everything else.
func creditRisk(sector string, marketCap *float64) *float64 {
	lower := strings.ToLower(sector)
	sensitive := false
	for _, kw := range creditSensitiveSectors {
		if strings.Contains(lower, kw) {
			sensitive = true
			break
		}
	}
	if !sensitive {
		return nil
	}

	score := 0.7
	if marketCap != nil {
		switch {
		case *marketCap > 50e9:
			score = 0.3
		case *marketCap > 10e9:
			score = 0.5
		}
	}
	return &score
}

func returnsOf(closes []float64) []float64 {
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

func day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
