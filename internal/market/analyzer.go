package market

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quantforge/decider/internal/config"
	"github.com/quantforge/decider/internal/domain"
	"github.com/quantforge/decider/internal/indicators"
)

// minBars is the minimum number of valid daily bars required before the
// indicator suite runs. Below it only sentiment/fundamentals survive.
const minBars = 20

// Analyzer computes the market analysis snapshot for a symbol.
type Analyzer struct {
	provider  DataProvider
	sentiment SentimentAnalyzer // optional
	logger    zerolog.Logger
}

// NewAnalyzer creates an analyzer. The sentiment analyzer may be nil,
// in which case sentiment stays at its neutral 0.
func NewAnalyzer(provider DataProvider, sentiment SentimentAnalyzer) *Analyzer {
	return &Analyzer{
		provider:  provider,
		sentiment: sentiment,
		logger:    config.NewLogger("market_analyzer"),
	}
}

// fetchResults carries the outcome of the four concurrent sub-fetches.
// Each slot is filled independently; a failed fetch leaves its slot at
// the zero value and the analysis proceeds without it.
type fetchResults struct {
	history   []Candle
	info      *CompanyInfo
	sentiment *SentimentResult
	recent    []Candle
}

// Analyze builds the MarketAnalysis for a symbol. It never fails: any
// internal problem degrades to a neutral analysis so the decision
// pipeline always has a market snapshot to work with.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, dctx *domain.DecisionContext) (analysis *domain.MarketAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Str("symbol", symbol).
				Msg("Market analysis panicked, returning neutral analysis")
			analysis = domain.NeutralMarketAnalysis(symbol)
		}
	}()

	fetched := a.fetchAll(ctx, symbol)

	analysis = domain.NeutralMarketAnalysis(symbol)

	closes, highs, lows, volumes := splitBars(fetched.history)

	currentPrice := 0.0
	if dctx != nil && dctx.CurrentPrice > 0 {
		currentPrice = dctx.CurrentPrice
	} else if len(closes) > 0 {
		currentPrice = closes[len(closes)-1]
	}

	if len(closes) >= minBars {
		analysis.Indicators = computeIndicators(closes, highs, lows)
		analysis.SupportLevels, analysis.ResistanceLevels = indicators.SupportResistance(highs, lows, currentPrice)
		analysis.Trend = trendDirection(analysis.Indicators, closes, currentPrice)
		analysis.Volatility = indicators.AnnualizedVolatility(closes)
	} else {
		a.logger.Warn().Str("symbol", symbol).Int("bars", len(closes)).
			Msg("Insufficient history for indicators, keeping neutral technicals")
	}

	if fetched.info != nil {
		analysis.Fundamentals = &domain.Fundamentals{
			PERatio:       fetched.info.PERatio,
			MarketCap:     fetched.info.MarketCap,
			DividendYield: fetched.info.DividendYield,
		}
	}

	if fetched.sentiment != nil {
		analysis.SentimentScore = clamp(fetched.sentiment.OverallSentiment, -1, 1)
	}

	recentVolumes := volumes
	if len(fetched.recent) > 0 {
		_, _, _, recentVolumes = splitBars(fetched.recent)
	}
	analysis.VolumeTrend = volumeTrend(recentVolumes)
	analysis.LiquidityScore = liquidityScore(recentVolumes)

	a.logger.Debug().
		Str("symbol", symbol).
		Str("trend", string(analysis.Trend)).
		Float64("volatility", analysis.Volatility).
		Float64("sentiment", analysis.SentimentScore).
		Int("indicators", len(analysis.Indicators)).
		Msg("Market analysis complete")

	return analysis
}

// fetchAll runs the four sub-fetches concurrently. Failures are logged
// and swallowed; the caller sees nil/empty slots.
func (a *Analyzer) fetchAll(ctx context.Context, symbol string) fetchResults {
	var (
		results fetchResults
		wg      sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		history, err := a.provider.GetHistoricalData(ctx, symbol, "1y", "1d")
		if err != nil {
			a.logger.Warn().Err(err).Str("symbol", symbol).Msg("Historical data fetch failed")
			return
		}
		results.history = history
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		info, err := a.provider.GetCompanyInfo(ctx, symbol)
		if err != nil {
			a.logger.Warn().Err(err).Str("symbol", symbol).Msg("Company info fetch failed")
			return
		}
		results.info = info
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if a.sentiment == nil {
			return
		}
		sent, err := a.sentiment.AnalyzeSentiment(ctx, symbol, "1w")
		if err != nil {
			a.logger.Warn().Err(err).Str("symbol", symbol).Msg("Sentiment analysis failed")
			return
		}
		results.sentiment = sent
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		recent, err := a.provider.GetHistoricalData(ctx, symbol, "1mo", "1d")
		if err != nil {
			a.logger.Warn().Err(err).Str("symbol", symbol).Msg("Recent volume fetch failed")
			return
		}
		results.recent = recent
	}()

	wg.Wait()
	return results
}

// computeIndicators runs the full indicator suite. Every indicator is
// individually guarded inside the indicators package, so a degenerate
// series yields neutral values rather than gaps.
func computeIndicators(closes, highs, lows []float64) map[string]float64 {
	macd := indicators.MACD(closes, 12, 26, 9)
	bb := indicators.Bollinger(closes, 20, 2.0)
	stochK, stochD := indicators.Stochastic(highs, lows, closes, 14, 3)

	return map[string]float64{
		"last_close":     closes[len(closes)-1],
		"rsi_14":         indicators.RSI(closes, indicators.DefaultRSIPeriod),
		"macd":           macd.MACD,
		"macd_signal":    macd.Signal,
		"macd_histogram": macd.Histogram,
		"bb_upper":       bb.Upper,
		"bb_middle":      bb.Middle,
		"bb_lower":       bb.Lower,
		"bb_width":       bb.Width,
		"sma_20":         indicators.SMA(closes, 20),
		"sma_50":         indicators.SMA(closes, 50),
		"sma_200":        indicators.SMA(closes, 200),
		"ema_12":         indicators.EMA(closes, 12),
		"ema_26":         indicators.EMA(closes, 26),
		"stoch_k":        stochK,
		"stoch_d":        stochD,
		"atr_14":         indicators.ATR(highs, lows, closes, 14),
		"williams_r":     indicators.WilliamsR(highs, lows, closes, 14),
		"cci_20":         indicators.CCI(highs, lows, closes, 20),
	}
}

// trendDirection takes a majority vote across four binary signals:
// SMA20 vs SMA50, price vs SMA20, MACD vs its signal line, and the sign
// of a 20-bar regression slope. Votes that cannot be computed abstain;
// a tie is neutral.
func trendDirection(ind map[string]float64, closes []float64, currentPrice float64) domain.TrendDirection {
	score := 0

	sma20, sma50 := ind["sma_20"], ind["sma_50"]
	if sma20 > 0 && sma50 > 0 {
		if sma20 > sma50 {
			score++
		} else if sma20 < sma50 {
			score--
		}
	}

	if currentPrice > 0 && sma20 > 0 {
		if currentPrice > sma20 {
			score++
		} else if currentPrice < sma20 {
			score--
		}
	}

	macd, signal := ind["macd"], ind["macd_signal"]
	if macd != 0 || signal != 0 {
		if macd > signal {
			score++
		} else if macd < signal {
			score--
		}
	}

	if slope := indicators.LinRegSlope(closes, 20); slope > 0 {
		score++
	} else if slope < 0 {
		score--
	}

	switch {
	case score > 0:
		return domain.TrendBullish
	case score < 0:
		return domain.TrendBearish
	default:
		return domain.TrendNeutral
	}
}

// volumeTrend compares the last five bars of volume against the rest of
// the recent window.
func volumeTrend(volumes []float64) string {
	if len(volumes) < 10 {
		return "stable"
	}
	recent := indicators.Mean(volumes[len(volumes)-5:])
	base := indicators.Mean(volumes[:len(volumes)-5])
	if base <= 0 {
		return "stable"
	}
	ratio := recent / base
	switch {
	case ratio > 1.1:
		return "increasing"
	case ratio < 0.9:
		return "decreasing"
	default:
		return "stable"
	}
}

// liquidityScore maps average volume to a [0,1] liquidity estimate.
func liquidityScore(volumes []float64) float64 {
	if len(volumes) == 0 {
		return 0.5
	}
	avg := indicators.Mean(volumes)
	switch {
	case avg > 1_000_000:
		return 0.9
	case avg > 100_000:
		return 0.6
	case avg > 10_000:
		return 0.4
	default:
		return 0.2
	}
}

// splitBars extracts aligned price/volume series, dropping bars with a
// non-finite or non-positive close.
func splitBars(bars []Candle) (closes, highs, lows, volumes []float64) {
	for _, bar := range bars {
		if bar.Close <= 0 || math.IsNaN(bar.Close) || math.IsInf(bar.Close, 0) {
			continue
		}
		closes = append(closes, bar.Close)
		highs = append(highs, bar.High)
		lows = append(lows, bar.Low)
		volumes = append(volumes, float64(bar.Volume))
	}
	return closes, highs, lows, volumes
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
