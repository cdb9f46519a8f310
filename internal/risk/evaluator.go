// Package risk derives risk metrics for a symbol and turns them into
// position-sizing and stop-loss recommendations. The evaluator never
// fails: a broken data source or an internal panic degrades to a fixed
// moderate assessment.
package risk

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantforge/decider/internal/config"
	"github.com/quantforge/decider/internal/domain"
	"github.com/quantforge/decider/internal/market"
)

// Score weights for the overall risk score. Weights of absent optional
// components (beta, credit) are dropped and the remainder renormalized
// to sum to 1.
const (
	weightVaR           = 0.30
	weightBeta          = 0.20
	weightSector        = 0.20
	weightConcentration = 0.15
	weightLiquidity     = 0.10
	weightCredit        = 0.05
)

// Options configures an Evaluator.
type Options struct {
	BenchmarkSymbol   string
	BenchmarkCacheTTL time.Duration
	RiskFreeRate      float64
}

// Evaluator computes risk assessments. Safe for concurrent use; the
// only shared state is the benchmark cache, which swaps entries
// atomically.
type Evaluator struct {
	provider        market.DataProvider
	benchmarkSymbol string
	riskFreeRate    float64
	cache           *benchmarkCache
	logger          zerolog.Logger
}

// NewEvaluator creates an evaluator with the given provider and options.
func NewEvaluator(provider market.DataProvider, opts Options) *Evaluator {
	if opts.BenchmarkSymbol == "" {
		opts.BenchmarkSymbol = "SPY"
	}
	return &Evaluator{
		provider:        provider,
		benchmarkSymbol: opts.BenchmarkSymbol,
		riskFreeRate:    opts.RiskFreeRate,
		cache:           newBenchmarkCache(opts.BenchmarkCacheTTL),
		logger:          config.NewLogger("risk_evaluator"),
	}
}

// BenchmarkFetchCount reports how many benchmark fetches have been
// issued. Exposed for cache behavior verification.
func (e *Evaluator) BenchmarkFetchCount() int64 {
	return e.cache.fetchCount()
}

// Assess computes the RiskAssessment for a symbol. It never fails; on
// catastrophic error it returns the fixed moderate assessment.
func (e *Evaluator) Assess(ctx context.Context, symbol string, dctx *domain.DecisionContext, portfolio *domain.Portfolio) (assessment *domain.RiskAssessment) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str("symbol", symbol).
				Msg("Risk assessment panicked, returning moderate default")
			assessment = domain.ModerateRiskAssessment(symbol)
		}
	}()

	stockBars, benchBars, info := e.fetchAll(ctx, symbol)

	closes, volumes := closesAndVolumes(stockBars)
	returns := returnsOf(closes)

	assessment = &domain.RiskAssessment{
		Symbol: symbol,
		VaR:    map[string]float64{},
	}

	if len(returns) >= 2 {
		for _, h := range varHorizons {
			for _, conf := range varConfidences {
				key := fmt.Sprintf("%dd_%d", h, int(conf*100))
				assessment.VaR[key] = conservativeVaR(returns, conf, h)
			}
		}
		assessment.VaR1Day = assessment.VaR["1d_95"]
		assessment.VaR5Day = assessment.VaR["5d_95"]
		assessment.CVaR1Day = cvar(returns, 0.95)
		assessment.CVaR5Day = assessment.CVaR1Day * math.Sqrt(5)
	}

	assessment.Beta = beta(stockBars, benchBars)
	assessment.SharpeRatio = sharpeRatio(returns, e.riskFreeRate)
	assessment.MaxDrawdown = maxDrawdown(closes)

	weight := positionWeight(symbol, dctx, portfolio)
	sector := ""
	var marketCap *float64
	if info != nil {
		sector = info.Sector
		marketCap = info.MarketCap
	}

	assessment.SectorRisk = sectorRisk(sector)
	assessment.ConcentrationRisk = concentrationRisk(weight)
	assessment.LiquidityRisk = liquidityRisk(volumes)
	assessment.CreditRisk = creditRisk(sector, marketCap)

	assessment.OverallRiskScore = e.overallScore(assessment, len(returns) >= 2)
	assessment.RiskLevel = domain.RiskLevelFromScore(assessment.OverallRiskScore)
	assessment.MaxPositionSize = maxPositionSize(assessment.RiskLevel, assessment.VaR1Day, weight)

	price := currentPrice(dctx, closes)
	assessment.RecommendedStopLoss = stopLoss(price, assessment.VaR5Day, assessment.MaxDrawdown)

	e.logger.Debug().
		Str("symbol", symbol).
		Float64("overall_risk", assessment.OverallRiskScore).
		Str("risk_level", string(assessment.RiskLevel)).
		Float64("max_position_size", assessment.MaxPositionSize).
		Msg("Risk assessment complete")

	return assessment
}

// fetchAll loads stock history, cached benchmark history and sector
// info concurrently. Each failure is logged and leaves its slot empty.
func (e *Evaluator) fetchAll(ctx context.Context, symbol string) (stockBars, benchBars []market.Candle, info *market.CompanyInfo) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		bars, err := e.provider.GetHistoricalData(ctx, symbol, "1y", "1d")
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", symbol).Msg("Stock history fetch failed")
			return
		}
		stockBars = bars
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		bars, err := e.cache.get(ctx, func(ctx context.Context) ([]market.Candle, error) {
			return e.provider.GetHistoricalData(ctx, e.benchmarkSymbol, "1y", "1d")
		})
		if err != nil {
			e.logger.Warn().Err(err).Str("benchmark", e.benchmarkSymbol).Msg("Benchmark history fetch failed")
			return
		}
		benchBars = bars
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		companyInfo, err := e.provider.GetCompanyInfo(ctx, symbol)
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", symbol).Msg("Company info fetch failed")
			return
		}
		info = companyInfo
	}()

	wg.Wait()
	return stockBars, benchBars, info
}

// overallScore is the weighted sum of present sub-scores, renormalized
// over present weights and clamped to [0,1].
func (e *Evaluator) overallScore(a *domain.RiskAssessment, hasVaR bool) float64 {
	var weighted, totalWeight float64

	if hasVaR {
		weighted += weightVaR * varScore(a.VaR1Day)
		totalWeight += weightVaR
	}
	if a.Beta != nil {
		weighted += weightBeta * math.Abs(*a.Beta) / 2.0
		totalWeight += weightBeta
	}
	weighted += weightSector * a.SectorRisk
	totalWeight += weightSector
	weighted += weightConcentration * a.ConcentrationRisk
	totalWeight += weightConcentration
	weighted += weightLiquidity * a.LiquidityRisk
	totalWeight += weightLiquidity
	if a.CreditRisk != nil {
		weighted += weightCredit * *a.CreditRisk
		totalWeight += weightCredit
	}

	if totalWeight == 0 {
		return 0.5
	}
	score := weighted / totalWeight
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// varScore scales 1-day VaR magnitude to a sub-score: a 10% daily VaR
// saturates at 1. Not clamped; the overall score clamps once.
func varScore(var1d float64) float64 {
	return math.Abs(var1d) * 10
}

// maxPositionSize starts from a base size per risk band and shrinks for
// high VaR and existing exposure, clamped to [0.01, 0.20].
func maxPositionSize(level domain.RiskLevel, var1d, positionWeight float64) float64 {
	var base float64
	switch level {
	case domain.RiskLow:
		base = 0.15
	case domain.RiskModerate:
		base = 0.10
	case domain.RiskHigh:
		base = 0.05
	default:
		base = 0.02
	}

	magnitude := math.Abs(var1d)
	if magnitude > 0.05 {
		base *= 0.5
	} else if magnitude > 0.03 {
		base *= 0.7
	}

	if positionWeight > 0.05 {
		base *= 0.8
	}

	return math.Min(0.20, math.Max(0.01, base))
}

// stopLoss picks the least restrictive (highest) of the candidate stop
// prices derived from 5-day VaR, max drawdown and a flat 10% floor.
// Nil when no current price is known.
func stopLoss(price, var5d float64, maxDD *float64) *float64 {
	if price <= 0 {
		return nil
	}

	best := price * 0.9
	if var5d < 0 {
		if candidate := price * (1 + 2*var5d); candidate > best {
			best = candidate
		}
	}
	if maxDD != nil {
		if candidate := price * (1 - 0.5**maxDD); candidate > best {
			best = candidate
		}
	}
	if best <= 0 || best >= price {
		return nil
	}
	return &best
}

func positionWeight(symbol string, dctx *domain.DecisionContext, portfolio *domain.Portfolio) float64 {
	if dctx != nil && dctx.PositionWeight > 0 {
		return dctx.PositionWeight
	}
	if portfolio != nil {
		return portfolio.PositionFor(symbol).Weight
	}
	return 0
}

func currentPrice(dctx *domain.DecisionContext, closes []float64) float64 {
	if dctx != nil && dctx.CurrentPrice > 0 {
		return dctx.CurrentPrice
	}
	if len(closes) > 0 {
		return closes[len(closes)-1]
	}
	return 0
}

func closesAndVolumes(bars []market.Candle) (closes, volumes []float64) {
	for _, bar := range bars {
		if bar.Close <= 0 {
			continue
		}
		closes = append(closes, bar.Close)
		volumes = append(volumes, float64(bar.Volume))
	}
	return closes, volumes
}
