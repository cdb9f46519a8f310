package risk

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/decider/internal/domain"
	"github.com/quantforge/decider/internal/market"
)

// riskStub serves per-symbol canned bars and counts history calls.
type riskStub struct {
	mu      sync.Mutex
	bars    map[string][]market.Candle
	info    *market.CompanyInfo
	failAll bool
	calls   map[string]int
}

func newRiskStub() *riskStub {
	return &riskStub{
		bars:  map[string][]market.Candle{},
		calls: map[string]int{},
	}
}

func (s *riskStub) GetQuote(_ context.Context, symbol string) (*market.Quote, error) {
	return nil, fmt.Errorf("quote unavailable for %s", symbol)
}

func (s *riskStub) GetHistoricalData(_ context.Context, symbol, _, _ string) ([]market.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[symbol]++
	if s.failAll {
		return nil, fmt.Errorf("history unavailable for %s", symbol)
	}
	return s.bars[symbol], nil
}

func (s *riskStub) GetCompanyInfo(_ context.Context, symbol string) (*market.CompanyInfo, error) {
	if s.failAll || s.info == nil {
		return nil, fmt.Errorf("company info unavailable for %s", symbol)
	}
	return s.info, nil
}

func (s *riskStub) historyCalls(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[symbol]
}

// seriesFromReturns builds daily bars whose simple returns are exactly
// the given sequence, repeated until n bars exist.
func seriesFromReturns(n int, start float64, pattern []float64, volume int64) []market.Candle {
	bars := make([]market.Candle, n)
	price := start
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		if i > 0 {
			price *= 1 + pattern[(i-1)%len(pattern)]
		}
		bars[i] = market.Candle{
			Date:   base.AddDate(0, 0, i),
			Close:  price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Volume: volume,
		}
	}
	return bars
}

func TestAssessWithFullData(t *testing.T) {
	stub := newRiskStub()
	pattern := []float64{0.01, -0.008, 0.004, -0.012, 0.015}
	stub.bars["ACME"] = seriesFromReturns(252, 100, pattern, 2_000_000)
	stub.bars["SPY"] = seriesFromReturns(252, 400, pattern, 50_000_000)
	stub.info = &market.CompanyInfo{Symbol: "ACME", Sector: "Technology", MarketCap: ptr(100e9)}

	evaluator := NewEvaluator(stub, Options{RiskFreeRate: 0.03})
	assessment := evaluator.Assess(context.Background(), "ACME", nil, nil)

	require.NotNil(t, assessment)
	assert.Len(t, assessment.VaR, 6, "3 horizons x 2 confidences")
	assert.Less(t, assessment.VaR1Day, 0.0)
	assert.Less(t, assessment.VaR5Day, assessment.VaR1Day, "5-day VaR scales with sqrt(horizon)")
	assert.Less(t, assessment.CVaR1Day, 0.0)

	require.NotNil(t, assessment.Beta)
	assert.InDelta(t, 1.0, *assessment.Beta, 1e-6, "identical return pattern tracks the benchmark")

	require.NotNil(t, assessment.MaxDrawdown)
	assert.Greater(t, *assessment.MaxDrawdown, 0.0)

	assert.Equal(t, 0.8, assessment.SectorRisk)
	assert.GreaterOrEqual(t, assessment.OverallRiskScore, 0.0)
	assert.LessOrEqual(t, assessment.OverallRiskScore, 1.0)
	assert.GreaterOrEqual(t, assessment.MaxPositionSize, 0.01)
	assert.LessOrEqual(t, assessment.MaxPositionSize, 0.20)
}

// TestAssessDegradedOnNoData verifies a total data outage yields a
// usable middle-of-the-road assessment, not an error
func TestAssessDegradedOnNoData(t *testing.T) {
	stub := newRiskStub()
	stub.failAll = true

	evaluator := NewEvaluator(stub, Options{})
	assessment := evaluator.Assess(context.Background(), "ACME", nil, nil)

	require.NotNil(t, assessment)
	assert.Empty(t, assessment.VaR)
	assert.Nil(t, assessment.Beta)
	assert.Nil(t, assessment.SharpeRatio)
	assert.Nil(t, assessment.MaxDrawdown)
	assert.Nil(t, assessment.CreditRisk)
	assert.Equal(t, domain.RiskModerate, assessment.RiskLevel)
	assert.Equal(t, 0.10, assessment.MaxPositionSize)
	assert.Nil(t, assessment.RecommendedStopLoss)
}

// TestBenchmarkCacheIdempotence verifies a second assessment within the
// TTL does not refetch benchmark data
func TestBenchmarkCacheIdempotence(t *testing.T) {
	stub := newRiskStub()
	pattern := []float64{0.01, -0.01}
	stub.bars["ACME"] = seriesFromReturns(100, 100, pattern, 500_000)
	stub.bars["SPY"] = seriesFromReturns(100, 400, pattern, 50_000_000)

	evaluator := NewEvaluator(stub, Options{BenchmarkCacheTTL: 4 * time.Hour})

	_ = evaluator.Assess(context.Background(), "ACME", nil, nil)
	_ = evaluator.Assess(context.Background(), "ACME", nil, nil)

	assert.EqualValues(t, 1, evaluator.BenchmarkFetchCount())
	assert.Equal(t, 1, stub.historyCalls("SPY"))
	assert.Equal(t, 2, stub.historyCalls("ACME"))
}

func TestBenchmarkCacheExpiry(t *testing.T) {
	cache := newBenchmarkCache(10 * time.Millisecond)
	fetch := func(context.Context) ([]market.Candle, error) {
		return []market.Candle{{Close: 1}}, nil
	}

	_, err := cache.get(context.Background(), fetch)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = cache.get(context.Background(), fetch)
	require.NoError(t, err)

	assert.EqualValues(t, 2, cache.fetchCount())
}

// TestBenchmarkCacheServesStaleOnError verifies a failed refresh falls
// back to the previous entry
func TestBenchmarkCacheServesStaleOnError(t *testing.T) {
	cache := newBenchmarkCache(10 * time.Millisecond)

	_, err := cache.get(context.Background(), func(context.Context) ([]market.Candle, error) {
		return []market.Candle{{Close: 42}}, nil
	})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	bars, err := cache.get(context.Background(), func(context.Context) ([]market.Candle, error) {
		return nil, fmt.Errorf("benchmark feed down")
	})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 42.0, bars[0].Close)
}

func TestConcentrationRisk(t *testing.T) {
	tests := []struct {
		weight float64
		want   float64
	}{
		{0.25, 0.5}, // min(1, 0.25*2)
		{0.60, 1.0}, // capped
		{0.15, 0.225},
		{0.05, 0.05},
		{0, 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, concentrationRisk(tt.weight), 1e-9, "weight %v", tt.weight)
	}
}

// TestOverallScoreClamped verifies extreme sub-risks cannot push the
// overall score outside [0,1]
func TestOverallScoreClamped(t *testing.T) {
	evaluator := NewEvaluator(newRiskStub(), Options{})
	a := &domain.RiskAssessment{
		VaR1Day:           -0.50, // varScore 5.0, far above 1
		SectorRisk:        1.0,
		ConcentrationRisk: 1.0,
		LiquidityRisk:     1.0,
	}

	score := evaluator.overallScore(a, true)
	assert.Equal(t, 1.0, score)
}

// TestOverallScoreRenormalizes verifies absent optional components
// redistribute their weight instead of zero-filling
func TestOverallScoreRenormalizes(t *testing.T) {
	evaluator := NewEvaluator(newRiskStub(), Options{})
	a := &domain.RiskAssessment{
		SectorRisk:        0.5,
		ConcentrationRisk: 0.5,
		LiquidityRisk:     0.5,
	}

	// No VaR, beta or credit: every present sub-score is 0.5, so the
	// renormalized result must be exactly 0.5 rather than diluted.
	score := evaluator.overallScore(a, false)
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestVarScoreUnbounded(t *testing.T) {
	assert.InDelta(t, 0.2, varScore(-0.02), 1e-9)
	assert.InDelta(t, 5.0, varScore(-0.50), 1e-9)
}

func TestHistoricalVaR(t *testing.T) {
	returns := make([]float64, 20)
	for i := range returns {
		returns[i] = 0.01
	}
	returns[0] = -0.10
	returns[1] = -0.05

	assert.InDelta(t, -0.05, historicalVaR(returns, 0.95), 1e-9)
	assert.Equal(t, 0.0, historicalVaR(nil, 0.95))
}

func TestCVaR(t *testing.T) {
	returns := make([]float64, 20)
	for i := range returns {
		returns[i] = 0.01
	}
	returns[0] = -0.10
	returns[1] = -0.05

	// Tail at or below the 95% VaR threshold: -0.10 and -0.05.
	assert.InDelta(t, -0.075, cvar(returns, 0.95), 1e-9)
}

func TestParametricVaRNegativeForSymmetricReturns(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.01, -0.01, 0.01, -0.01}
	assert.Less(t, parametricVaR(returns, 0.95), 0.0)
}

func TestConservativeVaRScalesWithHorizon(t *testing.T) {
	returns := []float64{0.01, -0.02, 0.015, -0.01, 0.005, -0.015}
	oneDay := conservativeVaR(returns, 0.95, 1)
	fiveDay := conservativeVaR(returns, 0.95, 5)
	assert.Less(t, fiveDay, oneDay)
}

func TestNormPPF(t *testing.T) {
	assert.InDelta(t, 0.0, normPPF(0.5), 1e-9)
	assert.InDelta(t, -1.6449, normPPF(0.05), 1e-3)
	assert.InDelta(t, -2.3263, normPPF(0.01), 1e-3)
	assert.InDelta(t, 1.6449, normPPF(0.95), 1e-3)
}

func TestBetaScalesWithLeverage(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var stockBars, benchBars []market.Candle
	stockPrice, benchPrice := 100.0, 400.0
	for i := 0; i < 80; i++ {
		r := 0.01
		if i%2 == 1 {
			r = -0.01
		}
		if i > 0 {
			benchPrice *= 1 + r
			stockPrice *= 1 + 2*r
		}
		date := base.AddDate(0, 0, i)
		stockBars = append(stockBars, market.Candle{Date: date, Close: stockPrice})
		benchBars = append(benchBars, market.Candle{Date: date, Close: benchPrice})
	}

	b := beta(stockBars, benchBars)
	require.NotNil(t, b)
	assert.InDelta(t, 2.0, *b, 1e-9)
}

func TestBetaInsufficientOverlap(t *testing.T) {
	bars := seriesFromReturns(30, 100, []float64{0.01, -0.01}, 1000)
	assert.Nil(t, beta(bars, bars))
}

func TestSharpeRatio(t *testing.T) {
	assert.Nil(t, sharpeRatio([]float64{0.01}, 0.03))
	assert.Nil(t, sharpeRatio([]float64{0.01, 0.01, 0.01}, 0.03), "zero volatility")

	s := sharpeRatio([]float64{0.01, -0.01, 0.01, -0.01}, 0.03)
	require.NotNil(t, s)
	assert.Less(t, *s, 0.0, "zero mean return cannot beat a positive risk-free rate")
}

func TestMaxDrawdown(t *testing.T) {
	dd := maxDrawdown([]float64{100, 120, 60, 90})
	require.NotNil(t, dd)
	assert.InDelta(t, 0.5, *dd, 1e-9)

	assert.Nil(t, maxDrawdown(nil))
}

func TestSectorRisk(t *testing.T) {
	assert.Equal(t, 0.8, sectorRisk("Technology"))
	assert.Equal(t, 0.8, sectorRisk("Energy"))
	assert.Equal(t, 0.3, sectorRisk("Utilities"))
	assert.Equal(t, 0.3, sectorRisk("Consumer Defensive"))
	assert.Equal(t, 0.5, sectorRisk("Industrials"))
	assert.Equal(t, 0.5, sectorRisk(""))
}

func TestLiquidityRisk(t *testing.T) {
	steady := func(v float64, n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = v
		}
		return out
	}

	assert.Equal(t, 0.2, liquidityRisk(steady(2_000_000, 10)))
	assert.Equal(t, 0.4, liquidityRisk(steady(500_000, 10)))
	assert.Equal(t, 0.8, liquidityRisk(steady(50_000, 10)))
	assert.Equal(t, 0.5, liquidityRisk(nil))

	// Erratic volume bumps the score.
	erratic := []float64{2_000_000, 100_000, 3_000_000, 50_000, 4_000_000, 10_000}
	assert.Greater(t, liquidityRisk(erratic), 0.2)
}

func TestCreditRisk(t *testing.T) {
	assert.Nil(t, creditRisk("Technology", ptr(100e9)))

	large := creditRisk("Financial Services", ptr(60e9))
	require.NotNil(t, large)
	assert.Equal(t, 0.3, *large)

	mid := creditRisk("Regional Bank", ptr(20e9))
	require.NotNil(t, mid)
	assert.Equal(t, 0.5, *mid)

	unknown := creditRisk("Real Estate", nil)
	require.NotNil(t, unknown)
	assert.Equal(t, 0.7, *unknown)
}

func TestMaxPositionSize(t *testing.T) {
	assert.InDelta(t, 0.15, maxPositionSize(domain.RiskLow, -0.01, 0), 1e-9)
	assert.InDelta(t, 0.10, maxPositionSize(domain.RiskModerate, -0.01, 0), 1e-9)
	assert.InDelta(t, 0.05, maxPositionSize(domain.RiskHigh, -0.01, 0), 1e-9)
	assert.InDelta(t, 0.02, maxPositionSize(domain.RiskVeryHigh, -0.01, 0), 1e-9)

	// High VaR halves, existing exposure shrinks further.
	assert.InDelta(t, 0.075, maxPositionSize(domain.RiskLow, -0.06, 0), 1e-9)
	assert.InDelta(t, 0.07, maxPositionSize(domain.RiskModerate, -0.04, 0), 1e-9)
	assert.InDelta(t, 0.08, maxPositionSize(domain.RiskModerate, -0.01, 0.06), 1e-9)

	// Floor at 1%.
	assert.InDelta(t, 0.01, maxPositionSize(domain.RiskVeryHigh, -0.10, 0.10), 1e-9)
}

func TestStopLoss(t *testing.T) {
	sl := stopLoss(100, -0.04, nil)
	require.NotNil(t, sl)
	assert.InDelta(t, 92.0, *sl, 1e-9)

	dd := 0.10
	sl = stopLoss(100, -0.04, &dd)
	require.NotNil(t, sl)
	assert.InDelta(t, 95.0, *sl, 1e-9)

	assert.Nil(t, stopLoss(0, -0.04, nil))
}

func ptr(v float64) *float64 { return &v }
