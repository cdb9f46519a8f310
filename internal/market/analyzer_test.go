package market

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/decider/internal/domain"
)

// stubProvider serves canned data or fails per call type.
type stubProvider struct {
	quote     *Quote
	history   []Candle
	info      *CompanyInfo
	failQuote bool
	failBars  bool
	failInfo  bool
}

func (s *stubProvider) GetQuote(_ context.Context, symbol string) (*Quote, error) {
	if s.failQuote || s.quote == nil {
		return nil, fmt.Errorf("quote unavailable for %s", symbol)
	}
	return s.quote, nil
}

func (s *stubProvider) GetHistoricalData(_ context.Context, symbol, _, _ string) ([]Candle, error) {
	if s.failBars {
		return nil, fmt.Errorf("history unavailable for %s", symbol)
	}
	return s.history, nil
}

func (s *stubProvider) GetCompanyInfo(_ context.Context, symbol string) (*CompanyInfo, error) {
	if s.failInfo || s.info == nil {
		return nil, fmt.Errorf("company info unavailable for %s", symbol)
	}
	return s.info, nil
}

type stubSentiment struct {
	result *SentimentResult
	err    error
}

func (s *stubSentiment) AnalyzeSentiment(context.Context, string, string) (*SentimentResult, error) {
	return s.result, s.err
}

// trendingBars builds days of daily bars with a constant drift and a
// realistic high/low envelope.
func trendingBars(days int, start, drift float64) []Candle {
	bars := make([]Candle, days)
	price := start
	for i := range bars {
		price += drift
		bars[i] = Candle{
			Date:   time.Now().AddDate(0, 0, i-days),
			Open:   price - drift/2,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 2_000_000,
		}
	}
	return bars
}

func TestAnalyzeUptrend(t *testing.T) {
	provider := &stubProvider{
		history: trendingBars(120, 100, 0.5),
		info: &CompanyInfo{
			Symbol:  "ACME",
			Sector:  "Technology",
			PERatio: ptr(22.0),
		},
	}
	sentiment := &stubSentiment{result: &SentimentResult{OverallSentiment: 0.4}}

	analyzer := NewAnalyzer(provider, sentiment)
	analysis := analyzer.Analyze(context.Background(), "ACME", nil)

	require.NotNil(t, analysis)
	assert.Equal(t, domain.TrendBullish, analysis.Trend)
	assert.Greater(t, analysis.Volatility, 0.0)
	assert.InDelta(t, 0.4, analysis.SentimentScore, 1e-9)
	assert.Equal(t, 0.9, analysis.LiquidityScore)

	require.NotNil(t, analysis.Fundamentals)
	require.NotNil(t, analysis.Fundamentals.PERatio)
	assert.Equal(t, 22.0, *analysis.Fundamentals.PERatio)

	rsi, ok := analysis.Indicator("rsi_14")
	require.True(t, ok)
	assert.Greater(t, rsi, 50.0)

	lastClose, ok := analysis.Indicator("last_close")
	require.True(t, ok)
	assert.Greater(t, lastClose, 100.0)
}

func TestAnalyzeDowntrend(t *testing.T) {
	provider := &stubProvider{history: trendingBars(120, 200, -0.5)}

	analyzer := NewAnalyzer(provider, nil)
	analysis := analyzer.Analyze(context.Background(), "ACME", nil)

	assert.Equal(t, domain.TrendBearish, analysis.Trend)
	assert.Equal(t, 0.0, analysis.SentimentScore)
	assert.Nil(t, analysis.Fundamentals)
}

// TestAnalyzeAllFetchesFail verifies total data loss degrades to the
// neutral analysis instead of an error
func TestAnalyzeAllFetchesFail(t *testing.T) {
	provider := &stubProvider{failQuote: true, failBars: true, failInfo: true}
	sentiment := &stubSentiment{err: fmt.Errorf("sentiment service down")}

	analyzer := NewAnalyzer(provider, sentiment)
	analysis := analyzer.Analyze(context.Background(), "ACME", nil)

	require.NotNil(t, analysis)
	assert.Equal(t, domain.TrendNeutral, analysis.Trend)
	assert.Equal(t, 0.2, analysis.Volatility)
	assert.Equal(t, 0.0, analysis.SentimentScore)
	assert.Equal(t, 0.5, analysis.LiquidityScore)
	assert.Equal(t, "stable", analysis.VolumeTrend)
	assert.Empty(t, analysis.Indicators)
}

// TestAnalyzeInsufficientHistory verifies short series keep neutral
// technicals but still use what did arrive
func TestAnalyzeInsufficientHistory(t *testing.T) {
	provider := &stubProvider{
		history: trendingBars(5, 100, 1),
		info:    &CompanyInfo{Symbol: "ACME", Sector: "Utilities"},
	}

	analyzer := NewAnalyzer(provider, nil)
	analysis := analyzer.Analyze(context.Background(), "ACME", nil)

	assert.Equal(t, domain.TrendNeutral, analysis.Trend)
	assert.Empty(t, analysis.Indicators)
	require.NotNil(t, analysis.Fundamentals)
}

// TestAnalyzeSentimentClamped verifies out-of-range sentiment is
// bounded to [-1,1]
func TestAnalyzeSentimentClamped(t *testing.T) {
	provider := &stubProvider{history: trendingBars(60, 100, 0.2)}
	sentiment := &stubSentiment{result: &SentimentResult{OverallSentiment: 3.5}}

	analyzer := NewAnalyzer(provider, sentiment)
	analysis := analyzer.Analyze(context.Background(), "ACME", nil)

	assert.Equal(t, 1.0, analysis.SentimentScore)
}

func TestSplitBarsDropsBadCloses(t *testing.T) {
	bars := []Candle{
		{Close: 100, High: 101, Low: 99, Volume: 10},
		{Close: 0, High: 1, Low: 0, Volume: 10},
		{Close: -5, High: 1, Low: 0, Volume: 10},
		{Close: 102, High: 103, Low: 101, Volume: 20},
	}
	closes, highs, lows, volumes := splitBars(bars)
	assert.Equal(t, []float64{100, 102}, closes)
	assert.Equal(t, []float64{101, 103}, highs)
	assert.Equal(t, []float64{99, 101}, lows)
	assert.Equal(t, []float64{10, 20}, volumes)
}

func TestVolumeTrend(t *testing.T) {
	tests := []struct {
		name    string
		volumes []float64
		want    string
	}{
		{"too short", []float64{1, 2, 3}, "stable"},
		{"increasing", []float64{100, 100, 100, 100, 100, 200, 200, 200, 200, 200}, "increasing"},
		{"decreasing", []float64{200, 200, 200, 200, 200, 100, 100, 100, 100, 100}, "decreasing"},
		{"flat", []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100}, "stable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, volumeTrend(tt.volumes))
		})
	}
}

func TestLiquidityScoreTiers(t *testing.T) {
	assert.Equal(t, 0.9, liquidityScore([]float64{2_000_000}))
	assert.Equal(t, 0.6, liquidityScore([]float64{500_000}))
	assert.Equal(t, 0.4, liquidityScore([]float64{50_000}))
	assert.Equal(t, 0.2, liquidityScore([]float64{5_000}))
	assert.Equal(t, 0.5, liquidityScore(nil))
}

func ptr(v float64) *float64 { return &v }
