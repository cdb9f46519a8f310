package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/decider/internal/domain"
)

func findSignal(signals []domain.DecisionSignal, source string) *domain.DecisionSignal {
	for i := range signals {
		if signals[i].Source == source {
			return &signals[i]
		}
	}
	return nil
}

func TestFromMarketAnalysisRSI(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name       string
		rsi        float64
		direction  domain.Action
		strength   domain.SignalStrength
		confidence float64
	}{
		{"deeply oversold", 15, domain.ActionBuy, domain.StrengthStrong, 0.9},
		{"oversold", 28, domain.ActionBuy, domain.StrengthModerate, 0.6},
		{"overbought", 72, domain.ActionSell, domain.StrengthModerate, 0.6},
		{"extremely overbought", 85, domain.ActionSell, domain.StrengthStrong, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ma := &domain.MarketAnalysis{
				Symbol:     "ACME",
				Indicators: map[string]float64{"rsi_14": tt.rsi},
				Trend:      domain.TrendNeutral,
			}
			signals := fromMarketAnalysis("ACME", ma, now)
			s := findSignal(signals, "rsi")
			require.NotNil(t, s)
			assert.Equal(t, tt.direction, s.Direction)
			assert.Equal(t, tt.strength, s.Strength)
			assert.InDelta(t, tt.confidence, s.Confidence, 1e-9)
		})
	}
}

func TestFromMarketAnalysisRSINeutralBand(t *testing.T) {
	ma := &domain.MarketAnalysis{
		Symbol:     "ACME",
		Indicators: map[string]float64{"rsi_14": 50},
		Trend:      domain.TrendNeutral,
	}
	signals := fromMarketAnalysis("ACME", ma, time.Now())
	assert.Nil(t, findSignal(signals, "rsi"))
}

func TestFromMarketAnalysisMACD(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name       string
		macd       float64
		macdSignal float64
		want       domain.Action
	}{
		{"bullish crossover", 1.2, 0.8, domain.ActionBuy},
		{"bearish crossover", -1.2, -0.8, domain.ActionSell},
		{"cross above zero disagrees with sign", -0.2, -0.5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ma := &domain.MarketAnalysis{
				Symbol: "ACME",
				Indicators: map[string]float64{
					"macd":        tt.macd,
					"macd_signal": tt.macdSignal,
				},
				Trend: domain.TrendNeutral,
			}
			s := findSignal(fromMarketAnalysis("ACME", ma, now), "macd")
			if tt.want == "" {
				assert.Nil(t, s)
				return
			}
			require.NotNil(t, s)
			assert.Equal(t, tt.want, s.Direction)
			assert.Equal(t, 0.7, s.Confidence)
		})
	}
}

func TestFromMarketAnalysisBollinger(t *testing.T) {
	now := time.Now()
	ma := &domain.MarketAnalysis{Symbol: "ACME", Trend: domain.TrendNeutral}
	ma.Indicators = map[string]float64{"last_close": 89, "bb_upper": 110, "bb_lower": 90}
	s := findSignal(fromMarketAnalysis("ACME", ma, now), "bollinger")
	require.NotNil(t, s)
	assert.Equal(t, domain.ActionBuy, s.Direction)

	ma.Indicators = map[string]float64{"last_close": 111, "bb_upper": 110, "bb_lower": 90}
	s = findSignal(fromMarketAnalysis("ACME", ma, now), "bollinger")
	require.NotNil(t, s)
	assert.Equal(t, domain.ActionSell, s.Direction)

	// Degenerate bands produce nothing.
	ma.Indicators = map[string]float64{"last_close": 100, "bb_upper": 100, "bb_lower": 100}
	assert.Nil(t, findSignal(fromMarketAnalysis("ACME", ma, now), "bollinger"))
}

func TestFromMarketAnalysisTrend(t *testing.T) {
	now := time.Now()
	ma := &domain.MarketAnalysis{
		Symbol:     "ACME",
		Indicators: map[string]float64{},
		Trend:      domain.TrendBullish,
	}
	s := findSignal(fromMarketAnalysis("ACME", ma, now), "trend")
	require.NotNil(t, s)
	assert.Equal(t, domain.ActionBuy, s.Direction)
	assert.InDelta(t, BaseWeight(domain.SignalTechnical)*0.8, s.Weight, 1e-9)

	ma.Trend = domain.TrendBearish
	s = findSignal(fromMarketAnalysis("ACME", ma, now), "trend")
	require.NotNil(t, s)
	assert.Equal(t, domain.ActionSell, s.Direction)
}

func TestFromMarketAnalysisFundamentals(t *testing.T) {
	now := time.Now()
	lowPE := 12.0
	highPE := 35.0
	yield := 0.05

	ma := &domain.MarketAnalysis{
		Symbol:       "ACME",
		Indicators:   map[string]float64{},
		Trend:        domain.TrendNeutral,
		Fundamentals: &domain.Fundamentals{PERatio: &lowPE, DividendYield: &yield},
	}
	signals := fromMarketAnalysis("ACME", ma, now)
	pe := findSignal(signals, "pe_ratio")
	require.NotNil(t, pe)
	assert.Equal(t, domain.ActionBuy, pe.Direction)

	div := findSignal(signals, "dividend_yield")
	require.NotNil(t, div)
	assert.Equal(t, domain.ActionBuy, div.Direction)
	assert.Equal(t, domain.StrengthWeak, div.Strength)

	ma.Fundamentals = &domain.Fundamentals{PERatio: &highPE}
	pe = findSignal(fromMarketAnalysis("ACME", ma, now), "pe_ratio")
	require.NotNil(t, pe)
	assert.Equal(t, domain.ActionSell, pe.Direction)
}

func TestFromMarketAnalysisSentiment(t *testing.T) {
	now := time.Now()
	ma := &domain.MarketAnalysis{
		Symbol:         "ACME",
		Indicators:     map[string]float64{},
		Trend:          domain.TrendNeutral,
		SentimentScore: 0.5,
	}
	s := findSignal(fromMarketAnalysis("ACME", ma, now), "sentiment")
	require.NotNil(t, s)
	assert.Equal(t, domain.ActionBuy, s.Direction)
	assert.InDelta(t, 0.5, s.Confidence, 1e-9)

	ma.SentimentScore = -0.95
	s = findSignal(fromMarketAnalysis("ACME", ma, now), "sentiment")
	require.NotNil(t, s)
	assert.Equal(t, domain.ActionSell, s.Direction)
	assert.InDelta(t, 0.7, s.Confidence, 1e-9, "sentiment confidence caps at 0.7")

	ma.SentimentScore = 0.2
	assert.Nil(t, findSignal(fromMarketAnalysis("ACME", ma, now), "sentiment"))
}

func TestFromRiskAssessment(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		score float64
		want  domain.Action
	}{
		{"very high risk", 0.9, domain.ActionSell},
		{"low risk", 0.2, domain.ActionBuy},
		{"moderate risk is silent", 0.5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ra := &domain.RiskAssessment{Symbol: "ACME", OverallRiskScore: tt.score}
			signals := fromRiskAssessment("ACME", ra, now)
			if tt.want == "" {
				assert.Empty(t, signals)
				return
			}
			require.Len(t, signals, 1)
			assert.Equal(t, tt.want, signals[0].Direction)
		})
	}
	assert.Nil(t, fromRiskAssessment("ACME", nil, now))
}

func TestFromStrategiesSkipsHold(t *testing.T) {
	now := time.Now()
	evals := []domain.StrategyEvaluation{
		{StrategyName: "momentum", Action: domain.ActionBuy, Confidence: 0.7},
		{StrategyName: "passive", Action: domain.ActionHold, Confidence: 0.9},
	}
	signals := fromStrategies("ACME", evals, now)
	require.Len(t, signals, 1)
	assert.Equal(t, "momentum", signals[0].Source)
	assert.Equal(t, domain.SignalStrategy, signals[0].Type)
	assert.Equal(t, BaseWeight(domain.SignalStrategy), signals[0].Weight)
}
