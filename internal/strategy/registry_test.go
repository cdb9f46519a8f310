package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/decider/internal/domain"
)

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(NewMomentum()))
	require.NoError(t, r.Register(NewMeanReversion()))

	assert.Equal(t, []string{"mean_reversion", "momentum"}, r.ActiveStrategyNames())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(NewMomentum()))
	err := r.Register(NewMomentum())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistryRejectsNil(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(nil))
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewMomentum()))

	r.Unregister("momentum")
	assert.Empty(t, r.ActiveStrategyNames())

	// Unregistering an unknown name is a no-op.
	r.Unregister("momentum")
}

func TestEvaluateUnknownStrategy(t *testing.T) {
	r := NewRegistry()

	eval, err := r.EvaluateForSymbol(context.Background(), "nope", "ACME", nil)
	require.Error(t, err)
	assert.Nil(t, eval)
	assert.Contains(t, err.Error(), "unknown strategy")
}

func marketContext(trend domain.TrendDirection, indicators map[string]float64) *domain.DecisionContext {
	return &domain.DecisionContext{
		Symbol: "ACME",
		Market: &domain.MarketAnalysis{
			Symbol:     "ACME",
			Trend:      trend,
			Indicators: indicators,
		},
	}
}

func TestMomentumEvaluate(t *testing.T) {
	m := NewMomentum()
	ctx := context.Background()

	tests := []struct {
		name       string
		dctx       *domain.DecisionContext
		action     domain.Action
		confidence float64
	}{
		{
			name:       "bullish trend buys",
			dctx:       marketContext(domain.TrendBullish, map[string]float64{"rsi_14": 55}),
			action:     domain.ActionBuy,
			confidence: 0.65,
		},
		{
			name:   "bullish but overbought abstains",
			dctx:   marketContext(domain.TrendBullish, map[string]float64{"rsi_14": 75}),
			action: domain.ActionHold,
		},
		{
			name:       "bearish trend sells",
			dctx:       marketContext(domain.TrendBearish, map[string]float64{"rsi_14": 45}),
			action:     domain.ActionSell,
			confidence: 0.65,
		},
		{
			name:   "bearish but oversold abstains",
			dctx:   marketContext(domain.TrendBearish, map[string]float64{"rsi_14": 25}),
			action: domain.ActionHold,
		},
		{
			name:   "neutral trend abstains",
			dctx:   marketContext(domain.TrendNeutral, map[string]float64{"rsi_14": 50}),
			action: domain.ActionHold,
		},
		{
			name:   "no market analysis abstains",
			dctx:   &domain.DecisionContext{Symbol: "ACME"},
			action: domain.ActionHold,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := m.Evaluate(ctx, "ACME", tt.dctx)
			require.NoError(t, err)
			require.NotNil(t, eval)
			assert.Equal(t, "momentum", eval.StrategyName)
			assert.Equal(t, tt.action, eval.Action)
			assert.Equal(t, tt.confidence, eval.Confidence)
			assert.NotEmpty(t, eval.Reason)
		})
	}
}

func TestMeanReversionEvaluate(t *testing.T) {
	m := NewMeanReversion()
	ctx := context.Background()

	tests := []struct {
		name       string
		indicators map[string]float64
		action     domain.Action
		confidence float64
	}{
		{
			name:       "deeply oversold buys",
			indicators: map[string]float64{"rsi_14": 20},
			action:     domain.ActionBuy,
			confidence: 0.7,
		},
		{
			name: "oversold at lower band buys",
			indicators: map[string]float64{
				"rsi_14": 28, "last_close": 89, "bb_lower": 90, "bb_upper": 110,
			},
			action:     domain.ActionBuy,
			confidence: 0.6,
		},
		{
			name:       "oversold off the band abstains",
			indicators: map[string]float64{"rsi_14": 28, "last_close": 95, "bb_lower": 90, "bb_upper": 110},
			action:     domain.ActionHold,
		},
		{
			name:       "deeply overbought sells",
			indicators: map[string]float64{"rsi_14": 80},
			action:     domain.ActionSell,
			confidence: 0.7,
		},
		{
			name: "overbought at upper band sells",
			indicators: map[string]float64{
				"rsi_14": 72, "last_close": 111, "bb_lower": 90, "bb_upper": 110,
			},
			action:     domain.ActionSell,
			confidence: 0.6,
		},
		{
			name:       "normal range abstains",
			indicators: map[string]float64{"rsi_14": 50},
			action:     domain.ActionHold,
		},
		{
			name:       "no RSI abstains",
			indicators: map[string]float64{"last_close": 100},
			action:     domain.ActionHold,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := m.Evaluate(ctx, "ACME", marketContext(domain.TrendNeutral, tt.indicators))
			require.NoError(t, err)
			require.NotNil(t, eval)
			assert.Equal(t, "mean_reversion", eval.StrategyName)
			assert.Equal(t, tt.action, eval.Action)
			assert.Equal(t, tt.confidence, eval.Confidence)
		})
	}
}
