package strategy

import (
	"context"
	"fmt"

	"github.com/quantforge/decider/internal/domain"
)

// Momentum follows the prevailing trend: it buys confirmed bullish
// momentum and sells confirmed bearish momentum, abstaining otherwise.
type Momentum struct{}

// NewMomentum creates the momentum strategy.
func NewMomentum() *Momentum { return &Momentum{} }

func (m *Momentum) Name() string { return "momentum" }

// Evaluate requires a market analysis in the context; without one it
// abstains with a HOLD evaluation.
func (m *Momentum) Evaluate(_ context.Context, symbol string, dctx *domain.DecisionContext) (*domain.StrategyEvaluation, error) {
	eval := &domain.StrategyEvaluation{
		StrategyName: m.Name(),
		Action:       domain.ActionHold,
		Confidence:   0,
		Reason:       "no market analysis available",
	}
	if dctx == nil || dctx.Market == nil {
		return eval, nil
	}

	ma := dctx.Market
	rsi, hasRSI := ma.Indicator("rsi_14")

	switch ma.Trend {
	case domain.TrendBullish:
		if hasRSI && rsi > 70 {
			eval.Reason = fmt.Sprintf("bullish trend but RSI %.1f overbought", rsi)
			return eval, nil
		}
		eval.Action = domain.ActionBuy
		eval.Confidence = 0.65
		eval.Reason = "bullish trend with room to run"
	case domain.TrendBearish:
		if hasRSI && rsi < 30 {
			eval.Reason = fmt.Sprintf("bearish trend but RSI %.1f oversold", rsi)
			return eval, nil
		}
		eval.Action = domain.ActionSell
		eval.Confidence = 0.65
		eval.Reason = "bearish trend still intact"
	default:
		eval.Reason = "no directional trend"
	}
	return eval, nil
}

// MeanReversion fades extremes: it buys deep oversold readings and
// sells deep overbought ones.
type MeanReversion struct{}

// NewMeanReversion creates the mean-reversion strategy.
func NewMeanReversion() *MeanReversion { return &MeanReversion{} }

func (m *MeanReversion) Name() string { return "mean_reversion" }

func (m *MeanReversion) Evaluate(_ context.Context, symbol string, dctx *domain.DecisionContext) (*domain.StrategyEvaluation, error) {
	eval := &domain.StrategyEvaluation{
		StrategyName: m.Name(),
		Action:       domain.ActionHold,
		Confidence:   0,
		Reason:       "no market analysis available",
	}
	if dctx == nil || dctx.Market == nil {
		return eval, nil
	}

	ma := dctx.Market
	rsi, hasRSI := ma.Indicator("rsi_14")
	price, hasPrice := ma.Indicator("last_close")
	bbLower, hasLower := ma.Indicator("bb_lower")
	bbUpper, hasUpper := ma.Indicator("bb_upper")

	if !hasRSI {
		eval.Reason = "no RSI available"
		return eval, nil
	}

	switch {
	case rsi < 25:
		eval.Action = domain.ActionBuy
		eval.Confidence = 0.7
		eval.Reason = fmt.Sprintf("RSI %.1f deeply oversold", rsi)
	case rsi < 30 && hasPrice && hasLower && price <= bbLower:
		eval.Action = domain.ActionBuy
		eval.Confidence = 0.6
		eval.Reason = fmt.Sprintf("RSI %.1f oversold at lower band", rsi)
	case rsi > 75:
		eval.Action = domain.ActionSell
		eval.Confidence = 0.7
		eval.Reason = fmt.Sprintf("RSI %.1f deeply overbought", rsi)
	case rsi > 70 && hasPrice && hasUpper && price >= bbUpper:
		eval.Action = domain.ActionSell
		eval.Confidence = 0.6
		eval.Reason = fmt.Sprintf("RSI %.1f overbought at upper band", rsi)
	default:
		eval.Reason = fmt.Sprintf("RSI %.1f inside normal range", rsi)
	}
	return eval, nil
}
