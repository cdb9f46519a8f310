package signal

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/quantforge/decider/internal/domain"
)

// newSignal builds a freshly created signal with a type-appropriate
// base weight unless the caller overrides it.
func newSignal(symbol string, t domain.SignalType, direction domain.Action, strength domain.SignalStrength, confidence, weight float64, source, reason string, now time.Time) domain.DecisionSignal {
	return domain.DecisionSignal{
		ID:         uuid.New(),
		Symbol:     symbol,
		Type:       t,
		Strength:   strength,
		Direction:  direction,
		Confidence: confidence,
		Weight:     weight,
		Source:     source,
		Reason:     reason,
		CreatedAt:  now,
	}
}

// fromStrategies normalizes raw strategy evaluations. HOLD evaluations
// are filtered out upstream, but tolerated here.
func fromStrategies(symbol string, evals []domain.StrategyEvaluation, now time.Time) []domain.DecisionSignal {
	signals := make([]domain.DecisionSignal, 0, len(evals))
	for _, eval := range evals {
		if eval.Action != domain.ActionBuy && eval.Action != domain.ActionSell {
			continue
		}
		signals = append(signals, newSignal(
			symbol,
			domain.SignalStrategy,
			eval.Action,
			strengthFromConfidence(eval.Confidence),
			eval.Confidence,
			BaseWeight(domain.SignalStrategy),
			eval.StrategyName,
			eval.Reason,
			now,
		))
	}
	return signals
}

// fromMarketAnalysis decomposes a market analysis into threshold-based
// technical, fundamental and sentiment signals.
func fromMarketAnalysis(symbol string, ma *domain.MarketAnalysis, now time.Time) []domain.DecisionSignal {
	if ma == nil {
		return nil
	}
	var signals []domain.DecisionSignal
	technicalWeight := BaseWeight(domain.SignalTechnical)

	// RSI extremes.
	if rsi, ok := ma.Indicator("rsi_14"); ok {
		if rsi < 30 {
			strength := domain.StrengthModerate
			if rsi < 20 {
				strength = domain.StrengthStrong
			}
			confidence := math.Min(0.9, (40-rsi)/20)
			signals = append(signals, newSignal(symbol, domain.SignalTechnical, domain.ActionBuy, strength,
				confidence, technicalWeight, "rsi", fmt.Sprintf("RSI oversold at %.1f", rsi), now))
		} else if rsi > 70 {
			strength := domain.StrengthModerate
			if rsi > 80 {
				strength = domain.StrengthStrong
			}
			confidence := math.Min(0.9, (rsi-60)/20)
			signals = append(signals, newSignal(symbol, domain.SignalTechnical, domain.ActionSell, strength,
				confidence, technicalWeight, "rsi", fmt.Sprintf("RSI overbought at %.1f", rsi), now))
		}
	}

	// MACD crossover, only when line and signal agree in sign.
	macd, hasMACD := ma.Indicator("macd")
	macdSignal, hasSignal := ma.Indicator("macd_signal")
	if hasMACD && hasSignal {
		if macd > macdSignal && macd > 0 {
			signals = append(signals, newSignal(symbol, domain.SignalTechnical, domain.ActionBuy, domain.StrengthModerate,
				0.7, technicalWeight, "macd", "MACD above signal line in positive territory", now))
		} else if macd < macdSignal && macd < 0 {
			signals = append(signals, newSignal(symbol, domain.SignalTechnical, domain.ActionSell, domain.StrengthModerate,
				0.7, technicalWeight, "macd", "MACD below signal line in negative territory", now))
		}
	}

	// Price at Bollinger band edges.
	price, hasPrice := ma.Indicator("last_close")
	bbUpper, hasUpper := ma.Indicator("bb_upper")
	bbLower, hasLower := ma.Indicator("bb_lower")
	if hasPrice && hasUpper && hasLower && bbUpper > bbLower {
		if price <= bbLower {
			signals = append(signals, newSignal(symbol, domain.SignalTechnical, domain.ActionBuy, domain.StrengthModerate,
				0.6, technicalWeight, "bollinger", "Price at lower Bollinger band", now))
		} else if price >= bbUpper {
			signals = append(signals, newSignal(symbol, domain.SignalTechnical, domain.ActionSell, domain.StrengthModerate,
				0.6, technicalWeight, "bollinger", "Price at upper Bollinger band", now))
		}
	}

	// Trend direction at a reduced technical weight.
	switch ma.Trend {
	case domain.TrendBullish:
		signals = append(signals, newSignal(symbol, domain.SignalTechnical, domain.ActionBuy, domain.StrengthModerate,
			0.6, technicalWeight*0.8, "trend", "Bullish trend", now))
	case domain.TrendBearish:
		signals = append(signals, newSignal(symbol, domain.SignalTechnical, domain.ActionSell, domain.StrengthModerate,
			0.6, technicalWeight*0.8, "trend", "Bearish trend", now))
	}

	// Fundamentals.
	if f := ma.Fundamentals; f != nil {
		fundamentalWeight := BaseWeight(domain.SignalFundamental)
		if f.PERatio != nil {
			if *f.PERatio > 0 && *f.PERatio < 15 {
				signals = append(signals, newSignal(symbol, domain.SignalFundamental, domain.ActionBuy, domain.StrengthModerate,
					0.6, fundamentalWeight, "pe_ratio", fmt.Sprintf("Low P/E ratio %.1f", *f.PERatio), now))
			} else if *f.PERatio > 30 {
				signals = append(signals, newSignal(symbol, domain.SignalFundamental, domain.ActionSell, domain.StrengthModerate,
					0.6, fundamentalWeight, "pe_ratio", fmt.Sprintf("High P/E ratio %.1f", *f.PERatio), now))
			}
		}
		if f.DividendYield != nil && *f.DividendYield > 0.04 {
			signals = append(signals, newSignal(symbol, domain.SignalFundamental, domain.ActionBuy, domain.StrengthWeak,
				0.5, fundamentalWeight, "dividend_yield", fmt.Sprintf("Dividend yield %.1f%%", *f.DividendYield*100), now))
		}
	}

	// Sentiment beyond the noise band.
	if math.Abs(ma.SentimentScore) > 0.3 {
		direction := domain.ActionBuy
		if ma.SentimentScore < 0 {
			direction = domain.ActionSell
		}
		confidence := math.Min(0.7, math.Abs(ma.SentimentScore))
		signals = append(signals, newSignal(symbol, domain.SignalSentiment, direction, strengthFromConfidence(confidence),
			confidence, BaseWeight(domain.SignalSentiment), "sentiment",
			fmt.Sprintf("Sentiment score %.2f", ma.SentimentScore), now))
	}

	return signals
}

// fromRiskAssessment derives risk-driven signals: extreme risk argues
// to sell, very low risk weakly argues to buy.
func fromRiskAssessment(symbol string, ra *domain.RiskAssessment, now time.Time) []domain.DecisionSignal {
	if ra == nil {
		return nil
	}
	aiWeight := BaseWeight(domain.SignalAIAnalysis)

	switch {
	case ra.OverallRiskScore > 0.8:
		return []domain.DecisionSignal{newSignal(symbol, domain.SignalAIAnalysis, domain.ActionSell, domain.StrengthStrong,
			0.7, aiWeight*0.5, "risk_assessment",
			fmt.Sprintf("Overall risk score %.2f is very high", ra.OverallRiskScore), now)}
	case ra.OverallRiskScore < 0.3:
		return []domain.DecisionSignal{newSignal(symbol, domain.SignalAIAnalysis, domain.ActionBuy, domain.StrengthWeak,
			0.5, aiWeight*0.3, "risk_assessment",
			fmt.Sprintf("Overall risk score %.2f is low", ra.OverallRiskScore), now)}
	default:
		return nil
	}
}
