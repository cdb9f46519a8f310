package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/quantforge/decider/internal/ai"
	"github.com/quantforge/decider/internal/config"
	"github.com/quantforge/decider/internal/domain"
)

// Synthesizer turns the merged context and signal aggregation into the
// final decision. The engine falls back to a low-confidence HOLD when
// synthesis returns an error.
type Synthesizer interface {
	Synthesize(ctx context.Context, dctx *domain.DecisionContext, agg *domain.SignalAggregation) (*domain.DecisionResult, error)
}

// AggregationSynthesizer is the default synthesis: it picks the action
// whose signals carry the highest summed confidence and reports the
// winning side's share of the signal count as confidence. No external
// calls, so it never fails.
type AggregationSynthesizer struct {
	logger zerolog.Logger
}

// NewAggregationSynthesizer creates the default synthesizer.
func NewAggregationSynthesizer() *AggregationSynthesizer {
	return &AggregationSynthesizer{logger: config.NewLogger("aggregation_synthesizer")}
}

// Synthesize implements Synthesizer.
func (s *AggregationSynthesizer) Synthesize(_ context.Context, dctx *domain.DecisionContext, agg *domain.SignalAggregation) (*domain.DecisionResult, error) {
	riskScore := 1.0
	var stop *float64
	if dctx.Risk != nil {
		riskScore = dctx.Risk.OverallRiskScore
		stop = dctx.Risk.RecommendedStopLoss
	}

	if agg == nil || len(agg.Signals) == 0 {
		return domain.HoldResult(dctx.Symbol, "no analysis available", 0.1, riskScore), nil
	}

	scores := map[domain.Action]float64{}
	counts := map[domain.Action]int{}
	for i := range agg.Signals {
		sig := &agg.Signals[i]
		scores[sig.Direction] += sig.Confidence
		counts[sig.Direction]++
	}

	action := domain.ActionHold
	switch {
	case scores[domain.ActionBuy] > scores[domain.ActionSell] && scores[domain.ActionBuy] > scores[domain.ActionHold]:
		action = domain.ActionBuy
	case scores[domain.ActionSell] > scores[domain.ActionBuy] && scores[domain.ActionSell] > scores[domain.ActionHold]:
		action = domain.ActionSell
	}

	confidence := float64(counts[action]) / float64(len(agg.Signals))

	result := &domain.DecisionResult{
		Symbol:          dctx.Symbol,
		Action:          action,
		Confidence:      domain.ConfidenceFromScore(confidence),
		ConfidenceScore: confidence,
		PrimaryReason:   majorityReason(agg, action),
		RiskScore:       riskScore,
		DecidedAt:       time.Now().UTC(),
	}

	switch action {
	case domain.ActionBuy:
		result.Quantity = buyQuantity(dctx, confidence)
		result.StopLoss = stop
	case domain.ActionSell:
		if dctx.PositionQuantity > 0 {
			qty := dctx.PositionQuantity
			result.Quantity = &qty
		}
	}

	for i := range agg.Signals {
		sig := &agg.Signals[i]
		if sig.Direction == action && len(result.SupportingFactors) < 3 {
			result.SupportingFactors = append(result.SupportingFactors, sig.Reason)
		}
	}
	if dctx.Risk != nil && dctx.Risk.OverallRiskScore > 0.6 {
		result.RiskFactors = append(result.RiskFactors,
			fmt.Sprintf("elevated overall risk score %.2f (%s)", dctx.Risk.OverallRiskScore, dctx.Risk.RiskLevel))
	}

	return result, nil
}

func majorityReason(agg *domain.SignalAggregation, action domain.Action) string {
	if action == domain.ActionHold {
		return "signals do not favor a trade"
	}
	return fmt.Sprintf("signal majority favors %s (%d buy / %d sell / %d hold)",
		action, agg.BuyCount, agg.SellCount, agg.HoldCount)
}

// buyQuantity sizes a buy as a confidence-scaled share of the position
// limit, in whole shares. Returns nil when the context has no usable
// price or portfolio value.
func buyQuantity(dctx *domain.DecisionContext, confidence float64) *float64 {
	if dctx.CurrentPrice <= 0 || dctx.PortfolioValue.IsZero() {
		return nil
	}

	price := decimal.NewFromFloat(dctx.CurrentPrice)
	target := dctx.PortfolioValue.Mul(decimal.NewFromFloat(dctx.MaxPositionSize * confidence))
	qty := target.Div(price).Floor().InexactFloat64()
	if qty <= 0 {
		return nil
	}
	return &qty
}

// AISynthesizer delegates the final decision to the external AI
// decision service, handing it condensed market, risk and signal
// context. Errors surface to the engine, which falls back to HOLD.
type AISynthesizer struct {
	client *ai.Client
	logger zerolog.Logger
}

// NewAISynthesizer creates an AI-backed synthesizer.
func NewAISynthesizer(client *ai.Client) *AISynthesizer {
	return &AISynthesizer{
		client: client,
		logger: config.NewLogger("ai_synthesizer"),
	}
}

// Synthesize implements Synthesizer.
func (s *AISynthesizer) Synthesize(ctx context.Context, dctx *domain.DecisionContext, agg *domain.SignalAggregation) (*domain.DecisionResult, error) {
	resp, err := s.client.MakeTradingDecision(ctx, buildDecisionRequest(dctx, agg))
	if err != nil {
		return nil, fmt.Errorf("ai decision synthesis: %w", err)
	}
	return mapDecisionResponse(dctx, resp), nil
}

func buildDecisionRequest(dctx *domain.DecisionContext, agg *domain.SignalAggregation) *ai.DecisionRequest {
	req := &ai.DecisionRequest{
		Symbol:         dctx.Symbol,
		CurrentPrice:   dctx.CurrentPrice,
		PositionWeight: dctx.PositionWeight,
		AvailableCash:  dctx.AvailableCash.InexactFloat64(),
		PortfolioValue: dctx.PortfolioValue.InexactFloat64(),
	}

	if ma := dctx.Market; ma != nil {
		summary := &ai.MarketSummary{
			Trend:      string(ma.Trend),
			Volatility: ma.Volatility,
			Sentiment:  ma.SentimentScore,
		}
		if rsi, ok := ma.Indicator("rsi_14"); ok {
			summary.RSI = &rsi
		}
		req.Market = summary
	}

	if ra := dctx.Risk; ra != nil {
		req.Risk = &ai.RiskSummary{
			OverallScore:    ra.OverallRiskScore,
			RiskLevel:       string(ra.RiskLevel),
			MaxPositionSize: ra.MaxPositionSize,
			VaR1Day:         ra.VaR1Day,
		}
	}

	if agg != nil {
		req.Signals = &ai.SignalSummary{
			Action:            string(agg.Action),
			Confidence:        agg.Confidence,
			ConsensusStrength: agg.ConsensusStrength,
			BuyCount:          agg.BuyCount,
			SellCount:         agg.SellCount,
			HoldCount:         agg.HoldCount,
		}
	}

	return req
}

func mapDecisionResponse(dctx *domain.DecisionContext, resp *ai.DecisionResponse) *domain.DecisionResult {
	action := domain.Action(strings.ToUpper(strings.TrimSpace(resp.Action)))
	switch action {
	case domain.ActionBuy, domain.ActionSell, domain.ActionHold:
	default:
		action = domain.ActionHold
	}

	confidence := clampScore(resp.Confidence)
	var riskScore float64
	if resp.RiskAssessment.OverallScore != nil {
		riskScore = clampScore(*resp.RiskAssessment.OverallScore)
	} else if dctx.Risk != nil {
		riskScore = dctx.Risk.OverallRiskScore
	}

	result := &domain.DecisionResult{
		Symbol:            dctx.Symbol,
		Action:            action,
		Confidence:        domain.ConfidenceFromScore(confidence),
		ConfidenceScore:   confidence,
		PrimaryReason:     resp.Reasoning,
		SupportingFactors: resp.SupportingFactors,
		RiskFactors:       resp.RiskFactors,
		ExpectedReturn:    resp.ExpectedReturn,
		RiskScore:         riskScore,
		PriceTarget:       resp.TargetPrice,
		StopLoss:          resp.StopLoss,
		DecidedAt:         time.Now().UTC(),
	}

	// The service returns position size as a portfolio fraction;
	// convert to whole shares at the current price.
	if resp.PositionSize != nil && dctx.CurrentPrice > 0 && !dctx.PortfolioValue.IsZero() {
		target := dctx.PortfolioValue.Mul(decimal.NewFromFloat(clampScore(*resp.PositionSize)))
		qty := target.Div(decimal.NewFromFloat(dctx.CurrentPrice)).Floor().InexactFloat64()
		if qty > 0 {
			result.Quantity = &qty
		}
	}

	return result
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
