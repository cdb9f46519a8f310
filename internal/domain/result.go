package domain

import "time"

// ConfidenceLevel is the ordinal confidence attached to a decision.
type ConfidenceLevel string

const (
	ConfidenceVeryLow  ConfidenceLevel = "VERY_LOW"
	ConfidenceLow      ConfidenceLevel = "LOW"
	ConfidenceMedium   ConfidenceLevel = "MEDIUM"
	ConfidenceHigh     ConfidenceLevel = "HIGH"
	ConfidenceVeryHigh ConfidenceLevel = "VERY_HIGH"
)

// ConfidenceFromScore maps a confidence score to its ordinal level.
func ConfidenceFromScore(score float64) ConfidenceLevel {
	switch {
	case score >= 0.8:
		return ConfidenceVeryHigh
	case score >= 0.6:
		return ConfidenceHigh
	case score >= 0.4:
		return ConfidenceMedium
	case score >= 0.2:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// DecisionResult is the bounded trading decision returned to the
// caller. It is created fresh per request and mutated only by the
// validation stage inside the same call.
type DecisionResult struct {
	Symbol          string          `json:"symbol"`
	Action          Action          `json:"action"`
	Confidence      ConfidenceLevel `json:"confidence"`
	ConfidenceScore float64         `json:"confidence_score"` // [0,1]

	Quantity    *float64 `json:"quantity,omitempty"`
	PriceTarget *float64 `json:"price_target,omitempty"`
	StopLoss    *float64 `json:"stop_loss,omitempty"`
	TakeProfit  *float64 `json:"take_profit,omitempty"`

	PrimaryReason     string   `json:"primary_reason"`
	SupportingFactors []string `json:"supporting_factors,omitempty"`
	RiskFactors       []string `json:"risk_factors,omitempty"`

	ExpectedReturn  float64            `json:"expected_return"`
	RiskScore       float64            `json:"risk_score"` // [0,1]
	PortfolioImpact map[string]float64 `json:"portfolio_impact,omitempty"`

	DecidedAt time.Time `json:"decided_at"`
}

// HoldResult builds a HOLD decision with the given confidence and risk
// scores. Used by every fallback path in the pipeline.
func HoldResult(symbol, reason string, confidenceScore, riskScore float64) *DecisionResult {
	return &DecisionResult{
		Symbol:          symbol,
		Action:          ActionHold,
		Confidence:      ConfidenceFromScore(confidenceScore),
		ConfidenceScore: confidenceScore,
		PrimaryReason:   reason,
		RiskScore:       riskScore,
		DecidedAt:       time.Now().UTC(),
	}
}
