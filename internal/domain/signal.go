package domain

import (
	"time"

	"github.com/google/uuid"
)

// Action is a trading action.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// SignalType identifies the analytical origin of a signal. Each type
// carries a fixed base weight and a freshness window used during
// aggregation.
type SignalType string

const (
	SignalStrategy    SignalType = "strategy"
	SignalAIAnalysis  SignalType = "ai_analysis"
	SignalTechnical   SignalType = "technical"
	SignalFundamental SignalType = "fundamental"
	SignalSentiment   SignalType = "sentiment"
)

// SignalStrength is a five-level ordinal strength.
type SignalStrength int

const (
	StrengthVeryWeak SignalStrength = iota + 1
	StrengthWeak
	StrengthModerate
	StrengthStrong
	StrengthVeryStrong
)

// Multiplier maps the ordinal strength to its scoring multiplier.
func (s SignalStrength) Multiplier() float64 {
	switch s {
	case StrengthVeryWeak:
		return 0.2
	case StrengthWeak:
		return 0.4
	case StrengthModerate:
		return 0.6
	case StrengthStrong:
		return 0.8
	case StrengthVeryStrong:
		return 1.0
	default:
		return 0.6
	}
}

// DecisionSignal is the uniform scored representation every analytical
// input is normalized into before aggregation.
type DecisionSignal struct {
	ID         uuid.UUID      `json:"id"`
	Symbol     string         `json:"symbol"`
	Type       SignalType     `json:"signal_type"`
	Strength   SignalStrength `json:"strength"`
	Direction  Action         `json:"direction"`
	Confidence float64        `json:"confidence"` // [0,1]
	Weight     float64        `json:"weight"`     // [0,1]
	Source     string         `json:"source"`
	Reason     string         `json:"reason"`
	CreatedAt  time.Time      `json:"created_at"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
}

// IsExpired reports whether the signal has passed its expiry. Signals
// without an expiry never expire.
func (s *DecisionSignal) IsExpired(now time.Time) bool {
	if s.ExpiresAt == nil {
		return false
	}
	return now.After(*s.ExpiresAt)
}

// SignalAggregation is the consensus produced from a set of signals for
// one symbol. Confidence and ConsensusStrength are both the winning
// action's share of the total score.
type SignalAggregation struct {
	Symbol            string                 `json:"symbol"`
	Signals           []DecisionSignal       `json:"signals"`
	Action            Action                 `json:"aggregated_action"`
	Confidence        float64                `json:"aggregated_confidence"` // [0,1]
	ConsensusStrength float64                `json:"consensus_strength"`    // [0,1]
	BuyCount          int                    `json:"buy_count"`
	SellCount         int                    `json:"sell_count"`
	HoldCount         int                    `json:"hold_count"`
	WeightedScore     float64                `json:"weighted_score"`
	TypeWeights       map[SignalType]float64 `json:"type_weights"`
}

// EmptyAggregation is the zero-confidence HOLD aggregation returned
// when no usable signals exist.
func EmptyAggregation(symbol string) *SignalAggregation {
	return &SignalAggregation{
		Symbol:      symbol,
		Signals:     []DecisionSignal{},
		Action:      ActionHold,
		TypeWeights: map[SignalType]float64{},
	}
}

// StrategyEvaluation is the raw output of evaluating one user strategy
// for a symbol, before normalization into a DecisionSignal.
type StrategyEvaluation struct {
	StrategyName string  `json:"strategy_name"`
	Action       Action  `json:"action"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
}
