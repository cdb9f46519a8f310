// Package signal normalizes heterogeneous analytical outputs into
// uniform scored signals and aggregates them into a consensus action.
package signal

import (
	"time"

	"github.com/quantforge/decider/internal/domain"
)

// BaseWeight returns the fixed per-type base weight used when a raw
// input is normalized into a DecisionSignal.
func BaseWeight(t domain.SignalType) float64 {
	switch t {
	case domain.SignalStrategy:
		return 0.35
	case domain.SignalAIAnalysis:
		return 0.25
	case domain.SignalTechnical:
		return 0.20
	case domain.SignalFundamental:
		return 0.15
	case domain.SignalSentiment:
		return 0.05
	default:
		return 0.10
	}
}

// ExpiryWindow returns the per-type freshness window. A signal's
// contribution decays linearly toward its window and floors at 10%.
func ExpiryWindow(t domain.SignalType) time.Duration {
	switch t {
	case domain.SignalStrategy:
		return 24 * time.Hour
	case domain.SignalAIAnalysis:
		return 12 * time.Hour
	case domain.SignalTechnical:
		return 6 * time.Hour
	case domain.SignalFundamental:
		return 72 * time.Hour
	case domain.SignalSentiment:
		return 4 * time.Hour
	default:
		return 12 * time.Hour
	}
}

// freshness computes max(0.1, 1 - age/window) for a signal at the given
// instant.
func freshness(s *domain.DecisionSignal, now time.Time) float64 {
	window := ExpiryWindow(s.Type)
	age := now.Sub(s.CreatedAt)
	if age <= 0 {
		return 1.0
	}
	factor := 1.0 - age.Hours()/window.Hours()
	if factor < 0.1 {
		return 0.1
	}
	return factor
}

// score is a signal's contribution to its action's total.
func score(s *domain.DecisionSignal, now time.Time) float64 {
	return s.Confidence * s.Weight * s.Strength.Multiplier() * freshness(s, now)
}

// strengthFromConfidence maps a raw confidence to the ordinal strength
// used for normalized strategy signals.
func strengthFromConfidence(confidence float64) domain.SignalStrength {
	switch {
	case confidence >= 0.85:
		return domain.StrengthVeryStrong
	case confidence >= 0.65:
		return domain.StrengthStrong
	case confidence >= 0.45:
		return domain.StrengthModerate
	case confidence >= 0.25:
		return domain.StrengthWeak
	default:
		return domain.StrengthVeryWeak
	}
}
