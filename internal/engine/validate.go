package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/quantforge/decider/internal/domain"
	"github.com/quantforge/decider/internal/metrics"
)

// validate adjusts the decision against portfolio constraints: the
// position size limit, available cash and the minimum trade amount.
// Adjustments are deterministic downgrades, never errors. Any
// limit-driven downgrade caps confidence at 0.6 / MEDIUM.
func (e *Engine) validate(result *domain.DecisionResult, dctx *domain.DecisionContext) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordStageFailure(metrics.StageValidation)
			e.logger.Error().Str("symbol", dctx.Symbol).Interface("panic", r).
				Msg("Validation panicked, downgrading to HOLD")
			downgrade(result, "validation failure")
			capConfidence(result)
		}
	}()

	switch result.Action {
	case domain.ActionBuy:
		e.validateBuy(result, dctx)
	case domain.ActionSell:
		e.validateSell(result, dctx)
	}
}

func (e *Engine) validateBuy(result *domain.DecisionResult, dctx *domain.DecisionContext) {
	if result.Quantity == nil || *result.Quantity <= 0 || dctx.CurrentPrice <= 0 {
		return
	}

	price := decimal.NewFromFloat(dctx.CurrentPrice)
	qty := decimal.NewFromFloat(*result.Quantity)
	total := dctx.PortfolioValue
	limited := false

	// Position limit: shrink to the remaining headroom under the
	// maximum position weight, or drop the trade when none remains.
	if !total.IsZero() {
		currentValue := total.Mul(decimal.NewFromFloat(dctx.PositionWeight))
		postWeight := currentValue.Add(qty.Mul(price)).Div(total).InexactFloat64()
		if postWeight > dctx.MaxPositionSize {
			headroom := total.Mul(decimal.NewFromFloat(dctx.MaxPositionSize)).Sub(currentValue)
			adjusted := headroom.Div(price).Floor()
			if adjusted.Sign() <= 0 {
				downgrade(result, fmt.Sprintf("position limit reached (max %.0f%% of portfolio)", dctx.MaxPositionSize*100))
				capConfidence(result)
				return
			}
			qty = adjusted
			result.SupportingFactors = append(result.SupportingFactors,
				fmt.Sprintf("quantity reduced to %s by position limit (max %.0f%%)", qty.String(), dctx.MaxPositionSize*100))
			limited = true
		}
	}

	// Cash limit: shrink to what available cash covers.
	if required := qty.Mul(price); required.GreaterThan(dctx.AvailableCash) {
		affordable := dctx.AvailableCash.Div(price).Floor()
		if affordable.Sign() <= 0 {
			downgrade(result, "insufficient cash for trade")
			capConfidence(result)
			return
		}
		qty = affordable
		result.SupportingFactors = append(result.SupportingFactors,
			fmt.Sprintf("quantity reduced to %s by available cash", qty.String()))
		limited = true
	}

	// Minimum trade amount: a trade too small to matter becomes HOLD.
	if qty.Mul(price).LessThan(dctx.MinTradeAmount) {
		downgrade(result, fmt.Sprintf("trade value below minimum %s", dctx.MinTradeAmount.String()))
		capConfidence(result)
		return
	}

	v := qty.InexactFloat64()
	result.Quantity = &v
	if limited {
		capConfidence(result)
	}
}

// validateSell caps the quantity at the held position and drops sells
// of symbols the portfolio does not hold.
func (e *Engine) validateSell(result *domain.DecisionResult, dctx *domain.DecisionContext) {
	if dctx.PositionQuantity <= 0 {
		downgrade(result, "no position to sell")
		capConfidence(result)
		return
	}
	if result.Quantity == nil || *result.Quantity <= 0 || *result.Quantity > dctx.PositionQuantity {
		qty := dctx.PositionQuantity
		result.Quantity = &qty
	}
}

// downgrade turns the decision into a HOLD, keeping the original
// reasoning visible as a supporting factor.
func downgrade(result *domain.DecisionResult, reason string) {
	if result.PrimaryReason != "" {
		result.SupportingFactors = append(result.SupportingFactors, result.PrimaryReason)
	}
	result.Action = domain.ActionHold
	result.Quantity = nil
	result.PrimaryReason = reason
}

// capConfidence bounds a limit-adjusted decision at 0.6 / MEDIUM.
func capConfidence(result *domain.DecisionResult) {
	if result.ConfidenceScore > 0.6 {
		result.ConfidenceScore = 0.6
	}
	switch result.Confidence {
	case domain.ConfidenceHigh, domain.ConfidenceVeryHigh:
		result.Confidence = domain.ConfidenceMedium
	}
}
