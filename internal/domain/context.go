// Package domain holds the data model shared by the decision pipeline:
// the per-request decision context, analysis snapshots, scored signals
// and the final decision result. All values are created and discarded
// within a single decision request.
package domain

import (
	"github.com/shopspring/decimal"
)

// Portfolio is a read-only snapshot of portfolio state taken when a
// decision request starts. Monetary amounts are decimal; weights and
// ratios stay float64.
type Portfolio struct {
	Positions     map[string]Position `json:"positions"`
	AvailableCash decimal.Decimal     `json:"available_cash"`
	TotalValue    decimal.Decimal     `json:"total_value"`
}

// Position describes a single holding inside a portfolio snapshot.
type Position struct {
	Quantity float64 `json:"quantity"`
	Weight   float64 `json:"weight"` // fraction of total portfolio value
}

// PositionFor returns the position for a symbol, or a zero position if
// the symbol is not held.
func (p *Portfolio) PositionFor(symbol string) Position {
	if p == nil {
		return Position{}
	}
	return p.Positions[symbol]
}

// DecisionContext carries everything the analysis stages need for one
// symbol. It is built once per decision request and mutated only by the
// engine as analyses complete.
type DecisionContext struct {
	Symbol        string  `json:"symbol"`
	CurrentPrice  float64 `json:"current_price"`
	PreviousClose float64 `json:"previous_close"`
	DayHigh       float64 `json:"day_high"`
	DayLow        float64 `json:"day_low"`
	Volume        int64   `json:"volume"`

	PositionQuantity float64 `json:"position_quantity"`
	PositionWeight   float64 `json:"position_weight"`

	AvailableCash  decimal.Decimal `json:"available_cash"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`

	// MaxPositionSize is the largest fraction of the portfolio a single
	// position may occupy. Overridden by the risk assessment when one is
	// available.
	MaxPositionSize float64         `json:"max_position_size"`
	MinTradeAmount  decimal.Decimal `json:"min_trade_amount"`

	ActiveStrategies []string               `json:"active_strategies"`
	StrategyContext  map[string]interface{} `json:"strategy_context,omitempty"`

	Market *MarketAnalysis `json:"market_analysis,omitempty"`
	Risk   *RiskAssessment `json:"risk_assessment,omitempty"`
}
