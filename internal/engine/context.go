package engine

import (
	"context"

	"github.com/quantforge/decider/internal/domain"
	"github.com/quantforge/decider/internal/metrics"
)

// buildContext assembles the per-request decision context from the
// current quote, the portfolio position and the active strategy list.
// A failed quote fetch falls back to a short history window; if that
// also fails the context stays priceless and later stages treat zero
// prices as missing data. The context is complete before the analysis
// fan-out starts, so the concurrent tasks only ever read it.
func (e *Engine) buildContext(ctx context.Context, symbol string, portfolio *domain.Portfolio) *domain.DecisionContext {
	dctx := &domain.DecisionContext{
		Symbol:          symbol,
		MaxPositionSize: e.maxPositionSize,
		MinTradeAmount:  e.minTradeAmount,
	}

	if portfolio != nil {
		pos := portfolio.PositionFor(symbol)
		dctx.PositionQuantity = pos.Quantity
		dctx.PositionWeight = pos.Weight
		dctx.AvailableCash = portfolio.AvailableCash
		dctx.PortfolioValue = portfolio.TotalValue
	}

	if e.strategies != nil {
		dctx.ActiveStrategies = e.strategies.ActiveStrategyNames()
	}

	quote, err := e.provider.GetQuote(ctx, symbol)
	if err != nil {
		metrics.RecordStageFailure(metrics.StageContext)
		e.logger.Warn().Err(err).Str("symbol", symbol).
			Msg("Quote fetch failed, backfilling prices from history")
	} else {
		dctx.CurrentPrice = quote.Price
		dctx.PreviousClose = quote.PreviousClose
		dctx.DayHigh = quote.DayHigh
		dctx.DayLow = quote.DayLow
		dctx.Volume = quote.Volume
	}

	e.backfillContext(ctx, symbol, dctx)
	return dctx
}

// backfillContext fills price fields the quote fetch left empty from a
// short history window. Best effort; the context stays usable either
// way. Runs inside buildContext, before any concurrent reader exists.
func (e *Engine) backfillContext(ctx context.Context, symbol string, dctx *domain.DecisionContext) {
	if dctx.CurrentPrice > 0 && dctx.PreviousClose > 0 {
		return
	}

	bars, err := e.provider.GetHistoricalData(ctx, symbol, "5d", "1d")
	if err != nil || len(bars) == 0 {
		return
	}

	last := bars[len(bars)-1]
	if dctx.CurrentPrice <= 0 {
		dctx.CurrentPrice = last.Close
		dctx.DayHigh = last.High
		dctx.DayLow = last.Low
		dctx.Volume = last.Volume
	}
	if dctx.PreviousClose <= 0 && len(bars) > 1 {
		dctx.PreviousClose = bars[len(bars)-2].Close
	}
}
