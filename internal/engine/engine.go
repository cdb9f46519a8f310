// Package engine runs the decision pipeline: build context, fan out
// the analyses, aggregate signals, synthesize a decision and validate
// it against portfolio constraints. MakeDecision never returns an
// error; every failure path degrades to a well-formed HOLD result.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"github.com/quantforge/decider/internal/config"
	"github.com/quantforge/decider/internal/domain"
	"github.com/quantforge/decider/internal/market"
	"github.com/quantforge/decider/internal/metrics"
)

// MarketAnalyzer produces the market snapshot for a symbol.
type MarketAnalyzer interface {
	Analyze(ctx context.Context, symbol string, dctx *domain.DecisionContext) *domain.MarketAnalysis
}

// RiskAssessor produces the risk assessment for a symbol.
type RiskAssessor interface {
	Assess(ctx context.Context, symbol string, dctx *domain.DecisionContext, portfolio *domain.Portfolio) *domain.RiskAssessment
}

// SignalAggregator combines strategy evaluations and analyses into a
// consensus.
type SignalAggregator interface {
	Aggregate(symbol string, strategyEvals []domain.StrategyEvaluation, ma *domain.MarketAnalysis, ra *domain.RiskAssessment) *domain.SignalAggregation
}

// StrategyManager lists and evaluates the active trading strategies.
type StrategyManager interface {
	ActiveStrategyNames() []string
	EvaluateForSymbol(ctx context.Context, name, symbol string, dctx *domain.DecisionContext) (*domain.StrategyEvaluation, error)
}

// DecisionRecorder persists finished decisions. Optional.
type DecisionRecorder interface {
	SaveDecision(ctx context.Context, result *domain.DecisionResult) error
}

// EventPublisher announces finished decisions. Optional.
type EventPublisher interface {
	PublishDecision(result *domain.DecisionResult) error
}

// Options tunes the engine. Zero fields fall back to defaults matching
// the shipped configuration.
type Options struct {
	MaxConcurrentDecisions int64
	DecisionTimeout        time.Duration
	MaxPositionSize        float64
	MinTradeAmount         decimal.Decimal

	// Synthesizer overrides the default aggregation-based synthesis,
	// typically with the AI-backed one.
	Synthesizer Synthesizer

	Recorder  DecisionRecorder
	Publisher EventPublisher
}

// Engine is the decision pipeline. Safe for concurrent use.
type Engine struct {
	provider    market.DataProvider
	analyzer    MarketAnalyzer
	risk        RiskAssessor
	aggregator  SignalAggregator
	strategies  StrategyManager
	synthesizer Synthesizer
	recorder    DecisionRecorder
	publisher   EventPublisher

	timeout         time.Duration
	maxPositionSize float64
	minTradeAmount  decimal.Decimal

	sem    *semaphore.Weighted
	logger zerolog.Logger
}

// NewEngine wires the pipeline together.
func NewEngine(provider market.DataProvider, analyzer MarketAnalyzer, risk RiskAssessor, aggregator SignalAggregator, strategies StrategyManager, opts Options) *Engine {
	if opts.MaxConcurrentDecisions < 1 {
		opts.MaxConcurrentDecisions = 3
	}
	if opts.DecisionTimeout <= 0 {
		opts.DecisionTimeout = 30 * time.Second
	}
	if opts.MaxPositionSize <= 0 {
		opts.MaxPositionSize = 0.10
	}
	if opts.MinTradeAmount.IsZero() {
		opts.MinTradeAmount = decimal.NewFromInt(100)
	}
	if opts.Synthesizer == nil {
		opts.Synthesizer = NewAggregationSynthesizer()
	}

	return &Engine{
		provider:        provider,
		analyzer:        analyzer,
		risk:            risk,
		aggregator:      aggregator,
		strategies:      strategies,
		synthesizer:     opts.Synthesizer,
		recorder:        opts.Recorder,
		publisher:       opts.Publisher,
		timeout:         opts.DecisionTimeout,
		maxPositionSize: opts.MaxPositionSize,
		minTradeAmount:  opts.MinTradeAmount,
		sem:             semaphore.NewWeighted(opts.MaxConcurrentDecisions),
		logger:          config.NewLogger("decision_engine"),
	}
}

// MakeDecision runs the full pipeline for one symbol. It never returns
// nil and never panics: any escaping failure yields a HOLD result with
// confidence score 0.1 and risk score 1.0.
func (e *Engine) MakeDecision(ctx context.Context, symbol string, portfolio *domain.Portfolio) (result *domain.DecisionResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordStageFailure(metrics.StagePipeline)
			e.logger.Error().Str("symbol", symbol).Interface("panic", r).
				Msg("Decision pipeline panicked, returning fallback HOLD")
			result = domain.HoldResult(symbol, fmt.Sprintf("decision pipeline failure: %v", r), 0.1, 1.0)
		}
		metrics.RecordDecision(string(result.Action), time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	dctx := e.buildContext(ctx, symbol, portfolio)

	ma, ra, evals := e.fanOut(ctx, symbol, dctx, portfolio)

	dctx.Market = ma
	dctx.Risk = ra
	if ra != nil && ra.MaxPositionSize > 0 {
		dctx.MaxPositionSize = ra.MaxPositionSize
	}

	agg := e.aggregator.Aggregate(symbol, evals, ma, ra)

	result, err := e.synthesizer.Synthesize(ctx, dctx, agg)
	if err != nil || result == nil {
		metrics.RecordStageFailure(metrics.StageSynthesis)
		e.logger.Warn().Err(err).Str("symbol", symbol).
			Msg("Decision synthesis failed, returning fallback HOLD")
		result = domain.HoldResult(symbol, "decision synthesis unavailable", 0.3, 0.8)
	}

	e.validate(result, dctx)
	result.DecidedAt = time.Now().UTC()

	e.record(result)

	e.logger.Info().
		Str("symbol", symbol).
		Str("action", string(result.Action)).
		Float64("confidence", result.ConfidenceScore).
		Float64("risk_score", result.RiskScore).
		Dur("elapsed", time.Since(start)).
		Msg("Decision made")
	return result
}

// MakeBatchDecisions runs MakeDecision for each symbol, bounded by the
// configured concurrency limit. Symbols that cannot be scheduled are
// dropped from the result map and logged; the batch itself never fails.
func (e *Engine) MakeBatchDecisions(ctx context.Context, symbols []string, portfolio *domain.Portfolio) map[string]*domain.DecisionResult {
	metrics.RecordBatch(len(symbols))

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]*domain.DecisionResult, len(symbols))
	)

	for _, symbol := range symbols {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			e.logger.Warn().Err(err).Str("symbol", symbol).
				Msg("Batch decision skipped, could not acquire slot")
			continue
		}

		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			defer e.sem.Release(1)

			res := e.MakeDecision(ctx, symbol, portfolio)
			if res == nil {
				e.logger.Warn().Str("symbol", symbol).Msg("Batch decision dropped, no result")
				return
			}
			mu.Lock()
			results[symbol] = res
			mu.Unlock()
		}(symbol)
	}

	wg.Wait()
	return results
}

// fanOut runs the analysis tasks concurrently over a read-only
// context. Strategy evaluation consumes the market analysis, so it
// follows Analyze inside the same task, seeing the fresh analysis
// through a private context copy. Each stage fails in isolation: a
// panic or error leaves its output nil/empty and the siblings keep
// running.
func (e *Engine) fanOut(ctx context.Context, symbol string, dctx *domain.DecisionContext, portfolio *domain.Portfolio) (ma *domain.MarketAnalysis, ra *domain.RiskAssessment, evals []domain.StrategyEvaluation) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		func() {
			defer e.recoverStage(symbol, metrics.StageMarketAnalysis)
			ma = e.analyzer.Analyze(ctx, symbol, dctx)
		}()
		func() {
			defer e.recoverStage(symbol, metrics.StageStrategies)
			sctx := *dctx
			sctx.Market = ma
			evals = e.evaluateStrategies(ctx, symbol, &sctx)
		}()
	}()

	go func() {
		defer wg.Done()
		defer e.recoverStage(symbol, metrics.StageRisk)
		ra = e.risk.Assess(ctx, symbol, dctx, portfolio)
	}()

	wg.Wait()
	return ma, ra, evals
}

// evaluateStrategies runs every active strategy. Errors and HOLD
// abstentions are skipped.
func (e *Engine) evaluateStrategies(ctx context.Context, symbol string, dctx *domain.DecisionContext) []domain.StrategyEvaluation {
	if e.strategies == nil {
		return nil
	}

	names := dctx.ActiveStrategies
	evals := make([]domain.StrategyEvaluation, 0, len(names))
	for _, name := range names {
		eval, err := e.strategies.EvaluateForSymbol(ctx, name, symbol, dctx)
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", symbol).Str("strategy", name).
				Msg("Strategy evaluation failed, skipping")
			continue
		}
		if eval == nil || eval.Action == domain.ActionHold {
			continue
		}
		evals = append(evals, *eval)
	}
	return evals
}

func (e *Engine) recoverStage(symbol, stage string) {
	if r := recover(); r != nil {
		metrics.RecordStageFailure(stage)
		e.logger.Error().Str("symbol", symbol).Str("stage", stage).Interface("panic", r).
			Msg("Analysis task panicked, continuing without its output")
	}
}

// record persists and publishes the decision without blocking the
// caller. Both sinks are optional and best-effort.
func (e *Engine) record(result *domain.DecisionResult) {
	if e.recorder == nil && e.publisher == nil {
		return
	}

	go func() {
		if e.recorder != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.recorder.SaveDecision(ctx, result); err != nil {
				e.logger.Warn().Err(err).Str("symbol", result.Symbol).Msg("Failed to save decision")
			}
		}
		if e.publisher != nil {
			if err := e.publisher.PublishDecision(result); err != nil {
				e.logger.Warn().Err(err).Str("symbol", result.Symbol).Msg("Failed to publish decision")
			}
		}
	}()
}
