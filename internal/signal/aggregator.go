package signal

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/quantforge/decider/internal/config"
	"github.com/quantforge/decider/internal/domain"
)

// Aggregator combines strategy, market and risk signals into a
// consensus action. Stateless and safe for concurrent use.
type Aggregator struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewAggregator creates an aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		logger: config.NewLogger("signal_aggregator"),
		now:    time.Now,
	}
}

// Aggregate normalizes all inputs into scored signals and picks the
// action with the highest total score. It never fails: with no usable
// signals it returns a zero-confidence HOLD aggregation.
func (a *Aggregator) Aggregate(symbol string, strategyEvals []domain.StrategyEvaluation, ma *domain.MarketAnalysis, ra *domain.RiskAssessment) (agg *domain.SignalAggregation) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Str("symbol", symbol).
				Msg("Signal aggregation panicked, returning empty aggregation")
			agg = domain.EmptyAggregation(symbol)
		}
	}()

	now := a.now()

	signals := fromStrategies(symbol, strategyEvals, now)
	signals = append(signals, fromMarketAnalysis(symbol, ma, now)...)
	signals = append(signals, fromRiskAssessment(symbol, ra, now)...)

	// Expired signals contribute nothing.
	live := signals[:0]
	for _, s := range signals {
		if !s.IsExpired(now) {
			live = append(live, s)
		}
	}

	if len(live) == 0 {
		return domain.EmptyAggregation(symbol)
	}

	agg = &domain.SignalAggregation{
		Symbol:      symbol,
		Signals:     live,
		TypeWeights: map[domain.SignalType]float64{},
	}

	actionScores := map[domain.Action]float64{}
	typeScores := map[domain.SignalType]float64{}
	var totalScore float64

	for i := range live {
		s := &live[i]
		contribution := score(s, now)
		actionScores[s.Direction] += contribution
		typeScores[s.Type] += contribution
		totalScore += contribution

		switch s.Direction {
		case domain.ActionBuy:
			agg.BuyCount++
		case domain.ActionSell:
			agg.SellCount++
		default:
			agg.HoldCount++
		}
	}

	agg.Action = winningAction(actionScores)
	agg.WeightedScore = totalScore
	if totalScore > 0 && agg.Action != domain.ActionHold {
		ratio := actionScores[agg.Action] / totalScore
		agg.Confidence = ratio
		agg.ConsensusStrength = ratio
	} else if totalScore > 0 {
		ratio := actionScores[domain.ActionHold] / totalScore
		agg.Confidence = ratio
		agg.ConsensusStrength = ratio
	}

	for t, s := range typeScores {
		if totalScore > 0 {
			agg.TypeWeights[t] = s / totalScore
		}
	}

	a.logger.Debug().
		Str("symbol", symbol).
		Str("action", string(agg.Action)).
		Float64("confidence", agg.Confidence).
		Int("signals", len(live)).
		Msg("Signals aggregated")

	return agg
}

// winningAction returns the action with the strictly highest score;
// ties resolve to HOLD.
func winningAction(scores map[domain.Action]float64) domain.Action {
	best := domain.ActionHold
	bestScore := scores[domain.ActionHold]

	for _, action := range []domain.Action{domain.ActionBuy, domain.ActionSell} {
		s := scores[action]
		if s > bestScore {
			best = action
			bestScore = s
		} else if s == bestScore && s > 0 && best != domain.ActionHold {
			// Two non-HOLD actions tied: no consensus.
			best = domain.ActionHold
		}
	}
	return best
}
