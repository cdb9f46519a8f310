// Package strategy manages user trading strategies and evaluates them
// for a symbol. The registry satisfies the strategy-manager collaborator
// contract the decision engine depends on.
package strategy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quantforge/decider/internal/config"
	"github.com/quantforge/decider/internal/domain"
)

// Strategy evaluates one trading strategy for a symbol. Evaluations
// returning HOLD are filtered out by the engine.
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, symbol string, dctx *domain.DecisionContext) (*domain.StrategyEvaluation, error)
}

// Registry is a concurrency-safe collection of active strategies.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	logger     zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
		logger:     config.NewLogger("strategy_registry"),
	}
}

// Register adds a strategy. Registering an existing name is an error.
func (r *Registry) Register(s Strategy) error {
	if s == nil || s.Name() == "" {
		return fmt.Errorf("strategy must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[s.Name()]; exists {
		return fmt.Errorf("strategy already registered: %s", s.Name())
	}
	r.strategies[s.Name()] = s
	r.logger.Info().Str("strategy", s.Name()).Msg("Strategy registered")
	return nil
}

// Unregister removes a strategy by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.strategies, name)
}

// ActiveStrategyNames returns the sorted names of all registered
// strategies.
func (r *Registry) ActiveStrategyNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EvaluateForSymbol runs one named strategy against a symbol. Unknown
// names are an error; a nil evaluation means the strategy abstained.
func (r *Registry) EvaluateForSymbol(ctx context.Context, name, symbol string, dctx *domain.DecisionContext) (*domain.StrategyEvaluation, error) {
	r.mu.RLock()
	s, ok := r.strategies[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown strategy: %s", name)
	}
	return s.Evaluate(ctx, symbol, dctx)
}
