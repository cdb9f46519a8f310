// Package store persists finished decisions to PostgreSQL as an audit
// log. The engine treats it as optional and best-effort.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/quantforge/decider/internal/config"
	"github.com/quantforge/decider/internal/domain"
)

// PoolInterface defines the pool operations the store needs.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Store writes and reads the decision audit log.
type Store struct {
	pool   PoolInterface
	logger zerolog.Logger
}

// NewStore creates a store on an existing pool. Used by tests with a
// mock pool.
func NewStore(pool PoolInterface) *Store {
	return &Store{
		pool:   pool,
		logger: config.NewLogger("decision_store"),
	}
}

// Connect opens a connection pool for the given DSN and returns a
// store backed by it, plus the pool for lifecycle management.
func Connect(ctx context.Context, dsn string) (*Store, *pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewStore(pool), pool, nil
}

// EnsureSchema creates the decisions table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS decisions (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			action TEXT NOT NULL,
			confidence TEXT NOT NULL,
			confidence_score DOUBLE PRECISION NOT NULL,
			quantity DOUBLE PRECISION,
			price_target DOUBLE PRECISION,
			stop_loss DOUBLE PRECISION,
			take_profit DOUBLE PRECISION,
			primary_reason TEXT NOT NULL,
			supporting_factors JSONB,
			risk_factors JSONB,
			expected_return DOUBLE PRECISION NOT NULL,
			risk_score DOUBLE PRECISION NOT NULL,
			portfolio_impact JSONB,
			decided_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure decisions schema: %w", err)
	}
	return nil
}

// SaveDecision appends one decision to the audit log.
func (s *Store) SaveDecision(ctx context.Context, result *domain.DecisionResult) error {
	if result == nil {
		return fmt.Errorf("nil decision")
	}

	supporting, err := json.Marshal(result.SupportingFactors)
	if err != nil {
		return fmt.Errorf("failed to marshal supporting factors: %w", err)
	}
	riskFactors, err := json.Marshal(result.RiskFactors)
	if err != nil {
		return fmt.Errorf("failed to marshal risk factors: %w", err)
	}
	impact, err := json.Marshal(result.PortfolioImpact)
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio impact: %w", err)
	}

	query := `
		INSERT INTO decisions (
			symbol, action, confidence, confidence_score,
			quantity, price_target, stop_loss, take_profit,
			primary_reason, supporting_factors, risk_factors,
			expected_return, risk_score, portfolio_impact, decided_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15
		)
	`

	_, err = s.pool.Exec(
		ctx,
		query,
		result.Symbol,
		string(result.Action),
		string(result.Confidence),
		result.ConfidenceScore,
		result.Quantity,
		result.PriceTarget,
		result.StopLoss,
		result.TakeProfit,
		result.PrimaryReason,
		supporting,
		riskFactors,
		result.ExpectedReturn,
		result.RiskScore,
		impact,
		result.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

// RecentDecisions returns the newest decisions for a symbol, newest
// first.
func (s *Store) RecentDecisions(ctx context.Context, symbol string, limit int) ([]*domain.DecisionResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT symbol, action, confidence, confidence_score,
		       quantity, price_target, stop_loss, take_profit,
		       primary_reason, supporting_factors, risk_factors,
		       expected_return, risk_score, portfolio_impact, decided_at
		FROM decisions
		WHERE symbol = $1
		ORDER BY decided_at DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var results []*domain.DecisionResult
	for rows.Next() {
		var (
			r                               domain.DecisionResult
			action, confidence              string
			supporting, riskFactors, impact []byte
		)
		err := rows.Scan(
			&r.Symbol,
			&action,
			&confidence,
			&r.ConfidenceScore,
			&r.Quantity,
			&r.PriceTarget,
			&r.StopLoss,
			&r.TakeProfit,
			&r.PrimaryReason,
			&supporting,
			&riskFactors,
			&r.ExpectedReturn,
			&r.RiskScore,
			&impact,
			&r.DecidedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		r.Action = domain.Action(action)
		r.Confidence = domain.ConfidenceLevel(confidence)
		if len(supporting) > 0 {
			if err := json.Unmarshal(supporting, &r.SupportingFactors); err != nil {
				s.logger.Warn().Err(err).Str("symbol", r.Symbol).Msg("Bad supporting_factors payload")
			}
		}
		if len(riskFactors) > 0 {
			if err := json.Unmarshal(riskFactors, &r.RiskFactors); err != nil {
				s.logger.Warn().Err(err).Str("symbol", r.Symbol).Msg("Bad risk_factors payload")
			}
		}
		if len(impact) > 0 {
			if err := json.Unmarshal(impact, &r.PortfolioImpact); err != nil {
				s.logger.Warn().Err(err).Str("symbol", r.Symbol).Msg("Bad portfolio_impact payload")
			}
		}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read decisions: %w", err)
	}
	return results, nil
}
