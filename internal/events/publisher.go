// Package events publishes finished decisions to NATS so downstream
// consumers (execution, journaling, dashboards) can react to them.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/quantforge/decider/internal/config"
	"github.com/quantforge/decider/internal/domain"
)

// DecisionEvent is the wire format of a published decision.
type DecisionEvent struct {
	ID        uuid.UUID              `json:"id"`
	Symbol    string                 `json:"symbol"`
	Decision  *domain.DecisionResult `json:"decision"`
	Timestamp time.Time              `json:"timestamp"`
}

// PublisherConfig configures the publisher.
type PublisherConfig struct {
	URL           string
	SubjectPrefix string // default "decisions"
}

// Publisher sends decision events over NATS.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	logger zerolog.Logger
}

// NewPublisher connects to NATS and returns a publisher.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	logger := config.NewLogger("event_publisher")

	nc, err := nats.Connect(
		cfg.URL,
		nats.Name("decider"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "decisions"
	}

	return &Publisher{
		nc:     nc,
		prefix: prefix,
		logger: logger,
	}, nil
}

// NewPublisherWithConn wraps an existing connection. Used by tests
// against an embedded server.
func NewPublisherWithConn(nc *nats.Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = "decisions"
	}
	return &Publisher{
		nc:     nc,
		prefix: prefix,
		logger: config.NewLogger("event_publisher"),
	}
}

// PublishDecision sends one decision on "<prefix>.<symbol>".
func (p *Publisher) PublishDecision(result *domain.DecisionResult) error {
	if result == nil {
		return fmt.Errorf("nil decision")
	}
	if !p.nc.IsConnected() {
		return fmt.Errorf("event publisher not connected")
	}

	event := DecisionEvent{
		ID:        uuid.New(),
		Symbol:    result.Symbol,
		Decision:  result,
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal decision event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.prefix, result.Symbol)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish decision event: %w", err)
	}

	p.logger.Debug().Str("subject", subject).Str("action", string(result.Action)).
		Msg("Decision event published")
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p.nc != nil && !p.nc.IsClosed() {
		if err := p.nc.Drain(); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to drain NATS connection")
		}
	}
}
