package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/quantforge/decider/internal/config"
	"github.com/quantforge/decider/internal/market"
)

// ClientConfig configures the AI service client.
type ClientConfig struct {
	Endpoint    string
	APIKey      string
	Timeout     time.Duration
	MaxRetries  int
	BreakerOpen time.Duration
}

// Client talks to the AI analysis and decision services over HTTP. A
// circuit breaker stops hammering the service once it starts failing;
// the decision pipeline treats every error here as a fallback trigger,
// so an open circuit just means cheap fast failures.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewClient creates a client for the given endpoint.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerOpen <= 0 {
		cfg.BreakerOpen = 60 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}

	logger := config.NewLogger("ai_client")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "ai-service",
		Timeout: cfg.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("AI service circuit breaker state changed")
		},
	})

	return &Client{
		http:    httpClient,
		breaker: breaker,
		logger:  logger,
	}
}

// MakeTradingDecision asks the decision service to synthesize a final
// decision from the serialized context.
func (c *Client) MakeTradingDecision(ctx context.Context, req *DecisionRequest) (*DecisionResponse, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var out DecisionResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&out).
			Post("/v1/decisions")
		if err != nil {
			return nil, fmt.Errorf("decision request failed: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("decision service returned %s", resp.Status())
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}

	out := result.(*DecisionResponse)
	c.logger.Debug().
		Str("symbol", req.Symbol).
		Str("action", out.Action).
		Float64("confidence", out.Confidence).
		Msg("AI decision received")
	return out, nil
}

// AnalyzeSentiment fetches the sentiment snapshot for a symbol.
func (c *Client) AnalyzeSentiment(ctx context.Context, symbol, timeframe string) (*market.SentimentResult, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var out sentimentResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{"symbol": symbol, "timeframe": timeframe}).
			SetResult(&out).
			Get("/v1/sentiment")
		if err != nil {
			return nil, fmt.Errorf("sentiment request failed: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("analysis service returned %s", resp.Status())
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}

	out := result.(*sentimentResponse)
	return &market.SentimentResult{
		OverallSentiment: out.OverallSentiment,
		NewsSentiment:    out.NewsSentiment,
		SocialSentiment:  out.SocialSentiment,
		Confidence:       out.Confidence,
	}, nil
}

// AnalyzeMarketConditions fetches the broader market-conditions
// analysis for a symbol.
func (c *Client) AnalyzeMarketConditions(ctx context.Context, symbol, timeframe string, payload map[string]interface{}) (*MarketConditions, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var out MarketConditions
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(map[string]interface{}{
				"symbol":    symbol,
				"timeframe": timeframe,
				"context":   payload,
			}).
			SetResult(&out).
			Post("/v1/market-conditions")
		if err != nil {
			return nil, fmt.Errorf("market conditions request failed: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("analysis service returned %s", resp.Status())
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*MarketConditions), nil
}
