package market

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/quantforge/decider/internal/config"
)

// HTTPProviderConfig configures the REST market-data provider.
type HTTPProviderConfig struct {
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// HTTPProvider implements DataProvider against a REST market-data
// service exposing /v1/quote, /v1/history and /v1/company.
type HTTPProvider struct {
	http   *resty.Client
	logger zerolog.Logger
}

// NewHTTPProvider creates a provider for the given endpoint.
func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}

	return &HTTPProvider{
		http:   httpClient,
		logger: config.NewLogger("market_provider"),
	}
}

// GetQuote implements DataProvider.
func (p *HTTPProvider) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	var out Quote
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&out).
		Get("/v1/quote")
	if err != nil {
		return nil, fmt.Errorf("quote request failed for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("quote request for %s returned %s", symbol, resp.Status())
	}
	if out.Price <= 0 {
		return nil, fmt.Errorf("quote for %s has no price", symbol)
	}
	out.Symbol = symbol
	return &out, nil
}

// GetHistoricalData implements DataProvider. Bars are returned oldest
// first; rows the service could not parse are absent.
func (p *HTTPProvider) GetHistoricalData(ctx context.Context, symbol, period, interval string) ([]Candle, error) {
	var out struct {
		Bars []Candle `json:"bars"`
	}
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"period":   period,
			"interval": interval,
		}).
		SetResult(&out).
		Get("/v1/history")
	if err != nil {
		return nil, fmt.Errorf("history request failed for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("history request for %s returned %s", symbol, resp.Status())
	}
	return out.Bars, nil
}

// GetCompanyInfo implements DataProvider.
func (p *HTTPProvider) GetCompanyInfo(ctx context.Context, symbol string) (*CompanyInfo, error) {
	var out CompanyInfo
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&out).
		Get("/v1/company")
	if err != nil {
		return nil, fmt.Errorf("company info request failed for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("company info request for %s returned %s", symbol, resp.Status())
	}
	out.Symbol = symbol
	return &out, nil
}
