// Package market fetches raw market data and condenses it into the
// technical/fundamental/sentiment snapshot the decision pipeline
// consumes. The analyzer never fails: broken data sources degrade to
// documented neutral defaults.
package market

import (
	"context"
	"time"
)

// Quote is the current market quote for a symbol.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previous_close"`
	DayHigh       float64 `json:"day_high"`
	DayLow        float64 `json:"day_low"`
	Volume        int64   `json:"volume"`
}

// Candle is one OHLCV bar. Providers drop rows whose fields cannot be
// parsed, so a returned candle is always numeric.
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// CompanyInfo carries company metadata; optional fields are pointers
// because most providers omit them for ETFs, indices and small caps.
type CompanyInfo struct {
	Symbol        string   `json:"symbol"`
	Sector        string   `json:"sector"`
	Industry      string   `json:"industry"`
	MarketCap     *float64 `json:"market_cap,omitempty"`
	PERatio       *float64 `json:"pe_ratio,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty"`
	Beta          *float64 `json:"beta,omitempty"`
}

// DataProvider is the market-data collaborator the pipeline depends on.
type DataProvider interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
	// GetHistoricalData returns bars ordered oldest first for the given
	// period ("1mo", "1y", ...) and interval ("1d", "1h", ...).
	GetHistoricalData(ctx context.Context, symbol, period, interval string) ([]Candle, error)
	GetCompanyInfo(ctx context.Context, symbol string) (*CompanyInfo, error)
}

// SentimentResult is the sentiment snapshot returned by the analysis
// service. All scores live in [-1, 1]; Confidence in [0, 1].
type SentimentResult struct {
	OverallSentiment float64 `json:"overall_sentiment"`
	NewsSentiment    float64 `json:"news_sentiment"`
	SocialSentiment  float64 `json:"social_sentiment"`
	Confidence       float64 `json:"confidence"`
}

// SentimentAnalyzer is the slice of the AI analysis service the market
// analyzer consumes.
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, symbol, timeframe string) (*SentimentResult, error)
}
