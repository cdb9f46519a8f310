// Package ai is the boundary to the external AI analysis and decision
// services. Payloads are adapted into explicit DTOs here, once, so the
// rest of the pipeline never handles loosely shaped maps.
package ai

// DecisionRequest is the serialized context sent to the decision
// service for final synthesis.
type DecisionRequest struct {
	Symbol         string  `json:"symbol"`
	CurrentPrice   float64 `json:"current_price"`
	PositionWeight float64 `json:"position_size"`
	AvailableCash  float64 `json:"available_cash"`
	PortfolioValue float64 `json:"portfolio_value"`

	Market  *MarketSummary `json:"market_summary,omitempty"`
	Risk    *RiskSummary   `json:"risk_summary,omitempty"`
	Signals *SignalSummary `json:"signal_summary,omitempty"`
}

// MarketSummary condenses the market analysis for the decision service.
type MarketSummary struct {
	Trend      string   `json:"trend"`
	Volatility float64  `json:"volatility"`
	Sentiment  float64  `json:"sentiment"`
	RSI        *float64 `json:"rsi,omitempty"`
}

// RiskSummary condenses the risk assessment.
type RiskSummary struct {
	OverallScore    float64 `json:"overall_score"`
	RiskLevel       string  `json:"risk_level"`
	MaxPositionSize float64 `json:"max_position_size"`
	VaR1Day         float64 `json:"var_1d"`
}

// SignalSummary condenses the signal aggregation.
type SignalSummary struct {
	Action            string  `json:"action"`
	Confidence        float64 `json:"confidence"`
	ConsensusStrength float64 `json:"consensus_strength"`
	BuyCount          int     `json:"buy_count"`
	SellCount         int     `json:"sell_count"`
	HoldCount         int     `json:"hold_count"`
}

// DecisionResponse is what the decision service returns.
type DecisionResponse struct {
	Action            string   `json:"action"`
	Confidence        float64  `json:"confidence"`
	Reasoning         string   `json:"reasoning"`
	SupportingFactors []string `json:"supporting_factors,omitempty"`
	RiskFactors       []string `json:"risk_factors,omitempty"`
	ExpectedReturn    float64  `json:"expected_return"`

	// OverallScore is a pointer so an explicit zero from the service is
	// distinguishable from an omitted assessment.
	RiskAssessment struct {
		OverallScore *float64 `json:"overall_score,omitempty"`
	} `json:"risk_assessment"`

	PositionSize *float64 `json:"position_size,omitempty"`
	TargetPrice  *float64 `json:"target_price,omitempty"`
	StopLoss     *float64 `json:"stop_loss,omitempty"`
}

// MarketConditions is the response of the market-conditions analysis
// endpoint.
type MarketConditions struct {
	TechnicalIndicators map[string]float64 `json:"technical_indicators"`
	TrendAnalysis       string             `json:"trend_analysis"`
	VolatilityMetrics   map[string]float64 `json:"volatility_metrics"`
	SentimentAnalysis   float64            `json:"sentiment_analysis"`
	VolumeAnalysis      map[string]float64 `json:"volume_analysis"`
}

// sentimentResponse is the wire shape of the sentiment endpoint.
type sentimentResponse struct {
	OverallSentiment float64 `json:"overall_sentiment"`
	NewsSentiment    float64 `json:"news_sentiment"`
	SocialSentiment  float64 `json:"social_sentiment"`
	Confidence       float64 `json:"confidence"`
}
