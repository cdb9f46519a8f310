package domain

// TrendDirection is the overall direction of a market trend.
type TrendDirection string

const (
	TrendBullish TrendDirection = "bullish"
	TrendBearish TrendDirection = "bearish"
	TrendNeutral TrendDirection = "neutral"
)

// Fundamentals holds the optional fundamental metrics of a company.
// Fields are pointers because providers frequently omit them.
type Fundamentals struct {
	PERatio       *float64 `json:"pe_ratio,omitempty"`
	MarketCap     *float64 `json:"market_cap,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty"` // fraction, e.g. 0.04
}

// MarketAnalysis is the technical/fundamental/sentiment snapshot for a
// symbol. Volatility is never negative; sentiment is bounded to [-1,1]
// and liquidity to [0,1].
type MarketAnalysis struct {
	Symbol           string             `json:"symbol"`
	Indicators       map[string]float64 `json:"indicators"`
	SupportLevels    []float64          `json:"support_levels"`
	ResistanceLevels []float64          `json:"resistance_levels"`
	Trend            TrendDirection     `json:"trend"`
	Volatility       float64            `json:"volatility"` // annualized stdev of returns
	Fundamentals     *Fundamentals      `json:"fundamentals,omitempty"`
	SentimentScore   float64            `json:"sentiment_score"` // [-1, 1]
	VolumeTrend      string             `json:"volume_trend"`    // "increasing", "decreasing", "stable"
	LiquidityScore   float64            `json:"liquidity_score"` // [0, 1]
}

// NeutralMarketAnalysis is the degraded analysis used when every data
// source failed: no directional evidence, middling volatility and
// liquidity.
func NeutralMarketAnalysis(symbol string) *MarketAnalysis {
	return &MarketAnalysis{
		Symbol:         symbol,
		Indicators:     map[string]float64{},
		Trend:          TrendNeutral,
		Volatility:     0.2,
		SentimentScore: 0,
		VolumeTrend:    "stable",
		LiquidityScore: 0.5,
	}
}

// Indicator returns a named indicator value and whether it is present.
func (m *MarketAnalysis) Indicator(name string) (float64, bool) {
	if m == nil || m.Indicators == nil {
		return 0, false
	}
	v, ok := m.Indicators[name]
	return v, ok
}
