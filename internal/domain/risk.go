package domain

// RiskLevel is the textual band derived from the overall risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// RiskLevelFromScore maps an overall risk score to its band.
func RiskLevelFromScore(score float64) RiskLevel {
	switch {
	case score <= 0.3:
		return RiskLow
	case score <= 0.6:
		return RiskModerate
	case score <= 0.8:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}

// RiskAssessment holds the risk metrics for a symbol. VaR values are
// expressed as negative returns (a 1-day VaR of -0.04 means a 4% loss
// at the confidence level). All sub-risk scores live in [0,1].
type RiskAssessment struct {
	Symbol string `json:"symbol"`

	// VaR holds the full grid keyed "1d_95", "5d_99", etc. VaR1Day and
	// VaR5Day are the 95% entries kept as first-class fields.
	VaR      map[string]float64 `json:"var"`
	VaR1Day  float64            `json:"var_1d"`
	VaR5Day  float64            `json:"var_5d"`
	CVaR1Day float64            `json:"cvar_1d"`
	CVaR5Day float64            `json:"cvar_5d"`

	Beta        *float64 `json:"beta,omitempty"`
	SharpeRatio *float64 `json:"sharpe_ratio,omitempty"`
	MaxDrawdown *float64 `json:"max_drawdown,omitempty"` // absolute value, e.g. 0.35

	SectorRisk        float64  `json:"sector_risk"`
	ConcentrationRisk float64  `json:"concentration_risk"`
	LiquidityRisk     float64  `json:"liquidity_risk"`
	CreditRisk        *float64 `json:"credit_risk,omitempty"`

	OverallRiskScore float64   `json:"overall_risk_score"` // [0,1]
	RiskLevel        RiskLevel `json:"risk_level"`

	MaxPositionSize     float64  `json:"max_position_size"` // [0.01, 0.20]
	RecommendedStopLoss *float64 `json:"recommended_stop_loss,omitempty"`
}

// ModerateRiskAssessment is the fixed fallback used when risk analysis
// fails entirely.
func ModerateRiskAssessment(symbol string) *RiskAssessment {
	return &RiskAssessment{
		Symbol:            symbol,
		VaR:               map[string]float64{},
		VaR1Day:           -0.02,
		VaR5Day:           -0.045,
		SectorRisk:        0.5,
		ConcentrationRisk: 0.0,
		LiquidityRisk:     0.5,
		OverallRiskScore:  0.5,
		RiskLevel:         RiskModerate,
		MaxPositionSize:   0.10,
	}
}
