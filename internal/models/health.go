// internal/models/health.go
package models

type HealthCategory string

const (
	HealthExcellent HealthCategory = "excellent"
	HealthGood      HealthCategory = "good"
	HealthFair      HealthCategory = "fair"
	HealthPoor      HealthCategory = "poor"
	HealthCritical  HealthCategory = "critical"
)

// HealthFactors are the four sub-scores, each in [0,100].
type HealthFactors struct {
	Profitability float64 `json:"profitability"`
	Liquidity     float64 `json:"liquidity"`
	Leverage      float64 `json:"leverage"`
	Efficiency    float64 `json:"efficiency"`
}

type FinancialHealthScore struct {
	Score    int            `json:"score"`
	Category HealthCategory `json:"category"`
	Factors  HealthFactors  `json:"factors"`
}
