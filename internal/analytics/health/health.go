// Package health turns validated financial metrics into a weighted score.
package health

import (
	"math"

	"risk-analytics/internal/models"
)

const baseScore = 50

// Factor weights.
const (
	weightProfitability = 0.3
	weightLiquidity     = 0.2
	weightLeverage      = 0.3
	weightEfficiency    = 0.2
)

// tier awards delta when the metric passes the threshold. Ladders are
// evaluated top down and the first hit wins.
type tier struct {
	threshold float64
	delta     float64
}

var (
	ebitdaTiers    = []tier{{20, 25}, {15, 15}, {10, 10}, {5, 5}, {0, 0}}
	netMarginTiers = []tier{{15, 25}, {10, 15}, {5, 10}, {0, 0}}
	liquidityTiers = []tier{{2.0, 30}, {1.5, 20}, {1.2, 10}, {1.0, 0}, {0.8, -15}}
	turnoverTiers  = []tier{{1.5, 25}, {1.0, 15}, {0.5, 10}}
	// lower is better
	leverageTiers = []tier{{0.3, 30}, {0.6, 20}, {1.0, 10}, {2.0, 0}, {3.0, -15}}
)

const (
	negativeMarginPenalty = -20
	illiquidPenalty       = -30
	overleveragedPenalty  = -30
	minTurnoverBonus      = 5
)

func atLeast(v float64, tiers []tier, otherwise float64) float64 {
	for _, t := range tiers {
		if v >= t.threshold {
			return t.delta
		}
	}
	return otherwise
}

func atMost(v float64, tiers []tier, otherwise float64) float64 {
	for _, t := range tiers {
		if v <= t.threshold {
			return t.delta
		}
	}
	return otherwise
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func ratio(num, den *float64) (float64, bool) {
	if num == nil || den == nil || *den == 0 {
		return 0, false
	}
	return *num / *den, true
}

// Factors computes the four sub-scores. A missing metric leaves its factor
// at the base score.
func Factors(m models.FinancialMetrics) models.HealthFactors {
	profitability := float64(baseScore)
	if m.EbitdaMargin != nil {
		profitability += atLeast(*m.EbitdaMargin, ebitdaTiers, negativeMarginPenalty)
	}
	if margin, ok := ratio(m.NetProfit, m.TotalRevenue); ok {
		profitability += atLeast(margin*100, netMarginTiers, negativeMarginPenalty)
	}

	liquidity := float64(baseScore)
	if m.CurrentRatio != nil {
		liquidity += atLeast(*m.CurrentRatio, liquidityTiers, illiquidPenalty)
	}

	leverage := float64(baseScore)
	if m.DebtEquityRatio != nil {
		leverage += atMost(*m.DebtEquityRatio, leverageTiers, overleveragedPenalty)
	}

	efficiency := float64(baseScore)
	if turnover, ok := ratio(m.TotalRevenue, m.TotalAssets); ok {
		efficiency += atLeast(turnover, turnoverTiers, minTurnoverBonus)
	}

	return models.HealthFactors{
		Profitability: clamp(profitability),
		Liquidity:     clamp(liquidity),
		Leverage:      clamp(leverage),
		Efficiency:    clamp(efficiency),
	}
}

// Category maps an overall score onto its band.
func Category(score int) models.HealthCategory {
	switch {
	case score >= 80:
		return models.HealthExcellent
	case score >= 65:
		return models.HealthGood
	case score >= 50:
		return models.HealthFair
	case score >= 30:
		return models.HealthPoor
	default:
		return models.HealthCritical
	}
}

// ComputeHealthScore returns the weighted health score. Low-confidence
// metrics always score 0/critical with zero factors.
func ComputeHealthScore(m models.FinancialMetrics) models.FinancialHealthScore {
	if m.Confidence == models.ConfidenceLow || m.Confidence == "" {
		return models.FinancialHealthScore{Score: 0, Category: models.HealthCritical}
	}
	f := Factors(m)
	score := int(math.Round(weightProfitability*f.Profitability +
		weightLiquidity*f.Liquidity +
		weightLeverage*f.Leverage +
		weightEfficiency*f.Efficiency))
	return models.FinancialHealthScore{Score: score, Category: Category(score), Factors: f}
}
