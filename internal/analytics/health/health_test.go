package health

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"risk-analytics/internal/models"
)

func fp(v float64) *float64 { return &v }

func TestComputeHealthScore_LowConfidenceIsCritical(t *testing.T) {
	m := models.FinancialMetrics{
		EbitdaMargin:    fp(40),
		CurrentRatio:    fp(3),
		DebtEquityRatio: fp(0.1),
		Confidence:      models.ConfidenceLow,
	}
	got := ComputeHealthScore(m)
	assert.Equal(t, 0, got.Score)
	assert.Equal(t, models.HealthCritical, got.Category)
	assert.Equal(t, models.HealthFactors{}, got.Factors)
}

func TestComputeHealthScore_StrongCompany(t *testing.T) {
	m := models.FinancialMetrics{
		EbitdaMargin:    fp(22),
		NetProfit:       fp(16),
		TotalRevenue:    fp(100),
		TotalAssets:     fp(50),
		CurrentRatio:    fp(2.1),
		DebtEquityRatio: fp(0.25),
		Confidence:      models.ConfidenceHigh,
	}
	got := ComputeHealthScore(m)

	// profitability 50+25+25, liquidity 50+30, leverage 50+30, efficiency 50+25
	assert.Equal(t, models.HealthFactors{Profitability: 100, Liquidity: 80, Leverage: 80, Efficiency: 75}, got.Factors)
	assert.Equal(t, 85, got.Score)
	assert.Equal(t, models.HealthExcellent, got.Category)
}

func TestComputeHealthScore_WeakCompany(t *testing.T) {
	m := models.FinancialMetrics{
		EbitdaMargin:    fp(-5),
		NetProfit:       fp(-10),
		TotalRevenue:    fp(100),
		TotalAssets:     fp(400),
		CurrentRatio:    fp(0.7),
		DebtEquityRatio: fp(4),
		Confidence:      models.ConfidenceMedium,
	}
	got := ComputeHealthScore(m)

	assert.Equal(t, models.HealthFactors{Profitability: 10, Liquidity: 20, Leverage: 20, Efficiency: 55}, got.Factors)
	// 3 + 4 + 6 + 11
	assert.Equal(t, 24, got.Score)
	assert.Equal(t, models.HealthCritical, got.Category)
}

func TestFactors_MissingMetricsStayAtBase(t *testing.T) {
	f := Factors(models.FinancialMetrics{CurrentRatio: fp(1.3), TotalRevenue: fp(10), TotalAssets: fp(0)})
	assert.Equal(t, 50.0, f.Profitability)
	assert.Equal(t, 60.0, f.Liquidity)
	assert.Equal(t, 50.0, f.Leverage)
	assert.Equal(t, 50.0, f.Efficiency, "zero assets gives no turnover")
}

func TestFactorLadders(t *testing.T) {
	liquidity := []struct {
		ratio float64
		want  float64
	}{{2.0, 80}, {1.5, 70}, {1.2, 60}, {1.0, 50}, {0.8, 35}, {0.79, 20}}
	for _, tt := range liquidity {
		assert.Equal(t, tt.want, Factors(models.FinancialMetrics{CurrentRatio: fp(tt.ratio)}).Liquidity, "current ratio %v", tt.ratio)
	}

	leverage := []struct {
		ratio float64
		want  float64
	}{{0.3, 80}, {0.6, 70}, {1.0, 60}, {2.0, 50}, {3.0, 35}, {3.01, 20}}
	for _, tt := range leverage {
		assert.Equal(t, tt.want, Factors(models.FinancialMetrics{DebtEquityRatio: fp(tt.ratio)}).Leverage, "d/e %v", tt.ratio)
	}
}

func TestCategory(t *testing.T) {
	assert.Equal(t, models.HealthExcellent, Category(80))
	assert.Equal(t, models.HealthGood, Category(79))
	assert.Equal(t, models.HealthGood, Category(65))
	assert.Equal(t, models.HealthFair, Category(50))
	assert.Equal(t, models.HealthPoor, Category(30))
	assert.Equal(t, models.HealthCritical, Category(29))
}
