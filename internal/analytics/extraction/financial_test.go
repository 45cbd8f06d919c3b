package extraction

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"risk-analytics/internal/common/errors"
	"risk-analytics/internal/models"
)

func TestValidateFinancialMetric(t *testing.T) {
	tests := []struct {
		metric string
		value  float64
		valid  bool
	}{
		{MetricEbitdaMargin, -100, true},
		{MetricEbitdaMargin, 100, true},
		{MetricEbitdaMargin, 100.01, false},
		{MetricDebtEquityRatio, -0.1, false},
		{MetricDebtEquityRatio, 50, true},
		{MetricCurrentRatio, 20, true},
		{MetricCurrentRatio, 45, false},
		{MetricTotalRevenue, -1, false},
		{MetricTotalRevenue, 1e12, true},
		{MetricTotalAssets, 2e12, false},
		{MetricNetProfit, -1e12, true},
		{MetricNetProfit, -1.1e12, false},
		{MetricTotalLiabilities, -5, true},
		{"unknownMetric", 1e15, true},
		{MetricCurrentRatio, math.NaN(), false},
		{"unknownMetric", math.Inf(1), false},
	}
	for _, tt := range tests {
		got := ValidateFinancialMetric(tt.value, tt.metric)
		if tt.valid {
			require.NotNil(t, got, "%s=%v", tt.metric, tt.value)
			assert.Equal(t, tt.value, *got)
		} else {
			assert.Nil(t, got, "%s=%v", tt.metric, tt.value)
		}
	}
}

func TestGetLatestFinancialYear(t *testing.T) {
	tests := []struct {
		name string
		fd   models.FinancialData
		want string
	}{
		{
			name: "years list with mixed labels",
			fd:   models.FinancialData{Years: []string{"31 Mar, 2022", "2024", "FY 2023"}},
			want: "2024",
		},
		{
			name: "label year beats list position",
			fd:   models.FinancialData{Years: []string{"Mar 2021", "31 Mar, 2023", "Mar 2022"}},
			want: "31 Mar, 2023",
		},
		{
			name: "ratio keys when years are missing",
			fd: models.FinancialData{Ratios: models.YearTable{
				"current_ratio": {"Mar 2020": 1.1, "Mar 2022": 1.3},
				"ebitda_margin": {"Mar 2021": 9},
			}},
			want: "Mar 2022",
		},
		{
			name: "years without digits fall back to table keys",
			fd: models.FinancialData{
				Years:  []string{"current", "previous"},
				Ratios: models.YearTable{"current_ratio": {"2019": 1}},
			},
			want: "2019",
		},
		{name: "nothing", fd: models.FinancialData{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetLatestFinancialYear(tt.fd))
		})
	}
}

func fullYear(year string) map[string]map[string]float64 {
	return map[string]map[string]float64{
		"ebitda_margin":     {year: 18},
		"debt_equity_ratio": {year: 0.8},
		"current_ratio":     {year: 1.6},
	}
}

func TestExtractFinancialMetrics_Latest(t *testing.T) {
	rec := &models.RawRiskRecord{FinancialData: models.FinancialData{
		Years:        []string{"31 Mar, 2023", "31 Mar, 2024"},
		Ratios:       fullYear("31 Mar, 2024"),
		ProfitLoss:   models.YearTable{"Revenue from Operations": {"2024": 5e7}, "Net Profit": {"31 Mar, 2024": 4e6}},
		BalanceSheet: models.YearTable{"Total Assets": {"31 Mar, 2024": 6e7}},
	}}

	res := ExtractFinancialMetrics(rec)
	require.True(t, res.OK(), "%v", res.Issues)
	m := res.Value
	assert.Equal(t, "31 Mar, 2024", m.Year)
	assert.Equal(t, 18.0, *m.EbitdaMargin)
	assert.Equal(t, 5e7, *m.TotalRevenue, "matched through the embedded year")
	assert.Nil(t, m.TotalLiabilities)
	assert.Equal(t, 6, m.Count())
	assert.Equal(t, models.ConfidenceHigh, m.Confidence)
	assert.Equal(t, models.DataSourceLatest, m.DataSource)
}

func TestExtractFinancialMetrics_RangeViolationBecomesNil(t *testing.T) {
	rec := &models.RawRiskRecord{FinancialData: models.FinancialData{
		Years:  []string{"2024"},
		Ratios: models.YearTable{"current_ratio": {"2024": 45}, "debt_equity_ratio": {"2024": 1.2}},
	}}

	res := ExtractFinancialMetrics(rec)
	assert.Nil(t, res.Value.CurrentRatio)
	require.NotNil(t, res.Value.DebtEquityRatio)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, errors.ErrCodeRangeViolation, res.Issues[0].Code)
	assert.Equal(t, "financialData.currentRatio", res.Issues[0].Field)
}

func TestExtractFinancialMetrics_Derivations(t *testing.T) {
	rec := &models.RawRiskRecord{FinancialData: models.FinancialData{
		Years: []string{"2024"},
		ProfitLoss: models.YearTable{
			"total_revenue":    {"2024": 1000},
			"operating_profit": {"2024": 150},
			"net_profit":       {"2024": 80},
		},
		BalanceSheet: models.YearTable{
			"current_assets":      {"2024": 300},
			"current_liabilities": {"2024": 200},
		},
	}}

	m := ExtractFinancialMetrics(rec).Value
	require.NotNil(t, m.EbitdaMargin)
	assert.InDelta(t, 15.0, *m.EbitdaMargin, 1e-9)
	require.NotNil(t, m.CurrentRatio)
	assert.InDelta(t, 1.5, *m.CurrentRatio, 1e-9)
	assert.Equal(t, models.DataSourceCalculated, m.DataSource)
	assert.Equal(t, models.ConfidenceMedium, m.Confidence)
}

func TestExtractFinancialMetrics_FallbackToPreviousYear(t *testing.T) {
	ratios := fullYear("2023")
	ratios["current_ratio"]["2024"] = 1.2
	rec := &models.RawRiskRecord{FinancialData: models.FinancialData{
		Years:      []string{"2024", "2023"},
		Ratios:     ratios,
		ProfitLoss: models.YearTable{"revenue": {"2023": 900}, "pat": {"2023": 50}},
	}}

	m := ExtractFinancialMetrics(rec).Value
	assert.Equal(t, "2023", m.Year)
	assert.Equal(t, models.DataSourceFallback, m.DataSource)
	assert.Equal(t, models.ConfidenceHigh, m.Confidence)
}

func TestExtractFinancialMetrics_FallbackNotBetterKeepsLatest(t *testing.T) {
	rec := &models.RawRiskRecord{FinancialData: models.FinancialData{
		Years:  []string{"2024", "2023"},
		Ratios: models.YearTable{"current_ratio": {"2024": 1.2, "2023": 1.1}},
	}}

	m := ExtractFinancialMetrics(rec).Value
	assert.Equal(t, "2024", m.Year)
	assert.Equal(t, models.DataSourceLatest, m.DataSource)
	assert.Equal(t, models.ConfidenceLow, m.Confidence)
}

func TestExtractFinancialMetrics_NoYears(t *testing.T) {
	res := ExtractFinancialMetrics(&models.RawRiskRecord{})
	assert.Equal(t, models.DataSourceUnknown, res.Value.DataSource)
	assert.Equal(t, models.ConfidenceLow, res.Value.Confidence)
	assert.Equal(t, errors.ErrCodeMissingData, res.Issues[0].Code)

	res = ExtractFinancialMetrics(nil)
	assert.Equal(t, models.DataSourceUnknown, res.Value.DataSource)
}
