// internal/workers/analytics/calculate-portfolio-analytics/models.go
package calculateportfolioanalytics

import (
	"time"

	"risk-analytics/internal/models"
	"risk-analytics/internal/services/analytics"
)

type Input struct {
	UserID                   string                  `json:"userId"`
	Filters                  models.PortfolioFilters `json:"filters"`
	Page                     int                     `json:"page"`
	Limit                    int                     `json:"limit"`
	IncludeValidation        bool                    `json:"includeValidation"`
	IncludeParameterAnalysis bool                    `json:"includeParameterAnalysis"`
	IncludeCoverageTrends    bool                    `json:"includeCoverageTrends"`
	CalculateDrift           bool                    `json:"calculateDrift"`
	BenchmarkComparison      bool                    `json:"benchmarkComparison"`
	BenchmarkMetric          string                  `json:"benchmarkMetric,omitempty"`
}

// Output keeps the headline figures at the top level so BPMN gateways can
// branch on them without unpacking the full report.
type Output struct {
	TotalCompanies     int                          `json:"totalCompanies"`
	AverageCoverage    float64                      `json:"averageCoverage"`
	ConcentrationLevel string                       `json:"concentrationLevel"`
	DriftSeverity      string                       `json:"driftSeverity,omitempty"`
	Analytics          analytics.PortfolioAnalytics `json:"portfolioAnalytics"`
	Metadata           analytics.Metadata           `json:"analyticsMetadata"`
	CalculatedAt       time.Time                    `json:"calculatedAt"`
}
