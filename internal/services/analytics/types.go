// internal/services/analytics/types.go
package analytics

import (
	"time"

	"risk-analytics/internal/analytics/coverage"
	"risk-analytics/internal/analytics/extraction"
	"risk-analytics/internal/analytics/portfolio"
	"risk-analytics/internal/models"
)

// Request is the normalized form of both the GET query and the POST body.
type Request struct {
	Filters                  models.PortfolioFilters `json:"filters"`
	Sort                     models.SortOptions      `json:"sort"`
	Pagination               models.Pagination       `json:"pagination"`
	IncludeValidation        bool                    `json:"include_validation"`
	IncludeParameterAnalysis bool                    `json:"include_parameter_analysis"`
	IncludeCoverageTrends    bool                    `json:"include_coverage_trends"`
	CalculateDrift           bool                    `json:"calculate_drift"`
	BenchmarkComparison      bool                    `json:"benchmark_comparison"`
	BenchmarkMetric          string                  `json:"benchmark_metric,omitempty"`
}

type PortfolioSummary struct {
	TotalCompanies   int      `json:"total_companies"`
	TotalCount       int      `json:"total_count"`
	GradedCompanies  int      `json:"graded_companies"`
	AverageRiskScore *float64 `json:"average_risk_score"`
	AverageCoverage  float64  `json:"average_coverage"`
}

type ModelPerformance struct {
	AverageCoverage float64                  `json:"average_coverage"`
	ModelTypes      []coverage.ModelTypeStat `json:"model_types"`
}

type ParameterAnalysis struct {
	Performance coverage.ParameterPerformanceReport `json:"performance"`
	Influence   []coverage.InfluenceStat            `json:"influence"`
}

type ValidationAnalysis struct {
	CrossValidation coverage.FoldReport     `json:"cross_validation"`
	Holdout         coverage.SplitReport    `json:"holdout"`
	Temporal        coverage.TemporalReport `json:"temporal"`
}

// PortfolioAnalytics is the data section of the analytics envelope. The
// pointer and slice sections are only filled when requested.
type PortfolioAnalytics struct {
	Summary              PortfolioSummary               `json:"portfolio_summary"`
	RiskDistribution     portfolio.RiskDistribution     `json:"risk_distribution"`
	RiskScoreStatistics  portfolio.RiskScoreStatistics  `json:"risk_score_statistics"`
	IndustryBreakdown    []portfolio.IndustryStat       `json:"industry_breakdown"`
	RegionalDistribution portfolio.RegionalDistribution `json:"regional_distribution"`
	ComplianceMetrics    portfolio.ComplianceMetrics    `json:"compliance_metrics"`
	EligibilityAnalysis  portfolio.EligibilityAnalysis  `json:"eligibility_analysis"`
	ConcentrationRisk    portfolio.ConcentrationRisk    `json:"concentration_risk"`
	ModelPerformance     ModelPerformance               `json:"model_performance"`
	ParameterAnalysis    *ParameterAnalysis             `json:"parameter_analysis,omitempty"`
	Validation           *ValidationAnalysis            `json:"validation,omitempty"`
	CoverageTrends       []coverage.TrendPoint          `json:"coverage_trends,omitempty"`
	CoverageDrift        *coverage.DriftReport          `json:"coverage_drift,omitempty"`
	Benchmarks           []portfolio.PeerComparison     `json:"benchmarks,omitempty"`
}

type Metadata struct {
	RequestID        string    `json:"request_id"`
	GeneratedAt      time.Time `json:"generated_at"`
	Page             int       `json:"page"`
	Limit            int       `json:"limit"`
	TotalCount       int       `json:"total_count"`
	ReturnedCount    int       `json:"returned_count"`
	Cached           bool      `json:"cached"`
	ExtractionIssues int       `json:"extraction_issues"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	PeerSource       string    `json:"peer_source,omitempty"`
	DriftAlertID     string    `json:"drift_alert_id,omitempty"`
}

type Response struct {
	Data     PortfolioAnalytics `json:"data"`
	Metadata Metadata           `json:"metadata"`
}

// CompanyRiskMetrics is the per-company drill-down.
type CompanyRiskMetrics struct {
	CompanyID   string                      `json:"company_id"`
	RequestID   string                      `json:"request_id"`
	CompanyName string                      `json:"company_name"`
	Industry    string                      `json:"industry"`
	ModelType   string                      `json:"model_type"`
	RiskScore   *float64                    `json:"risk_score"`
	RiskGrade   string                      `json:"risk_grade"`
	Coverage    float64                     `json:"coverage"`
	Region      models.NormalizedRegion     `json:"region"`
	Financials  models.FinancialMetrics     `json:"financial_metrics"`
	Health      models.FinancialHealthScore `json:"financial_health"`
	Compliance  models.ComplianceReport     `json:"compliance"`
	Exposure    float64                     `json:"exposure"`
	Issues      []extraction.Issue          `json:"issues"`
	CompletedAt *time.Time                  `json:"completed_at"`
}
