// internal/services/analytics/compute.go
package analytics

import (
	"risk-analytics/internal/analytics/coverage"
	"risk-analytics/internal/analytics/portfolio"
	"risk-analytics/internal/models"
	"risk-analytics/pkg/registry"
)

// ComputeOptions tunes the optional sections of Compute.
type ComputeOptions struct {
	IncludeValidation        bool
	IncludeParameterAnalysis bool
	IncludeCoverageTrends    bool
	CalculateDrift           bool
	Folds                    int
	HoldoutRatio             float64
	HoldoutSeed              int64
}

// Compute aggregates one page of records. totalCount is the unpaged count
// reported by the repository. Benchmarks are left to the caller because they
// may need peers from outside the page.
func Compute(reg *registry.Registry, records []models.PortfolioRecord, totalCount int, opts ComputeOptions) PortfolioAnalytics {
	stats := portfolio.CalculateRiskScoreStatistics(records)
	avgCoverage := coverage.Coverage(records)

	graded := 0
	for _, r := range records {
		if r.RiskAnalysis != nil {
			graded++
		}
	}

	summary := PortfolioSummary{
		TotalCompanies:  len(records),
		TotalCount:      totalCount,
		GradedCompanies: graded,
		AverageCoverage: avgCoverage,
	}
	if stats.Count > 0 {
		mean := stats.Mean
		summary.AverageRiskScore = &mean
	}

	out := PortfolioAnalytics{
		Summary:              summary,
		RiskDistribution:     portfolio.CalculateRiskDistribution(records),
		RiskScoreStatistics:  stats,
		IndustryBreakdown:    portfolio.CalculateIndustryBreakdown(records),
		RegionalDistribution: portfolio.CalculateRegionalDistribution(records),
		ComplianceMetrics:    portfolio.CalculateComplianceMetrics(reg, records),
		EligibilityAnalysis:  portfolio.CalculateEligibilityAnalysis(records),
		ConcentrationRisk:    portfolio.CalculatePortfolioExposure(records),
		ModelPerformance: ModelPerformance{
			AverageCoverage: avgCoverage,
			ModelTypes:      coverage.ModelTypeBreakdown(records),
		},
	}

	if opts.IncludeParameterAnalysis {
		out.ParameterAnalysis = &ParameterAnalysis{
			Performance: coverage.ParameterPerformance(reg, records),
			Influence:   coverage.ParameterInfluence(records),
		}
	}
	if opts.IncludeValidation {
		out.Validation = &ValidationAnalysis{
			CrossValidation: coverage.FoldCoverage(records, opts.Folds),
			Holdout:         coverage.HoldoutCoverage(records, opts.HoldoutRatio, opts.HoldoutSeed),
			Temporal:        coverage.TemporalCoverage(records),
		}
	}
	if opts.IncludeCoverageTrends {
		out.CoverageTrends = coverage.CoverageTrend(records)
	}
	if opts.CalculateDrift {
		drift := coverage.CoverageDrift(records)
		out.CoverageDrift = &drift
	}
	return out
}
