// Package coverage computes parameter-availability diagnostics over a
// portfolio. Every "coverage" figure is the proxy
//
//	Σ available_parameters / Σ total_parameters × 100
//
// over a subset of companies. Nothing here is a trained-model metric; the
// fold, holdout and drift reports only describe how data availability moves
// between subsets.
package coverage

import (
	"math"
	"sort"
	"strings"
	"time"

	"risk-analytics/internal/analytics/portfolio"
	"risk-analytics/internal/models"
	"risk-analytics/pkg/registry"
)

// Coverage is the availability proxy over records, 0 for an empty subset.
func Coverage(records []models.PortfolioRecord) float64 {
	var avail, total int
	for _, r := range records {
		avail += r.AvailableParameters
		total += r.TotalParameters
	}
	if total == 0 {
		return 0
	}
	return float64(avail) / float64(total) * 100
}

func meanRiskScore(records []models.PortfolioRecord) *float64 {
	var sum float64
	n := 0
	for _, r := range records {
		if r.RiskScore != nil {
			sum += *r.RiskScore
			n++
		}
	}
	if n == 0 {
		return nil
	}
	m := sum / float64(n)
	return &m
}

// ParameterStat aggregates one parameter name across the portfolio.
type ParameterStat struct {
	Parameter        string               `json:"parameter"`
	CanonicalID      registry.ParameterID `json:"canonical_id,omitempty"`
	TimesSeen        int                  `json:"times_seen"`
	TimesAvailable   int                  `json:"times_available"`
	AvailabilityRate float64              `json:"availability_rate"`
	PerformanceRate  float64              `json:"performance_rate"`
	ImpactScore      float64              `json:"impact_score"`
	Rank             int                  `json:"rank"`
	Underperforming  bool                 `json:"underperforming"`
}

type ParameterPerformanceReport struct {
	Parameters           []ParameterStat `json:"parameters"`
	TotalParameters      int             `json:"total_parameters"`
	UnderperformingCount int             `json:"underperforming_count"`
}

// Underperformance thresholds, percentages.
const (
	minAvailabilityRate = 50
	minPerformanceRate  = 60
)

func scores(r models.PortfolioRecord) []models.ParameterScore {
	if r.RiskAnalysis == nil {
		return nil
	}
	return r.RiskAnalysis.AllScores
}

func paramName(p models.ParameterScore) string {
	return strings.TrimSpace(p.Parameter)
}

// ParameterPerformance ranks parameters by impact score, the product of
// availability and mean score ratio. A nil reg uses the embedded catalog.
func ParameterPerformance(reg *registry.Registry, records []models.PortfolioRecord) ParameterPerformanceReport {
	if reg == nil {
		reg = registry.Default()
	}
	type acc struct {
		seen, available, rated int
		ratioSum               float64
	}
	accs := map[string]*acc{}
	for _, r := range records {
		for _, p := range scores(r) {
			name := paramName(p)
			if name == "" {
				continue
			}
			a, ok := accs[name]
			if !ok {
				a = &acc{}
				accs[name] = a
			}
			a.seen++
			if !p.Available {
				continue
			}
			a.available++
			if ratio, ok := p.Ratio(); ok {
				a.rated++
				a.ratioSum += ratio
			}
		}
	}

	report := ParameterPerformanceReport{Parameters: make([]ParameterStat, 0, len(accs))}
	for name, a := range accs {
		s := ParameterStat{
			Parameter:        name,
			TimesSeen:        a.seen,
			TimesAvailable:   a.available,
			AvailabilityRate: float64(a.available) / float64(a.seen) * 100,
		}
		if id, ok := reg.Resolve(name); ok {
			s.CanonicalID = id
		}
		if a.rated > 0 {
			s.PerformanceRate = a.ratioSum / float64(a.rated) * 100
		}
		s.ImpactScore = s.AvailabilityRate * s.PerformanceRate / 100
		s.Underperforming = s.AvailabilityRate < minAvailabilityRate || s.PerformanceRate < minPerformanceRate
		if s.Underperforming {
			report.UnderperformingCount++
		}
		report.Parameters = append(report.Parameters, s)
	}
	sort.Slice(report.Parameters, func(i, j int) bool {
		pi, pj := report.Parameters[i], report.Parameters[j]
		if pi.ImpactScore != pj.ImpactScore {
			return pi.ImpactScore > pj.ImpactScore
		}
		return pi.Parameter < pj.Parameter
	})
	for i := range report.Parameters {
		report.Parameters[i].Rank = i + 1
	}
	report.TotalParameters = len(report.Parameters)
	return report
}

// InfluenceStat ranks a parameter by the risk scores of companies where it
// was available. It is correlational only.
type InfluenceStat struct {
	Parameter     string  `json:"parameter"`
	SampleSize    int     `json:"sample_size"`
	MeanRiskScore float64 `json:"mean_risk_score"`
	Influence     float64 `json:"influence"`
}

// ParameterInfluence weights each parameter's mean risk score by the square
// root of its sample size.
func ParameterInfluence(records []models.PortfolioRecord) []InfluenceStat {
	type acc struct {
		n   int
		sum float64
	}
	accs := map[string]*acc{}
	for _, r := range records {
		if r.RiskScore == nil {
			continue
		}
		for _, p := range scores(r) {
			name := paramName(p)
			if name == "" || !p.Available {
				continue
			}
			a, ok := accs[name]
			if !ok {
				a = &acc{}
				accs[name] = a
			}
			a.n++
			a.sum += *r.RiskScore
		}
	}

	out := make([]InfluenceStat, 0, len(accs))
	for name, a := range accs {
		mean := a.sum / float64(a.n)
		out = append(out, InfluenceStat{
			Parameter:     name,
			SampleSize:    a.n,
			MeanRiskScore: mean,
			Influence:     mean * math.Sqrt(float64(a.n)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Influence != out[j].Influence {
			return out[i].Influence > out[j].Influence
		}
		return out[i].Parameter < out[j].Parameter
	})
	return out
}

// TrendPoint is the coverage of companies completed in one calendar month.
type TrendPoint struct {
	Period        string   `json:"period"`
	Count         int      `json:"count"`
	Coverage      float64  `json:"coverage"`
	MeanRiskScore *float64 `json:"mean_risk_score"`
}

// CoverageTrend buckets records by completion month (UTC). Records without
// a completion time are skipped.
func CoverageTrend(records []models.PortfolioRecord) []TrendPoint {
	buckets := map[string][]models.PortfolioRecord{}
	for _, r := range records {
		if r.CompletedAt == nil {
			continue
		}
		key := r.CompletedAt.UTC().Format("2006-01")
		buckets[key] = append(buckets[key], r)
	}
	out := make([]TrendPoint, 0, len(buckets))
	for period, rs := range buckets {
		out = append(out, TrendPoint{
			Period:        period,
			Count:         len(rs),
			Coverage:      Coverage(rs),
			MeanRiskScore: meanRiskScore(rs),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

type ModelTypeStat struct {
	ModelType     string   `json:"model_type"`
	Count         int      `json:"count"`
	Coverage      float64  `json:"coverage"`
	MeanRiskScore *float64 `json:"mean_risk_score"`
}

// ModelTypeBreakdown reports coverage per model type.
func ModelTypeBreakdown(records []models.PortfolioRecord) []ModelTypeStat {
	groups := map[string][]models.PortfolioRecord{}
	for _, r := range records {
		mt := strings.TrimSpace(r.ModelType)
		if mt == "" {
			mt = "unknown"
		}
		groups[mt] = append(groups[mt], r)
	}
	out := make([]ModelTypeStat, 0, len(groups))
	for mt, rs := range groups {
		out = append(out, ModelTypeStat{ModelType: mt, Count: len(rs), Coverage: Coverage(rs), MeanRiskScore: meanRiskScore(rs)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelType < out[j].ModelType })
	return out
}

// byCompletion returns records that have a completion time, oldest first.
func byCompletion(records []models.PortfolioRecord) []models.PortfolioRecord {
	out := make([]models.PortfolioRecord, 0, len(records))
	for _, r := range records {
		if r.CompletedAt != nil {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.Before(*out[j].CompletedAt) })
	return out
}

// Period describes one side of a time-ordered split.
type Period struct {
	Start         *time.Time `json:"start"`
	End           *time.Time `json:"end"`
	Size          int        `json:"size"`
	Coverage      float64    `json:"coverage"`
	MeanRiskScore *float64   `json:"mean_risk_score"`
}

func periodOf(records []models.PortfolioRecord) Period {
	p := Period{Size: len(records), Coverage: Coverage(records), MeanRiskScore: meanRiskScore(records)}
	if len(records) > 0 {
		p.Start = records[0].CompletedAt
		p.End = records[len(records)-1].CompletedAt
	}
	return p
}
