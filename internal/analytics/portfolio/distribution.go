// Package portfolio aggregates per-company records into distributions,
// concentration measures and peer benchmarks.
//
// Every share is computed over the full input length, so ungraded companies
// and companies without risk analysis count in every denominator.
package portfolio

import (
	"sort"
	"strings"

	"risk-analytics/internal/analytics/compliance"
	"risk-analytics/internal/analytics/extraction"
	"risk-analytics/internal/models"
	"risk-analytics/pkg/registry"
)

const unknownLabel = "Unknown"

func share(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

func gradeOf(r models.PortfolioRecord) string {
	g := strings.ToUpper(strings.TrimSpace(r.RiskGrade))
	if g == "" {
		return unknownLabel
	}
	return g
}

// RiskDistribution counts graded companies per risk grade.
type RiskDistribution struct {
	TotalCount              int                `json:"total_count"`
	UngradedCount           int                `json:"ungraded_count"`
	CM1Count                int                `json:"cm1_count"`
	CM2Count                int                `json:"cm2_count"`
	CM3Count                int                `json:"cm3_count"`
	CM4Count                int                `json:"cm4_count"`
	CM5Count                int                `json:"cm5_count"`
	GradeCounts             map[string]int     `json:"grade_counts"`
	DistributionPercentages map[string]float64 `json:"distribution_percentages"`
	UngradedPercentage      float64            `json:"ungraded_percentage"`
}

// CalculateRiskDistribution partitions companies by grade. A company with no
// risk analysis is ungraded whatever its grade column says.
func CalculateRiskDistribution(records []models.PortfolioRecord) RiskDistribution {
	d := RiskDistribution{
		TotalCount:              len(records),
		GradeCounts:             map[string]int{},
		DistributionPercentages: map[string]float64{},
	}
	for _, r := range records {
		if r.RiskAnalysis == nil {
			d.UngradedCount++
			continue
		}
		grade := gradeOf(r)
		d.GradeCounts[grade]++
		switch grade {
		case "CM1":
			d.CM1Count++
		case "CM2":
			d.CM2Count++
		case "CM3":
			d.CM3Count++
		case "CM4":
			d.CM4Count++
		case "CM5":
			d.CM5Count++
		}
	}
	for grade, n := range d.GradeCounts {
		d.DistributionPercentages[grade] = share(n, d.TotalCount)
	}
	d.UngradedPercentage = share(d.UngradedCount, d.TotalCount)
	return d
}

// IndustryStat is one industry group. AverageRiskScore is nil when no
// company in the group has a score.
type IndustryStat struct {
	Industry         string   `json:"industry"`
	Count            int      `json:"count"`
	Percentage       float64  `json:"percentage"`
	AverageRiskScore *float64 `json:"average_risk_score"`
}

// CalculateIndustryBreakdown groups by industry, largest group first.
func CalculateIndustryBreakdown(records []models.PortfolioRecord) []IndustryStat {
	type acc struct {
		count, scored int
		sum           float64
	}
	groups := map[string]*acc{}
	for _, r := range records {
		name := strings.TrimSpace(r.Industry)
		if name == "" {
			name = unknownLabel
		}
		a, ok := groups[name]
		if !ok {
			a = &acc{}
			groups[name] = a
		}
		a.count++
		if r.RiskScore != nil {
			a.scored++
			a.sum += *r.RiskScore
		}
	}

	out := make([]IndustryStat, 0, len(groups))
	for name, a := range groups {
		s := IndustryStat{Industry: name, Count: a.count, Percentage: share(a.count, len(records))}
		if a.scored > 0 {
			mean := a.sum / float64(a.scored)
			s.AverageRiskScore = &mean
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Industry < out[j].Industry
	})
	return out
}

type CityStat struct {
	City       string  `json:"city"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type StateStat struct {
	State      string     `json:"state"`
	Count      int        `json:"count"`
	Percentage float64    `json:"percentage"`
	Cities     []CityStat `json:"cities"`
}

type RegionalDistribution struct {
	TotalCount int         `json:"total_count"`
	States     []StateStat `json:"states"`
}

// regionOf prefers the stored region column and falls back to extracting it
// from the risk analysis document.
func regionOf(r models.PortfolioRecord) (state, city string) {
	state, city = r.Region.State, r.Region.City
	if state == "" && r.RiskAnalysis != nil {
		reg := extraction.ExtractRegion(r.RiskAnalysis).Value
		if reg.State != nil {
			state = *reg.State
		}
		if city == "" && reg.City != nil {
			city = *reg.City
		}
	}
	if state = extraction.NormalizeStateName(state); state == "" {
		state = unknownLabel
	}
	if city = extraction.NormalizeCity(city); city == "" {
		city = unknownLabel
	}
	return state, city
}

// CalculateRegionalDistribution groups by normalized state, nested by city.
func CalculateRegionalDistribution(records []models.PortfolioRecord) RegionalDistribution {
	counts := map[string]map[string]int{}
	for _, r := range records {
		state, city := regionOf(r)
		if counts[state] == nil {
			counts[state] = map[string]int{}
		}
		counts[state][city]++
	}

	total := len(records)
	out := RegionalDistribution{TotalCount: total, States: make([]StateStat, 0, len(counts))}
	for state, cities := range counts {
		s := StateStat{State: state}
		for city, n := range cities {
			s.Count += n
			s.Cities = append(s.Cities, CityStat{City: city, Count: n, Percentage: share(n, total)})
		}
		sort.Slice(s.Cities, func(i, j int) bool {
			if s.Cities[i].Count != s.Cities[j].Count {
				return s.Cities[i].Count > s.Cities[j].Count
			}
			return s.Cities[i].City < s.Cities[j].City
		})
		s.Percentage = share(s.Count, total)
		out.States = append(out.States, s)
	}
	sort.Slice(out.States, func(i, j int) bool {
		if out.States[i].Count != out.States[j].Count {
			return out.States[i].Count > out.States[j].Count
		}
		return out.States[i].State < out.States[j].State
	})
	return out
}

// ComplianceCount is the two-state collapse of one compliance dimension.
type ComplianceCount struct {
	Compliant    int     `json:"compliant"`
	NonCompliant int     `json:"non_compliant"`
	Unknown      int     `json:"unknown"`
	Rate         float64 `json:"compliance_rate"`
}

type AuditCount struct {
	Qualified   int `json:"qualified"`
	Unqualified int `json:"unqualified"`
}

type ComplianceMetrics struct {
	TotalCount int             `json:"total_count"`
	GST        ComplianceCount `json:"gst"`
	EPFO       ComplianceCount `json:"epfo"`
	Audit      AuditCount      `json:"audit"`
}

func (c *ComplianceCount) add(status models.ComplianceStatus) {
	switch status {
	case models.StatusCompliant:
		c.Compliant++
	case models.StatusPartial, models.StatusNonCompliant:
		c.NonCompliant++
	default:
		c.Unknown++
	}
}

// CalculateComplianceMetrics classifies every company. Partial counts as
// non-compliant; an audit is qualified only for a qualified opinion.
func CalculateComplianceMetrics(reg *registry.Registry, records []models.PortfolioRecord) ComplianceMetrics {
	m := ComplianceMetrics{TotalCount: len(records)}
	for _, r := range records {
		report := compliance.Classify(reg, r.RiskAnalysis)
		m.GST.add(report.GST.Status)
		m.EPFO.add(report.EPFO.Status)
		if report.Audit.Status == models.AuditQualified {
			m.Audit.Qualified++
		} else {
			m.Audit.Unqualified++
		}
	}
	m.GST.Rate = share(m.GST.Compliant, m.TotalCount)
	m.EPFO.Rate = share(m.EPFO.Compliant, m.TotalCount)
	return m
}

type EligibilityAnalysis struct {
	TotalEligibleAmount      float64            `json:"total_eligible_amount"`
	AverageEligibility       float64            `json:"average_eligibility"`
	CompaniesWithEligibility int                `json:"companies_with_eligibility"`
	EligibilityDistribution  map[string]float64 `json:"eligibility_distribution"`
}

func finalEligibility(r models.PortfolioRecord) (float64, bool) {
	if r.RiskAnalysis == nil || r.RiskAnalysis.Eligibility == nil || r.RiskAnalysis.Eligibility.FinalEligibility == nil {
		return 0, false
	}
	return *r.RiskAnalysis.Eligibility.FinalEligibility, true
}

// CalculateEligibilityAnalysis sums final eligibility overall and per grade.
// The average divides by the full input length.
func CalculateEligibilityAnalysis(records []models.PortfolioRecord) EligibilityAnalysis {
	a := EligibilityAnalysis{EligibilityDistribution: map[string]float64{}}
	for _, r := range records {
		amount, ok := finalEligibility(r)
		if !ok {
			continue
		}
		a.CompaniesWithEligibility++
		a.TotalEligibleAmount += amount
		a.EligibilityDistribution[gradeOf(r)] += amount
	}
	if len(records) > 0 {
		a.AverageEligibility = a.TotalEligibleAmount / float64(len(records))
	}
	return a
}
