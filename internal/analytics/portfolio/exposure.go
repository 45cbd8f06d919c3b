package portfolio

import (
	"sort"

	"risk-analytics/internal/models"
)

// HHI bands on the 0-10,000 scale.
const (
	hhiModerate      = 1500
	hhiHigh          = 2500
	topExposureCount = 5
)

type ConcentrationLevel string

const (
	ConcentrationLow      ConcentrationLevel = "low"
	ConcentrationModerate ConcentrationLevel = "moderate"
	ConcentrationHigh     ConcentrationLevel = "high"
)

type Exposure struct {
	CompanyID  string  `json:"company_id"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// ConcentrationRisk summarises how exposure is spread across companies.
type ConcentrationRisk struct {
	TotalExposure               float64            `json:"total_exposure"`
	MaxSingleExposure           float64            `json:"max_single_exposure"`
	MaxSingleExposurePercentage float64            `json:"max_single_exposure_percentage"`
	HerfindahlIndex             float64            `json:"herfindahl_index"`
	ConcentrationLevel          ConcentrationLevel `json:"concentration_level"`
	CompaniesWithExposure       int                `json:"companies_with_exposure"`
	TopExposures                []Exposure         `json:"top_exposures"`
}

// ExposureOf is the recommended credit limit when positive, else the final
// eligibility.
func ExposureOf(r models.PortfolioRecord) float64 {
	if r.RiskAnalysis == nil || r.RiskAnalysis.Eligibility == nil {
		return 0
	}
	e := r.RiskAnalysis.Eligibility
	if e.RecommendedCreditLimit != nil && *e.RecommendedCreditLimit > 0 {
		return *e.RecommendedCreditLimit
	}
	if e.FinalEligibility != nil && *e.FinalEligibility > 0 {
		return *e.FinalEligibility
	}
	return 0
}

func levelFor(hhi float64) ConcentrationLevel {
	switch {
	case hhi < hhiModerate:
		return ConcentrationLow
	case hhi < hhiHigh:
		return ConcentrationModerate
	default:
		return ConcentrationHigh
	}
}

// CalculatePortfolioExposure computes the largest single share and the
// Herfindahl-Hirschman index over positive exposures.
func CalculatePortfolioExposure(records []models.PortfolioRecord) ConcentrationRisk {
	var exposures []Exposure
	out := ConcentrationRisk{ConcentrationLevel: ConcentrationLow, TopExposures: []Exposure{}}
	for _, r := range records {
		amount := ExposureOf(r)
		if amount <= 0 {
			continue
		}
		exposures = append(exposures, Exposure{CompanyID: r.ID, Amount: amount})
		out.TotalExposure += amount
	}
	if out.TotalExposure == 0 {
		return out
	}

	out.CompaniesWithExposure = len(exposures)
	for i := range exposures {
		pct := exposures[i].Amount / out.TotalExposure * 100
		exposures[i].Percentage = pct
		out.HerfindahlIndex += pct * pct
		if exposures[i].Amount > out.MaxSingleExposure {
			out.MaxSingleExposure = exposures[i].Amount
		}
	}
	out.MaxSingleExposurePercentage = out.MaxSingleExposure / out.TotalExposure * 100
	out.ConcentrationLevel = levelFor(out.HerfindahlIndex)

	sort.SliceStable(exposures, func(i, j int) bool { return exposures[i].Amount > exposures[j].Amount })
	if len(exposures) > topExposureCount {
		exposures = exposures[:topExposureCount]
	}
	out.TopExposures = exposures
	return out
}
