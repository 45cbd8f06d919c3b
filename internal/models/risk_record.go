// internal/models/risk_record.go
package models

import "encoding/json"

// Confidence is the trust tier attached to every derived value.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders tiers so the weaker of two can be picked.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	default:
		return 1
	}
}

// MinConfidence returns the weakest tier, or low when none are given.
func MinConfidence(tiers ...Confidence) Confidence {
	if len(tiers) == 0 {
		return ConfidenceLow
	}
	lowest := tiers[0]
	for _, c := range tiers[1:] {
		if c.Rank() < lowest.Rank() {
			lowest = c
		}
	}
	return lowest
}

// RawRiskRecord is the per-company risk analysis document after tolerant
// parsing. Unknown top-level fields are kept verbatim in Extra.
type RawRiskRecord struct {
	AllScores     []ParameterScore           `json:"allScores"`
	CompanyData   CompanyData                `json:"companyData"`
	FinancialData FinancialData              `json:"financialData"`
	Location      map[string]interface{}     `json:"location,omitempty"`
	Eligibility   *Eligibility               `json:"eligibility,omitempty"`
	Extra         map[string]json.RawMessage `json:"-"`
}

// ParameterScore is one entry of allScores.
type ParameterScore struct {
	Parameter string      `json:"parameter"`
	Score     *float64    `json:"score"`
	MaxScore  *float64    `json:"maxScore"`
	Weightage *float64    `json:"weightage,omitempty"`
	Available bool        `json:"available"`
	Benchmark string      `json:"benchmark,omitempty"`
	Value     string      `json:"value,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

// DetailsMap returns Details when it is a JSON object.
func (p ParameterScore) DetailsMap() map[string]interface{} {
	m, _ := p.Details.(map[string]interface{})
	return m
}

// Ratio returns score/maxScore when both are present and maxScore is positive.
func (p ParameterScore) Ratio() (float64, bool) {
	if p.Score == nil || p.MaxScore == nil || *p.MaxScore <= 0 {
		return 0, false
	}
	return *p.Score / *p.MaxScore, true
}

type CompanyData struct {
	Addresses   Addresses              `json:"addresses"`
	CompanyInfo map[string]interface{} `json:"company_info,omitempty"`
}

// Addresses carries the two structured addresses plus the flat state/city
// some producers write directly under companyData.addresses.
type Addresses struct {
	Registered *Address `json:"registered_address,omitempty"`
	Business   *Address `json:"business_address,omitempty"`
	State      string   `json:"state,omitempty"`
	City       string   `json:"city,omitempty"`
}

type Address struct {
	State        string `json:"state,omitempty"`
	City         string `json:"city,omitempty"`
	AddressLine1 string `json:"address_line_1,omitempty"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	PinCode      string `json:"pin_code,omitempty"`
}

// YearTable maps metric key to year label to value.
type YearTable map[string]map[string]float64

type FinancialData struct {
	Years        []string  `json:"years,omitempty"`
	Ratios       YearTable `json:"ratios,omitempty"`
	BalanceSheet YearTable `json:"balance_sheet,omitempty"`
	ProfitLoss   YearTable `json:"profit_loss,omitempty"`
}

type Eligibility struct {
	FinalEligibility       *float64 `json:"finalEligibility,omitempty"`
	RecommendedCreditLimit *float64 `json:"recommendedCreditLimit,omitempty"`
	RiskMultiplier         *float64 `json:"riskMultiplier,omitempty"`
}
