// internal/models/portfolio.go
package models

import "time"

// Region is the location stored alongside a portfolio record.
type Region struct {
	State string `json:"state,omitempty"`
	City  string `json:"city,omitempty"`
}

// PortfolioRecord is one company in a portfolio page. A nil RiskAnalysis
// marks the company as ungraded.
type PortfolioRecord struct {
	ID                  string         `json:"id"`
	RequestID           string         `json:"request_id"`
	CompanyName         string         `json:"company_name"`
	RiskScore           *float64       `json:"risk_score"`
	RiskGrade           string         `json:"risk_grade"`
	Industry            string         `json:"industry"`
	Region              Region         `json:"region"`
	ModelType           string         `json:"model_type"`
	TotalParameters     int            `json:"total_parameters"`
	AvailableParameters int            `json:"available_parameters"`
	RiskAnalysis        *RawRiskRecord `json:"risk_analysis"`
	CompletedAt         *time.Time     `json:"completed_at"`
}

// PortfolioFilters narrows a portfolio overview query.
type PortfolioFilters struct {
	ModelTypes []string   `json:"model_types,omitempty"`
	Industries []string   `json:"industries,omitempty"`
	RiskGrades []string   `json:"risk_grades,omitempty"`
	CompanyIDs []string   `json:"company_ids,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
	// DateBefore is an exclusive upper bound. A date-only date_to becomes the
	// following midnight so the whole day is included.
	DateBefore *time.Time `json:"date_before,omitempty"`
}

type SortField string

const (
	SortByCompletedAt SortField = "completed_at"
	SortByRiskScore   SortField = "risk_score"
	SortByCompanyName SortField = "company_name"
)

type SortOptions struct {
	Field      SortField `json:"field"`
	Descending bool      `json:"descending"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Offset is the zero-based row offset for Page (1-based).
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// PortfolioOverview is one page of companies plus the unpaged total.
type PortfolioOverview struct {
	Companies  []PortfolioRecord `json:"companies"`
	TotalCount int               `json:"total_count"`
}
