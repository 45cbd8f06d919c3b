// internal/models/alert.go
package models

import "time"

// DriftAlert is published when coverage drift between the earlier and the
// later half of a portfolio reaches the configured severity.
type DriftAlert struct {
	AlertID          string    `json:"alert_id"`
	UserID           string    `json:"user_id"`
	ModelType        string    `json:"model_type,omitempty"`
	Severity         string    `json:"severity"`
	BaselineCoverage float64   `json:"baseline_coverage"`
	CurrentCoverage  float64   `json:"current_coverage"`
	CoverageDelta    float64   `json:"coverage_delta"`
	RiskScoreDelta   *float64  `json:"risk_score_delta,omitempty"`
	CompanyCount     int       `json:"company_count"`
	DetectedAt       time.Time `json:"detected_at"`
}
