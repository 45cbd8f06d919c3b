// internal/workers/analytics/detect-coverage-drift/models.go
package detectcoveragedrift

import "risk-analytics/internal/analytics/coverage"

type Input struct {
	UserID     string   `json:"userId"`
	ModelType  string   `json:"modelType,omitempty"`
	Industries []string `json:"industries,omitempty"`
	// Threshold overrides the configured alert severity for this job.
	Threshold string `json:"threshold,omitempty"`
}

type Output struct {
	Drift            coverage.DriftReport `json:"drift"`
	Severity         string               `json:"severity"`
	InsufficientData bool                 `json:"insufficientData"`
	AlertRaised      bool                 `json:"alertRaised"`
	AlertID          string               `json:"alertId,omitempty"`
	CompanyCount     int                  `json:"companyCount"`
}
