// internal/workers/analytics/extract-risk-metrics/models.go
package extractriskmetrics

import (
	"encoding/json"
	"time"

	"risk-analytics/internal/services/analytics"
)

// Input carries either the risk analysis document itself or the request ID
// to load it by. Loading by request ID requires the owning UserID. UserID,
// when set, also clears that user's cached analytics.
type Input struct {
	CompanyID    string          `json:"companyId"`
	RequestID    string          `json:"requestId"`
	UserID       string          `json:"userId,omitempty"`
	RiskAnalysis json.RawMessage `json:"riskAnalysis,omitempty"`
}

type Output struct {
	RiskMetrics *analytics.CompanyRiskMetrics `json:"riskMetrics"`
	HealthScore int                           `json:"healthScore"`
	IssueCount  int                           `json:"issueCount"`
	ExtractedAt time.Time                     `json:"extractedAt"`

	CacheEntriesCleared int `json:"cacheEntriesCleared,omitempty"`
}
