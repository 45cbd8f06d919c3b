package extraction

import (
	"risk-analytics/internal/common/logger"
	"risk-analytics/internal/models"
	"risk-analytics/pkg/registry"
)

// Extraction bundles everything read from one risk analysis document.
type Extraction struct {
	Record     *models.RawRiskRecord   `json:"-"`
	Region     models.NormalizedRegion `json:"region"`
	Financials models.FinancialMetrics `json:"financials"`
	Issues     []Issue                 `json:"issues,omitempty"`
}

// Extractor runs the extraction functions and logs every issue as a warning.
type Extractor struct {
	registry *registry.Registry
	logger   logger.Logger
}

func NewExtractor(reg *registry.Registry, log logger.Logger) *Extractor {
	if reg == nil {
		reg = registry.Default()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Extractor{registry: reg, logger: log}
}

// Registry returns the catalog used for canonical lookups.
func (e *Extractor) Registry() *registry.Registry {
	return e.registry
}

// Extract parses raw and extracts region and financial metrics. companyID is
// only used to tag log lines.
func (e *Extractor) Extract(companyID string, raw interface{}) Extraction {
	parsed := ParseRiskRecord(raw)
	out := Extraction{Record: parsed.Value, Issues: parsed.Issues}

	region := ExtractRegion(parsed.Value)
	out.Region = region.Value
	out.Issues = append(out.Issues, region.Issues...)

	fin := ExtractFinancialMetrics(parsed.Value)
	out.Financials = fin.Value
	out.Issues = append(out.Issues, fin.Issues...)

	e.LogIssues(companyID, out.Issues)
	return out
}

// Lookup finds the score for a canonical parameter in record.
func (e *Extractor) Lookup(record *models.RawRiskRecord, id registry.ParameterID) *models.ParameterScore {
	if record == nil {
		return nil
	}
	return Lookup(e.registry, record.AllScores, id)
}

// LogIssues writes one warning per issue.
func (e *Extractor) LogIssues(companyID string, issues []Issue) {
	for _, is := range issues {
		e.logger.Warn("extraction issue", map[string]interface{}{
			"companyId": companyID,
			"field":     is.Field,
			"code":      string(is.Code),
			"message":   is.Message,
		})
	}
}
