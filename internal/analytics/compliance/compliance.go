// Package compliance classifies GST, EPFO and audit parameters into
// categorical statuses with a confidence tier.
package compliance

import (
	"math"
	"strings"

	"risk-analytics/internal/analytics/extraction"
	"risk-analytics/internal/models"
	"risk-analytics/pkg/registry"
)

// ladder thresholds are percentages. They are business constants awaiting
// confirmation from the credit policy owners.
type ladder struct {
	compliant, partial, nonCompliant, floor float64
}

var (
	gstLadder  = ladder{compliant: 95, partial: 80, nonCompliant: 60, floor: 40}
	epfoLadder = ladder{compliant: 95, partial: 85, nonCompliant: 70, floor: 40}
)

func (l ladder) classify(pct float64) (models.ComplianceStatus, models.Confidence) {
	if math.IsNaN(pct) || pct < 0 || pct > 100 {
		return models.StatusUnknown, models.ConfidenceLow
	}
	switch {
	case pct >= l.compliant:
		return models.StatusCompliant, models.ConfidenceHigh
	case pct >= l.partial:
		return models.StatusPartial, models.ConfidenceMedium
	case pct >= l.nonCompliant:
		return models.StatusNonCompliant, models.ConfidenceMedium
	case pct >= l.floor:
		return models.StatusNonCompliant, models.ConfidenceMedium
	default:
		return models.StatusNonCompliant, models.ConfidenceHigh
	}
}

// MapGSTScoreToStatus maps a GST filing compliance percentage.
func MapGSTScoreToStatus(pct float64) (models.ComplianceStatus, models.Confidence) {
	return gstLadder.classify(pct)
}

// MapEPFOScoreToStatus maps an EPFO remittance compliance percentage.
func MapEPFOScoreToStatus(pct float64) (models.ComplianceStatus, models.Confidence) {
	return epfoLadder.classify(pct)
}

var rateKeys = []string{"compliance_rate", "complianceRate", "compliance_percentage", "filing_compliance"}

// percentage prefers an explicit rate inside details over score/maxScore.
func percentage(p *models.ParameterScore) (float64, string, bool) {
	if d := p.DetailsMap(); d != nil {
		for _, k := range rateKeys {
			if v, ok := extraction.ToFloat(d[k]); ok {
				return v, "details." + k, true
			}
		}
	}
	if ratio, ok := p.Ratio(); ok {
		return ratio * 100, "score", true
	}
	return 0, "", false
}

func unknown(reason string) models.ComplianceRecord {
	return models.ComplianceRecord{
		Status:     models.StatusUnknown,
		Confidence: models.ConfidenceLow,
		Details:    map[string]interface{}{"reason": reason},
	}
}

func classifyLadder(reg *registry.Registry, allScores []models.ParameterScore, id registry.ParameterID, l ladder) models.ComplianceRecord {
	p := extraction.Lookup(reg, allScores, id)
	if p == nil {
		return unknown("parameter not found")
	}
	pct, source, ok := percentage(p)
	if !ok {
		rec := unknown("no compliance percentage")
		rec.Parameter = p.Parameter
		return rec
	}
	status, conf := l.classify(pct)
	rec := models.ComplianceRecord{
		Status:     status,
		Confidence: conf,
		Parameter:  p.Parameter,
		Details:    map[string]interface{}{"source": source},
	}
	if status != models.StatusUnknown {
		rec.Percentage = &pct
	} else {
		rec.Details["rejected"] = pct
	}
	return rec
}

// ClassifyGST locates the canonical GST compliance parameter.
func ClassifyGST(reg *registry.Registry, allScores []models.ParameterScore) models.ComplianceRecord {
	return classifyLadder(reg, allScores, registry.GSTCompliance, gstLadder)
}

// ClassifyEPFO locates the canonical EPFO parameter (epfo, pf, provident fund).
func ClassifyEPFO(reg *registry.Registry, allScores []models.ParameterScore) models.ComplianceRecord {
	return classifyLadder(reg, allScores, registry.EPFOCompliance, epfoLadder)
}

type auditRule struct {
	status    models.ComplianceStatus
	primary   string
	secondary []string
}

// checked in order; "unqualified" must precede "qualified"
var auditRules = []auditRule{
	{models.AuditUnqualified, "unqualified", []string{"clean", "standard", "regular"}},
	{models.AuditQualified, "qualified", []string{"except for", "subject to"}},
	{models.AuditAdverse, "adverse", []string{"negative"}},
	{models.AuditDisclaimer, "disclaimer", []string{"unable to express", "scope limitation"}},
}

// ClassifyAuditText classifies an auditor's opinion text by keyword. The
// primary keyword yields high confidence, a secondary one medium.
func ClassifyAuditText(text string) (models.ComplianceStatus, models.Confidence) {
	t := strings.ToLower(text)
	if strings.TrimSpace(t) == "" {
		return models.StatusUnknown, models.ConfidenceLow
	}
	for _, r := range auditRules {
		if strings.Contains(t, r.primary) {
			return r.status, models.ConfidenceHigh
		}
		for _, kw := range r.secondary {
			if strings.Contains(t, kw) {
				return r.status, models.ConfidenceMedium
			}
		}
	}
	return models.StatusUnknown, models.ConfidenceLow
}

var auditTextKeys = []string{"opinion", "qualification", "audit_opinion", "remarks"}

// ClassifyAudit locates the canonical audit parameter and classifies its
// value, falling back to opinion text inside details.
func ClassifyAudit(reg *registry.Registry, allScores []models.ParameterScore) models.ComplianceRecord {
	p := extraction.Lookup(reg, allScores, registry.AuditQualification)
	if p == nil {
		return unknown("parameter not found")
	}
	text := p.Value
	if text == "" {
		if d := p.DetailsMap(); d != nil {
			for _, k := range auditTextKeys {
				if text = extraction.ToText(d[k]); text != "" {
					break
				}
			}
		}
	}
	status, conf := ClassifyAuditText(text)
	rec := models.ComplianceRecord{
		Status:        status,
		Qualification: text,
		Confidence:    conf,
		Parameter:     p.Parameter,
	}
	if status == models.StatusUnknown {
		rec.Details = map[string]interface{}{"reason": "unrecognised opinion"}
	}
	return rec
}

// Summarize folds the three records into one overall status. Unknown
// records are ignored; the confidence is the weakest among known records.
func Summarize(gst, epfo, audit models.ComplianceRecord) models.ComplianceSummary {
	var known []models.ComplianceRecord
	for _, r := range []models.ComplianceRecord{gst, epfo, audit} {
		if r.Known() {
			known = append(known, r)
		}
	}
	if len(known) == 0 {
		return models.ComplianceSummary{OverallStatus: models.StatusUnknown, Confidence: models.ConfidenceLow}
	}

	tiers := make([]models.Confidence, 0, len(known))
	negative, partial := false, false
	for _, r := range known {
		tiers = append(tiers, r.Confidence)
		switch r.Status {
		case models.StatusNonCompliant, models.AuditQualified, models.AuditAdverse, models.AuditDisclaimer:
			negative = true
		case models.StatusPartial:
			partial = true
		}
	}

	overall := models.StatusCompliant
	switch {
	case negative:
		overall = models.StatusNonCompliant
	case partial:
		overall = models.StatusPartial
	}
	return models.ComplianceSummary{
		OverallStatus: overall,
		KnownCount:    len(known),
		Confidence:    models.MinConfidence(tiers...),
	}
}

// Classify runs all three classifiers over a record. A nil record yields an
// all-unknown report.
func Classify(reg *registry.Registry, record *models.RawRiskRecord) models.ComplianceReport {
	var scores []models.ParameterScore
	if record != nil {
		scores = record.AllScores
	}
	r := models.ComplianceReport{
		GST:   ClassifyGST(reg, scores),
		EPFO:  ClassifyEPFO(reg, scores),
		Audit: ClassifyAudit(reg, scores),
	}
	r.Summary = Summarize(r.GST, r.EPFO, r.Audit)
	return r
}
