// internal/models/compliance.go
package models

// ComplianceStatus covers both the GST/EPFO ladder and audit opinions.
type ComplianceStatus string

const (
	StatusCompliant    ComplianceStatus = "compliant"
	StatusPartial      ComplianceStatus = "partial"
	StatusNonCompliant ComplianceStatus = "non-compliant"
	StatusUnknown      ComplianceStatus = "unknown"

	AuditQualified   ComplianceStatus = "qualified"
	AuditUnqualified ComplianceStatus = "unqualified"
	AuditAdverse     ComplianceStatus = "adverse"
	AuditDisclaimer  ComplianceStatus = "disclaimer"
)

// ComplianceRecord is the classification of one compliance dimension.
// Percentage is set for GST/EPFO, Qualification for audit.
type ComplianceRecord struct {
	Status        ComplianceStatus       `json:"status"`
	Percentage    *float64               `json:"percentage,omitempty"`
	Qualification string                 `json:"qualification,omitempty"`
	Confidence    Confidence             `json:"confidence"`
	Parameter     string                 `json:"parameter,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// Known reports whether the status carries information.
func (r ComplianceRecord) Known() bool {
	return r.Status != "" && r.Status != StatusUnknown
}

type ComplianceSummary struct {
	OverallStatus ComplianceStatus `json:"overallStatus"`
	KnownCount    int              `json:"knownCount"`
	Confidence    Confidence       `json:"confidence"`
}

type ComplianceReport struct {
	GST     ComplianceRecord  `json:"gst"`
	EPFO    ComplianceRecord  `json:"epfo"`
	Audit   ComplianceRecord  `json:"audit"`
	Summary ComplianceSummary `json:"summary"`
}
