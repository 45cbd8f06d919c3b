package compliance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"risk-analytics/internal/models"
)

func fp(v float64) *float64 { return &v }

func TestMapGSTScoreToStatus(t *testing.T) {
	tests := []struct {
		pct        float64
		status     models.ComplianceStatus
		confidence models.Confidence
	}{
		{96, models.StatusCompliant, models.ConfidenceHigh},
		{95, models.StatusCompliant, models.ConfidenceHigh},
		{85, models.StatusPartial, models.ConfidenceMedium},
		{65, models.StatusNonCompliant, models.ConfidenceMedium},
		{50, models.StatusNonCompliant, models.ConfidenceMedium},
		{20, models.StatusNonCompliant, models.ConfidenceHigh},
		{0, models.StatusNonCompliant, models.ConfidenceHigh},
		{150, models.StatusUnknown, models.ConfidenceLow},
		{-1, models.StatusUnknown, models.ConfidenceLow},
		{math.NaN(), models.StatusUnknown, models.ConfidenceLow},
	}
	for _, tt := range tests {
		status, conf := MapGSTScoreToStatus(tt.pct)
		assert.Equal(t, tt.status, status, "pct %v", tt.pct)
		assert.Equal(t, tt.confidence, conf, "pct %v", tt.pct)
	}
}

func TestMapEPFOScoreToStatus(t *testing.T) {
	status, conf := MapEPFOScoreToStatus(90)
	assert.Equal(t, models.StatusPartial, status)
	assert.Equal(t, models.ConfidenceMedium, conf)

	status, _ = MapEPFOScoreToStatus(82)
	assert.Equal(t, models.StatusNonCompliant, status, "82 is partial for GST but not for EPFO")

	status, conf = MapEPFOScoreToStatus(101)
	assert.Equal(t, models.StatusUnknown, status)
	assert.Equal(t, models.ConfidenceLow, conf)
}

func TestClassifyGST(t *testing.T) {
	t.Run("details rate preferred over score", func(t *testing.T) {
		rec := ClassifyGST(nil, []models.ParameterScore{
			{Parameter: "GST Turnover", Score: fp(10), MaxScore: fp(10)},
			{Parameter: "GST Filing Status", Score: fp(5), MaxScore: fp(10),
				Details: map[string]interface{}{"compliance_rate": "96%"}},
		})
		assert.Equal(t, models.StatusCompliant, rec.Status)
		assert.Equal(t, "GST Filing Status", rec.Parameter)
		require.NotNil(t, rec.Percentage)
		assert.Equal(t, 96.0, *rec.Percentage)
		assert.Equal(t, "details.compliance_rate", rec.Details["source"])
	})

	t.Run("score ratio", func(t *testing.T) {
		rec := ClassifyGST(nil, []models.ParameterScore{
			{Parameter: "GST Compliance", Score: fp(17), MaxScore: fp(20)},
		})
		assert.Equal(t, models.StatusPartial, rec.Status)
		assert.InDelta(t, 85.0, *rec.Percentage, 1e-9)
	})

	t.Run("out of range rate", func(t *testing.T) {
		rec := ClassifyGST(nil, []models.ParameterScore{
			{Parameter: "GST Compliance", Details: map[string]interface{}{"complianceRate": 150}},
		})
		assert.Equal(t, models.StatusUnknown, rec.Status)
		assert.Nil(t, rec.Percentage)
	})

	t.Run("missing parameter", func(t *testing.T) {
		rec := ClassifyGST(nil, nil)
		assert.Equal(t, models.StatusUnknown, rec.Status)
		assert.Equal(t, models.ConfidenceLow, rec.Confidence)
	})
}

func TestClassifyEPFO_Aliases(t *testing.T) {
	for _, name := range []string{"EPFO Compliance", "PF Remittance", "Provident Fund Deposits"} {
		rec := ClassifyEPFO(nil, []models.ParameterScore{
			{Parameter: "Profit Margin", Score: fp(1), MaxScore: fp(10)},
			{Parameter: name, Score: fp(96), MaxScore: fp(100)},
		})
		assert.Equal(t, models.StatusCompliant, rec.Status, name)
		assert.Equal(t, name, rec.Parameter)
	}
}

func TestClassifyAuditText(t *testing.T) {
	tests := []struct {
		text       string
		status     models.ComplianceStatus
		confidence models.Confidence
	}{
		{"Unqualified opinion", models.AuditUnqualified, models.ConfidenceHigh},
		{"Clean report", models.AuditUnqualified, models.ConfidenceMedium},
		{"Qualified", models.AuditQualified, models.ConfidenceHigh},
		{"True and fair except for inventory valuation", models.AuditQualified, models.ConfidenceMedium},
		{"ADVERSE", models.AuditAdverse, models.ConfidenceHigh},
		{"Negative assurance", models.AuditAdverse, models.ConfidenceMedium},
		{"Disclaimer of opinion", models.AuditDisclaimer, models.ConfidenceHigh},
		{"Auditor unable to express an opinion", models.AuditDisclaimer, models.ConfidenceMedium},
		{"pending", models.StatusUnknown, models.ConfidenceLow},
		{"", models.StatusUnknown, models.ConfidenceLow},
	}
	for _, tt := range tests {
		status, conf := ClassifyAuditText(tt.text)
		assert.Equal(t, tt.status, status, tt.text)
		assert.Equal(t, tt.confidence, conf, tt.text)
	}
}

func TestClassifyAudit_DetailsFallback(t *testing.T) {
	rec := ClassifyAudit(nil, []models.ParameterScore{
		{Parameter: "Audit Report", Details: map[string]interface{}{"opinion": "Qualified subject to confirmation"}},
	})
	assert.Equal(t, models.AuditQualified, rec.Status)
	assert.Equal(t, "Qualified subject to confirmation", rec.Qualification)
}

func TestSummarize(t *testing.T) {
	rec := func(s models.ComplianceStatus, c models.Confidence) models.ComplianceRecord {
		return models.ComplianceRecord{Status: s, Confidence: c}
	}
	unk := rec(models.StatusUnknown, models.ConfidenceLow)

	tests := []struct {
		name       string
		gst, epfo  models.ComplianceRecord
		audit      models.ComplianceRecord
		want       models.ComplianceStatus
		known      int
		confidence models.Confidence
	}{
		{"all unknown", unk, unk, unk, models.StatusUnknown, 0, models.ConfidenceLow},
		{"all clean", rec(models.StatusCompliant, models.ConfidenceHigh), rec(models.StatusCompliant, models.ConfidenceHigh),
			rec(models.AuditUnqualified, models.ConfidenceMedium), models.StatusCompliant, 3, models.ConfidenceMedium},
		{"one partial", rec(models.StatusPartial, models.ConfidenceMedium), rec(models.StatusCompliant, models.ConfidenceHigh),
			unk, models.StatusPartial, 2, models.ConfidenceMedium},
		{"qualified audit is negative", rec(models.StatusCompliant, models.ConfidenceHigh), unk,
			rec(models.AuditQualified, models.ConfidenceHigh), models.StatusNonCompliant, 2, models.ConfidenceHigh},
		{"non-compliant beats partial", rec(models.StatusPartial, models.ConfidenceMedium),
			rec(models.StatusNonCompliant, models.ConfidenceHigh), unk, models.StatusNonCompliant, 2, models.ConfidenceMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.gst, tt.epfo, tt.audit)
			assert.Equal(t, tt.want, s.OverallStatus)
			assert.Equal(t, tt.known, s.KnownCount)
			assert.Equal(t, tt.confidence, s.Confidence)
		})
	}
}

func TestClassify(t *testing.T) {
	r := Classify(nil, &models.RawRiskRecord{AllScores: []models.ParameterScore{
		{Parameter: "GST Compliance", Score: fp(100), MaxScore: fp(100)},
		{Parameter: "EPFO", Score: fp(80), MaxScore: fp(100)},
		{Parameter: "Audit Qualification", Value: "Unqualified"},
	}})
	assert.Equal(t, models.StatusCompliant, r.GST.Status)
	assert.Equal(t, models.StatusNonCompliant, r.EPFO.Status)
	assert.Equal(t, models.AuditUnqualified, r.Audit.Status)
	assert.Equal(t, models.StatusNonCompliant, r.Summary.OverallStatus)

	empty := Classify(nil, nil)
	assert.Equal(t, models.StatusUnknown, empty.Summary.OverallStatus)
}
