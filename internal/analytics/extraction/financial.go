package extraction

import (
	"math"
	"regexp"
	"sort"
	"strconv"

	"risk-analytics/internal/common/errors"
	"risk-analytics/internal/models"
	"risk-analytics/pkg/registry"
)

// Metric types accepted by ValidateFinancialMetric.
const (
	MetricEbitdaMargin     = "ebitdaMargin"
	MetricDebtEquityRatio  = "debtEquityRatio"
	MetricCurrentRatio     = "currentRatio"
	MetricTotalRevenue     = "totalRevenue"
	MetricNetProfit        = "netProfit"
	MetricTotalAssets      = "totalAssets"
	MetricTotalLiabilities = "totalLiabilities"
)

type valueRange struct{ min, max float64 }

var metricRanges = map[string]valueRange{
	MetricEbitdaMargin:     {-100, 100},
	MetricDebtEquityRatio:  {0, 50},
	MetricCurrentRatio:     {0, 20},
	MetricTotalRevenue:     {0, 1e12},
	MetricNetProfit:        {-1e12, 1e12},
	MetricTotalAssets:      {0, 1e12},
	MetricTotalLiabilities: {-1e12, 1e12},
}

// ValidateFinancialMetric returns a copy of value when it lies inside the
// range documented for metricType, nil otherwise. NaN and Inf are always
// rejected; unknown metric types accept any finite value.
func ValidateFinancialMetric(value float64, metricType string) *float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	if r, ok := metricRanges[metricType]; ok && (value < r.min || value > r.max) {
		return nil
	}
	v := value
	return &v
}

type tableID int

const (
	tableRatios tableID = iota
	tableProfitLoss
	tableBalanceSheet
)

// metricKeys lists accepted table keys, already in NormalizeName form, and
// the table searched first.
type metricKeys struct {
	home tableID
	keys []string
}

var metricLookup = map[string]metricKeys{
	MetricEbitdaMargin:     {tableRatios, []string{"ebitda margin", "ebitdamargin", "ebitda margin percentage", "operating margin"}},
	MetricDebtEquityRatio:  {tableRatios, []string{"debt equity ratio", "debtequityratio", "debt to equity", "debt to equity ratio", "debt equity"}},
	MetricCurrentRatio:     {tableRatios, []string{"current ratio", "currentratio"}},
	MetricTotalRevenue:     {tableProfitLoss, []string{"total revenue", "totalrevenue", "revenue", "revenue from operations", "net sales", "total income", "sales"}},
	MetricNetProfit:        {tableProfitLoss, []string{"net profit", "netprofit", "profit after tax", "pat", "net income"}},
	MetricTotalAssets:      {tableBalanceSheet, []string{"total assets", "totalassets"}},
	MetricTotalLiabilities: {tableBalanceSheet, []string{"total liabilities", "totalliabilities"}},
}

var derivationLookup = map[string]metricKeys{
	"operatingProfit":    {tableProfitLoss, []string{"operating profit", "operatingprofit", "ebitda", "pbdit"}},
	"currentAssets":      {tableBalanceSheet, []string{"current assets", "currentassets", "total current assets"}},
	"currentLiabilities": {tableBalanceSheet, []string{"current liabilities", "currentliabilities", "total current liabilities"}},
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// embeddedYear is the largest plausible four-digit year in label, or 0.
func embeddedYear(label string) int {
	best := 0
	for _, m := range yearPattern.FindAllString(label, -1) {
		y, err := strconv.Atoi(m)
		if err != nil || y < 1900 || y > 2100 {
			continue
		}
		if y > best {
			best = y
		}
	}
	return best
}

// orderedYears returns year labels newest first. years[] is used when any of
// its labels carries a year, otherwise the table keys are scanned.
func orderedYears(fd models.FinancialData) []string {
	if labels := withYear(fd.Years); len(labels) > 0 {
		return labels
	}
	seen := map[string]bool{}
	var keys []string
	for _, t := range []models.YearTable{fd.Ratios, fd.ProfitLoss, fd.BalanceSheet} {
		for _, row := range t {
			for label := range row {
				if !seen[label] {
					seen[label] = true
					keys = append(keys, label)
				}
			}
		}
	}
	sort.Strings(keys)
	return withYear(keys)
}

func withYear(labels []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, l := range labels {
		if embeddedYear(l) > 0 && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return embeddedYear(out[i]) > embeddedYear(out[j])
	})
	return out
}

// GetLatestFinancialYear returns the label with the largest embedded year,
// or "" when no label carries one.
func GetLatestFinancialYear(fd models.FinancialData) string {
	years := orderedYears(fd)
	if len(years) == 0 {
		return ""
	}
	return years[0]
}

type tableSet [3]models.YearTable

func (ts tableSet) find(mk metricKeys) map[string]float64 {
	order := []tableID{mk.home}
	for _, id := range []tableID{tableRatios, tableProfitLoss, tableBalanceSheet} {
		if id != mk.home {
			order = append(order, id)
		}
	}
	for _, key := range mk.keys {
		for _, id := range order {
			if row := findRow(ts[id], key); row != nil {
				return row
			}
		}
	}
	return nil
}

func findRow(t models.YearTable, normalized string) map[string]float64 {
	if row, ok := t[normalized]; ok {
		return row
	}
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if registry.NormalizeName(name) == normalized {
			return t[name]
		}
	}
	return nil
}

// valueForYear tries the exact label, then any label with the same
// embedded year.
func valueForYear(row map[string]float64, year string) (float64, bool) {
	if row == nil {
		return 0, false
	}
	if v, ok := row[year]; ok {
		return v, true
	}
	target := embeddedYear(year)
	if target == 0 {
		return 0, false
	}
	labels := make([]string, 0, len(row))
	for l := range row {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		if embeddedYear(l) == target {
			return row[l], true
		}
	}
	return 0, false
}

func confidenceFor(count int) models.Confidence {
	switch {
	case count >= 5:
		return models.ConfidenceHigh
	case count >= 3:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// ExtractFinancialMetrics reads the seven tracked metrics for the latest
// year, deriving ebitdaMargin and currentRatio when only their inputs are
// present. A low-confidence result is retried once against the next year.
func ExtractFinancialMetrics(record *models.RawRiskRecord) Result[models.FinancialMetrics] {
	fallback := models.FinancialMetrics{Confidence: models.ConfidenceLow, DataSource: models.DataSourceUnknown}
	return guard("financialData", fallback, func() Result[models.FinancialMetrics] {
		return extractFinancialMetrics(record)
	})
}

func extractFinancialMetrics(record *models.RawRiskRecord) Result[models.FinancialMetrics] {
	res := Result[models.FinancialMetrics]{
		Value: models.FinancialMetrics{Confidence: models.ConfidenceLow, DataSource: models.DataSourceUnknown},
	}
	if record == nil {
		res.Add(errors.ErrCodeMissingData, "financialData", "no risk analysis")
		return res
	}
	fd := record.FinancialData
	years := orderedYears(fd)
	if len(years) == 0 {
		res.Add(errors.ErrCodeMissingData, "financialData.years", "no year label found")
		return res
	}

	tables := tableSet{tableRatios: fd.Ratios, tableProfitLoss: fd.ProfitLoss, tableBalanceSheet: fd.BalanceSheet}
	latest := metricsForYear(tables, years[0])
	if latest.Value.Confidence == models.ConfidenceLow && len(years) > 1 {
		next := metricsForYear(tables, years[1])
		if next.Value.Confidence.Rank() > latest.Value.Confidence.Rank() {
			next.Value.DataSource = models.DataSourceFallback
			return next
		}
	}
	return latest
}

func metricsForYear(tables tableSet, year string) Result[models.FinancialMetrics] {
	var res Result[models.FinancialMetrics]
	m := models.FinancialMetrics{Year: year, DataSource: models.DataSourceLatest}

	read := func(metric string) *float64 {
		raw, ok := valueForYear(tables.find(metricLookup[metric]), year)
		if !ok {
			return nil
		}
		v := ValidateFinancialMetric(raw, metric)
		if v == nil {
			res.Add(errors.ErrCodeRangeViolation, "financialData."+metric, "%s=%v outside allowed range for %s", metric, raw, year)
		}
		return v
	}
	input := func(name string) (float64, bool) {
		return valueForYear(tables.find(derivationLookup[name]), year)
	}

	m.EbitdaMargin = read(MetricEbitdaMargin)
	m.DebtEquityRatio = read(MetricDebtEquityRatio)
	m.CurrentRatio = read(MetricCurrentRatio)
	m.TotalRevenue = read(MetricTotalRevenue)
	m.NetProfit = read(MetricNetProfit)
	m.TotalAssets = read(MetricTotalAssets)
	m.TotalLiabilities = read(MetricTotalLiabilities)

	derived := false
	if m.EbitdaMargin == nil && m.TotalRevenue != nil && *m.TotalRevenue != 0 {
		if op, ok := input("operatingProfit"); ok {
			if v := ValidateFinancialMetric(op / *m.TotalRevenue * 100, MetricEbitdaMargin); v != nil {
				m.EbitdaMargin, derived = v, true
			} else {
				res.Add(errors.ErrCodeRangeViolation, "financialData."+MetricEbitdaMargin, "derived margin outside allowed range for %s", year)
			}
		}
	}
	if m.CurrentRatio == nil {
		ca, okA := input("currentAssets")
		cl, okL := input("currentLiabilities")
		if okA && okL && cl != 0 {
			if v := ValidateFinancialMetric(ca/cl, MetricCurrentRatio); v != nil {
				m.CurrentRatio, derived = v, true
			} else {
				res.Add(errors.ErrCodeRangeViolation, "financialData."+MetricCurrentRatio, "derived ratio outside allowed range for %s", year)
			}
		}
	}
	if derived {
		m.DataSource = models.DataSourceCalculated
	}
	m.Confidence = confidenceFor(m.Count())
	res.Value = m
	return res
}
