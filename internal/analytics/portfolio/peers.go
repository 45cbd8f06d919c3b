package portfolio

import (
	"sort"
	"strings"

	"risk-analytics/internal/analytics/extraction"
	"risk-analytics/internal/analytics/health"
	"risk-analytics/internal/models"
)

// Peer comparison metrics beyond the seven financial metrics.
const (
	MetricRiskScore   = "riskScore"
	MetricHealthScore = "healthScore"
)

// PeerComparison ranks one company against companies of the same industry.
type PeerComparison struct {
	CompanyID               string   `json:"company_id"`
	Industry                string   `json:"industry"`
	Metric                  string   `json:"metric"`
	Value                   *float64 `json:"value"`
	PeerCount               int      `json:"peer_count"`
	PeerAverage             *float64 `json:"peer_average"`
	Percentile              float64  `json:"percentile"`
	RiskMultiplier          float64  `json:"risk_multiplier"`
	RiskAdjustedPerformance *float64 `json:"risk_adjusted_performance"`
}

// IsBenchmarkMetric reports whether MetricValue understands metric.
func IsBenchmarkMetric(metric string) bool {
	switch metric {
	case MetricRiskScore, MetricHealthScore,
		extraction.MetricEbitdaMargin, extraction.MetricDebtEquityRatio, extraction.MetricCurrentRatio,
		extraction.MetricTotalRevenue, extraction.MetricNetProfit, extraction.MetricTotalAssets,
		extraction.MetricTotalLiabilities:
		return true
	}
	return false
}

// MetricValue reads metric from a record: risk score, health score or one of
// the extracted financial metrics.
func MetricValue(r models.PortfolioRecord, metric string) (float64, bool) {
	switch metric {
	case MetricRiskScore:
		if r.RiskScore == nil {
			return 0, false
		}
		return *r.RiskScore, true
	case MetricHealthScore:
		if r.RiskAnalysis == nil {
			return 0, false
		}
		m := extraction.ExtractFinancialMetrics(r.RiskAnalysis).Value
		return float64(health.ComputeHealthScore(m).Score), true
	}
	if r.RiskAnalysis == nil {
		return 0, false
	}
	m := extraction.ExtractFinancialMetrics(r.RiskAnalysis).Value
	var v *float64
	switch metric {
	case extraction.MetricEbitdaMargin:
		v = m.EbitdaMargin
	case extraction.MetricDebtEquityRatio:
		v = m.DebtEquityRatio
	case extraction.MetricCurrentRatio:
		v = m.CurrentRatio
	case extraction.MetricTotalRevenue:
		v = m.TotalRevenue
	case extraction.MetricNetProfit:
		v = m.NetProfit
	case extraction.MetricTotalAssets:
		v = m.TotalAssets
	case extraction.MetricTotalLiabilities:
		v = m.TotalLiabilities
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

func riskMultiplier(r models.PortfolioRecord) float64 {
	if r.RiskAnalysis != nil && r.RiskAnalysis.Eligibility != nil {
		if m := r.RiskAnalysis.Eligibility.RiskMultiplier; m != nil && *m > 0 {
			return *m
		}
	}
	return 1
}

func industryKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type metricReader func(models.PortfolioRecord, string) (float64, bool)

type metricValue struct {
	value float64
	ok    bool
}

// industryValues holds the sorted metric values of one industry.
type industryValues struct {
	sorted []float64
	sum    float64
}

// benchmarkIndex reads metric once per record and groups the values by
// industry. Records are keyed by ID; a repeated ID keeps its first entry.
type benchmarkIndex struct {
	metric     string
	values     map[string]metricValue
	industries map[string]*industryValues
}

func newBenchmarkIndex(pool []models.PortfolioRecord, metric string, read metricReader) *benchmarkIndex {
	idx := &benchmarkIndex{
		metric:     metric,
		values:     make(map[string]metricValue, len(pool)),
		industries: map[string]*industryValues{},
	}
	for _, r := range pool {
		if _, dup := idx.values[r.ID]; dup {
			continue
		}
		v, ok := read(r, metric)
		idx.values[r.ID] = metricValue{value: v, ok: ok}
		if !ok {
			continue
		}
		key := industryKey(r.Industry)
		iv := idx.industries[key]
		if iv == nil {
			iv = &industryValues{}
			idx.industries[key] = iv
		}
		iv.sorted = append(iv.sorted, v)
		iv.sum += v
	}
	for _, iv := range idx.industries {
		sort.Float64s(iv.sorted)
	}
	return idx
}

func (idx *benchmarkIndex) compare(company models.PortfolioRecord) PeerComparison {
	pc := PeerComparison{
		CompanyID:      company.ID,
		Industry:       company.Industry,
		Metric:         idx.metric,
		RiskMultiplier: riskMultiplier(company),
	}
	own := idx.values[company.ID]
	if own.ok {
		value := own.value
		pc.Value = &value
		adjusted := value / pc.RiskMultiplier
		pc.RiskAdjustedPerformance = &adjusted
	}

	iv := idx.industries[industryKey(company.Industry)]
	if iv == nil {
		return pc
	}
	n, sum := len(iv.sorted), iv.sum
	if own.ok {
		n--
		sum -= own.value
	}
	if n <= 0 {
		return pc
	}
	pc.PeerCount = n
	avg := sum / float64(n)
	pc.PeerAverage = &avg
	if own.ok {
		// The company's own value is never strictly lower than itself.
		pc.Percentile = share(sort.SearchFloat64s(iv.sorted, own.value), n)
	}
	return pc
}

// ComparePeer ranks companyID among the other companies of its industry.
// The percentile is the share of peers with a strictly lower value. The
// second return value is false when companyID is not in records.
func ComparePeer(records []models.PortfolioRecord, companyID, metric string) (PeerComparison, bool) {
	for _, r := range records {
		if r.ID == companyID {
			return newBenchmarkIndex(records, metric, MetricValue).compare(r), true
		}
	}
	return PeerComparison{CompanyID: companyID, Metric: metric}, false
}

// CalculateBenchmarks compares every company in companies against peers.
// peers may include companies outside the current page. Each record's
// metric is read once.
func CalculateBenchmarks(companies, peers []models.PortfolioRecord, metric string) []PeerComparison {
	return benchmarks(companies, peers, metric, MetricValue)
}

func benchmarks(companies, peers []models.PortfolioRecord, metric string, read metricReader) []PeerComparison {
	pool := make([]models.PortfolioRecord, 0, len(companies)+len(peers))
	pool = append(pool, companies...)
	pool = append(pool, peers...)
	idx := newBenchmarkIndex(pool, metric, read)

	out := make([]PeerComparison, 0, len(companies))
	for _, c := range companies {
		out = append(out, idx.compare(c))
	}
	return out
}
