// internal/models/financial.go
package models

// RegionSource names the address a region was resolved from.
type RegionSource string

const (
	RegionSourceRegistered RegionSource = "registered"
	RegionSourceBusiness   RegionSource = "business"
	RegionSourceUnknown    RegionSource = "unknown"
)

// NormalizedRegion is high confidence only when state and city both come
// from the same address source.
type NormalizedRegion struct {
	State      *string      `json:"state"`
	City       *string      `json:"city"`
	Source     RegionSource `json:"source"`
	Confidence Confidence   `json:"confidence"`
}

// DataSource describes where FinancialMetrics values were taken from.
type DataSource string

const (
	DataSourceLatest     DataSource = "latest"
	DataSourceFallback   DataSource = "fallback"
	DataSourceCalculated DataSource = "calculated"
	DataSourceUnknown    DataSource = "unknown"
)

// FinancialMetrics holds the seven tracked metrics for a single year. Every
// non-nil field has passed range validation.
type FinancialMetrics struct {
	EbitdaMargin     *float64   `json:"ebitdaMargin"`
	DebtEquityRatio  *float64   `json:"debtEquityRatio"`
	CurrentRatio     *float64   `json:"currentRatio"`
	TotalRevenue     *float64   `json:"totalRevenue"`
	NetProfit        *float64   `json:"netProfit"`
	TotalAssets      *float64   `json:"totalAssets"`
	TotalLiabilities *float64   `json:"totalLiabilities"`
	Year             string     `json:"year"`
	Confidence       Confidence `json:"confidence"`
	DataSource       DataSource `json:"dataSource"`
}

// Count returns the number of non-nil metrics.
func (m FinancialMetrics) Count() int {
	n := 0
	for _, v := range []*float64{
		m.EbitdaMargin, m.DebtEquityRatio, m.CurrentRatio,
		m.TotalRevenue, m.NetProfit, m.TotalAssets, m.TotalLiabilities,
	} {
		if v != nil {
			n++
		}
	}
	return n
}
