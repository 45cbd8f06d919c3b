package portfolio

import (
	"math"
	"sort"

	"risk-analytics/internal/models"
)

// RiskScoreStatistics describes the spread of risk scores. Companies without
// a score are left out.
type RiskScoreStatistics struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	P25      float64 `json:"p25"`
	P75      float64 `json:"p75"`
	P90      float64 `json:"p90"`
}

// Percentile interpolates linearly between closest ranks of a sorted slice.
func Percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		return sorted[0]
	}
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

// MeanStdDev returns the mean and population standard deviation.
func MeanStdDev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

func CalculateRiskScoreStatistics(records []models.PortfolioRecord) RiskScoreStatistics {
	var scores []float64
	for _, r := range records {
		if r.RiskScore != nil {
			scores = append(scores, *r.RiskScore)
		}
	}
	if len(scores) == 0 {
		return RiskScoreStatistics{}
	}
	sort.Float64s(scores)

	mean, sd := MeanStdDev(scores)
	return RiskScoreStatistics{
		Count:    len(scores),
		Mean:     mean,
		Median:   Percentile(scores, 50),
		Variance: sd * sd,
		StdDev:   sd,
		Min:      scores[0],
		Max:      scores[len(scores)-1],
		P25:      Percentile(scores, 25),
		P75:      Percentile(scores, 75),
		P90:      Percentile(scores, 90),
	}
}
