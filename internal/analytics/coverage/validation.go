package coverage

import (
	"math"
	"math/rand/v2"
	"sort"

	"risk-analytics/internal/analytics/portfolio"
	"risk-analytics/internal/models"
)

// overfitGap is the train/test coverage gap, in points, above which a split
// is flagged.
const overfitGap = 5

// Drift severity thresholds on the absolute coverage delta.
const (
	driftHigh   = 10
	driftMedium = 5
)

const (
	DefaultFolds        = 5
	DefaultHoldoutRatio = 0.8
	temporalTrainShare  = 0.7
)

type FoldResult struct {
	Fold          int     `json:"fold"`
	TrainSize     int     `json:"train_size"`
	TestSize      int     `json:"test_size"`
	TrainCoverage float64 `json:"train_coverage"`
	TestCoverage  float64 `json:"test_coverage"`
	Gap           float64 `json:"gap"`
}

type FoldReport struct {
	Folds              []FoldResult `json:"folds"`
	MeanTestCoverage   float64      `json:"mean_test_coverage"`
	StdDevTestCoverage float64      `json:"std_dev_test_coverage"`
	MeanGap            float64      `json:"mean_gap"`
	Overfitting        bool         `json:"overfitting_indicator"`
}

// FoldCoverage splits records into k contiguous folds in input order and
// reports train/test coverage with each fold held out. k is reduced to the
// record count when there are fewer records than folds.
func FoldCoverage(records []models.PortfolioRecord, k int) FoldReport {
	n := len(records)
	if k <= 0 {
		k = DefaultFolds
	}
	if n < k {
		k = n
	}
	report := FoldReport{Folds: []FoldResult{}}
	if k < 2 {
		return report
	}

	var tests, gaps []float64
	start := 0
	for i := 0; i < k; i++ {
		size := n / k
		if i < n%k {
			size++
		}
		end := start + size
		test := records[start:end]
		train := make([]models.PortfolioRecord, 0, n-size)
		train = append(train, records[:start]...)
		train = append(train, records[end:]...)

		fr := FoldResult{
			Fold:          i + 1,
			TrainSize:     len(train),
			TestSize:      len(test),
			TrainCoverage: Coverage(train),
			TestCoverage:  Coverage(test),
		}
		fr.Gap = fr.TrainCoverage - fr.TestCoverage
		report.Folds = append(report.Folds, fr)
		tests = append(tests, fr.TestCoverage)
		gaps = append(gaps, fr.Gap)
		start = end
	}
	report.MeanTestCoverage, report.StdDevTestCoverage = portfolio.MeanStdDev(tests)
	report.MeanGap, _ = portfolio.MeanStdDev(gaps)
	report.Overfitting = report.MeanGap > overfitGap
	return report
}

type SplitReport struct {
	TrainSize     int     `json:"train_size"`
	TestSize      int     `json:"test_size"`
	TrainCoverage float64 `json:"train_coverage"`
	TestCoverage  float64 `json:"test_coverage"`
	Gap           float64 `json:"gap"`
	Overfitting   bool    `json:"overfitting_indicator"`
}

func split(train, test []models.PortfolioRecord) SplitReport {
	r := SplitReport{
		TrainSize:     len(train),
		TestSize:      len(test),
		TrainCoverage: Coverage(train),
		TestCoverage:  Coverage(test),
	}
	r.Gap = r.TrainCoverage - r.TestCoverage
	r.Overfitting = r.Gap > overfitGap
	return r
}

// trainSize keeps at least one record on each side when n >= 2.
func trainSize(n int, ratio float64) int {
	if n < 2 {
		return n
	}
	t := int(math.Round(float64(n) * ratio))
	if t < 1 {
		t = 1
	}
	if t > n-1 {
		t = n - 1
	}
	return t
}

// HoldoutCoverage shuffles records with a seeded PCG source and splits them
// by ratio. The same seed always yields the same split.
func HoldoutCoverage(records []models.PortfolioRecord, ratio float64, seed int64) SplitReport {
	if ratio <= 0 || ratio >= 1 {
		ratio = DefaultHoldoutRatio
	}
	shuffled := make([]models.PortfolioRecord, len(records))
	copy(shuffled, records)
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	t := trainSize(len(shuffled), ratio)
	return split(shuffled[:t], shuffled[t:])
}

type TemporalReport struct {
	Train SplitReport `json:"split"`
	Early Period      `json:"early_period"`
	Late  Period      `json:"late_period"`
}

// TemporalCoverage trains on the oldest 70% of completed records and tests
// on the newest 30%.
func TemporalCoverage(records []models.PortfolioRecord) TemporalReport {
	sorted := byCompletion(records)
	t := trainSize(len(sorted), temporalTrainShare)
	early, late := sorted[:t], sorted[t:]
	return TemporalReport{Train: split(early, late), Early: periodOf(early), Late: periodOf(late)}
}

type DriftSeverity string

const (
	DriftLow    DriftSeverity = "Low"
	DriftMedium DriftSeverity = "Medium"
	DriftHigh   DriftSeverity = "High"
)

// SeverityFor classifies an absolute coverage delta.
func SeverityFor(delta float64) DriftSeverity {
	d := math.Abs(delta)
	switch {
	case d > driftHigh:
		return DriftHigh
	case d > driftMedium:
		return DriftMedium
	default:
		return DriftLow
	}
}

type ParameterShift struct {
	Parameter    string  `json:"parameter"`
	BaselineRate float64 `json:"baseline_rate"`
	CurrentRate  float64 `json:"current_rate"`
	Delta        float64 `json:"delta"`
}

type DriftReport struct {
	Baseline          Period           `json:"baseline_period"`
	Current           Period           `json:"current_period"`
	CoverageDelta     float64          `json:"coverage_delta"`
	RiskScoreDelta    *float64         `json:"risk_score_delta"`
	AvailabilityDelta float64          `json:"availability_delta"`
	ParameterShifts   []ParameterShift `json:"parameter_shifts"`
	Severity          DriftSeverity    `json:"severity"`
	InsufficientData  bool             `json:"insufficient_data"`
}

// meanAvailability is the mean per-company share of available parameters.
func meanAvailability(records []models.PortfolioRecord) float64 {
	var vals []float64
	for _, r := range records {
		if r.TotalParameters > 0 {
			vals = append(vals, float64(r.AvailableParameters)/float64(r.TotalParameters)*100)
		}
	}
	m, _ := portfolio.MeanStdDev(vals)
	return m
}

func availabilityRates(records []models.PortfolioRecord) map[string]float64 {
	seen := map[string]int{}
	avail := map[string]int{}
	for _, r := range records {
		for _, p := range scores(r) {
			name := paramName(p)
			if name == "" {
				continue
			}
			seen[name]++
			if p.Available {
				avail[name]++
			}
		}
	}
	rates := make(map[string]float64, len(seen))
	for name, n := range seen {
		rates[name] = float64(avail[name]) / float64(n) * 100
	}
	return rates
}

// CoverageDrift compares the older and newer halves of the completed
// records. Parameters missing from one half count as 0% available there.
func CoverageDrift(records []models.PortfolioRecord) DriftReport {
	sorted := byCompletion(records)
	if len(sorted) < 2 {
		return DriftReport{Severity: DriftLow, InsufficientData: true, ParameterShifts: []ParameterShift{}}
	}
	mid := len(sorted) / 2
	baseline, current := sorted[:mid], sorted[mid:]

	r := DriftReport{Baseline: periodOf(baseline), Current: periodOf(current)}
	r.CoverageDelta = r.Current.Coverage - r.Baseline.Coverage
	if r.Baseline.MeanRiskScore != nil && r.Current.MeanRiskScore != nil {
		d := *r.Current.MeanRiskScore - *r.Baseline.MeanRiskScore
		r.RiskScoreDelta = &d
	}
	r.AvailabilityDelta = meanAvailability(current) - meanAvailability(baseline)
	r.Severity = SeverityFor(r.CoverageDelta)

	before, after := availabilityRates(baseline), availabilityRates(current)
	names := map[string]bool{}
	for n := range before {
		names[n] = true
	}
	for n := range after {
		names[n] = true
	}
	r.ParameterShifts = make([]ParameterShift, 0, len(names))
	for n := range names {
		r.ParameterShifts = append(r.ParameterShifts, ParameterShift{
			Parameter:    n,
			BaselineRate: before[n],
			CurrentRate:  after[n],
			Delta:        after[n] - before[n],
		})
	}
	sort.Slice(r.ParameterShifts, func(i, j int) bool {
		di, dj := math.Abs(r.ParameterShifts[i].Delta), math.Abs(r.ParameterShifts[j].Delta)
		if di != dj {
			return di > dj
		}
		return r.ParameterShifts[i].Parameter < r.ParameterShifts[j].Parameter
	})
	return r
}
