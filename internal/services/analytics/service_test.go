package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"risk-analytics/internal/analytics/coverage"
	"risk-analytics/internal/analytics/extraction"
	commonerrors "risk-analytics/internal/common/errors"
	"risk-analytics/internal/common/logger"
	"risk-analytics/internal/models"
)

const gradedAnalysis = `{
  "allScores": [
    {"parameter": "GST Compliance", "score": 9.6, "maxScore": 10, "available": true},
    {"parameter": "EPFO Compliance", "score": 5, "maxScore": 10, "available": true},
    {"parameter": "Audit Qualification", "value": "Unqualified opinion", "available": true}
  ],
  "companyData": {"addresses": {"registered_address": {"state": "maharastra", "city": "bombay"}}},
  "financialData": {
    "years": ["FY2023", "FY2024"],
    "ratios": {"ebitda_margin": {"FY2024": 22}, "current_ratio": {"FY2024": 2.1}, "debt_equity_ratio": {"FY2024": 0.4}},
    "profit_loss": {"total_revenue": {"FY2024": 50000000}, "net_profit": {"FY2024": 6000000}}
  },
  "eligibility": {"finalEligibility": 2000000, "recommendedCreditLimit": 1500000}
}`

func analysis(t *testing.T) *models.RawRiskRecord {
	t.Helper()
	rec := extraction.ParseRiskRecord(gradedAnalysis).Value
	require.NotNil(t, rec)
	return rec
}

func fptr(v float64) *float64 { return &v }

func record(t *testing.T, id, industry, grade string, score float64, avail, total int, completed time.Time) models.PortfolioRecord {
	return models.PortfolioRecord{
		ID:                  id,
		RequestID:           "req-" + id,
		CompanyName:         "Company " + id,
		RiskScore:           fptr(score),
		RiskGrade:           grade,
		Industry:            industry,
		ModelType:           "msme",
		TotalParameters:     total,
		AvailableParameters: avail,
		RiskAnalysis:        analysis(t),
		CompletedAt:         &completed,
	}
}

type fakeRepo struct {
	mu       sync.Mutex
	overview *models.PortfolioOverview
	company  *models.PortfolioRecord
	owner    string
	err      error
	calls    int
	lastPage models.Pagination
	lastUser string
}

func (f *fakeRepo) GetPortfolioOverview(_ context.Context, _ models.PortfolioFilters, _ models.SortOptions, page models.Pagination, userID string) (*models.PortfolioOverview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPage, f.lastUser = page, userID
	if f.err != nil {
		return nil, f.err
	}
	return f.overview, nil
}

func (f *fakeRepo) GetCompanyByRequestID(_ context.Context, requestID, userID string) (*models.PortfolioRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.company == nil || f.company.RequestID != requestID || (f.owner != "" && f.owner != userID) {
		return nil, commonerrors.NewCompanyNotFoundError(requestID)
	}
	return f.company, nil
}

// memoryCache round-trips values through JSON like the Redis cache does.
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache { return &memoryCache{items: map[string][]byte{}} }

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = b
	return nil
}

type fakePeers struct {
	mu         sync.Mutex
	byIndustry map[string][]models.PortfolioRecord
	err        error
	industries []string
}

func (f *fakePeers) FindPeers(_ context.Context, industry string, _ []string, _ int) ([]models.PortfolioRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.industries = append(f.industries, industry)
	if f.err != nil {
		return nil, f.err
	}
	return f.byIndustry[industry], nil
}

type fakeNotifier struct {
	alerts []models.DriftAlert
	err    error
}

func (f *fakeNotifier) NotifyDrift(_ context.Context, a models.DriftAlert) error {
	f.alerts = append(f.alerts, a)
	return f.err
}

func testLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func basePortfolio(t *testing.T) *models.PortfolioOverview {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ungraded := models.PortfolioRecord{ID: "c3", RequestID: "req-c3", Industry: "Retail", ModelType: "msme", TotalParameters: 10}
	return &models.PortfolioOverview{
		TotalCount: 25,
		Companies: []models.PortfolioRecord{
			record(t, "c1", "Textiles", "CM1", 82, 9, 10, day),
			record(t, "c2", "Textiles", "CM3", 55, 7, 10, day.AddDate(0, 1, 0)),
			ungraded,
		},
	}
}

func newTestService(t *testing.T, deps Dependencies) *Service {
	deps.Logger = testLogger(t)
	return NewService(deps, Options{CacheTTL: time.Minute, DefaultPageSize: 50, MaxPageSize: 200, HoldoutSeed: 7})
}

func TestGetPortfolioAnalytics_Success(t *testing.T) {
	repo := &fakeRepo{overview: basePortfolio(t)}
	svc := newTestService(t, Dependencies{Repository: repo})

	resp, err := svc.GetPortfolioAnalytics(context.Background(), "user-1", Request{
		IncludeValidation:        true,
		IncludeParameterAnalysis: true,
		IncludeCoverageTrends:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, models.Pagination{Page: 1, Limit: 50}, repo.lastPage)
	assert.Equal(t, "user-1", repo.lastUser)

	d := resp.Data
	assert.Equal(t, 3, d.Summary.TotalCompanies)
	assert.Equal(t, 25, d.Summary.TotalCount)
	assert.Equal(t, 2, d.Summary.GradedCompanies)
	require.NotNil(t, d.Summary.AverageRiskScore)
	assert.InDelta(t, 68.5, *d.Summary.AverageRiskScore, 1e-9)
	assert.InDelta(t, 16.0/30*100, d.Summary.AverageCoverage, 1e-9)

	assert.Equal(t, 3, d.RiskDistribution.TotalCount)
	assert.Equal(t, 1, d.RiskDistribution.UngradedCount)
	assert.Equal(t, 2, d.ComplianceMetrics.GST.Compliant)
	assert.Equal(t, 1, d.ComplianceMetrics.GST.Unknown)

	require.NotNil(t, d.ParameterAnalysis)
	require.NotNil(t, d.Validation)
	assert.Len(t, d.Validation.CrossValidation.Folds, 3)
	assert.NotEmpty(t, d.CoverageTrends)
	assert.Nil(t, d.CoverageDrift)
	assert.Nil(t, d.Benchmarks)

	m := resp.Metadata
	assert.NotEmpty(t, m.RequestID)
	assert.Equal(t, 3, m.ReturnedCount)
	assert.Equal(t, 25, m.TotalCount)
	assert.False(t, m.Cached)
	assert.Empty(t, m.PeerSource)
}

func TestGetPortfolioAnalytics_CacheHit(t *testing.T) {
	repo := &fakeRepo{overview: basePortfolio(t)}
	svc := newTestService(t, Dependencies{Repository: repo, Cache: newMemoryCache()})

	first, err := svc.GetPortfolioAnalytics(context.Background(), "user-1", Request{})
	require.NoError(t, err)
	second, err := svc.GetPortfolioAnalytics(context.Background(), "user-1", Request{})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.calls)
	assert.True(t, second.Metadata.Cached)
	assert.NotEqual(t, first.Metadata.RequestID, second.Metadata.RequestID)
	assert.Equal(t, first.Data.Summary, second.Data.Summary)

	_, err = svc.GetPortfolioAnalytics(context.Background(), "user-2", Request{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls, "cache is scoped per user")
}

func TestGetPortfolioAnalytics_Errors(t *testing.T) {
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, -1, 0)

	tests := []struct {
		name string
		repo *fakeRepo
		req  Request
		code commonerrors.ErrorCode
	}{
		{
			name: "no companies",
			repo: &fakeRepo{overview: &models.PortfolioOverview{Companies: []models.PortfolioRecord{}}},
			code: commonerrors.ErrCodeNoMatchingCompanies,
		},
		{
			name: "no risk analysis",
			repo: &fakeRepo{overview: &models.PortfolioOverview{TotalCount: 1, Companies: []models.PortfolioRecord{{ID: "x"}}}},
			code: commonerrors.ErrCodeNoRiskAnalysisData,
		},
		{
			name: "inverted date range",
			repo: &fakeRepo{},
			req:  Request{Filters: models.PortfolioFilters{DateFrom: &from, DateTo: &to}},
			code: commonerrors.ErrCodeInvalidFilterFormat,
		},
		{
			name: "repository failure",
			repo: &fakeRepo{err: commonerrors.NewQueryExecutionFailedError("portfolio_page", errors.New("boom"))},
			code: commonerrors.ErrCodeQueryExecutionFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, Dependencies{Repository: tt.repo})
			_, err := svc.GetPortfolioAnalytics(context.Background(), "user-1", tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, commonerrors.AsStandardError(err).Code)
		})
	}
}

func TestNormalize(t *testing.T) {
	svc := newTestService(t, Dependencies{Repository: &fakeRepo{}})

	req, err := svc.Normalize(Request{Pagination: models.Pagination{Page: -2, Limit: 5000}, BenchmarkComparison: true})
	require.NoError(t, err)
	assert.Equal(t, 1, req.Pagination.Page)
	assert.Equal(t, 200, req.Pagination.Limit)
	assert.Equal(t, "riskScore", req.BenchmarkMetric)
}

func TestNormalize_ExclusiveUpperBound(t *testing.T) {
	svc := newTestService(t, Dependencies{Repository: &fakeRepo{}})
	day := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	next := day.AddDate(0, 0, 1)

	_, err := svc.Normalize(Request{Filters: models.PortfolioFilters{DateFrom: &day, DateBefore: &next}})
	require.NoError(t, err)

	_, err = svc.Normalize(Request{Filters: models.PortfolioFilters{DateFrom: &next, DateBefore: &next}})
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeInvalidFilterFormat, commonerrors.AsStandardError(err).Code)
}

func TestGetPortfolioAnalytics_Benchmarks(t *testing.T) {
	day := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("peers from search", func(t *testing.T) {
		peers := &fakePeers{byIndustry: map[string][]models.PortfolioRecord{
			"Textiles": {
				record(t, "p1", "Textiles", "CM4", 30, 5, 10, day),
				record(t, "p2", "Textiles", "CM2", 70, 8, 10, day),
			},
		}}
		svc := newTestService(t, Dependencies{Repository: &fakeRepo{overview: basePortfolio(t)}, Peers: peers})

		resp, err := svc.GetPortfolioAnalytics(context.Background(), "user-1", Request{BenchmarkComparison: true})
		require.NoError(t, err)
		assert.Equal(t, "search", resp.Metadata.PeerSource)
		assert.ElementsMatch(t, []string{"Textiles", "Retail"}, peers.industries)

		require.Len(t, resp.Data.Benchmarks, 3)
		c1 := resp.Data.Benchmarks[0]
		assert.Equal(t, "c1", c1.CompanyID)
		assert.Equal(t, 3, c1.PeerCount)
		assert.InDelta(t, 100.0, c1.Percentile, 1e-9)
	})

	t.Run("search failure falls back to page", func(t *testing.T) {
		peers := &fakePeers{err: errors.New("es down")}
		svc := newTestService(t, Dependencies{Repository: &fakeRepo{overview: basePortfolio(t)}, Peers: peers})

		resp, err := svc.GetPortfolioAnalytics(context.Background(), "user-1", Request{BenchmarkComparison: true})
		require.NoError(t, err)
		assert.Equal(t, "portfolio", resp.Metadata.PeerSource)
		require.Len(t, resp.Data.Benchmarks, 3)
		assert.Equal(t, 1, resp.Data.Benchmarks[0].PeerCount)
	})
}

func driftPortfolio(t *testing.T) *models.PortfolioOverview {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var companies []models.PortfolioRecord
	for i, avail := range []int{9, 9, 4, 4} {
		companies = append(companies, record(t, fmt.Sprintf("d%d", i), "Textiles", "CM2", 60, avail, 10, day.AddDate(0, i, 0)))
	}
	return &models.PortfolioOverview{TotalCount: 4, Companies: companies}
}

func TestGetPortfolioAnalytics_DriftAlert(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := newTestService(t, Dependencies{Repository: &fakeRepo{overview: driftPortfolio(t)}, Notifier: notifier})

	resp, err := svc.GetPortfolioAnalytics(context.Background(), "user-1", Request{CalculateDrift: true})
	require.NoError(t, err)

	require.NotNil(t, resp.Data.CoverageDrift)
	assert.Equal(t, coverage.DriftHigh, resp.Data.CoverageDrift.Severity)
	assert.InDelta(t, -50.0, resp.Data.CoverageDrift.CoverageDelta, 1e-9)

	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, "user-1", notifier.alerts[0].UserID)
	assert.Equal(t, notifier.alerts[0].AlertID, resp.Metadata.DriftAlertID)
}

func TestGetPortfolioAnalytics_DriftAlertFailureIsNotFatal(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("sns throttled")}
	svc := newTestService(t, Dependencies{Repository: &fakeRepo{overview: driftPortfolio(t)}, Notifier: notifier})

	resp, err := svc.GetPortfolioAnalytics(context.Background(), "user-1", Request{CalculateDrift: true})
	require.NoError(t, err)
	assert.Empty(t, resp.Metadata.DriftAlertID)
}

func TestGetPortfolioAnalytics_DriftAlertCooldown(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := newTestService(t, Dependencies{Repository: &fakeRepo{overview: driftPortfolio(t)}, Notifier: notifier})
	clock := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	ctx := context.Background()
	req := Request{CalculateDrift: true}

	first, err := svc.GetPortfolioAnalytics(ctx, "user-1", req)
	require.NoError(t, err)
	assert.NotEmpty(t, first.Metadata.DriftAlertID)

	// No cache is configured, so the drift is recomputed but not re-sent.
	second, err := svc.GetPortfolioAnalytics(ctx, "user-1", req)
	require.NoError(t, err)
	require.NotNil(t, second.Data.CoverageDrift)
	assert.Empty(t, second.Metadata.DriftAlertID)
	assert.Len(t, notifier.alerts, 1)

	_, err = svc.GetPortfolioAnalytics(ctx, "user-2", req)
	require.NoError(t, err)
	assert.Len(t, notifier.alerts, 2)

	clock = clock.Add(time.Hour)
	_, err = svc.GetPortfolioAnalytics(ctx, "user-1", req)
	require.NoError(t, err)
	assert.Len(t, notifier.alerts, 3)
}

func TestGetPortfolioAnalytics_FailedAlertIsRetried(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("sns throttled")}
	svc := newTestService(t, Dependencies{Repository: &fakeRepo{overview: driftPortfolio(t)}, Notifier: notifier})

	for i := 0; i < 2; i++ {
		_, err := svc.GetPortfolioAnalytics(context.Background(), "user-1", Request{CalculateDrift: true})
		require.NoError(t, err)
	}
	assert.Len(t, notifier.alerts, 2)
}

func TestGetCompanyRiskMetrics(t *testing.T) {
	rec := record(t, "c1", "Textiles", "CM1", 82, 9, 10, time.Now())
	cache := newMemoryCache()
	svc := newTestService(t, Dependencies{Repository: &fakeRepo{company: &rec}, Cache: cache})

	out, err := svc.GetCompanyRiskMetrics(context.Background(), "user-1", "req-c1")
	require.NoError(t, err)

	assert.Equal(t, "c1", out.CompanyID)
	require.NotNil(t, out.Region.State)
	assert.Equal(t, "Maharashtra", *out.Region.State)
	require.NotNil(t, out.Financials.EbitdaMargin)
	assert.Equal(t, 22.0, *out.Financials.EbitdaMargin)
	assert.Equal(t, models.StatusCompliant, out.Compliance.GST.Status)
	assert.Equal(t, models.AuditUnqualified, out.Compliance.Audit.Status)
	assert.Equal(t, 1500000.0, out.Exposure)
	assert.InDelta(t, 90.0, out.Coverage, 1e-9)
	assert.NotNil(t, out.Issues)
	assert.Len(t, cache.items, 1)

	t.Run("not found", func(t *testing.T) {
		_, err := svc.GetCompanyRiskMetrics(context.Background(), "user-1", "missing")
		assert.Equal(t, commonerrors.ErrCodeCompanyNotFound, commonerrors.AsStandardError(err).Code)
	})

	t.Run("no analysis", func(t *testing.T) {
		bare := models.PortfolioRecord{ID: "c2", RequestID: "req-c2"}
		svc := newTestService(t, Dependencies{Repository: &fakeRepo{company: &bare}})
		_, err := svc.GetCompanyRiskMetrics(context.Background(), "user-1", "req-c2")
		assert.Equal(t, commonerrors.ErrCodeNoRiskAnalysisData, commonerrors.AsStandardError(err).Code)
	})
}

func TestGetCompanyRiskMetrics_OtherUsersRequest(t *testing.T) {
	rec := record(t, "c1", "Textiles", "CM1", 82, 9, 10, time.Now())
	cache := newMemoryCache()
	svc := newTestService(t, Dependencies{Repository: &fakeRepo{company: &rec, owner: "user-a"}, Cache: cache})

	_, err := svc.GetCompanyRiskMetrics(context.Background(), "user-a", "req-c1")
	require.NoError(t, err)

	// The owner's cached entry must not leak to another user either.
	_, err = svc.GetCompanyRiskMetrics(context.Background(), "user-b", "req-c1")
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeCompanyNotFound, commonerrors.AsStandardError(err).Code)
}
