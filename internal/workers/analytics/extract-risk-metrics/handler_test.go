package extractriskmetrics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"risk-analytics/internal/analytics/extraction"
	"risk-analytics/internal/common/config"
	"risk-analytics/internal/common/errors"
	"risk-analytics/internal/common/logger"
	"risk-analytics/internal/common/observability"
	"risk-analytics/internal/models"
	"risk-analytics/internal/repository/cache"
	"risk-analytics/internal/services/analytics"
)

const riskAnalysis = `{
  "allScores": [{"parameter": "GST Compliance", "score": 8.2, "maxScore": 10, "available": true}],
  "companyData": {"addresses": {"registered_address": {"state": "Tamil Nadu", "city": "Madras"}}},
  "financialData": {"years": ["2024"], "ratios": {"current_ratio": {"2024": 1.8}}}
}`

type stubRepo struct {
	rec   *models.PortfolioRecord
	owner string
}

func (s *stubRepo) GetPortfolioOverview(context.Context, models.PortfolioFilters, models.SortOptions, models.Pagination, string) (*models.PortfolioOverview, error) {
	return &models.PortfolioOverview{}, nil
}

func (s *stubRepo) GetCompanyByRequestID(_ context.Context, requestID, userID string) (*models.PortfolioRecord, error) {
	if s.rec == nil || s.rec.RequestID != requestID || s.owner != userID {
		return nil, errors.NewCompanyNotFoundError(requestID)
	}
	return s.rec, nil
}

func createTestHandler(t *testing.T, repo *stubRepo) *Handler {
	log := logger.NewZapAdapter(zaptest.NewLogger(t))
	svc := analytics.NewService(analytics.Dependencies{Repository: repo, Logger: log}, analytics.Options{})
	return NewHandler(&Config{Timeout: 5 * time.Second}, repo, svc, nil, observability.NewNoop(), log)
}

func TestHandler_Execute_InlineDocument(t *testing.T) {
	h := createTestHandler(t, &stubRepo{})

	out, err := h.Execute(context.Background(), &Input{
		CompanyID:    "c1",
		RequestID:    "req-1",
		RiskAnalysis: json.RawMessage(riskAnalysis),
	})
	require.NoError(t, err)

	m := out.RiskMetrics
	require.NotNil(t, m)
	assert.Equal(t, "c1", m.CompanyID)
	require.NotNil(t, m.Region.State)
	assert.Equal(t, "Tamil Nadu", *m.Region.State)
	assert.Equal(t, "Chennai", *m.Region.City)
	assert.Equal(t, models.ConfidenceHigh, m.Region.Confidence)
	assert.Equal(t, models.StatusPartial, m.Compliance.GST.Status)
	assert.Equal(t, m.Health.Score, out.HealthScore)
	assert.Equal(t, len(m.Issues), out.IssueCount)
	assert.False(t, out.ExtractedAt.IsZero())
}

func TestHandler_Execute_LoadsByRequestID(t *testing.T) {
	rec := models.PortfolioRecord{
		ID:           "c2",
		RequestID:    "req-2",
		RiskAnalysis: extraction.ParseRiskRecord(riskAnalysis).Value,
	}
	h := createTestHandler(t, &stubRepo{rec: &rec, owner: "user-1"})

	out, err := h.Execute(context.Background(), &Input{RequestID: "req-2", UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "c2", out.RiskMetrics.CompanyID)

	_, err = h.Execute(context.Background(), &Input{RequestID: "req-2", UserID: "user-2"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCompanyNotFound, errors.AsStandardError(err).Code)
}

func TestHandler_Execute_InvalidatesUserCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	c := cache.NewAnalyticsCache(rdb)

	ctx := context.Background()
	key, err := cache.Key("portfolio", "user-1", map[string]int{"page": 1})
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, key, map[string]string{"k": "v"}, time.Minute))
	other, err := cache.Key("portfolio", "user-2", map[string]int{"page": 1})
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, other, map[string]string{"k": "v"}, time.Minute))

	log := logger.NewZapAdapter(zaptest.NewLogger(t))
	repo := &stubRepo{}
	svc := analytics.NewService(analytics.Dependencies{Repository: repo, Logger: log}, analytics.Options{})
	h := NewHandler(&Config{Timeout: 5 * time.Second}, repo, svc, c, observability.NewNoop(), log)

	out, err := h.Execute(ctx, &Input{CompanyID: "c1", UserID: "user-1", RiskAnalysis: json.RawMessage(riskAnalysis)})
	require.NoError(t, err)
	assert.Equal(t, 1, out.CacheEntriesCleared)
	assert.False(t, mr.Exists(key))
	assert.True(t, mr.Exists(other))
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
		code  errors.ErrorCode
	}{
		{"nil input", nil, errors.ErrCodeMissingData},
		{"nothing to extract", &Input{CompanyID: "c1"}, errors.ErrCodeMissingData},
		{"unknown request", &Input{RequestID: "nope", UserID: "user-1"}, errors.ErrCodeCompanyNotFound},
		{"request without user", &Input{RequestID: "req-2"}, errors.ErrCodeMissingData},
		{"not an object", &Input{RiskAnalysis: json.RawMessage(`[1,2]`)}, errors.ErrCodeNoRiskAnalysisData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t, &stubRepo{})
			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.AsStandardError(err).Code)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 30*time.Second, LoadConfig(configWithTimeout(0)).Timeout)
	assert.Equal(t, 2*time.Second, LoadConfig(configWithTimeout(2000)).Timeout)
}

func configWithTimeout(ms int) config.WorkerConfig {
	return config.WorkerConfig{Enabled: true, Timeout: ms}
}
