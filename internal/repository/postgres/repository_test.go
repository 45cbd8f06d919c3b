package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"risk-analytics/internal/common/database"
	commonerrors "risk-analytics/internal/common/errors"
	"risk-analytics/internal/common/logger"
	"risk-analytics/internal/models"
)

var columns = []string{
	"id", "request_id", "company_name", "risk_score", "risk_grade", "industry",
	"state", "city", "model_type", "total_parameters", "available_parameters",
	"risk_analysis", "completed_at",
}

const analysisJSON = `{
	"allScores": [{"parameter": "GST Compliance", "score": 9, "maxScore": 10, "available": true}],
	"companyData": {"addresses": {"registered_address": {"state": "maharastra", "city": "bombay"}}}
}`

func newTestRepository(t *testing.T) (*PortfolioRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewZapAdapter(zaptest.NewLogger(t))
	return NewPortfolioRepository(database.NewPostgresFromDB(db, 5*time.Second), log), mock
}

func TestGetPortfolioOverview_Success(t *testing.T) {
	repo, mock := newTestRepository(t)
	completed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM risk_analysis_requests\s+WHERE user_id = \$1 AND status = 'completed' AND model_type = ANY\(\$2\)`).
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	mock.ExpectQuery(`(?s)SELECT id, request_id, .+FROM risk_analysis_requests\s+WHERE .+ORDER BY risk_score DESC NULLS LAST, id\s+LIMIT \$3 OFFSET \$4`).
		WithArgs("user-1", sqlmock.AnyArg(), 2, 2).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("c1", "req-1", "Acme", 71.5, "CM2", "Manufacturing", "Maharashtra", "Mumbai", "msme", int64(40), int64(32), []byte(analysisJSON), completed).
			AddRow("c2", "req-2", "Beta", nil, nil, nil, nil, nil, "msme", nil, nil, nil, nil))

	overview, err := repo.GetPortfolioOverview(context.Background(),
		models.PortfolioFilters{ModelTypes: []string{"msme"}},
		models.SortOptions{Field: models.SortByRiskScore, Descending: true},
		models.Pagination{Page: 2, Limit: 2},
		"user-1")
	require.NoError(t, err)

	assert.Equal(t, 42, overview.TotalCount)
	require.Len(t, overview.Companies, 2)

	first := overview.Companies[0]
	assert.Equal(t, "req-1", first.RequestID)
	require.NotNil(t, first.RiskScore)
	assert.Equal(t, 71.5, *first.RiskScore)
	assert.Equal(t, 32, first.AvailableParameters)
	assert.Equal(t, models.Region{State: "Maharashtra", City: "Mumbai"}, first.Region)
	require.NotNil(t, first.RiskAnalysis)
	assert.Len(t, first.RiskAnalysis.AllScores, 1)
	require.NotNil(t, first.CompletedAt)
	assert.True(t, completed.Equal(*first.CompletedAt))

	second := overview.Companies[1]
	assert.Nil(t, second.RiskScore)
	assert.Nil(t, second.RiskAnalysis)
	assert.Nil(t, second.CompletedAt)
	assert.Empty(t, second.RiskGrade)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPortfolioOverview_EmptySkipsPageQuery(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	overview, err := repo.GetPortfolioOverview(context.Background(), models.PortfolioFilters{}, models.SortOptions{}, models.Pagination{}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, overview.TotalCount)
	assert.NotNil(t, overview.Companies)
	assert.Empty(t, overview.Companies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPortfolioOverview_QueryError(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).WillReturnError(errors.New("connection reset"))

	_, err := repo.GetPortfolioOverview(context.Background(), models.PortfolioFilters{}, models.SortOptions{}, models.Pagination{}, "user-1")
	require.Error(t, err)

	stdErr := commonerrors.AsStandardError(err)
	assert.Equal(t, commonerrors.ErrCodeQueryExecutionFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestGetPortfolioOverview_Timeout(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).WillReturnError(context.DeadlineExceeded)

	_, err := repo.GetPortfolioOverview(context.Background(), models.PortfolioFilters{}, models.SortOptions{}, models.Pagination{}, "user-1")
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeQueryTimeout, commonerrors.AsStandardError(err).Code)
}

func TestGetCompanyByRequestID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery(`FROM risk_analysis_requests\s+WHERE request_id = \$1 AND user_id = \$2`).
			WithArgs("req-9", "u").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("c9", "req-9", "Gamma", 55.0, "CM3", "Retail", "Karnataka", "Bengaluru", "msme", int64(40), int64(20), []byte(analysisJSON), time.Now()))

		rec, err := repo.GetCompanyByRequestID(context.Background(), "req-9", "u")
		require.NoError(t, err)
		assert.Equal(t, "Gamma", rec.CompanyName)
		assert.NotNil(t, rec.RiskAnalysis)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery(`WHERE request_id = \$1`).
			WithArgs("missing", "u").
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.GetCompanyByRequestID(context.Background(), "missing", "u")
		require.Error(t, err)
		assert.Equal(t, commonerrors.ErrCodeCompanyNotFound, commonerrors.AsStandardError(err).Code)
	})

	t.Run("other user's request", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery(`WHERE request_id = \$1 AND user_id = \$2`).
			WithArgs("req-9", "intruder").
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.GetCompanyByRequestID(context.Background(), "req-9", "intruder")
		require.Error(t, err)
		assert.Equal(t, commonerrors.ErrCodeCompanyNotFound, commonerrors.AsStandardError(err).Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBuildPageQuery(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args := BuildPageQuery(models.PortfolioFilters{
		Industries: []string{" Manufacturing ", ""},
		RiskGrades: []string{"cm1"},
		DateFrom:   &from,
	}, models.SortOptions{Field: "drop table"}, models.Pagination{Page: 3, Limit: 10}, "u")

	assert.Contains(t, query, "LOWER(industry) = ANY($2)")
	assert.Contains(t, query, "UPPER(risk_grade) = ANY($3)")
	assert.Contains(t, query, "completed_at >= $4")
	assert.Contains(t, query, "ORDER BY completed_at DESC NULLS LAST, id")
	assert.Contains(t, query, "LIMIT $5 OFFSET $6")
	assert.NotContains(t, query, "drop table")

	require.Len(t, args, 6)
	assert.Equal(t, "u", args[0])
	assert.Equal(t, from, args[3])
	assert.Equal(t, 10, args[4])
	assert.Equal(t, 20, args[5])
}

func TestBuildCountQuery_DateBounds(t *testing.T) {
	to := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	before := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	query, args := BuildCountQuery(models.PortfolioFilters{DateTo: &to, DateBefore: &before}, "u")

	assert.Contains(t, query, "completed_at <= $2")
	assert.Contains(t, query, "completed_at < $3")
	assert.Equal(t, []interface{}{"u", to, before}, args)
}

func TestBuildCountQuery_NoOptionalFilters(t *testing.T) {
	query, args := BuildCountQuery(models.PortfolioFilters{}, "u")
	assert.Contains(t, query, "WHERE user_id = $1 AND status = 'completed'")
	assert.Equal(t, []interface{}{"u"}, args)
}
