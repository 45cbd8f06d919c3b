// internal/repository/postgres/repository.go
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"risk-analytics/internal/analytics/extraction"
	"risk-analytics/internal/common/database"
	"risk-analytics/internal/common/errors"
	"risk-analytics/internal/common/logger"
	"risk-analytics/internal/models"
)

const defaultPageLimit = 100

// PortfolioRepository reads completed risk analyses from risk_analysis_requests.
type PortfolioRepository struct {
	db     *database.PostgresClient
	logger logger.Logger
}

func NewPortfolioRepository(db *database.PostgresClient, log logger.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "portfolio-repository"}),
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// GetPortfolioOverview returns one page of the user's companies plus the
// unpaged total for the same filters.
func (r *PortfolioRepository) GetPortfolioOverview(ctx context.Context, filters models.PortfolioFilters, sort models.SortOptions, page models.Pagination, userID string) (*models.PortfolioOverview, error) {
	if page.Limit <= 0 {
		page.Limit = defaultPageLimit
	}

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	start := time.Now()

	countSQL, countArgs := BuildCountQuery(filters, userID)
	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, r.queryError(ctx, QueryPortfolioCount, err)
	}

	overview := &models.PortfolioOverview{Companies: []models.PortfolioRecord{}, TotalCount: total}
	if total == 0 {
		return overview, nil
	}

	pageSQL, pageArgs := BuildPageQuery(filters, sort, page, userID)
	rows, err := r.db.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, r.queryError(ctx, QueryPortfolioPage, err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, r.queryError(ctx, QueryPortfolioPage, err)
		}
		overview.Companies = append(overview.Companies, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, r.queryError(ctx, QueryPortfolioPage, err)
	}

	r.logger.Debug("portfolio page loaded", map[string]interface{}{
		"userId":     userID,
		"page":       page.Page,
		"limit":      page.Limit,
		"rowCount":   len(overview.Companies),
		"totalCount": total,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return overview, nil
}

// GetCompanyByRequestID loads a single completed analysis owned by userID.
// Another user's request reads as not found.
func (r *PortfolioRepository) GetCompanyByRequestID(ctx context.Context, requestID, userID string) (*models.PortfolioRecord, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	rec, err := r.scanRecord(r.db.QueryRow(ctx, companyByRequestIDQuery, requestID, userID))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewCompanyNotFoundError(requestID)
		}
		return nil, r.queryError(ctx, QueryCompanyByID, err)
	}
	return &rec, nil
}

func (r *PortfolioRepository) scanRecord(row rowScanner) (models.PortfolioRecord, error) {
	var (
		rec                              models.PortfolioRecord
		companyName, riskGrade, industry sql.NullString
		state, city, modelType           sql.NullString
		riskScore                        sql.NullFloat64
		totalParams, availableParams     sql.NullInt64
		riskAnalysis                     []byte
		completedAt                      sql.NullTime
	)

	if err := row.Scan(
		&rec.ID, &rec.RequestID, &companyName, &riskScore, &riskGrade, &industry,
		&state, &city, &modelType, &totalParams, &availableParams,
		&riskAnalysis, &completedAt,
	); err != nil {
		return rec, err
	}

	rec.CompanyName = companyName.String
	rec.RiskGrade = riskGrade.String
	rec.Industry = industry.String
	rec.Region = models.Region{State: state.String, City: city.String}
	rec.ModelType = modelType.String
	rec.TotalParameters = int(totalParams.Int64)
	rec.AvailableParameters = int(availableParams.Int64)
	if riskScore.Valid {
		v := riskScore.Float64
		rec.RiskScore = &v
	}
	if completedAt.Valid {
		t := completedAt.Time
		rec.CompletedAt = &t
	}

	// A NULL column leaves the company ungraded without an issue.
	if len(riskAnalysis) > 0 {
		parsed := extraction.ParseRiskRecord(riskAnalysis)
		rec.RiskAnalysis = parsed.Value
		for _, is := range parsed.Issues {
			r.logger.Warn("risk analysis parse issue", map[string]interface{}{
				"companyId": rec.ID,
				"field":     is.Field,
				"code":      string(is.Code),
				"message":   is.Message,
			})
		}
	}
	return rec, nil
}

func (r *PortfolioRepository) queryError(ctx context.Context, name QueryName, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewQueryTimeoutError(string(name))
	}
	r.logger.Error("query failed", map[string]interface{}{
		"query": string(name),
		"error": err.Error(),
	})
	return errors.NewQueryExecutionFailedError(string(name), err)
}
