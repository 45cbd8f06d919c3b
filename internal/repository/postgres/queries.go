// internal/repository/postgres/queries.go
package postgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"risk-analytics/internal/models"
)

// QueryName labels a statement in logs and error details.
type QueryName string

const (
	QueryPortfolioPage  QueryName = "portfolio_page"
	QueryPortfolioCount QueryName = "portfolio_count"
	QueryCompanyByID    QueryName = "company_by_request_id"
)

const recordColumns = `id, request_id, company_name, risk_score, risk_grade, industry,
		       state, city, model_type, total_parameters, available_parameters,
		       risk_analysis, completed_at`

const companyByRequestIDQuery = `
		SELECT ` + recordColumns + `
		FROM risk_analysis_requests
		WHERE request_id = $1 AND user_id = $2 AND status = 'completed'`

// sortColumns whitelists the ORDER BY targets.
var sortColumns = map[models.SortField]string{
	models.SortByCompletedAt: "completed_at",
	models.SortByRiskScore:   "risk_score",
	models.SortByCompanyName: "company_name",
}

type whereBuilder struct {
	clauses []string
	args    []interface{}
}

// add appends cond, whose single %d is replaced by the placeholder index.
func (w *whereBuilder) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) sql() string {
	return strings.Join(w.clauses, " AND ")
}

func mapStrings(in []string, fn func(string) string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, fn(s))
		}
	}
	return out
}

func identity(s string) string { return s }

func buildWhere(filters models.PortfolioFilters, userID string) *whereBuilder {
	w := &whereBuilder{}
	w.add("user_id = $%d", userID)
	w.clauses = append(w.clauses, "status = 'completed'")

	if v := mapStrings(filters.ModelTypes, identity); len(v) > 0 {
		w.add("model_type = ANY($%d)", pq.Array(v))
	}
	if v := mapStrings(filters.Industries, strings.ToLower); len(v) > 0 {
		w.add("LOWER(industry) = ANY($%d)", pq.Array(v))
	}
	if v := mapStrings(filters.RiskGrades, strings.ToUpper); len(v) > 0 {
		w.add("UPPER(risk_grade) = ANY($%d)", pq.Array(v))
	}
	if v := mapStrings(filters.CompanyIDs, identity); len(v) > 0 {
		w.add("id = ANY($%d)", pq.Array(v))
	}
	if filters.DateFrom != nil {
		w.add("completed_at >= $%d", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		w.add("completed_at <= $%d", *filters.DateTo)
	}
	if filters.DateBefore != nil {
		w.add("completed_at < $%d", *filters.DateBefore)
	}
	return w
}

func orderBy(sort models.SortOptions) string {
	col, ok := sortColumns[sort.Field]
	if !ok {
		return "completed_at DESC NULLS LAST, id"
	}
	dir := "ASC"
	if sort.Descending {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s NULLS LAST, id", col, dir)
}

// BuildPageQuery returns the page statement and its arguments.
func BuildPageQuery(filters models.PortfolioFilters, sort models.SortOptions, page models.Pagination, userID string) (string, []interface{}) {
	w := buildWhere(filters, userID)
	query := fmt.Sprintf(`
		SELECT %s
		FROM risk_analysis_requests
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`, recordColumns, w.sql(), orderBy(sort), len(w.args)+1, len(w.args)+2)
	return query, append(w.args, page.Limit, page.Offset())
}

// BuildCountQuery returns the unpaged COUNT statement for the same filters.
func BuildCountQuery(filters models.PortfolioFilters, userID string) (string, []interface{}) {
	w := buildWhere(filters, userID)
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM risk_analysis_requests
		WHERE %s`, w.sql())
	return query, w.args
}
